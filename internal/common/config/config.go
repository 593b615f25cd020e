// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Zeebe         ZeebeConfig        `mapstructure:"zeebe"`
	Database      DatabaseConfig     `mapstructure:"database"`
	API           APIConfig          `mapstructure:"api"`
	Ingest        IngestConfig       `mapstructure:"ingest"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Schedule      ScheduleConfig     `mapstructure:"schedule"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ZeebeConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	ProcessID      string `mapstructure:"process_id"`      // BPMN process started per notification job
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"` // mirror index holding ingested records
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// APIConfig holds the external ADS API endpoints and credentials.
type APIConfig struct {
	SolrQueryEndpoint  string `mapstructure:"solr_query_endpoint"`
	UserEmailEndpoint  string `mapstructure:"user_email_endpoint"` // GET <endpoint>/<user_id>
	UsersSinceEndpoint string `mapstructure:"users_since_endpoint"`
	VaultQueryEndpoint string `mapstructure:"vault_query_endpoint"`
	Token              string `mapstructure:"token"`
	Timeout            int    `mapstructure:"timeout"` // milliseconds
	AbstractBaseURL    string `mapstructure:"abstract_base_url"`
}

// IngestConfig holds settings for the readiness gates.
type IngestConfig struct {
	ArxivUpdateAgentDir string `mapstructure:"arxiv_update_agent_dir"`
	ArxivIncomingAbsDir string `mapstructure:"arxiv_incoming_abs_dir"`
	ArxivTimedeltaDays  int    `mapstructure:"arxiv_timedelta_days"`
	AstroIncomingDir    string `mapstructure:"astro_incoming_dir"`
	AstroTimedeltaDays  int    `mapstructure:"astro_timedelta_days"`
	AstroSampleSize     int    `mapstructure:"astro_sample_size"`
	SleepDelay          int    `mapstructure:"sleep_delay"`   // seconds between probe attempts
	SleepTimeout        int    `mapstructure:"sleep_timeout"` // seconds before giving up
}

// NotificationConfig holds settings for the notification worker and admin alerts.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	Admin struct {
		SNSTopicARN string `mapstructure:"sns_topic_arn"`
	} `mapstructure:"admin"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SentGuardTTLHours int `mapstructure:"sent_guard_ttl_hours"`
}

// ScheduleConfig holds cron expressions for the in-process scheduler.
type ScheduleConfig struct {
	Daily  string `mapstructure:"daily"`
	Weekly string `mapstructure:"weekly"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
