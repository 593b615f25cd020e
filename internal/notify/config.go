// internal/notify/config.go
package notify

import "time"

type Config struct {
	EmailEnabled bool
	FromEmail    string
	HTMLColumns  int
	GuardTTL     time.Duration
	Timeout      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		EmailEnabled: true,
		HTMLColumns:  2,
		GuardTTL:     48 * time.Hour,
		Timeout:      30 * time.Second,
	}
}
