// cmd/scheduler/app.go
package main

import (
	"context"
	"fmt"
	"time"

	"myads-pipeline/internal/admin"
	"myads-pipeline/internal/common/aws"
	"myads-pipeline/internal/common/config"
	"myads-pipeline/internal/common/database"
	"myads-pipeline/internal/common/http"
	"myads-pipeline/internal/common/logger"
	"myads-pipeline/internal/common/observability"
	"myads-pipeline/internal/common/zeebe"
	"myads-pipeline/internal/dispatch"
	"myads-pipeline/internal/ingest"
	"myads-pipeline/internal/watermark"
)

// app bundles the wired pipeline components shared by the run and schedule
// commands.
type app struct {
	cfg   *config.Config
	log   logger.Logger
	obs   *observability.Observability
	probe ingest.Probe

	pg         *database.PostgresClient
	zeebeConn  *zeebe.Client
	dispatcher *dispatch.Dispatcher
	admin      *admin.Notifier
}

// newApp connects to Postgres, Zeebe, and the notification channels and wires
// the dispatcher. adminEmail may be empty; SNS is used only when a topic is
// configured.
func newApp(ctx context.Context, cfg *config.Config, log logger.Logger, adminEmail string) (*app, error) {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if err := pg.Ping(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	zeebeConn, err := zeebe.NewClientWithConfig(&zeebe.ClientConfig{
		GatewayAddress:         cfg.Zeebe.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         config.GetDuration(cfg.Zeebe.RequestTimeout),
	})
	if err != nil {
		pg.Close()
		return nil, fmt.Errorf("zeebe: %w", err)
	}

	apiClient := http.NewAuthenticatedClient(config.GetDuration(cfg.API.Timeout), cfg.API.Token)

	registry := dispatch.NewHTTPUserRegistry(cfg.API.UsersSinceEndpoint, apiClient)
	submitter := dispatch.NewZeebeSubmitter(zeebeConn.GetClient(), cfg.Zeebe.ProcessID,
		config.GetDuration(cfg.Zeebe.RequestTimeout))
	watermarks := watermark.NewStore(pg.DB)
	dispatcher := dispatch.New(registry, submitter, watermarks, log)

	probe, err := newProbe(cfg, apiClient)
	if err != nil {
		zeebeConn.Close()
		pg.Close()
		return nil, err
	}

	notifier, err := newAdminNotifier(ctx, cfg, log, adminEmail)
	if err != nil {
		zeebeConn.Close()
		pg.Close()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		log:        log,
		obs:        observability.New("myads-scheduler"),
		probe:      probe,
		pg:         pg,
		zeebeConn:  zeebeConn,
		dispatcher: dispatcher,
		admin:      notifier,
	}, nil
}

func (a *app) close() {
	a.obs.Shutdown()
	if err := a.zeebeConn.Close(); err != nil {
		a.log.WithError(err).Warn("error closing zeebe client", nil)
	}
	if err := a.pg.Close(); err != nil {
		a.log.WithError(err).Warn("error closing postgres", nil)
	}
}

// newProbe selects the index probe: the ADS Solr endpoint when configured,
// the Elasticsearch mirror otherwise.
func newProbe(cfg *config.Config, apiClient *http.Client) (ingest.Probe, error) {
	if cfg.API.SolrQueryEndpoint != "" {
		return ingest.NewSolrProbe(cfg.API.SolrQueryEndpoint, apiClient), nil
	}
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, fmt.Errorf("elasticsearch: %w", err)
		}
		return ingest.NewElasticsearchProbe(es.Client, cfg.Database.Elasticsearch.Index), nil
	}
	return nil, fmt.Errorf("no index probe configured: set api.solr_query_endpoint or database.elasticsearch.addresses")
}

func newAdminNotifier(ctx context.Context, cfg *config.Config, log logger.Logger, adminEmail string) (*admin.Notifier, error) {
	var email admin.EmailSender
	var topics admin.TopicPublisher

	if adminEmail != "" {
		ses, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("ses: %w", err)
		}
		email = ses
	}
	if cfg.Notifications.Admin.SNSTopicARN != "" {
		sns, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("sns: %w", err)
		}
		topics = sns
	}

	return admin.NewNotifier(email, topics,
		cfg.Notifications.Email.FromEmail, adminEmail,
		cfg.Notifications.Admin.SNSTopicARN, log), nil
}

// runFrequency executes one gated dispatch run for a single frequency.
// Explicit user ids skip the readiness gate and the watermark.
func (a *app) runFrequency(ctx context.Context, opts dispatch.RunOptions) error {
	freq := string(opts.Frequency)
	log := a.log.WithFields(map[string]interface{}{"frequency": freq})

	if len(opts.UserIDs) == 0 {
		gate := a.gateFor(opts.Frequency)
		result := gate.Check(ctx)
		if !result.Complete {
			log.Error("ingest readiness check failed, skipping dispatch", map[string]interface{}{
				"gate":     gateName(opts.Frequency),
				"attempts": result.Attempts,
				"elapsed":  result.Elapsed.String(),
			})
			a.admin.GateFailed(ctx, gateName(opts.Frequency), result.Elapsed)
			a.obs.RecordRun(ctx, freq, "aborted")
			return fmt.Errorf("%s ingest incomplete after %s", gateName(opts.Frequency), result.Elapsed)
		}
		log.Info("ingest readiness confirmed", map[string]interface{}{
			"gate":     gateName(opts.Frequency),
			"attempts": result.Attempts,
		})
	}

	start := time.Now()
	a.admin.ProcessingStarted(ctx, freq, sinceOrFloor(opts))

	summary, err := a.dispatcher.Run(ctx, opts)
	if err != nil {
		a.obs.RecordRun(ctx, freq, "failed")
		return err
	}

	a.admin.ProcessingFinished(ctx, freq, summary.UsersDispatched, time.Since(start))
	a.obs.RecordRun(ctx, freq, "completed")
	a.obs.RecordRunDuration(ctx, time.Since(start), freq)
	return nil
}

func (a *app) gateFor(freq watermark.Frequency) ingest.Gate {
	if freq == watermark.Weekly {
		return ingest.NewSampledManifestGate(a.cfg.Ingest, a.probe, a.log)
	}
	return ingest.NewIndexMarkerGate(a.cfg.Ingest, a.probe, a.log)
}

func gateName(freq watermark.Frequency) string {
	if freq == watermark.Weekly {
		return "astro"
	}
	return "arxiv"
}

func sinceOrFloor(opts dispatch.RunOptions) time.Time {
	if opts.Since != nil {
		return *opts.Since
	}
	return dispatch.EpochFloor
}
