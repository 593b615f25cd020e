// internal/admin/notifier.go
package admin

import (
	"context"
	"fmt"
	"time"

	"myads-pipeline/internal/common/logger"
)

// Define interfaces for mocking
type EmailSender interface {
	SendDualFormat(ctx context.Context, from, to, subject, plain, html string) error
}

type TopicPublisher interface {
	PublishToTopic(ctx context.Context, topicARN, subject, message string) error
}

// Notifier delivers operator alerts about pipeline runs. Email and SNS
// channels are both optional; an unset channel is silently skipped.
type Notifier struct {
	email     EmailSender
	topics    TopicPublisher
	fromEmail string
	toEmail   string
	topicARN  string
	logger    logger.Logger
}

func NewNotifier(email EmailSender, topics TopicPublisher, fromEmail, toEmail, topicARN string, log logger.Logger) *Notifier {
	return &Notifier{
		email:     email,
		topics:    topics,
		fromEmail: fromEmail,
		toEmail:   toEmail,
		topicARN:  topicARN,
		logger:    log,
	}
}

func (n *Notifier) ProcessingStarted(ctx context.Context, frequency string, since time.Time) {
	subject := fmt.Sprintf("myADS %s processing has started", frequency)
	body := fmt.Sprintf("Processing %s notifications for users updated since %s.",
		frequency, since.Format(time.RFC3339))
	n.publish(ctx, subject, body)
}

func (n *Notifier) ProcessingFinished(ctx context.Context, frequency string, dispatched int, elapsed time.Duration) {
	subject := fmt.Sprintf("myADS %s processing has completed", frequency)
	body := fmt.Sprintf("Dispatched notification jobs for %d users in %s.",
		dispatched, elapsed.Round(time.Second))
	n.publish(ctx, subject, body)
}

func (n *Notifier) GateFailed(ctx context.Context, gate string, elapsed time.Duration) {
	subject := fmt.Sprintf("myADS processing aborted: %s ingest incomplete", gate)
	body := fmt.Sprintf("The %s readiness check did not complete within %s. "+
		"Notification dispatch was skipped; rerun manually once the index has caught up.",
		gate, elapsed.Round(time.Second))
	n.publish(ctx, subject, body)
}

func (n *Notifier) publish(ctx context.Context, subject, body string) {
	if n.email != nil && n.toEmail != "" {
		if err := n.email.SendDualFormat(ctx, n.fromEmail, n.toEmail, subject, body, ""); err != nil {
			n.logger.WithError(err).Warn("failed to send admin email", map[string]interface{}{
				"subject": subject,
			})
		}
	}
	if n.topics != nil && n.topicARN != "" {
		if err := n.topics.PublishToTopic(ctx, n.topicARN, subject, body); err != nil {
			n.logger.WithError(err).Warn("failed to publish admin alert", map[string]interface{}{
				"subject": subject,
			})
		}
	}
}
