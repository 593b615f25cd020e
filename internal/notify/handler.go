// internal/notify/handler.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"myads-pipeline/internal/common/errors"
	"myads-pipeline/internal/common/logger"
	"myads-pipeline/internal/common/metrics"
	"myads-pipeline/internal/format"
	"myads-pipeline/internal/watermark"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

const (
	TaskType = "process-myads"
)

// inputSchema validates the job variables before any work is attempted.
var inputSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"userId":     map[string]interface{}{"type": "string", "minLength": 1},
		"frequency":  map[string]interface{}{"type": "string", "enum": []string{"daily", "weekly"}},
		"force":      map[string]interface{}{"type": "boolean"},
		"testSendTo": map[string]interface{}{"type": "string"},
	},
	"required": []string{"userId", "frequency"},
}

// Define interfaces for mocking
type EmailSender interface {
	SendDualFormat(ctx context.Context, from, to, subject, plain, html string) error
}

type UserService interface {
	GetEmail(ctx context.Context, userID string) (string, error)
}

type QueryService interface {
	Results(ctx context.Context, userID, frequency string) ([]format.QueryResult, error)
}

type Handler struct {
	config    *Config
	logger    logger.Logger
	email     EmailSender
	users     UserService
	queries   QueryService
	guard     *SentGuard
	formatter *format.Formatter

	now func() time.Time
}

func NewHandler(config *Config, email EmailSender, users UserService, queries QueryService, guard *SentGuard, formatter *format.Formatter, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
		email:     email,
		users:     users,
		queries:   queries,
		guard:     guard,
		formatter: formatter,
		now:       time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	if err := validateInput(job.Variables); err != nil {
		h.failJob(client, job, string(errors.ErrCodeInvalidJobInput), err.Error())
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		metrics.NotificationsSent.WithLabelValues(input.Frequency, StatusFailed).Inc()
		h.failJob(client, job, errorCode(err), err.Error())
		return
	}

	metrics.NotificationsSent.WithLabelValues(input.Frequency, output.Status).Inc()
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	freq := watermark.Frequency(input.Frequency)
	if !freq.Valid() {
		return nil, errors.NewInvalidJobInputError(fmt.Sprintf("unknown frequency: %s", input.Frequency))
	}

	today := h.now().UTC()

	if !input.Force {
		sent, err := h.guard.AlreadySent(ctx, input.Frequency, input.UserID, today)
		if err != nil {
			// Fail open: a guard outage must not drop notifications,
			// duplicates are the accepted cost.
			h.logger.WithError(err).Warn("sent-guard check failed, proceeding", map[string]interface{}{
				"userId": input.UserID,
			})
		} else if sent {
			h.logger.Info("notification already sent today, skipping", map[string]interface{}{
				"userId":    input.UserID,
				"frequency": input.Frequency,
			})
			return h.output(StatusSkipped), nil
		}
	}

	recipient := input.TestSendTo
	if recipient == "" {
		email, err := h.users.GetEmail(ctx, input.UserID)
		if err != nil {
			return nil, errors.NewRecipientLookupError(input.UserID, err)
		}
		recipient = email
	}

	results, err := h.queries.Results(ctx, input.UserID, input.Frequency)
	if err != nil {
		return nil, errors.NewQueryExecutionError(input.UserID, err)
	}
	if totalResults(results) == 0 {
		h.logger.Info("no new results for user, nothing to send", map[string]interface{}{
			"userId":    input.UserID,
			"frequency": input.Frequency,
		})
		return h.output(StatusEmpty), nil
	}

	plain := h.formatter.ToPlain(results)
	html, ok := h.formatter.ToHTML(results, h.config.HTMLColumns)
	if !ok {
		// Unsupported layout is recoverable per email: fall back to the
		// single-column default.
		h.logger.Warn("unsupported column layout, falling back to single column", map[string]interface{}{
			"col": h.config.HTMLColumns,
		})
		html, _ = h.formatter.ToHTML(results, format.SingleColumn)
	}

	heading := fmt.Sprintf("%s email", capitalize(input.Frequency))
	env := format.RenderEmail(plain, html, heading, today.Format("January 2, 2006"), recipient)

	if h.config.EmailEnabled {
		if err := h.email.SendDualFormat(ctx, h.config.FromEmail, recipient, env.Subject, env.Plain, env.HTML); err != nil {
			return nil, errors.NewNotificationSendError(input.UserID, err)
		}
	}

	// Test sends do not consume the user's daily marker.
	if input.TestSendTo == "" {
		if err := h.guard.MarkSent(ctx, input.Frequency, input.UserID, today); err != nil {
			h.logger.WithError(err).Warn("failed to mark notification as sent", map[string]interface{}{
				"userId": input.UserID,
			})
		}
	}

	return h.output(StatusSent), nil
}

func (h *Handler) output(status string) *Output {
	return &Output{
		NotificationID: uuid.New().String(),
		Status:         status,
		SentAt:         h.now().UTC().Format(time.RFC3339),
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

// Execute exposes the core logic for tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func validateInput(variables string) error {
	schemaLoader := gojsonschema.NewGoLoader(inputSchema)
	documentLoader := gojsonschema.NewStringLoader(variables)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.NewInvalidJobInputError(err.Error())
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return errors.NewInvalidJobInputError(strings.Join(details, "; "))
	}
	return nil
}

func errorCode(err error) string {
	if stdErr, ok := err.(*errors.StandardError); ok {
		return string(stdErr.Code)
	}
	return string(errors.ErrCodeNotificationSendFailed)
}

func totalResults(results []format.QueryResult) int {
	n := 0
	for _, q := range results {
		n += len(q.Results)
	}
	return n
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
