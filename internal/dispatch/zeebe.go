// internal/dispatch/zeebe.go
package dispatch

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// ZeebeSubmitter submits notification jobs by starting one process instance
// per user on the broker. The broker owns execution; Submit returns as soon
// as the instance is accepted.
type ZeebeSubmitter struct {
	client    zbc.Client
	processID string
	timeout   time.Duration
}

// NewZeebeSubmitter creates a submitter for the given BPMN process.
func NewZeebeSubmitter(client zbc.Client, processID string, timeout time.Duration) *ZeebeSubmitter {
	return &ZeebeSubmitter{
		client:    client,
		processID: processID,
		timeout:   timeout,
	}
}

// Submit starts a process instance carrying the job as variables.
func (s *ZeebeSubmitter) Submit(ctx context.Context, job Job) error {
	cmd, err := s.client.NewCreateInstanceCommand().
		BPMNProcessId(s.processID).
		LatestVersion().
		VariablesFromObject(job)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = cmd.Send(ctx)
	return err
}
