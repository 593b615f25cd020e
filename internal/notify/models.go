// internal/notify/models.go
package notify

type Input struct {
	UserID     string `json:"userId"`
	Frequency  string `json:"frequency"` // "daily" or "weekly"
	Force      bool   `json:"force,omitempty"`
	TestSendTo string `json:"testSendTo,omitempty"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "skipped", "empty", "failed"
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent    = "sent"
	StatusSkipped = "skipped" // already sent today, force not set
	StatusEmpty   = "empty"   // no new results, nothing to send
	StatusFailed  = "failed"
)
