package models

import "time"

const (
	EventStatusSnapshot    = "roadmap.status.snapshot"
	EventAggregateSnapshot = "roadmap.aggregate.snapshot"
	EventWebhookTest       = "webhook.test"
	EventWildcard          = "*"
)

type Webhook struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Events        []string   `json:"events"`
	Secret        string     `json:"-"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastSuccessAt *time.Time `json:"lastSuccessAt"`
	LastErrorAt   *time.Time `json:"lastErrorAt"`
	LastError     *string    `json:"lastError"`
}

// Subscribes reports whether the webhook should receive eventType.
func (w *Webhook) Subscribes(eventType string) bool {
	for _, e := range w.Events {
		if e == eventType || e == EventWildcard {
			return true
		}
	}
	return false
}

// View returns the externally observable part of the webhook.
func (w *Webhook) View() WebhookView {
	return WebhookView{
		ID:            w.ID,
		URL:           w.URL,
		Events:        append([]string(nil), w.Events...),
		Active:        w.Active,
		CreatedAt:     w.CreatedAt,
		LastSuccessAt: copyTime(w.LastSuccessAt),
		LastErrorAt:   copyTime(w.LastErrorAt),
		LastError:     copyString(w.LastError),
	}
}

// WebhookView never carries the secret.
type WebhookView struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Events        []string   `json:"events"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastSuccessAt *time.Time `json:"lastSuccessAt"`
	LastErrorAt   *time.Time `json:"lastErrorAt"`
	LastError     *string    `json:"lastError"`
}

type WebhookEvent struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

type Delivery struct {
	ID          string    `json:"id"`
	WebhookID   string    `json:"webhookId"`
	EventID     string    `json:"eventId"`
	EventType   string    `json:"eventType"`
	StatusCode  int       `json:"statusCode"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	DurationMs  int64     `json:"durationMs"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
