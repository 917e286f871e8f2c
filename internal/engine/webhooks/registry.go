package webhooks

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "hiveroadmap/internal/pkg/errors"
	"hiveroadmap/internal/platform/models"
)

const MinSecretLength = 8

// DefaultEvents is used when a webhook is created without events.
var DefaultEvents = []string{models.EventStatusSnapshot}

type CreateInput struct {
	URL    string
	Events []string
	Secret string
	Active *bool
}

type DeleteResult struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

type entry struct {
	webhook models.Webhook
	seq     uint64
}

// Registry is the in-process webhook store. Nothing survives a restart.
type Registry struct {
	mu            sync.RWMutex
	webhooks      map[string]*entry
	seq           uint64
	defaultSecret string
	validateURL   func(string) error
	now           func() time.Time
}

func NewRegistry(defaultSecret string, validateURL func(string) error) *Registry {
	return &Registry{
		webhooks:      make(map[string]*entry),
		defaultSecret: defaultSecret,
		validateURL:   validateURL,
		now:           time.Now,
	}
}

func (r *Registry) Create(in CreateInput) (models.WebhookView, error) {
	if err := r.validateURL(in.URL); err != nil {
		return models.WebhookView{}, err
	}

	events := in.Events
	if len(events) == 0 {
		events = DefaultEvents
	}

	secret := in.Secret
	if len(secret) < MinSecretLength {
		secret = r.defaultSecret
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	wh := models.Webhook{
		ID:        uuid.New().String(),
		URL:       in.URL,
		Events:    append([]string(nil), events...),
		Secret:    secret,
		Active:    active,
		CreatedAt: r.now().UTC(),
	}

	r.mu.Lock()
	r.seq++
	r.webhooks[wh.ID] = &entry{webhook: wh, seq: r.seq}
	r.mu.Unlock()

	return wh.View(), nil
}

func (r *Registry) Get(id string) (models.WebhookView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.webhooks[id]
	if !ok {
		return models.WebhookView{}, notFound(id)
	}
	return e.webhook.View(), nil
}

// List returns every webhook in creation order.
func (r *Registry) List() []models.WebhookView {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.webhooks))
	for _, e := range r.webhooks {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	views := make([]models.WebhookView, 0, len(entries))
	for _, e := range entries {
		views = append(views, e.webhook.View())
	}
	r.mu.RUnlock()

	return views
}

func (r *Registry) Delete(id string) (DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.webhooks[id]; !ok {
		return DeleteResult{}, notFound(id)
	}
	delete(r.webhooks, id)
	return DeleteResult{Deleted: true, ID: id}, nil
}

// RecordDeliveryResult updates the delivery history of one webhook. A
// webhook removed while its delivery was in flight is ignored.
func (r *Registry) RecordDeliveryResult(id string, success bool, detail interface{}) {
	now := r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.webhooks[id]
	if !ok {
		return
	}

	if success {
		e.webhook.LastSuccessAt = &now
		e.webhook.LastErrorAt = nil
		e.webhook.LastError = nil
		return
	}

	msg := coerceDetail(detail)
	e.webhook.LastErrorAt = &now
	e.webhook.LastError = &msg
}

// Matching returns copies, secrets included, of every active webhook
// subscribed to eventType directly or through the wildcard.
func (r *Registry) Matching(eventType string) []models.Webhook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*entry
	for _, e := range r.webhooks {
		if e.webhook.Active && e.webhook.Subscribes(eventType) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]models.Webhook, 0, len(matched))
	for _, e := range matched {
		out = append(out, copyWebhook(e.webhook))
	}
	return out
}

// Lookup returns a copy of the webhook including its secret.
func (r *Registry) Lookup(id string) (models.Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.webhooks[id]
	if !ok {
		return models.Webhook{}, notFound(id)
	}
	return copyWebhook(e.webhook), nil
}

func copyWebhook(w models.Webhook) models.Webhook {
	w.Events = append([]string(nil), w.Events...)
	return w
}

func notFound(id string) error {
	return apperrors.NotFound("Webhook not found", map[string]string{"id": id})
}

func coerceDetail(detail interface{}) string {
	switch d := detail.(type) {
	case nil:
		return "unknown error"
	case string:
		return d
	case error:
		return d.Error()
	case []byte:
		return string(d)
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return "unserializable error detail"
		}
		return string(b)
	}
}
