package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"hiveroadmap/internal/engine/webhooks"
	apperrors "hiveroadmap/internal/pkg/errors"
	"hiveroadmap/internal/platform/models"
	"hiveroadmap/internal/platform/repositories"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type DeliveryLister interface {
	ListByWebhook(ctx context.Context, webhookID string, limit int) ([]*models.Delivery, error)
}

type WebhookHandler struct {
	registry      *webhooks.Registry
	dispatcher    *webhooks.Dispatcher
	deliveries    DeliveryLister
	exposeDetails bool
}

func NewWebhookHandler(registry *webhooks.Registry, dispatcher *webhooks.Dispatcher, deliveries DeliveryLister, exposeDetails bool) *WebhookHandler {
	return &WebhookHandler{
		registry:      registry,
		dispatcher:    dispatcher,
		deliveries:    deliveries,
		exposeDetails: exposeDetails,
	}
}

type createWebhookRequest struct {
	URL    string   `json:"url" validate:"required,url"`
	Events []string `json:"events" validate:"omitempty,dive,required"`
	Secret *string  `json:"secret" validate:"omitempty,min=8"`
	Active *bool    `json:"active"`
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.registry.List()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(items),
		"webhooks": items,
	})
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createWebhookRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, apperrors.BadRequest("Invalid request body", map[string]string{"reason": err.Error()}), h.exposeDetails)
		return
	}

	if err := validate.Struct(req); err != nil {
		writeError(w, r, validationError(err), h.exposeDetails)
		return
	}

	in := webhooks.CreateInput{
		URL:    req.URL,
		Events: req.Events,
		Active: req.Active,
	}
	if req.Secret != nil {
		in.Secret = *req.Secret
	}

	webhook, err := h.registry.Create(in)
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"webhook": webhook})
}

func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	webhook, err := h.registry.Get(param(r, "id"))
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"webhook": webhook})
}

func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.registry.Delete(param(r, "id"))
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Test always answers 200 for a known webhook; the delivery outcome is in
// the returned webhook's history fields.
func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	webhook, err := h.dispatcher.TriggerTest(r.Context(), param(r, "id"))
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "webhook": webhook})
}

func (h *WebhookHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	if _, err := h.registry.Get(id); err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}

	limit, err := intQuery(r, "limit", repositories.DefaultDeliveryLimit)
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}

	deliveries, err := h.deliveries.ListByWebhook(r.Context(), id, limit)
	if err != nil {
		writeError(w, r, apperrors.Internal("Failed to list deliveries", nil, err), h.exposeDetails)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":      len(deliveries),
		"deliveries": deliveries,
	})
}

func validationError(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return apperrors.BadRequest("Invalid request body", nil)
	}

	details := make(map[string]string, len(ves))
	for _, fe := range ves {
		details[fe.Field()] = fe.Tag()
	}
	return apperrors.BadRequest("Validation failed", details)
}
