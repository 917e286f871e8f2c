package webhooks

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	apperrors "hiveroadmap/internal/pkg/errors"
	"hiveroadmap/internal/pkg/validator"
	"hiveroadmap/internal/platform/models"
)

const testDefaultSecret = "default-secret-0123456789"

func newTestRegistry() *Registry {
	return NewRegistry(testDefaultSecret, validator.ValidateWebhookURL)
}

func TestRegistry_CreateValidatesURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"Loopback IP", "http://127.0.0.1:9999/x", true},
		{"Localhost", "http://localhost/x", true},
		{"Relative", "/hooks", true},
		{"Public Host", "https://public.example.com/hook", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry()
			_, err := r.Create(CreateInput{URL: tt.url})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && apperrors.KindOf(err) != apperrors.KindInvalidRequest {
				t.Errorf("Expected invalid request, got %v", err)
			}
			if tt.wantErr && len(r.List()) != 0 {
				t.Errorf("Expected rejected webhook not to be stored")
			}
		})
	}
}

func TestRegistry_CreateDefaults(t *testing.T) {
	r := newTestRegistry()

	first, err := r.Create(CreateInput{URL: "https://public.example.com/hook", Secret: "short"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := r.Create(CreateInput{URL: "https://public.example.com/hook"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if first.ID == second.ID {
		t.Errorf("Expected unique ids, got %s twice", first.ID)
	}
	if !first.Active {
		t.Errorf("Expected webhook to default to active")
	}
	if len(first.Events) != 1 || first.Events[0] != models.EventStatusSnapshot {
		t.Errorf("Expected default events, got %v", first.Events)
	}

	wh, _ := r.Lookup(first.ID)
	if wh.Secret != testDefaultSecret {
		t.Errorf("Expected short secret to fall back to default, got %q", wh.Secret)
	}

	body, _ := json.Marshal(first)
	if strings.Contains(string(body), testDefaultSecret) || strings.Contains(string(body), "secret") {
		t.Errorf("Secret leaked in %s", body)
	}
}

func TestRegistry_CreateKeepsExplicitValues(t *testing.T) {
	r := newTestRegistry()
	inactive := false

	view, err := r.Create(CreateInput{
		URL:    "https://public.example.com/hook",
		Events: []string{models.EventWildcard},
		Secret: "my-own-secret",
		Active: &inactive,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if view.Active {
		t.Errorf("Expected inactive webhook")
	}

	wh, _ := r.Lookup(view.ID)
	if wh.Secret != "my-own-secret" {
		t.Errorf("Expected explicit secret, got %q", wh.Secret)
	}
}

func TestRegistry_DeleteTwice(t *testing.T) {
	r := newTestRegistry()
	view, _ := r.Create(CreateInput{URL: "https://public.example.com/hook"})

	res, err := r.Delete(view.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !res.Deleted || res.ID != view.ID {
		t.Errorf("unexpected delete result %+v", res)
	}

	_, err = r.Delete(view.ID)
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("Expected not found on second delete, got %v", err)
	}
	if _, err := r.Get(view.ID); apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("Expected not found on get after delete, got %v", err)
	}
}

func TestRegistry_ListCreationOrder(t *testing.T) {
	r := newTestRegistry()
	var ids []string
	for i := 0; i < 5; i++ {
		v, _ := r.Create(CreateInput{URL: "https://public.example.com/hook"})
		ids = append(ids, v.ID)
	}

	list := r.List()
	if len(list) != len(ids) {
		t.Fatalf("Expected %d webhooks, got %d", len(ids), len(list))
	}
	for i := range ids {
		if list[i].ID != ids[i] {
			t.Errorf("List()[%d] = %s, want %s", i, list[i].ID, ids[i])
		}
	}
}

func TestRegistry_RecordDeliveryResult(t *testing.T) {
	r := newTestRegistry()
	view, _ := r.Create(CreateInput{URL: "https://public.example.com/hook"})

	tests := []struct {
		name   string
		detail interface{}
		want   string
	}{
		{"String", "timeout", "timeout"},
		{"Error", errors.New("connection refused"), "connection refused"},
		{"Bytes", []byte("bad gateway"), "bad gateway"},
		{"Object", map[string]int{"status": 500}, `{"status":500}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r.RecordDeliveryResult(view.ID, false, tt.detail)
			got, _ := r.Get(view.ID)
			if got.LastErrorAt == nil || got.LastError == nil || *got.LastError != tt.want {
				t.Errorf("Expected lastError %q, got %+v", tt.want, got)
			}
		})
	}

	r.RecordDeliveryResult(view.ID, true, nil)
	got, _ := r.Get(view.ID)
	if got.LastSuccessAt == nil || got.LastErrorAt != nil || got.LastError != nil {
		t.Errorf("Expected success to clear error fields, got %+v", got)
	}

	// Deleted mid-delivery.
	r.Delete(view.ID)
	r.RecordDeliveryResult(view.ID, false, "late")
}

func TestRegistry_Matching(t *testing.T) {
	r := newTestRegistry()
	inactive := false

	status, _ := r.Create(CreateInput{URL: "https://a.example.com", Events: []string{models.EventStatusSnapshot}})
	wildcard, _ := r.Create(CreateInput{URL: "https://b.example.com", Events: []string{models.EventWildcard}})
	r.Create(CreateInput{URL: "https://c.example.com", Events: []string{models.EventWebhookTest}})
	r.Create(CreateInput{URL: "https://d.example.com", Events: []string{models.EventStatusSnapshot}, Active: &inactive})

	matched := r.Matching(models.EventStatusSnapshot)
	if len(matched) != 2 || matched[0].ID != status.ID || matched[1].ID != wildcard.ID {
		t.Fatalf("unexpected matches %+v", matched)
	}
	if matched[0].Secret == "" {
		t.Errorf("Expected internal copies to carry the secret")
	}

	matched[0].Events[0] = "mutated"
	again, _ := r.Get(status.ID)
	if again.Events[0] != models.EventStatusSnapshot {
		t.Errorf("Matching() leaked internal state")
	}
}
