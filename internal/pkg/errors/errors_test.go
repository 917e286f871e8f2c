package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"bad request", BadRequest("statusId is required", nil), KindInvalidRequest},
		{"not found", NotFound("Webhook not found", map[string]string{"id": "x"}), KindNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", NotFound("missing", nil)), KindNotFound},
		{"plain error", fmt.Errorf("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		expose      bool
		wantStatus  int
		wantCode    string
		wantDetails bool
	}{
		{
			name:        "Not Found Keeps Details",
			err:         NotFound("Status not found", map[string]string{"statusId": "abc"}),
			wantStatus:  http.StatusNotFound,
			wantCode:    ErrCodeNotFound,
			wantDetails: true,
		},
		{
			name:        "Internal Hides Details",
			err:         Internal("Failed to fetch organization", "upstream said no", nil),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrCodeInternal,
			wantDetails: false,
		},
		{
			name:        "Internal Exposes Details When Enabled",
			err:         Internal("Failed to fetch organization", "upstream said no", nil),
			expose:      true,
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrCodeInternal,
			wantDetails: true,
		},
		{
			name:       "Foreign Error",
			err:        fmt.Errorf("unexpected"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Write(rr, tt.err, tt.expose)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}

			var body ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
			}
			if (body.Details != nil) != tt.wantDetails {
				t.Errorf("details = %v, wantDetails %v", body.Details, tt.wantDetails)
			}
		})
	}
}
