package webhooks

import (
	"testing"
)

func TestSign(t *testing.T) {
	secret := "secret"
	payload := []byte("payload")

	// Calculated using: echo -n "payload" | openssl dgst -sha256 -hmac "secret"
	expected := "b82fcb791acec57859b989b430a826488ce2e479fdf92326bd0a2e8375a42ba4"

	got := Sign(secret, payload)

	if got != expected {
		t.Errorf("Sign() = %v, want %v", got, expected)
	}

	if header := SignatureHeader(secret, payload); header != "sha256="+expected {
		t.Errorf("SignatureHeader() = %v", header)
	}
}

func TestVerify(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignatureHeader("super-secret", payload)

	tests := []struct {
		name    string
		secret  string
		payload []byte
		header  string
		want    bool
	}{
		{"Valid", "super-secret", payload, header, true},
		{"Wrong Secret", "other-secret", payload, header, false},
		{"Tampered Body", "super-secret", []byte(`{"id":"evt_2"}`), header, false},
		{"Missing Prefix", "super-secret", payload, Sign("super-secret", payload), false},
		{"Not Hex", "super-secret", payload, "sha256=zz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Verify(tt.secret, tt.payload, tt.header); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}
