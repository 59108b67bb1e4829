package webhook

import (
	"strings"
	"testing"
)

func TestSign(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		secret  string
	}{
		{name: "simple payload", payload: "hello world", secret: "my-secret"},
		{name: "empty payload", payload: "", secret: "my-secret"},
		{name: "json payload", payload: `{"event":"ruleset.saved"}`, secret: "secret123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sign([]byte(tt.payload), 1700000000, tt.secret)
			if !strings.HasPrefix(result, "sha256=") {
				t.Errorf("Sign() result does not have 'sha256=' prefix: %v", result)
			}
			if hexPart := strings.TrimPrefix(result, "sha256="); len(hexPart) != 64 {
				t.Errorf("Sign() hex part length = %v, want 64", len(hexPart))
			}
		})
	}
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"event":"ruleset.saved"}`)
	const ts = 1700000000
	valid := Sign(payload, ts, "my-secret")

	tests := []struct {
		name      string
		payload   []byte
		timestamp int64
		signature string
		want      bool
	}{
		{name: "valid signature", payload: payload, timestamp: ts, signature: valid, want: true},
		{name: "wrong secret", payload: payload, timestamp: ts, signature: Sign(payload, ts, "other"), want: false},
		{name: "replayed with new timestamp", payload: payload, timestamp: ts + 60, signature: valid, want: false},
		{name: "tampered payload", payload: []byte(`{"event":"ruleset.deleted"}`), timestamp: ts, signature: valid, want: false},
		{name: "invalid signature", payload: payload, timestamp: ts, signature: "sha256=invalid", want: false},
		{name: "empty signature", payload: payload, timestamp: ts, signature: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(tt.payload, tt.timestamp, tt.signature, "my-secret"); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}
