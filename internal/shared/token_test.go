package shared

import "testing"

func TestTokenSigner_RoundTrip(t *testing.T) {
	signer := NewTokenSigner([]byte("test-key"))

	token := signer.Sign("user_42")
	got, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != "user_42" {
		t.Errorf("expected user_42, got %s", got)
	}
}

func TestTokenSigner_RejectsTampering(t *testing.T) {
	signer := NewTokenSigner([]byte("test-key"))
	other := NewTokenSigner([]byte("other-key"))

	tests := []struct {
		name  string
		token string
	}{
		{"no separator", "justonepart"},
		{"garbage payload", "%%%.sig"},
		{"wrong key", other.Sign("user_42")},
		{"truncated signature", signer.Sign("user_42")[:10] + ".x"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := signer.Verify(tt.token); err == nil {
				t.Error("expected verification failure")
			}
		})
	}
}

func TestTokenSigner_RejectsEmptyPayload(t *testing.T) {
	signer := NewTokenSigner([]byte("test-key"))
	if _, err := signer.Verify(signer.Sign("")); err == nil {
		t.Error("expected empty payload rejection")
	}
}

func TestNewID_PrefixAndUniqueness(t *testing.T) {
	a := NewID("sess_")
	b := NewID("sess_")

	if a == b {
		t.Error("IDs must be unique")
	}
	if len(a) <= len("sess_") {
		t.Errorf("ID too short: %s", a)
	}
	if a[:5] != "sess_" {
		t.Errorf("expected sess_ prefix, got %s", a)
	}
}
