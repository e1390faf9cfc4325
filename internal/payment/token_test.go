// AngelaMos | 2026
// token_test.go

package payment

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ascendlabs/ascend-api/internal/core"
)

func testSigner(now time.Time) *TokenSigner {
	signer := NewTokenSigner("test-download-secret")
	signer.now = func() time.Time { return now }
	return signer
}

func TestTokenSignVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer := testSigner(now)

	token, expiresAt := signer.Sign("prod-123", "buyer@example.com")

	if want := now.Add(DownloadTokenTTL); !expiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, want)
	}

	email, err := signer.Verify(token, "prod-123")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if email != "buyer@example.com" {
		t.Errorf("email = %q, want %q", email, "buyer@example.com")
	}
}

func TestTokenExpiry(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer := testSigner(issued)

	token, _ := signer.Sign("prod-123", "buyer@example.com")

	// Just inside the window.
	signer.now = func() time.Time {
		return issued.Add(DownloadTokenTTL - time.Minute)
	}
	if _, err := signer.Verify(token, "prod-123"); err != nil {
		t.Fatalf("Verify() inside TTL error = %v", err)
	}

	// Just past it.
	signer.now = func() time.Time {
		return issued.Add(DownloadTokenTTL + time.Minute)
	}
	_, err := signer.Verify(token, "prod-123")
	if !errors.Is(err, core.ErrTokenExpired) {
		t.Fatalf("Verify() past TTL error = %v, want ErrTokenExpired", err)
	}
}

func TestTokenProductBinding(t *testing.T) {
	signer := testSigner(time.Now())

	token, _ := signer.Sign("prod-123", "buyer@example.com")

	_, err := signer.Verify(token, "prod-456")
	if !errors.Is(err, core.ErrTokenInvalid) {
		t.Fatalf("Verify() wrong product error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenTampering(t *testing.T) {
	signer := testSigner(time.Now())
	token, _ := signer.Sign("prod-123", "buyer@example.com")
	payload, sig, _ := strings.Cut(token, ".")

	other := testSigner(time.Now().Add(time.Hour))
	forged, _ := other.Sign("prod-123", "buyer@example.com")
	forgedPayload, _, _ := strings.Cut(forged, ".")

	tests := []struct {
		name  string
		token string
	}{
		{"no separator", payload},
		{"payload not base64", "not%valid." + sig},
		{"swapped payload", forgedPayload + "." + sig},
		{"truncated signature", payload + "." + sig[:len(sig)-2]},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := signer.Verify(tt.token, "prod-123")
			if !errors.Is(err, core.ErrTokenInvalid) {
				t.Errorf("Verify(%q) error = %v, want ErrTokenInvalid", tt.token, err)
			}
		})
	}
}
