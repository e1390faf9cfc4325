// AngelaMos | 2026
// token.go

package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ascendlabs/ascend-api/internal/core"
)

// DownloadTokenTTL is how long a token issued at purchase verification
// stays usable.
const DownloadTokenTTL = 7 * 24 * time.Hour

// TokenSigner signs and verifies download tokens. A token is bound to
// one product and one buyer email, so it cannot be replayed against
// another product or shared as a universal key.
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Sign issues a token for productID+email expiring after
// DownloadTokenTTL. Format: base64url(productID|email|exp) "." base64url(mac).
func (t *TokenSigner) Sign(productID, email string) (string, time.Time) {
	expiresAt := t.now().Add(DownloadTokenTTL)

	payload := fmt.Sprintf("%s|%s|%d", productID, email, expiresAt.Unix())
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))

	return encoded + "." + t.mac(payload), expiresAt
}

// Verify checks the signature, expiry, and product binding, returning
// the buyer email the token was issued for.
func (t *TokenSigner) Verify(token, productID string) (string, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", fmt.Errorf("malformed download token: %w", core.ErrTokenInvalid)
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode download token: %w", core.ErrTokenInvalid)
	}
	payload := string(raw)

	if !hmac.Equal([]byte(sig), []byte(t.mac(payload))) {
		return "", fmt.Errorf("download token signature: %w", core.ErrTokenInvalid)
	}

	parts := strings.Split(payload, "|")
	if len(parts) != 3 {
		return "", fmt.Errorf("download token payload: %w", core.ErrTokenInvalid)
	}

	tokenProductID, email, expStr := parts[0], parts[1], parts[2]

	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", fmt.Errorf("download token expiry: %w", core.ErrTokenInvalid)
	}
	if t.now().After(time.Unix(exp, 0)) {
		return "", fmt.Errorf("download token: %w", core.ErrTokenExpired)
	}

	if tokenProductID != productID {
		return "", fmt.Errorf(
			"download token product mismatch: %w",
			core.ErrTokenInvalid,
		)
	}

	return email, nil
}

func (t *TokenSigner) mac(payload string) string {
	h := hmac.New(sha256.New, t.secret)
	h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
