package shared

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// TokenSigner issues and verifies HMAC-signed bearer tokens. The signed
// payload is the user ID; tokens carry no expiry and are meant to be
// minted by the identity service, not stored.
type TokenSigner struct {
	key []byte
}

func NewTokenSigner(key []byte) *TokenSigner {
	return &TokenSigner{key: key}
}

func (s *TokenSigner) Sign(userID string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(userID))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))
	return base64.URLEncoding.EncodeToString([]byte(userID)) + "." + sig
}

func (s *TokenSigner) Verify(token string) (string, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return "", errors.New("invalid token format")
	}

	payload, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	expectedSig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(parts[1]), []byte(expectedSig)) {
		return "", errors.New("invalid token signature")
	}
	if len(payload) == 0 {
		return "", errors.New("empty token payload")
	}
	return string(payload), nil
}
