package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Transport names for session tokens.
const (
	CookieName  = "spinabot_session"
	HeaderName  = "X-Session-Token"
	claimID     = "sid"
	claimExpiry = "exp"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// claim checks.
var ErrInvalidToken = errors.New("invalid session token")

// Tokens signs and verifies session handles with HS256.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens creates a token signer. The secret must not be empty.
func NewTokens(secret string) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("session token secret is empty")
	}
	return &Tokens{secret: []byte(secret), now: time.Now}, nil
}

// WithClock replaces the time source used for iat and expiry checks.
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	t.now = now
	return t
}

// RandomSecret returns a hex-encoded 32-byte secret for servers started
// without a configured token secret. Tokens signed with it do not survive a
// restart.
func RandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Issue signs a token for the session id. A zero expiry issues a token
// without an exp claim.
func (t *Tokens) Issue(id string, expires time.Time) (string, error) {
	claims := jwt.MapClaims{
		claimID: id,
		"iat":   t.now().Unix(),
	}
	if !expires.IsZero() {
		claims[claimExpiry] = expires.Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the session id it carries.
func (t *Tokens) Parse(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	id, ok := claims[claimID].(string)
	if !ok || id == "" {
		return "", ErrInvalidToken
	}
	return id, nil
}
