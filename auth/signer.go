package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignerConfig configures a TokenSigner.
type SignerConfig struct {
	Key      []byte
	Issuer   string
	Subject  string
	Audience string

	// TTL is each token's lifetime.
	// Default: 5 minutes
	TTL time.Duration

	// Now is the clock. Default: time.Now.
	Now func() time.Time
}

// TokenSigner mints HS256 tokens for outbound calls and reuses each one
// until it is close to expiry.
type TokenSigner struct {
	config SignerConfig

	mu      sync.Mutex
	token   string
	refresh time.Time
}

// NewTokenSigner validates config and builds a signer.
func NewTokenSigner(config SignerConfig) (*TokenSigner, error) {
	if len(config.Key) == 0 {
		return nil, ErrEmptySigningKey
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &TokenSigner{config: config}, nil
}

// Token returns a valid signed token.
func (s *TokenSigner) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.config.Now()
	if s.token != "" && now.Before(s.refresh) {
		return s.token, nil
	}

	claims := jwt.RegisteredClaims{
		Issuer:    s.config.Issuer,
		Subject:   s.config.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
	}
	if s.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.config.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Key)
	if err != nil {
		return "", err
	}
	s.token = signed
	s.refresh = now.Add(s.config.TTL * 4 / 5)
	return signed, nil
}

// Authorize sets a bearer Authorization header on req.
func (s *TokenSigner) Authorize(req *http.Request) error {
	token, err := s.Token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
