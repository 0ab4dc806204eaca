// Package token mints and verifies the signed session tokens that act as
// bearer credentials for the API. Tokens are stateless: validity is decided
// purely from the signature and the issued-at claim against the configured
// TTL. Whether the account behind a token is still in good standing is the
// session guard's job, not this package's.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification:
// malformed, bad signature, missing claims, or past its TTL. Callers never
// need to distinguish the cases.
var ErrInvalidToken = errors.New("invalid token")

// Config holds the process-wide signing settings. Injected at construction
// so the service stays testable without environment coupling. Rotating the
// secret invalidates all outstanding tokens, which is accepted operational
// behavior.
type Config struct {
	// Secret is the HMAC-SHA256 signing key.
	Secret []byte

	// TTL is how long a token stays valid after its issued-at instant.
	TTL time.Duration
}

// Claims is the verified content of a session token.
type Claims struct {
	// AccountID is the subject the token was issued for.
	AccountID string

	// IssuedAt is when the token was minted. The session guard compares it
	// against the account's password-changed-at timestamp.
	IssuedAt time.Time
}

// Service issues and verifies session tokens. Safe for concurrent use.
type Service struct {
	secret []byte
	ttl    time.Duration

	// now is swappable in tests to pin the clock.
	now func() time.Time
}

// New creates a token service from the given config.
func New(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token: empty signing secret")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token: TTL must be positive")
	}
	return &Service{
		secret: cfg.Secret,
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

// Issue produces a signed token for the given account id. The token embeds
// only the subject and the issue time; expiry is enforced by Verify from
// the configured TTL rather than an embedded claim, so a TTL change applies
// to tokens already in flight.
func (s *Service) Issue(accountID string) (string, error) {
	if accountID == "" {
		return "", errors.New("token: empty account id")
	}

	claims := jwt.RegisteredClaims{
		Subject:  accountID,
		IssuedAt: jwt.NewNumericDate(s.now()),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and TTL and returns its claims.
// All failures collapse to ErrInvalidToken (wrapped with the cause).
// Verify never consults the credential store.
func (s *Service) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)

	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}

	if claims.Subject == "" || claims.IssuedAt == nil {
		return Claims{}, fmt.Errorf("%w: missing required claims", ErrInvalidToken)
	}

	issuedAt := claims.IssuedAt.Time
	if s.now().After(issuedAt.Add(s.ttl)) {
		return Claims{}, fmt.Errorf("%w: expired", ErrInvalidToken)
	}

	return Claims{
		AccountID: claims.Subject,
		IssuedAt:  issuedAt,
	}, nil
}
