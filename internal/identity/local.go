package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Local issues HS256 tokens for a fixed account. It stands in for Google
// during development and in tests, where no browser is available.
type Local struct {
	secret []byte
	email  string
	ttl    time.Duration
	now    func() time.Time
}

var _ Provider = (*Local)(nil)

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// LocalOption configures a Local provider.
type LocalOption func(*Local)

// WithLocalClock replaces time.Now.
func WithLocalClock(now func() time.Time) LocalOption {
	return func(l *Local) { l.now = now }
}

func NewLocal(secret, email string, ttl time.Duration, opts ...LocalOption) (*Local, error) {
	if secret == "" {
		return nil, errors.New("local identity: secret is required")
	}
	if email == "" {
		return nil, errors.New("local identity: email is required")
	}
	if ttl <= 0 {
		return nil, errors.New("local identity: token ttl must be positive")
	}
	l := &Local{secret: []byte(secret), email: email, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Local) SignIn(ctx context.Context) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}
	now := l.now()
	c := &claims{
		Email: l.email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   l.email,
			ExpiresAt: jwt.NewNumericDate(now.Add(l.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(l.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: signed, ExpiresIn: l.ttl}, nil
}

func (l *Local) UserInfo(_ context.Context, accessToken string) (UserInfo, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(l.now),
	)
	tok, err := parser.ParseWithClaims(accessToken, &claims{}, func(*jwt.Token) (any, error) {
		return l.secret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return UserInfo{}, ErrTokenExpired
	}
	if err != nil {
		return UserInfo{}, fmt.Errorf("%w: %v", ErrSignInRejected, err)
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return UserInfo{}, ErrSignInRejected
	}
	return UserInfo{Email: c.Email}, nil
}
