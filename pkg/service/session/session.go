package session

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newsdesk/pkg/model"
)

const DefaultTTL = 12 * time.Hour

// Claims is the JWT payload issued after a successful login
type Claims struct {
	UserID string     `json:"uid"`
	Name   string     `json:"name"`
	Role   model.Role `json:"role"`
	jwtlib.RegisteredClaims
}

// User returns the identity carried by the token
func (c *Claims) User() *model.User {
	return &model.User{ID: c.UserID, Name: c.Name, Role: c.Role}
}

// Issuer signs and verifies HS256 session tokens
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Issuer)

func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates an Issuer. secret must not be empty.
func NewIssuer(secret string, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, goerr.New("session secret is required")
	}

	i := &Issuer{
		secret: []byte(secret),
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Sign creates a signed token for user
func (i *Issuer) Sign(user *model.User) (string, error) {
	if user == nil {
		return "", goerr.New("user is nil")
	}

	now := i.now()
	claims := Claims{
		UserID: user.ID,
		Name:   user.Name,
		Role:   user.Role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}

	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign session token", goerr.V("user_id", user.ID))
	}
	return token, nil
}

// Parse validates tokenStr and returns its claims. Any failure is reported as
// KindUnauthorized.
func (i *Issuer) Parse(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, goerr.New("unexpected signing method", goerr.V("alg", t.Header["alg"]))
		}
		return i.secret, nil
	}, jwtlib.WithTimeFunc(i.now))
	if err != nil {
		return nil, model.WrapError(err, model.KindUnauthorized, "Invalid or expired session.")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, model.NewError(model.KindUnauthorized, "Invalid or expired session.")
	}
	return claims, nil
}
