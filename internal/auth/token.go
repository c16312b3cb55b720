package auth

import (
	"errors"
	"fmt"
	"time"

	"organlink/pkg/types"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

const (
	Issuer    = "organlink"
	roleClaim = "role"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	UserID    string
	Role      types.Role
	ExpiresAt time.Time
}

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

func (t *Tokens) Issue(user *types.User) (string, error) {
	now := t.now().UTC()

	token, err := jwt.NewBuilder().
		Issuer(Issuer).
		Subject(user.ID).
		JwtID(uuid.NewString()).
		IssuedAt(now).
		Expiration(now.Add(t.ttl)).
		Claim(roleClaim, string(user.Role)).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), t.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return string(signed), nil
}

// Parse verifies the signature, issuer and expiry. Every failure is ErrInvalidToken.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	token, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(jwa.HS256(), t.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(Issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, ok := token.Subject()
	if !ok || userID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	var role string
	if err := token.Get(roleClaim, &role); err != nil {
		return nil, fmt.Errorf("%w: missing role", ErrInvalidToken)
	}

	parsedRole, err := types.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	expiresAt, _ := token.Expiration()

	return &Claims{UserID: userID, Role: parsedRole, ExpiresAt: expiresAt}, nil
}
