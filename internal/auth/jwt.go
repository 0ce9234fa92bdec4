package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles accepted by the enrichment API.
const (
	RoleService = "service"
	RoleAdmin   = "admin"
)

const issuer = "contact-enricher"

// Claims is the payload of a service token.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// JWTManager issues and verifies HS256 service tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager constructs a manager with the given secret and token lifetime.
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken signs a token for subject carrying role.
func (m *JWTManager) GenerateToken(subject, role string) (string, error) {
	if len(m.secret) == 0 {
		return "", errors.New("jwt secret must not be empty")
	}
	if subject == "" || role == "" {
		return "", errors.New("subject and role are required")
	}

	now := m.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", err
	}

	return signed, nil
}

// ParseToken verifies the signature, expiry and issuer of token.
func (m *JWTManager) ParseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
