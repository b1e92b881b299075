package api

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"classboard-api/session"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
	errTokenInvalid         = errors.New("invalid session token")
)

// Auth issues and validates session tokens. The remote store offers no
// identity provider, so tokens are signed locally with a shared secret; the
// token only carries a pointer to the server-held session.
type Auth struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

// NewAuth creates an Auth with the given signing secret and token lifetime.
func NewAuth(secret []byte, ttl time.Duration) *Auth {
	if len(secret) == 0 {
		panic("api.NewAuth: empty secret")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Auth{
		secret: secret,
		ttl:    ttl,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// Issue signs a token for the session.
func (a *Auth) Issue(s *session.Session) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  s.User.Username,
		"sid":  s.ID,
		"role": s.User.Role,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(a.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// SessionIDFromAuthHeader extracts the session id from a bearer token.
func (a *Auth) SessionIDFromAuthHeader(h string) (string, error) {
	raw, err := bearerToken(h)
	if err != nil {
		return "", err
	}

	parsed, err := a.parser.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errTokenInvalid
	}
	now := time.Now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return "", errors.New("token expired")
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", errTokenInvalid
	}
	return sid, nil
}

func bearerToken(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errMissingAuthorization
	}
	const prefix = "Bearer "
	if len(trimmed) <= len(prefix) || !strings.EqualFold(trimmed[:len(prefix)], prefix) {
		return "", errBadAuthorization
	}
	token := strings.TrimSpace(trimmed[len(prefix):])
	if token == "" {
		return "", errBadAuthorization
	}
	return token, nil
}
