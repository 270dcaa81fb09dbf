package httpapi

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/goliatone/go-formval/pkg/model"
)

// Claims are the JWT claims identifying the caller. Username falls back to
// the subject when empty.
type Claims struct {
	Username string `json:"username,omitempty"`
	Group    string `json:"group,omitempty"`
	jwt.RegisteredClaims
}

// Caller converts the claims into the caller recorded with dynamic options.
func (c *Claims) Caller() model.Caller {
	username := c.Username
	if username == "" {
		username = c.Subject
	}
	return model.Caller{Username: username, Group: c.Group}
}

// SignToken issues an HS256 token for caller valid for ttl.
func SignToken(secret string, caller model.Caller, ttl time.Duration) (string, error) {
	claims := Claims{
		Username: caller.Username,
		Group:    caller.Group,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.Username,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret []byte, raw string) (*Claims, error) {
	if raw == "" {
		return nil, errors.New("empty token")
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// authenticate attaches the token's caller to the request context.
func (s *Server) authenticate(c *fiber.Ctx) error {
	if len(s.secret) == 0 {
		return c.Next()
	}
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return fiber.NewError(fiber.StatusUnauthorized, "missing or invalid Authorization header")
	}
	claims, err := parseToken(s.secret, strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		s.logger.Debug().Err(err).Msg("rejected token")
		return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
	}
	c.SetUserContext(model.WithCaller(c.UserContext(), claims.Caller()))
	return c.Next()
}
