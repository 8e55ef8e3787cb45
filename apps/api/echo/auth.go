package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/staff"
)

const (
	tokenContextKey = "staffToken"
	tokenAudience   = "Kelasi"
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

func (c Claims) Actor() core.Actor {
	return core.Actor{ID: c.Subject, Name: c.Name}
}

// NewStaffClaims returns the claims of a staff member token valid for `ttl` (the configured JWT expiration by default).
func NewStaffClaims(conf *core.Config, id, name string, roles []string, ttl ...time.Duration) *Claims {
	now := time.Now()
	exp := conf.Server.JWTExpirationDelta
	if len(ttl) > 0 && ttl[0] > 0 {
		exp = ttl[0]
	}
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   id,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(exp).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:  name,
		Roles: roles,
	}
}

// GenerateToken generates a signed JWT token string representing the staff Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		return staff.HasAnyRole(claims.Roles, roles...)
	}
	return false
}
