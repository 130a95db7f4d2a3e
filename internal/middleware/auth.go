package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"pgdesk/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AuthMiddleware validates the gateway-issued bearer token and attaches the
// opaque caller identity to the request context. Tokens are verified against a
// JWKS endpoint when one is configured, otherwise with the shared HMAC secret.
type AuthMiddleware struct {
	secret []byte
	jwks   *keyfunc.JWKS
}

func NewAuthMiddleware(secret, jwksURL string) (*AuthMiddleware, error) {
	m := &AuthMiddleware{secret: []byte(secret)}

	if jwksURL != "" {
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			return nil, err
		}
		m.jwks = jwks
	}

	return m, nil
}

// Require returns the echo middleware enforcing authentication.
func (m *AuthMiddleware) Require() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token format")
			}

			token, err := jwt.Parse(tokenString, m.keyFunc)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid claims")
			}

			identity, err := identityFromClaims(claims)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			ctx := context.WithValue(c.Request().Context(), common.IdentityKey, identity)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func (m *AuthMiddleware) keyFunc(token *jwt.Token) (interface{}, error) {
	if m.jwks != nil {
		return m.jwks.Keyfunc(token)
	}
	return m.secret, nil
}

func identityFromClaims(claims jwt.MapClaims) (common.Identity, error) {
	var identity common.Identity

	sub, ok := claims["sub"].(string)
	if !ok {
		return identity, errors.New("missing sub in token")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return identity, errors.New("invalid sub format")
	}

	role, ok := claims["role"].(string)
	if !ok || (role != common.RoleOwner && role != common.RoleTenant) {
		return identity, errors.New("missing or invalid role in token")
	}

	phone, _ := claims["phone"].(string)

	identity.UserID = userID
	identity.Role = role
	identity.Phone = phone
	return identity, nil
}
