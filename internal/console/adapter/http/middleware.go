package http

import (
	"context"
	"strings"

	"cowork-console/internal/shared/contextkeys"
	apperrors "cowork-console/internal/shared/errors"
	"cowork-console/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware verifies admin-session tokens minted by the external
// identity provider. The console only checks the claim; it never issues
// credentials.
type AuthMiddleware struct {
	secret []byte
	log    logger.Logger
}

// NewAuthMiddleware creates the admin-session middleware.
func NewAuthMiddleware(secret string, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret), log: log.WithComponent("auth")}
}

// CORS returns the CORS middleware for the console frontend.
func (m *AuthMiddleware) CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000,http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

// RequestContext copies the request id into the user context so downstream
// loggers pick it up.
func (m *AuthMiddleware) RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok && rid != "" {
			ctx := context.WithValue(c.UserContext(), contextkeys.RequestIDKey, rid)
			c.SetUserContext(ctx)
		}
		return c.Next()
	}
}

// RequireAdmin rejects requests without a valid admin session token.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := extractToken(c)
		if tokenString == "" {
			return unauthorized(c, "missing session token")
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, apperrors.ErrInvalidToken
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			m.log.WithContext(c.UserContext()).Warnf("rejected session token: %v", err)
			return unauthorized(c, "invalid session token")
		}

		if admin, _ := claims["admin"].(bool); !admin {
			if role, _ := claims["role"].(string); role != "admin" {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"error":   string(apperrors.ErrorTypeAuthentication),
					"message": "admin session required",
				})
			}
		}

		if sub, _ := claims["sub"].(string); sub != "" {
			ctx := context.WithValue(c.UserContext(), contextkeys.AdminIDKey, sub)
			c.SetUserContext(ctx)
			c.Locals("adminID", sub)
		}
		return c.Next()
	}
}

func extractToken(c *fiber.Ctx) string {
	if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.Cookies("session")
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   string(apperrors.ErrorTypeAuthentication),
		"message": message,
	})
}
