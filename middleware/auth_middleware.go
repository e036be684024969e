package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/meetly/messagebox/models"
)

const userIDKey = "user_id"

// IdentityResolver maps a token subject to an active account.
type IdentityResolver interface {
	ResolveActive(ctx context.Context, id uuid.UUID) (*models.User, error)
}

func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusUnauthorized).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

// ActiveUser runs after Protected and rejects tokens whose account is gone
// or deactivated, before any handler looks anything up.
func ActiveUser(identities IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok {
			return unauthenticated(c)
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthenticated(c)
		}
		raw, _ := claims["user_id"].(string)
		id, err := uuid.Parse(raw)
		if err != nil {
			return unauthenticated(c)
		}
		if _, err := identities.ResolveActive(c.UserContext(), id); err != nil {
			return unauthenticated(c)
		}

		c.Locals(userIDKey, id)
		return c.Next()
	}
}

// CurrentUserID is the caller resolved by ActiveUser.
func CurrentUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(userIDKey).(uuid.UUID)
	return id
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Authentication credentials were not provided or are invalid", "data": nil})
}
