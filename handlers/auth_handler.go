package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/meetly/messagebox/middleware"
	"github.com/meetly/messagebox/services"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type AuthHandler struct {
	users  *services.UserDirectory
	log    *zap.Logger
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthHandler(users *services.UserDirectory, log *zap.Logger, secret string, ttl time.Duration) *AuthHandler {
	return &AuthHandler{
		users:  users,
		log:    log,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if fields := invalidFields(req); fields != nil {
		return validationFailed(c, fields)
	}

	user, err := h.users.Register(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(UserResponse{
		ID:        user.ID.String(),
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	if fields := invalidFields(req); fields != nil {
		return validationFailed(c, fields)
	}

	user, err := h.users.Authenticate(c.UserContext(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}
	if err != nil {
		return respondError(c, h.log, err)
	}

	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"exp":     h.now().Add(h.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t, err := token.SignedString(h.secret)
	if err != nil {
		return respondError(c, h.log, errors.Wrap(err, "sign token"))
	}
	return c.JSON(fiber.Map{"token": t})
}

// DeleteAccount hard-deletes the caller. Messages they took part in stay
// with their counterparts.
func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	if err := h.users.OnUserHardDeleted(c.UserContext(), middleware.CurrentUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
