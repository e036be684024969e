package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meetly/messagebox/handlers"
)

func AuthRoutes(app *fiber.App, h *handlers.AuthHandler, protected ...fiber.Handler) {
	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)

	chain := append(append([]fiber.Handler{}, protected...), h.DeleteAccount)
	api.Delete("/account", chain...)
}
