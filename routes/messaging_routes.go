package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meetly/messagebox/handlers"
)

// MessagingRoutes mounts the messagebox. Thread routes come first so that
// "threads" is never taken for a message id.
func MessagingRoutes(app *fiber.App, h *handlers.MessagingHandler, protected ...fiber.Handler) {
	api := app.Group("/api/v1")
	box := api.Group("/messagebox", protected...)

	threads := box.Group("/threads")
	threads.Get("", h.ListThreads)
	threads.Post("", h.CreateThread)
	threads.Get("/:threadId", h.GetThread)
	threads.Put("/:threadId", h.UpdateThread)
	threads.Patch("/:threadId", h.UpdateThread)
	threads.Delete("/:threadId", h.DeleteThread)

	box.Get("", h.ListMessages)
	box.Post("", h.SendMessage)
	box.Get("/:messageId", h.GetMessage)
	box.Put("/:messageId", h.EditMessage)
	box.Patch("/:messageId", h.EditMessage)
	box.Delete("/:messageId", h.DeleteMessage)
}
