package handlers

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/meetly/messagebox/services"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationFailed(c *fiber.Ctx, fields map[string]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  "validation failed",
		"fields": fields,
	})
}

// invalidFields runs the struct tags on a parsed request body and returns
// the failures keyed by JSON field name, or nil.
func invalidFields(req interface{}) map[string]string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return map[string]string{"non_field_errors": err.Error()}
	}
	fields := make(map[string]string, len(invalid))
	for _, fe := range invalid {
		fields[fe.Field()] = describeTag(fe)
	}
	return fields
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "is below the minimum of " + fe.Param()
	case "email":
		return "must be a valid email address"
	default:
		return "invalid value"
	}
}

func badJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
}

// respondError maps core errors onto HTTP statuses.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var invalid *services.ValidationError
	switch {
	case errors.As(err, &invalid):
		return validationFailed(c, invalid.Fields)
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not have permission to perform this action"})
	case errors.Is(err, services.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication credentials were not provided or are invalid"})
	}

	log.Error("request failed",
		zap.Error(err),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
