package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
)

// NewValidator returns a validator reporting fields by their json name.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// ParseBody decodes the request body into dst and validates it.
func ParseBody(c *fiber.Ctx, v *validator.Validate, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperror.Validation("invalid request body")
	}

	if err := v.Struct(dst); err != nil {
		return apperror.Validation(ValidationMessage(err))
	}

	return nil
}

// ValidationMessage turns the first validator failure into a user facing message.
func ValidationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}

	fe := ve[0]

	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}
