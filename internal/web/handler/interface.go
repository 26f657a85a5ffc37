package handler

import (
	"github.com/gofiber/fiber/v2"
)

// Service is the interface for a web handler service.
// Init registers the routes of the handler below router.
type Service interface {
	Init(router fiber.Router, deps *Deps) error
}
