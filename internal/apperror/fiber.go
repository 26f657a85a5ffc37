package apperror

import (
	"errors"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Response is the JSON body of a failed request.
type Response struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	RetryAfter    int      `json:"retryAfter,omitempty"`
	Feedback      []string `json:"feedback,omitempty"`
	CorrelationID string   `json:"correlationId,omitempty"`
}

// FiberErrorHandler renders errors returned by handlers and middlewares.
// Server side failures are logged with a correlation id and answered with a generic message.
func FiberErrorHandler(c *fiber.Ctx, err error) error {
	resp := Response{Success: false}
	status := fiber.StatusInternalServerError

	var fe *fiber.Error

	appErr, ok := As(err)

	switch {
	case ok:
		status = appErr.Status()
		resp.Message = appErr.Message
		resp.Feedback = appErr.Feedback

		if appErr.Kind == KindRateLimit && appErr.RetryAfter > 0 {
			resp.RetryAfter = int(math.Ceil(appErr.RetryAfter.Seconds()))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(resp.RetryAfter))
		}
	case errors.As(err, &fe):
		status = fe.Code
		resp.Message = fe.Message
	}

	if status >= fiber.StatusInternalServerError {
		resp.CorrelationID = uuid.NewString()
		resp.Message = "internal server error"
		resp.Feedback = nil

		log.Error().Err(err).
			Str("correlationId", resp.CorrelationID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("request failed")
	}

	return c.Status(status).JSON(resp)
}
