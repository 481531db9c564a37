package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"acadrive/internal/identity"
)

// ClientIDHeader carries the caller's self-asserted pseudo-identity.
const ClientIDHeader = "X-Client-ID"

// ClientID puts the X-Client-ID header into the request context, where
// identity.Context picks it up. Requests without the header pass through
// anonymously; a header that is not a UUID is rejected.
func ClientID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(ClientIDHeader)
		if raw == "" {
			return c.Next()
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			rid, _ := c.Locals(RequestIDLocalKey).(string)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"request_id": rid,
				"error": fiber.Map{
					"code":    "INVALID_CLIENT_ID",
					"message": ClientIDHeader + " must be a UUID",
				},
			})
		}
		c.SetUserContext(identity.WithID(c.UserContext(), id.String()))
		return c.Next()
	}
}
