package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"

	"pdfstudio/internal/domain"
)

// APIKeyLocal is the fiber.Ctx locals key holding an authenticated API key.
const APIKeyLocal = "api_key"

// TokenValidator reports whether an API key is known.
type TokenValidator interface {
	Ready() bool
	Validate(token string) bool
}

// APIKeyAuth checks the X-API-Key header against tokens. Requests without
// the header pass through as public traffic and fall under the user limiter.
func APIKeyAuth(tokens TokenValidator) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:X-API-Key",
		ContextKey: APIKeyLocal,
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if !tokens.Ready() {
				return false, domain.ErrTokenStoreNotReady
			}
			if !tokens.Validate(key) {
				return false, domain.ErrInvalidAPIKey
			}
			return true, nil
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || c.Get("X-API-Key") == ""
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// keyauth may pass a nil error.
			status := fiber.StatusUnauthorized
			if err == nil {
				err = fiber.ErrUnauthorized
			}
			if errors.Is(err, domain.ErrTokenStoreNotReady) {
				status = fiber.StatusServiceUnavailable
			}
			return errorBody(c, status, err.Error())
		},
	})
}
