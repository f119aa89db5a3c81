package middleware

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	twilioclient "github.com/twilio/twilio-go/client"
)

// ValidateTwilioSignature verifies the X-Twilio-Signature header so only
// Twilio can post to the webhook. Validation needs the exact public URL, so
// behind a proxy the forwarded proto header wins.
func ValidateTwilioSignature() fiber.Handler {
	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Twilio-Signature")
		if signature == "" {
			log.Println("⚠️  Webhook rejected: missing X-Twilio-Signature")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing signature",
			})
		}

		authToken := os.Getenv("TWILIO_AUTH_TOKEN")
		if authToken == "" {
			log.Println("❌ TWILIO_AUTH_TOKEN not set, cannot validate webhooks")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Webhook validation not configured",
			})
		}

		params := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			params[string(key)] = string(value)
		})

		proto := "https"
		if forwarded := c.Get("X-Forwarded-Proto"); forwarded != "" {
			proto = forwarded
		}
		url := proto + "://" + c.Hostname() + c.OriginalURL()

		validator := twilioclient.NewRequestValidator(authToken)
		if !validator.Validate(url, params, signature) {
			log.Printf("⚠️  Webhook rejected: invalid signature for %s", url)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}

		return c.Next()
	}
}
