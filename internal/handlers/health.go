package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

var startTime = time.Now()

// HealthCheck reports service liveness
func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "citas-backend",
		"uptime":  time.Since(startTime).Round(time.Second).String(),
	})
}
