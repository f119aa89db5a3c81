package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/psicoclinica/citas-backend/internal/handlers"
	"github.com/psicoclinica/citas-backend/internal/middleware"
	"github.com/psicoclinica/citas-backend/internal/services"
	"github.com/psicoclinica/citas-backend/internal/storage"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, store storage.Store, dispatcher *services.Dispatcher, sessions *services.SessionStore, mutes *services.MuteRegistry) {
	whatsappHandler := handlers.NewWhatsAppHandler(dispatcher)
	adminHandler := handlers.NewAdminHandler(store, sessions, mutes)

	app.Get("/health", handlers.HealthCheck)

	// Twilio webhook. Signature validation is skipped in development so the
	// flow can be exercised with curl.
	skipValidation := os.Getenv("ENVIRONMENT") == "development" ||
		os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true"

	webhooks := app.Group("/webhook")
	if skipValidation {
		log.Println("⚠️  Twilio webhook signature validation DISABLED")
		webhooks.Post("/whatsapp", whatsappHandler.HandleWebhook)
	} else {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(), whatsappHandler.HandleWebhook)
	}

	// Development-only inbound simulator, supports group and self flags
	app.Post("/test/whatsapp", whatsappHandler.HandleTestWebhook)

	admin := app.Group("/admin")
	admin.Get("/sessions", adminHandler.GetSessions)
	admin.Get("/mutes", adminHandler.GetMutes)
	admin.Post("/mutes/clear", adminHandler.ClearAllMutes)
	admin.Post("/mutes/:chatID/clear", adminHandler.ClearMute)
	admin.Get("/appointments", adminHandler.GetAppointments)
	admin.Get("/leads", adminHandler.GetLeads)
	admin.Get("/recovery-requests", adminHandler.GetRecoveryRequests)
}
