package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/psicoclinica/citas-backend/database"
	"github.com/psicoclinica/citas-backend/internal/config"
	"github.com/psicoclinica/citas-backend/internal/jobs"
	"github.com/psicoclinica/citas-backend/internal/models"
	"github.com/psicoclinica/citas-backend/internal/routes"
	"github.com/psicoclinica/citas-backend/internal/services"
	"github.com/psicoclinica/citas-backend/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found, using environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Printf("🏥 %s | timezone %s | calendar %s", cfg.ClinicName, cfg.TimezoneName, cfg.CalendarID)

	// Storage: in-memory for development, Postgres otherwise
	var store storage.Store
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("📦 Using in-memory storage")
		store = storage.NewMemoryStore()
	} else {
		log.Println("🗄️  Using PostgreSQL storage")
		database.Connect()
		if err := database.DB.AutoMigrate(
			&models.Appointment{},
			&models.BusinessLead{},
			&models.RecoveryRequest{},
		); err != nil {
			log.Fatalf("❌ Database migration failed: %v", err)
		}
		store = storage.NewDatabaseStore(database.DB)
	}
	storage.SetStore(store)

	// Twilio is optional in development; replies are logged instead of sent.
	var notifier services.Notifier
	if twilioService, err := services.NewTwilioService(); err != nil {
		log.Printf("⚠️  Twilio not configured, replies will be logged only: %v", err)
	} else {
		notifier = twilioService
	}

	// Google Calendar. Without it every booking ends in the transient apology.
	var cal services.Calendar
	if calendarService, err := services.NewGoogleCalendarService(context.Background(), cfg.CalendarID, cfg.TimezoneName); err != nil {
		log.Printf("⚠️  Google Calendar not configured, bookings will fail gracefully: %v", err)
	} else {
		cal = calendarService
	}

	sessions := services.NewSessionStore()
	mutes := services.NewMuteRegistry()
	adminNotifier := services.NewAdminNotifier(notifier, cfg.AdminNumber)
	therapy := services.NewTherapyInfoService(cfg, nil)

	conversation := services.NewConversation(cfg, sessions, mutes, cal, notifier, adminNotifier, store, therapy)
	dispatcher := services.NewDispatcher(cfg, conversation, sessions, mutes, notifier)

	reminderJob := jobs.NewReminderJob(store, notifier, cfg.Location)
	reminderJob.Start()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Clinica Citas Backend v1.0",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-Twilio-Signature",
	}))

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "Clinica Citas Backend",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	routes.SetupRoutes(app, store, dispatcher, sessions, mutes)

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("🛑 Shutting down server...")
		reminderJob.Stop()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Server starting on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
