package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/psicoclinica/citas-backend/internal/services"
)

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	dispatcher *services.Dispatcher
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(dispatcher *services.Dispatcher) *WhatsAppHandler {
	return &WhatsAppHandler{dispatcher: dispatcher}
}

// TwilioWebhookPayload represents an incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid string `form:"MessageSid"`
	AccountSid string `form:"AccountSid"`
	From       string `form:"From"` // "whatsapp:+5215512345678"
	To         string `form:"To"`
	Body       string `form:"Body"`
	NumMedia   string `form:"NumMedia"`
}

// HandleWebhook processes incoming WhatsApp messages
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	log.Printf("📱 WhatsApp message from %s: %s", payload.From, payload.Body)

	// Status callbacks have no body; only real messages are dispatched.
	if payload.Body != "" && payload.From != "" {
		from := strings.TrimPrefix(payload.From, "whatsapp:")
		from = strings.TrimPrefix(from, "+")

		err := h.dispatcher.Dispatch(c.UserContext(), services.InboundMessage{
			ChatID: from,
			Text:   payload.Body,
		})
		if err != nil {
			log.Printf("Error processing message from %s: %v", from, err)
		}
	}

	// Acknowledge webhook receipt
	return c.SendStatus(fiber.StatusOK)
}

// TestWebhookPayload mimics the inbound contract for development, including
// the group-context fields Twilio's form payload cannot carry.
type TestWebhookPayload struct {
	From      string `json:"from"`
	Message   string `json:"message"`
	Group     bool   `json:"group"`
	Mentioned bool   `json:"mentioned"`
	FromSelf  bool   `json:"from_self"`
}

// HandleTestWebhook processes test WhatsApp messages (for development)
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test webhook from %s: %s", payload.From, payload.Message)

	err := h.dispatcher.Dispatch(c.UserContext(), services.InboundMessage{
		ChatID:        payload.From,
		Text:          payload.Message,
		IsGroup:       payload.Group,
		MentionedSelf: payload.Mentioned,
		FromSelf:      payload.FromSelf,
	})
	if err != nil {
		log.Printf("Error processing test message: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{"success": true})
}
