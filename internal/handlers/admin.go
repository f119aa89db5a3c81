package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/psicoclinica/citas-backend/internal/services"
	"github.com/psicoclinica/citas-backend/internal/storage"
)

// AdminHandler exposes the operations dashboard endpoints
type AdminHandler struct {
	store    storage.Store
	sessions *services.SessionStore
	mutes    *services.MuteRegistry
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store storage.Store, sessions *services.SessionStore, mutes *services.MuteRegistry) *AdminHandler {
	return &AdminHandler{
		store:    store,
		sessions: sessions,
		mutes:    mutes,
	}
}

// GetSessions returns every active conversation and its state
func (h *AdminHandler) GetSessions(c *fiber.Ctx) error {
	snapshot := h.sessions.Snapshot()

	sessions := make([]fiber.Map, 0, len(snapshot))
	for chatID, sess := range snapshot {
		sessions = append(sessions, fiber.Map{
			"chat_id":       chatID,
			"state":         sess.State,
			"last_activity": sess.LastActivity,
		})
	}

	return c.JSON(fiber.Map{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// GetMutes returns chats currently in human handoff
func (h *AdminHandler) GetMutes(c *fiber.Ctx) error {
	active := h.mutes.Active()

	mutes := make([]fiber.Map, 0, len(active))
	for chatID, until := range active {
		mutes = append(mutes, fiber.Map{
			"chat_id":     chatID,
			"muted_until": until,
		})
	}

	return c.JSON(fiber.Map{
		"count": len(mutes),
		"mutes": mutes,
	})
}

// ClearMute reactivates the bot for a single chat
func (h *AdminHandler) ClearMute(c *fiber.Ctx) error {
	chatID := c.Params("chatID")
	if chatID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "chatID is required",
		})
	}

	h.mutes.Unmute(chatID)
	h.sessions.Reset(chatID)
	log.Printf("✅ Bot reactivated for %s via admin API", chatID)

	return c.JSON(fiber.Map{
		"success": true,
		"chat_id": chatID,
	})
}

// ClearAllMutes reactivates the bot for every muted chat
func (h *AdminHandler) ClearAllMutes(c *fiber.Ctx) error {
	cleared := h.mutes.UnmuteAll()
	log.Printf("✅ Bot reactivated for all chats via admin API (%d cleared)", cleared)

	return c.JSON(fiber.Map{
		"success": true,
		"cleared": cleared,
	})
}

// GetAppointments lists booked appointments
func (h *AdminHandler) GetAppointments(c *fiber.Ctx) error {
	appointments, err := h.store.GetAllAppointments()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load appointments",
		})
	}

	return c.JSON(fiber.Map{
		"count":        len(appointments),
		"appointments": appointments,
	})
}

// GetLeads lists business service leads
func (h *AdminHandler) GetLeads(c *fiber.Ctx) error {
	leads, err := h.store.GetAllLeads()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load leads",
		})
	}

	return c.JSON(fiber.Map{
		"count": len(leads),
		"leads": leads,
	})
}

// GetRecoveryRequests lists forgotten-appointment lookups
func (h *AdminHandler) GetRecoveryRequests(c *fiber.Ctx) error {
	requests, err := h.store.GetAllRecoveryRequests()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load recovery requests",
		})
	}

	return c.JSON(fiber.Map{
		"count":    len(requests),
		"requests": requests,
	})
}
