package services

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/psicoclinica/citas-backend/internal/config"
)

// InboundMessage is one message as delivered by the transport.
type InboundMessage struct {
	ChatID        string
	Text          string
	IsGroup       bool
	MentionedSelf bool
	FromSelf      bool
}

// Dispatcher is the gate in front of the state machine. It drops self-echoes,
// enforces the group trigger, runs operator commands, applies the mute gate
// and serializes messages per conversation.
type Dispatcher struct {
	cfg      *config.Config
	conv     *Conversation
	sessions *SessionStore
	mutes    *MuteRegistry
	notifier Notifier

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDispatcher wires the dispatch gate.
func NewDispatcher(cfg *config.Config, conv *Conversation, sessions *SessionStore, mutes *MuteRegistry, notifier Notifier) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		conv:     conv,
		sessions: sessions,
		mutes:    mutes,
		notifier: notifier,
		locks:    make(map[string]*sync.Mutex),
	}
}

var reActivateBot = regexp.MustCompile(`^activate\s+bot(?:\s+(\d{9,15}))?$`)
var dispatcherNonDigits = regexp.MustCompile(`\D`)

// Dispatch processes one inbound message end to end. Messages for different
// chats run concurrently; messages for the same chat are strictly ordered by
// the per-chat lock.
func (d *Dispatcher) Dispatch(ctx context.Context, msg InboundMessage) error {
	if msg.FromSelf {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	// Group chats reach the bot only through the trigger token, which is
	// stripped before the state machine sees the text.
	if msg.IsGroup {
		lower := strings.ToLower(text)
		if !strings.HasPrefix(lower, d.cfg.GroupTrigger) {
			return nil
		}
		text = strings.TrimSpace(text[len(d.cfg.GroupTrigger):])
		if text == "" {
			return d.send(msg.ChatID, fmt.Sprintf(
				"👋 Escribe tu consulta después de %q. Ej: *%s hola*",
				d.cfg.GroupTrigger, d.cfg.GroupTrigger))
		}
	}

	isOperator := d.isOperator(msg.ChatID)
	if isOperator {
		if handled, err := d.runOperatorCommand(msg.ChatID, text); handled {
			return err
		}
	}

	if !isOperator && d.mutes.IsMuted(msg.ChatID) {
		log.Printf("🔇 Chat %s is in human handoff (muted), not responding", msg.ChatID)
		return nil
	}

	lock := d.lockFor(msg.ChatID)
	lock.Lock()
	defer lock.Unlock()

	return d.conv.Handle(ctx, msg.ChatID, text)
}

// runOperatorCommand executes reactivation commands from the operator chat.
// Returns handled=false for anything else, so the operator can still use the
// normal dialogue.
func (d *Dispatcher) runOperatorCommand(chatID, text string) (bool, error) {
	lower := strings.ToLower(strings.TrimSpace(text))

	if m := reActivateBot.FindStringSubmatch(lower); m != nil {
		if target := m[1]; target != "" {
			d.mutes.Unmute(target)
			d.sessions.Reset(target)
			log.Printf("✅ Operator reactivated bot for %s", target)
			return true, d.send(chatID, fmt.Sprintf("✅ Bot reactivado para %s", target))
		}
		cleared := d.mutes.UnmuteAll()
		log.Printf("✅ Operator reactivated bot for all chats (%d were muted)", cleared)
		return true, d.send(chatID, "✅ Bot reactivado para *todos* los chats.")
	}

	if lower == "help" || lower == "ayuda" {
		return true, d.send(chatID,
			"Comandos admin:\n"+
				"• activate bot → reactiva el bot en todos los chats\n"+
				"• activate bot 521XXXXXXXXXX → reactiva el bot para ese número")
	}

	return false, nil
}

func (d *Dispatcher) isOperator(chatID string) bool {
	if d.cfg.AdminNumber == "" {
		return false
	}
	return dispatcherNonDigits.ReplaceAllString(chatID, "") == d.cfg.AdminNumber
}

// lockFor returns the serialization lock for one chat, creating it on first
// use. Locks are never removed; the per-chat footprint is one mutex.
func (d *Dispatcher) lockFor(chatID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()

	lock, exists := d.locks[chatID]
	if !exists {
		lock = &sync.Mutex{}
		d.locks[chatID] = lock
	}
	return lock
}

func (d *Dispatcher) send(chatID, text string) error {
	if d.notifier == nil {
		log.Printf("📤 Message to %s (notifier not configured): %s", chatID, preview(text))
		return nil
	}
	return d.notifier.SendWhatsAppMessage(chatID, text)
}
