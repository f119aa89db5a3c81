package services

import (
	"sync"
	"time"
)

// MuteRegistry tracks conversations handed off to a human. While an entry is
// active the dispatcher must not run the state machine for that chat.
// Expiry is lazy: entries past their deadline are dropped when observed.
type MuteRegistry struct {
	mu      sync.Mutex
	entries map[string]time.Time // chatID -> expiresAt
}

// NewMuteRegistry creates an empty registry.
func NewMuteRegistry() *MuteRegistry {
	return &MuteRegistry{entries: make(map[string]time.Time)}
}

// Mute silences the bot for chatID for the given duration.
func (m *MuteRegistry) Mute(chatID string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[chatID] = time.Now().Add(d)
}

// IsMuted reports whether chatID is currently muted, expiring stale entries.
func (m *MuteRegistry) IsMuted(chatID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, exists := m.entries[chatID]
	if !exists {
		return false
	}
	if time.Now().After(until) {
		delete(m.entries, chatID)
		return false
	}
	return true
}

// Unmute clears the mute for one chat. No-op when absent.
func (m *MuteRegistry) Unmute(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, chatID)
}

// UnmuteAll clears every mute and returns how many were active.
func (m *MuteRegistry) UnmuteAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cleared := 0
	for id, until := range m.entries {
		if until.After(now) {
			cleared++
		}
		delete(m.entries, id)
	}
	return cleared
}

// Active returns the non-expired entries, for the admin surface.
func (m *MuteRegistry) Active() map[string]time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	out := make(map[string]time.Time)
	for id, until := range m.entries {
		if until.After(now) {
			out[id] = until
		} else {
			delete(m.entries, id)
		}
	}
	return out
}
