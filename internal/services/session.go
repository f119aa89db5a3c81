package services

import (
	"sync"
	"time"
)

// State enumerates the conversation states.
type State string

const (
	StateIdle              State = "IDLE"
	StateCitaNombre        State = "CITA_NOMBRE"
	StateCitaFechaFreeform State = "CITA_FECHA_FREEFORM"
	StateCitaFechaConfirm  State = "CITA_FECHA_CONFIRM"
	StateCitaHoraFreeform  State = "CITA_HORA_FREEFORM"
	StateCitaHoraConfirm   State = "CITA_HORA_CONFIRM"
	StateTherapyType       State = "THERAPY_TYPE"
	StateTherapyDetail     State = "THERAPY_DETAIL"
	StateEmpresasConfirm   State = "EMPRESAS_CONFIRM"
	StateEmpresasDatos     State = "EMPRESAS_DATOS"
	StateForgotName        State = "FORGOT_NAME"
	StateForgotDate        State = "FORGOT_DATE"
	StateHumano            State = "HUMANO"
)

// BookingData is everything the booking flow collects. A state can only see
// the data of its own flow; nothing leaks across flows.
type BookingData struct {
	Nombre     string
	TherapyKey string

	FechaTexto    string
	Fecha         CivilDate
	FechaReadable string
	HasFecha      bool

	HoraTexto    string
	Hora         TimeOfDay
	HoraReadable string
	HasHora      bool
}

// ForgotData holds the appointment-recovery flow fields.
type ForgotData struct {
	Nombre string
}

// TherapyData tracks which therapy type an info browse selected.
type TherapyData struct {
	Key string
}

// Session is the per-conversation dialogue state. Exactly one of the flow
// data pointers is non-nil outside IDLE/HUMANO.
type Session struct {
	State        State
	Booking      *BookingData
	Forgot       *ForgotData
	Therapy      *TherapyData
	LastActivity time.Time
}

func newSession() *Session {
	return &Session{State: StateIdle, LastActivity: time.Now()}
}

// clone deep-copies a session so readers never share flow data with the map.
func (s *Session) clone() Session {
	out := *s
	if s.Booking != nil {
		b := *s.Booking
		out.Booking = &b
	}
	if s.Forgot != nil {
		f := *s.Forgot
		out.Forgot = &f
	}
	if s.Therapy != nil {
		t := *s.Therapy
		out.Therapy = &t
	}
	return out
}

// SessionStore maps conversation ids to sessions. Sessions are created lazily
// and never destroyed, only reset back to IDLE.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Get returns a copy of the session for chatID, creating it at IDLE on first
// reference. The copy is always fully initialized.
func (s *SessionStore) Get(chatID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[chatID]
	if !exists {
		sess = newSession()
		s.sessions[chatID] = sess
	}
	sess.LastActivity = time.Now()
	return sess.clone()
}

// Update applies fn to the session under the store lock. fn must not block or
// call out; external calls happen before or after, never inside.
func (s *SessionStore) Update(chatID string, fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[chatID]
	if !exists {
		sess = newSession()
		s.sessions[chatID] = sess
	}
	fn(sess)
	sess.LastActivity = time.Now()
}

// Reset returns the conversation to IDLE with no flow data. Idempotent.
func (s *SessionStore) Reset(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID] = newSession()
}

// Count returns the number of known conversations.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Snapshot returns a copy of every session, for the admin surface.
func (s *SessionStore) Snapshot() map[string]Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Session, len(s.sessions))
	for id, sess := range s.sessions {
		out[id] = sess.clone()
	}
	return out
}
