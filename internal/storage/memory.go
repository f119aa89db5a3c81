package storage

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/psicoclinica/citas-backend/internal/models"
)

// MemoryStore holds all data in memory, for development and tests
type MemoryStore struct {
	appointments map[string]*models.Appointment
	leads        map[string]*models.BusinessLead
	recoveries   map[string]*models.RecoveryRequest

	// Mutexes for thread safety
	apptMu     sync.RWMutex
	leadMu     sync.RWMutex
	recoveryMu sync.RWMutex
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		appointments: make(map[string]*models.Appointment),
		leads:        make(map[string]*models.BusinessLead),
		recoveries:   make(map[string]*models.RecoveryRequest),
	}
}

// Appointment operations

func (m *MemoryStore) CreateAppointment(appt *models.Appointment) (*models.Appointment, error) {
	m.apptMu.Lock()
	defer m.apptMu.Unlock()

	if appt.ReferenceID == "" {
		appt.ReferenceID = uuid.NewString()
	}
	if appt.Status == "" {
		appt.Status = models.AppointmentStatusConfirmed
	}

	m.appointments[appt.ReferenceID] = appt
	return appt, nil
}

func (m *MemoryStore) GetAppointment(referenceID string) (*models.Appointment, error) {
	m.apptMu.RLock()
	defer m.apptMu.RUnlock()

	appt, exists := m.appointments[referenceID]
	if !exists {
		return nil, fmt.Errorf("appointment not found")
	}
	return appt, nil
}

func (m *MemoryStore) GetAppointmentsByDate(dateISO string) ([]*models.Appointment, error) {
	m.apptMu.RLock()
	defer m.apptMu.RUnlock()

	var results []*models.Appointment
	for _, appt := range m.appointments {
		if appt.Date == dateISO && appt.Status == models.AppointmentStatusConfirmed {
			results = append(results, appt)
		}
	}
	return results, nil
}

func (m *MemoryStore) GetAppointmentsByChat(chatID string) ([]*models.Appointment, error) {
	m.apptMu.RLock()
	defer m.apptMu.RUnlock()

	var results []*models.Appointment
	for _, appt := range m.appointments {
		if appt.ChatID == chatID {
			results = append(results, appt)
		}
	}
	return results, nil
}

func (m *MemoryStore) GetAllAppointments() ([]*models.Appointment, error) {
	m.apptMu.RLock()
	defer m.apptMu.RUnlock()

	results := make([]*models.Appointment, 0, len(m.appointments))
	for _, appt := range m.appointments {
		results = append(results, appt)
	}
	return results, nil
}

func (m *MemoryStore) UpdateAppointmentStatus(referenceID string, status string) error {
	m.apptMu.Lock()
	defer m.apptMu.Unlock()

	appt, exists := m.appointments[referenceID]
	if !exists {
		return fmt.Errorf("appointment not found")
	}
	appt.Status = status
	return nil
}

// Business lead operations

func (m *MemoryStore) CreateLead(lead *models.BusinessLead) (*models.BusinessLead, error) {
	m.leadMu.Lock()
	defer m.leadMu.Unlock()

	if lead.ReferenceID == "" {
		lead.ReferenceID = uuid.NewString()
	}

	m.leads[lead.ReferenceID] = lead
	return lead, nil
}

func (m *MemoryStore) GetAllLeads() ([]*models.BusinessLead, error) {
	m.leadMu.RLock()
	defer m.leadMu.RUnlock()

	results := make([]*models.BusinessLead, 0, len(m.leads))
	for _, lead := range m.leads {
		results = append(results, lead)
	}
	return results, nil
}

// Recovery request operations

func (m *MemoryStore) CreateRecoveryRequest(req *models.RecoveryRequest) (*models.RecoveryRequest, error) {
	m.recoveryMu.Lock()
	defer m.recoveryMu.Unlock()

	if req.ReferenceID == "" {
		req.ReferenceID = uuid.NewString()
	}

	m.recoveries[req.ReferenceID] = req
	return req, nil
}

func (m *MemoryStore) GetAllRecoveryRequests() ([]*models.RecoveryRequest, error) {
	m.recoveryMu.RLock()
	defer m.recoveryMu.RUnlock()

	results := make([]*models.RecoveryRequest, 0, len(m.recoveries))
	for _, req := range m.recoveries {
		results = append(results, req)
	}
	return results, nil
}
