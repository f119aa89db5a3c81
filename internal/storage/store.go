package storage

import (
	"github.com/psicoclinica/citas-backend/internal/models"
)

var storeInstance Store

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	return storeInstance
}

// Store defines the interface for storage operations
type Store interface {
	// Appointment operations
	CreateAppointment(appt *models.Appointment) (*models.Appointment, error)
	GetAppointment(referenceID string) (*models.Appointment, error)
	GetAppointmentsByDate(dateISO string) ([]*models.Appointment, error)
	GetAppointmentsByChat(chatID string) ([]*models.Appointment, error)
	GetAllAppointments() ([]*models.Appointment, error)
	UpdateAppointmentStatus(referenceID string, status string) error

	// Business lead operations
	CreateLead(lead *models.BusinessLead) (*models.BusinessLead, error)
	GetAllLeads() ([]*models.BusinessLead, error)

	// Recovery request operations
	CreateRecoveryRequest(req *models.RecoveryRequest) (*models.RecoveryRequest, error)
	GetAllRecoveryRequests() ([]*models.RecoveryRequest, error)
}
