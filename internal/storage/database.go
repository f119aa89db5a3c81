package storage

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/psicoclinica/citas-backend/internal/models"
)

// DatabaseStore implements Store on PostgreSQL via GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a new database-backed storage
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Appointment operations

func (d *DatabaseStore) CreateAppointment(appt *models.Appointment) (*models.Appointment, error) {
	if appt.ReferenceID == "" {
		appt.ReferenceID = uuid.NewString()
	}
	if appt.Status == "" {
		appt.Status = models.AppointmentStatusConfirmed
	}

	if err := d.db.Create(appt).Error; err != nil {
		return nil, err
	}
	return appt, nil
}

func (d *DatabaseStore) GetAppointment(referenceID string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := d.db.Where("reference_id = ?", referenceID).First(&appt).Error; err != nil {
		return nil, err
	}
	return &appt, nil
}

func (d *DatabaseStore) GetAppointmentsByDate(dateISO string) ([]*models.Appointment, error) {
	var appts []*models.Appointment
	err := d.db.Where("date = ? AND status = ?", dateISO, models.AppointmentStatusConfirmed).
		Order("start_time asc").Find(&appts).Error
	return appts, err
}

func (d *DatabaseStore) GetAppointmentsByChat(chatID string) ([]*models.Appointment, error) {
	var appts []*models.Appointment
	err := d.db.Where("chat_id = ?", chatID).Order("date asc").Find(&appts).Error
	return appts, err
}

func (d *DatabaseStore) GetAllAppointments() ([]*models.Appointment, error) {
	var appts []*models.Appointment
	err := d.db.Order("date asc, start_time asc").Find(&appts).Error
	return appts, err
}

func (d *DatabaseStore) UpdateAppointmentStatus(referenceID string, status string) error {
	return d.db.Model(&models.Appointment{}).
		Where("reference_id = ?", referenceID).
		Update("status", status).Error
}

// Business lead operations

func (d *DatabaseStore) CreateLead(lead *models.BusinessLead) (*models.BusinessLead, error) {
	if lead.ReferenceID == "" {
		lead.ReferenceID = uuid.NewString()
	}

	if err := d.db.Create(lead).Error; err != nil {
		return nil, err
	}
	return lead, nil
}

func (d *DatabaseStore) GetAllLeads() ([]*models.BusinessLead, error) {
	var leads []*models.BusinessLead
	err := d.db.Order("created_at desc").Find(&leads).Error
	return leads, err
}

// Recovery request operations

func (d *DatabaseStore) CreateRecoveryRequest(req *models.RecoveryRequest) (*models.RecoveryRequest, error) {
	if req.ReferenceID == "" {
		req.ReferenceID = uuid.NewString()
	}

	if err := d.db.Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

func (d *DatabaseStore) GetAllRecoveryRequests() ([]*models.RecoveryRequest, error) {
	var reqs []*models.RecoveryRequest
	err := d.db.Order("created_at desc").Find(&reqs).Error
	return reqs, err
}
