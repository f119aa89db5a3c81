package models

import (
	"gorm.io/gorm"
)

// Appointment statuses
const (
	AppointmentStatusConfirmed = "confirmed"
	AppointmentStatusCancelled = "cancelled"
)

// Appointment is the durable record of a booking confirmed on the calendar.
// The source of truth for the slot itself is the calendar event; this row
// exists for the admin surface and reminder job.
type Appointment struct {
	gorm.Model
	ReferenceID     string `json:"reference_id" gorm:"uniqueIndex"`
	ChatID          string `json:"chat_id" gorm:"index"`
	PatientName     string `json:"patient_name"`
	TherapyType     string `json:"therapy_type"`
	Date            string `json:"date" gorm:"index"` // YYYY-MM-DD, clinic timezone
	StartTime       string `json:"start_time"`        // HH:MM, 24h
	DurationMin     int    `json:"duration_min"`
	CalendarEventID string `json:"calendar_event_id"`
	Status          string `json:"status"`
}
