package models

import (
	"gorm.io/gorm"
)

// RecoveryRequest records a "forgot my appointment / lost the meeting link"
// request. Resolution is manual; the row plus the admin alert is the queue.
type RecoveryRequest struct {
	gorm.Model
	ReferenceID string `json:"reference_id" gorm:"uniqueIndex"`
	ChatID      string `json:"chat_id" gorm:"index"`
	PatientName string `json:"patient_name"`
	ApproxDate  string `json:"approx_date"` // verbatim user text, may be "no sé"
}
