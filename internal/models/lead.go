package models

import (
	"gorm.io/gorm"
)

// BusinessLead stores a company enquiry collected by the "atención a
// empresas" flow, so the team can follow up even if the admin alert is missed.
type BusinessLead struct {
	gorm.Model
	ReferenceID string `json:"reference_id" gorm:"uniqueIndex"`
	ChatID      string `json:"chat_id" gorm:"index"`
	Details     string `json:"details"` // free text: company name, phone, interest
}
