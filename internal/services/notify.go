package services

import "log"

// Notifier is the outbound message port. The production implementation is
// TwilioService; tests use fakes.
type Notifier interface {
	SendWhatsAppMessage(to string, message string) error
}

// AdminNotifier delivers operational alerts to the clinic operator's chat.
// Delivery is best effort: failures are logged and never retried, and they
// never change what the patient sees.
type AdminNotifier struct {
	notifier    Notifier
	adminNumber string
}

// NewAdminNotifier creates the admin alert dispatcher. adminNumber may be
// empty, in which case every alert is dropped with a warning.
func NewAdminNotifier(notifier Notifier, adminNumber string) *AdminNotifier {
	return &AdminNotifier{notifier: notifier, adminNumber: adminNumber}
}

// Alert sends one message to the admin chat. Returns whether delivery was
// attempted and accepted by the transport.
func (a *AdminNotifier) Alert(text string) bool {
	if len(a.adminNumber) < 9 {
		log.Println("⚠️  ADMIN_NUMBER not set or invalid, dropping admin alert")
		return false
	}
	if a.notifier == nil {
		log.Println("⚠️  Notifier not configured, dropping admin alert")
		return false
	}

	if err := a.notifier.SendWhatsAppMessage(a.adminNumber, text); err != nil {
		log.Printf("❌ Failed to send admin alert: %v", err)
		return false
	}
	return true
}
