package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/psicoclinica/citas-backend/internal/services"
	"github.com/psicoclinica/citas-backend/internal/storage"
)

// ReminderJob sends a WhatsApp reminder for every appointment happening the
// next day. Delivery is best effort; a failed send is logged and skipped.
type ReminderJob struct {
	store     storage.Store
	notifier  services.Notifier
	loc       *time.Location
	isRunning bool
}

// NewReminderJob creates the reminder scheduler.
func NewReminderJob(store storage.Store, notifier services.Notifier, loc *time.Location) *ReminderJob {
	return &ReminderJob{
		store:    store,
		notifier: notifier,
		loc:      loc,
	}
}

// Start begins the daily reminder loop
func (r *ReminderJob) Start() {
	if r.isRunning {
		log.Println("Reminder job already running")
		return
	}
	r.isRunning = true
	go r.scheduleDailyReminders()
	log.Println("Appointment reminder job started")
}

// Stop halts the reminder loop after the current sleep
func (r *ReminderJob) Stop() {
	r.isRunning = false
	log.Println("Stopping appointment reminder job...")
}

// scheduleDailyReminders runs every day at 18:00 clinic time.
func (r *ReminderJob) scheduleDailyReminders() {
	for r.isRunning {
		now := time.Now().In(r.loc)
		nextRun := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, r.loc)
		if !nextRun.After(now) {
			nextRun = nextRun.AddDate(0, 0, 1)
		}

		log.Printf("Next appointment reminder run in %v", time.Until(nextRun).Round(time.Minute))
		time.Sleep(time.Until(nextRun))

		if !r.isRunning {
			break
		}
		r.sendReminders()
	}
}

// sendReminders messages every patient with a confirmed appointment tomorrow.
func (r *ReminderJob) sendReminders() {
	if r.notifier == nil {
		log.Println("⚠️  Notifier not configured, skipping reminder run")
		return
	}

	tomorrow := services.TodayIn(r.loc).AddDays(1)
	appts, err := r.store.GetAppointmentsByDate(tomorrow.ISO())
	if err != nil {
		log.Printf("❌ Error loading appointments for reminders: %v", err)
		return
	}

	sent := 0
	for _, appt := range appts {
		msg := fmt.Sprintf(
			"⏰ *Recordatorio de cita*\nHola %s, te esperamos mañana (%s) a las *%s*.\nSi necesitas reprogramar, escribe *menú* y elige la opción 5.",
			appt.PatientName, appt.Date, appt.StartTime)
		if err := r.notifier.SendWhatsAppMessage(appt.ChatID, msg); err != nil {
			log.Printf("❌ Failed to send reminder to %s: %v", appt.ChatID, err)
			continue
		}
		sent++
	}

	log.Printf("✅ Sent %d appointment reminders for %s", sent, tomorrow.ISO())
}
