package storage

import (
	"testing"

	"github.com/psicoclinica/citas-backend/internal/models"
)

func TestMemoryStoreAppointments(t *testing.T) {
	store := NewMemoryStore()

	created, err := store.CreateAppointment(&models.Appointment{
		ChatID:      "5215551234567",
		PatientName: "Ana López",
		TherapyType: "individual",
		Date:        "2025-08-18",
		StartTime:   "15:00",
		DurationMin: 50,
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	if created.ReferenceID == "" {
		t.Error("reference id not assigned")
	}
	if created.Status != models.AppointmentStatusConfirmed {
		t.Errorf("status = %q, want confirmed by default", created.Status)
	}

	got, err := store.GetAppointment(created.ReferenceID)
	if err != nil {
		t.Fatalf("GetAppointment: %v", err)
	}
	if got.PatientName != "Ana López" {
		t.Errorf("patient name = %q", got.PatientName)
	}

	if _, err := store.GetAppointment("nope"); err == nil {
		t.Error("expected error for unknown reference")
	}

	byChat, err := store.GetAppointmentsByChat("5215551234567")
	if err != nil || len(byChat) != 1 {
		t.Errorf("GetAppointmentsByChat = %d appointments, err %v", len(byChat), err)
	}
}

func TestMemoryStoreByDateFiltersCancelled(t *testing.T) {
	store := NewMemoryStore()

	first, _ := store.CreateAppointment(&models.Appointment{Date: "2025-08-18", StartTime: "10:00"})
	store.CreateAppointment(&models.Appointment{Date: "2025-08-18", StartTime: "11:00"})
	store.CreateAppointment(&models.Appointment{Date: "2025-08-19", StartTime: "10:00"})

	if err := store.UpdateAppointmentStatus(first.ReferenceID, models.AppointmentStatusCancelled); err != nil {
		t.Fatalf("UpdateAppointmentStatus: %v", err)
	}

	byDate, err := store.GetAppointmentsByDate("2025-08-18")
	if err != nil {
		t.Fatalf("GetAppointmentsByDate: %v", err)
	}
	if len(byDate) != 1 {
		t.Errorf("appointments on 2025-08-18 = %d, want 1 (cancelled excluded)", len(byDate))
	}

	if err := store.UpdateAppointmentStatus("nope", models.AppointmentStatusCancelled); err == nil {
		t.Error("expected error updating unknown appointment")
	}
}

func TestMemoryStoreLeadsAndRecoveries(t *testing.T) {
	store := NewMemoryStore()

	lead, err := store.CreateLead(&models.BusinessLead{ChatID: "5215551234567", Details: "Acme SA"})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if lead.ReferenceID == "" {
		t.Error("lead reference id not assigned")
	}

	req, err := store.CreateRecoveryRequest(&models.RecoveryRequest{ChatID: "5215551234567", PatientName: "Ana"})
	if err != nil {
		t.Fatalf("CreateRecoveryRequest: %v", err)
	}
	if req.ReferenceID == "" {
		t.Error("recovery reference id not assigned")
	}

	leads, _ := store.GetAllLeads()
	reqs, _ := store.GetAllRecoveryRequests()
	if len(leads) != 1 || len(reqs) != 1 {
		t.Errorf("leads = %d, recoveries = %d, want 1 each", len(leads), len(reqs))
	}
}
