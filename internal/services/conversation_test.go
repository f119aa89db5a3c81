package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/psicoclinica/citas-backend/internal/config"
	"github.com/psicoclinica/citas-backend/internal/storage"
)

const (
	testAdminNumber = "5215550000000"
	testPatient     = "5215551234567"
)

func mexicoCity(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ClinicName:    "Clínica de Prueba",
		ClinicAddress: "Av. Siempre Viva 123",
		ClinicMapsURL: "https://maps.example.com/clinica",
		ClinicHours:   "Lun-Vie 10:00-18:00, Sáb 10:00-15:00",
		EmergencyNote: "Si es una urgencia médica llama al 911.",
		AdminNumber:   testAdminNumber,
		GroupTrigger:  "!psico",
		TimezoneName:  "America/Mexico_City",
		Location:      mexicoCity(t),
		CalendarID:    "primary",
		MuteDuration:  24 * time.Hour,
		Therapies:     config.DefaultTherapies,
	}
}

type sentMessage struct {
	to   string
	body string
}

// fakeNotifier records outbound messages instead of hitting Twilio.
type fakeNotifier struct {
	mu   sync.Mutex
	fail bool
	sent []sentMessage
}

func (f *fakeNotifier) SendWhatsAppMessage(to string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("send failed")
	}
	f.sent = append(f.sent, sentMessage{to: to, body: message})
	return nil
}

func (f *fakeNotifier) messagesTo(to string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.to == to {
			out = append(out, m.body)
		}
	}
	return out
}

func (f *fakeNotifier) lastTo(to string) string {
	msgs := f.messagesTo(to)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

// fakeCalendar is an in-memory Calendar with scriptable failures.
type fakeCalendar struct {
	busy      []BusyInterval
	queryErr  error
	insertErr error
	inserted  []EventRequest
}

func (f *fakeCalendar) QueryBusy(_ context.Context, _, _ time.Time) ([]BusyInterval, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.busy, nil
}

func (f *fakeCalendar) InsertEvent(_ context.Context, req EventRequest) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.inserted = append(f.inserted, req)
	return fmt.Sprintf("evt-%d", len(f.inserted)), nil
}

type convFixture struct {
	cfg      *config.Config
	sessions *SessionStore
	mutes    *MuteRegistry
	notifier *fakeNotifier
	cal      *fakeCalendar
	store    storage.Store
	conv     *Conversation
}

func newConvFixture(t *testing.T) *convFixture {
	t.Helper()
	f := &convFixture{
		cfg:      testConfig(t),
		sessions: NewSessionStore(),
		mutes:    NewMuteRegistry(),
		notifier: &fakeNotifier{},
		cal:      &fakeCalendar{},
		store:    storage.NewMemoryStore(),
	}
	f.conv = NewConversation(
		f.cfg, f.sessions, f.mutes, f.cal, f.notifier,
		NewAdminNotifier(f.notifier, f.cfg.AdminNumber),
		f.store, NewTherapyInfoService(f.cfg, nil),
	)
	return f
}

func (f *convFixture) say(t *testing.T, chatID, text string) {
	t.Helper()
	if err := f.conv.Handle(context.Background(), chatID, text); err != nil {
		t.Fatalf("Handle(%q) returned error: %v", text, err)
	}
}

func (f *convFixture) state(chatID string) State {
	return f.sessions.Get(chatID).State
}

// walkToHoraConfirm drives the booking flow up to the final confirmation.
func (f *convFixture) walkToHoraConfirm(t *testing.T, chatID, dateText, timeText string) {
	t.Helper()
	f.say(t, chatID, "1")
	f.say(t, chatID, "Ana López García")
	f.say(t, chatID, dateText)
	if got := f.state(chatID); got != StateCitaFechaConfirm {
		t.Fatalf("state after date = %s, want %s", got, StateCitaFechaConfirm)
	}
	f.say(t, chatID, "sí")
	f.say(t, chatID, timeText)
	if got := f.state(chatID); got != StateCitaHoraConfirm {
		t.Fatalf("state after time = %s, want %s", got, StateCitaHoraConfirm)
	}
}

func TestBookingHappyPath(t *testing.T) {
	f := newConvFixture(t)

	f.walkToHoraConfirm(t, testPatient, "próximo lunes", "3 pm")
	f.say(t, testPatient, "sí")

	if got := f.state(testPatient); got != StateIdle {
		t.Errorf("state after booking = %s, want %s", got, StateIdle)
	}

	if len(f.cal.inserted) != 1 {
		t.Fatalf("calendar events inserted = %d, want 1", len(f.cal.inserted))
	}
	ev := f.cal.inserted[0]
	if !strings.Contains(ev.Summary, "Ana López García") || !strings.Contains(ev.Summary, "Terapia individual") {
		t.Errorf("event summary = %q, want patient name and therapy label", ev.Summary)
	}
	if got := ev.End.Sub(ev.Start); got != 50*time.Minute {
		t.Errorf("event duration = %v, want 50m", got)
	}

	appts, err := f.store.GetAllAppointments()
	if err != nil {
		t.Fatalf("GetAllAppointments: %v", err)
	}
	if len(appts) != 1 {
		t.Fatalf("stored appointments = %d, want 1", len(appts))
	}
	if appts[0].StartTime != "15:00" {
		t.Errorf("stored start time = %s, want 15:00", appts[0].StartTime)
	}
	if appts[0].CalendarEventID != "evt-1" {
		t.Errorf("stored event id = %s, want evt-1", appts[0].CalendarEventID)
	}

	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, "Cita creada") {
		t.Errorf("final reply = %q, want booking confirmation", last)
	}
	if last := f.notifier.lastTo(testAdminNumber); !strings.Contains(last, "ALERTA CITA") {
		t.Errorf("admin alert = %q, want ALERTA CITA", last)
	}
}

func TestBookingBusySlotRestartsAtDate(t *testing.T) {
	f := newConvFixture(t)

	f.walkToHoraConfirm(t, testPatient, "próximo lunes", "3 pm")

	// Occupy the exact requested window before the final yes.
	booking := f.sessions.Get(testPatient).Booking
	f.cal.busy = []BusyInterval{{
		Start: booking.Fecha.At(TimeOfDay{Hour: 15}, f.cfg.Location).UTC(),
		End:   booking.Fecha.At(TimeOfDay{Hour: 16}, f.cfg.Location).UTC(),
	}}

	f.say(t, testPatient, "sí")

	if got := f.state(testPatient); got != StateCitaFechaFreeform {
		t.Errorf("state after busy slot = %s, want %s", got, StateCitaFechaFreeform)
	}
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, "ocupado") {
		t.Errorf("reply = %q, want busy-slot message", last)
	}
	if len(f.cal.inserted) != 0 {
		t.Error("busy slot must not create an event")
	}
}

func TestBookingOutsideHoursRejectedBeforeCalendar(t *testing.T) {
	f := newConvFixture(t)
	f.cal.queryErr = errors.New("must not be called")

	f.walkToHoraConfirm(t, testPatient, "próximo domingo", "11")
	f.say(t, testPatient, "sí")

	if got := f.state(testPatient); got != StateCitaHoraFreeform {
		t.Errorf("state after policy rejection = %s, want %s", got, StateCitaHoraFreeform)
	}
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, "domingos") {
		t.Errorf("reply = %q, want Sunday rejection reason", last)
	}
}

func TestBookingCalendarAuthFailure(t *testing.T) {
	f := newConvFixture(t)
	f.cal.queryErr = fmt.Errorf("query busy intervals: %w", ErrCalendarAuth)

	f.walkToHoraConfirm(t, testPatient, "próximo lunes", "3 pm")
	f.say(t, testPatient, "sí")

	if got := f.state(testPatient); got != StateIdle {
		t.Errorf("state after auth failure = %s, want %s", got, StateIdle)
	}
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, "autorización") {
		t.Errorf("reply = %q, want authorization apology", last)
	}
}

func TestBookingCalendarTransientFailure(t *testing.T) {
	f := newConvFixture(t)
	f.cal.insertErr = errors.New("rpc deadline exceeded")

	f.walkToHoraConfirm(t, testPatient, "próximo lunes", "3 pm")
	f.say(t, testPatient, "sí")

	if got := f.state(testPatient); got != StateIdle {
		t.Errorf("state after transient failure = %s, want %s", got, StateIdle)
	}
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, "error temporal") {
		t.Errorf("reply = %q, want transient apology", last)
	}
}

func TestBookingDateRetry(t *testing.T) {
	f := newConvFixture(t)

	f.say(t, testPatient, "1")
	f.say(t, testPatient, "Ana López")
	f.say(t, testPatient, "cuando se pueda")

	if got := f.state(testPatient); got != StateCitaFechaFreeform {
		t.Errorf("state after unparseable date = %s, want %s", got, StateCitaFechaFreeform)
	}
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, "No pude interpretar la fecha") {
		t.Errorf("reply = %q, want date retry prompt", last)
	}
}

func TestBookingDateRejectedGoesBack(t *testing.T) {
	f := newConvFixture(t)

	f.say(t, testPatient, "1")
	f.say(t, testPatient, "Ana López")
	f.say(t, testPatient, "mañana")
	f.say(t, testPatient, "no")

	if got := f.state(testPatient); got != StateCitaFechaFreeform {
		t.Errorf("state after rejected date = %s, want %s", got, StateCitaFechaFreeform)
	}

	// Name survives the loop back.
	if b := f.sessions.Get(testPatient).Booking; b == nil || b.Nombre != "Ana López" {
		t.Errorf("booking data lost on date re-entry: %+v", b)
	}
}

func TestBookingUnclearConfirmationReprompts(t *testing.T) {
	f := newConvFixture(t)

	f.say(t, testPatient, "1")
	f.say(t, testPatient, "Ana López")
	f.say(t, testPatient, "mañana")
	f.say(t, testPatient, "tal vez")

	if got := f.state(testPatient); got != StateCitaFechaConfirm {
		t.Errorf("state after unclear reply = %s, want %s", got, StateCitaFechaConfirm)
	}
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, "sí") || !strings.Contains(last, "no") {
		t.Errorf("reply = %q, want yes/no reprompt", last)
	}
}

func TestMenuResetsMidFlow(t *testing.T) {
	f := newConvFixture(t)

	f.say(t, testPatient, "1")
	f.say(t, testPatient, "Ana López")
	f.say(t, testPatient, "menú")

	if got := f.state(testPatient); got != StateIdle {
		t.Errorf("state after menú = %s, want %s", got, StateIdle)
	}
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, "Agendar cita") {
		t.Errorf("reply = %q, want welcome menu", last)
	}
	if f.sessions.Get(testPatient).Booking != nil {
		t.Error("flow data survived menu reset")
	}
}

func TestGreetingShowsMenu(t *testing.T) {
	f := newConvFixture(t)

	f.say(t, testPatient, "hola, buenas tardes")

	if got := f.state(testPatient); got != StateIdle {
		t.Errorf("state = %s, want %s", got, StateIdle)
	}
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, f.cfg.ClinicName) {
		t.Errorf("reply = %q, want welcome menu", last)
	}
}

func TestEmergencyHandsOffToHuman(t *testing.T) {
	f := newConvFixture(t)

	f.say(t, testPatient, "4")

	if !f.mutes.IsMuted(testPatient) {
		t.Error("chat not muted after emergency")
	}
	if got := f.state(testPatient); got != StateHumano {
		t.Errorf("state = %s, want %s", got, StateHumano)
	}
	if last := f.notifier.lastTo(testAdminNumber); !strings.Contains(last, "ALERTA EMERGENCIA") {
		t.Errorf("admin alert = %q, want ALERTA EMERGENCIA", last)
	}
	if !strings.Contains(f.notifier.lastTo(testAdminNumber), "activate bot "+testPatient) {
		t.Error("admin alert must include the reactivation command")
	}

	// Follow-up messages only get the handoff acknowledgement.
	f.say(t, testPatient, "urge por favor")
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, "seguimiento") {
		t.Errorf("reply in HUMANO = %q, want handoff ack", last)
	}
}

func TestLocationAndHoursStayIdle(t *testing.T) {
	f := newConvFixture(t)

	f.say(t, testPatient, "2")
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, f.cfg.ClinicAddress) {
		t.Errorf("reply = %q, want clinic address", last)
	}

	f.say(t, testPatient, "3")
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, f.cfg.ClinicHours) {
		t.Errorf("reply = %q, want clinic hours", last)
	}

	if got := f.state(testPatient); got != StateIdle {
		t.Errorf("state = %s, want %s", got, StateIdle)
	}
}

func TestTherapyInfoFlowCarriesTypeIntoBooking(t *testing.T) {
	f := newConvFixture(t)

	f.say(t, testPatient, "6")
	if got := f.state(testPatient); got != StateTherapyType {
		t.Fatalf("state = %s, want %s", got, StateTherapyType)
	}

	f.say(t, testPatient, "2")
	if got := f.state(testPatient); got != StateTherapyDetail {
		t.Fatalf("state = %s, want %s", got, StateTherapyDetail)
	}
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, "$850") {
		t.Errorf("detail reply = %q, want couples therapy price", last)
	}

	f.say(t, testPatient, "1")
	if got := f.state(testPatient); got != StateCitaNombre {
		t.Fatalf("state = %s, want %s", got, StateCitaNombre)
	}
	if b := f.sessions.Get(testPatient).Booking; b == nil || b.TherapyKey != "pareja" {
		t.Errorf("booking therapy key = %+v, want pareja", b)
	}
}

func TestTherapyInfoInvalidChoiceReprompts(t *testing.T) {
	f := newConvFixture(t)

	f.say(t, testPatient, "6")
	f.say(t, testPatient, "9")

	if got := f.state(testPatient); got != StateTherapyType {
		t.Errorf("state = %s, want %s", got, StateTherapyType)
	}
}

func TestEmpresasFlowStoresLead(t *testing.T) {
	f := newConvFixture(t)

	f.say(t, testPatient, "7")
	f.say(t, testPatient, "sí")
	f.say(t, testPatient, "Acme SA, tel 5550001111, 80 empleados")

	if got := f.state(testPatient); got != StateIdle {
		t.Errorf("state = %s, want %s", got, StateIdle)
	}

	leads, err := f.store.GetAllLeads()
	if err != nil {
		t.Fatalf("GetAllLeads: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("stored leads = %d, want 1", len(leads))
	}
	if !strings.Contains(leads[0].Details, "Acme SA") {
		t.Errorf("lead details = %q", leads[0].Details)
	}
	if last := f.notifier.lastTo(testAdminNumber); !strings.Contains(last, "LEAD EMPRESAS") {
		t.Errorf("admin alert = %q, want LEAD EMPRESAS", last)
	}
}

func TestEmpresasDeclined(t *testing.T) {
	f := newConvFixture(t)

	f.say(t, testPatient, "7")
	f.say(t, testPatient, "no")

	if got := f.state(testPatient); got != StateIdle {
		t.Errorf("state = %s, want %s", got, StateIdle)
	}
	leads, _ := f.store.GetAllLeads()
	if len(leads) != 0 {
		t.Error("declined flow must not store a lead")
	}
}

func TestForgotFlowStoresRecoveryRequest(t *testing.T) {
	f := newConvFixture(t)

	f.say(t, testPatient, "5")
	f.say(t, testPatient, "Ana López García")
	f.say(t, testPatient, "el lunes pasado")

	if got := f.state(testPatient); got != StateIdle {
		t.Errorf("state = %s, want %s", got, StateIdle)
	}

	reqs, err := f.store.GetAllRecoveryRequests()
	if err != nil {
		t.Fatalf("GetAllRecoveryRequests: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("stored recovery requests = %d, want 1", len(reqs))
	}
	if reqs[0].PatientName != "Ana López García" {
		t.Errorf("patient name = %q", reqs[0].PatientName)
	}
	if last := f.notifier.lastTo(testAdminNumber); !strings.Contains(last, "RECUPERAR") {
		t.Errorf("admin alert = %q, want RECUPERAR", last)
	}
}

func TestUnknownIdleInputResendsMenu(t *testing.T) {
	f := newConvFixture(t)

	f.say(t, testPatient, "quisiera información")

	if got := f.state(testPatient); got != StateIdle {
		t.Errorf("state = %s, want %s", got, StateIdle)
	}
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, "Agendar cita") {
		t.Errorf("reply = %q, want welcome menu", last)
	}
}

func TestAdminAlertDroppedWithoutAdminNumber(t *testing.T) {
	notifier := &fakeNotifier{}
	admin := NewAdminNotifier(notifier, "")

	if admin.Alert("should be dropped") {
		t.Error("Alert without admin number reported success")
	}
	if len(notifier.sent) != 0 {
		t.Error("message sent despite missing admin number")
	}
}
