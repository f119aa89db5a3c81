package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/psicoclinica/citas-backend/internal/config"
	"github.com/psicoclinica/citas-backend/internal/models"
	"github.com/psicoclinica/citas-backend/internal/storage"
)

// Conversation is the per-chat dialogue state machine. One Handle call
// processes one inbound message; the dispatcher guarantees calls for the same
// chat never run concurrently.
type Conversation struct {
	cfg      *config.Config
	sessions *SessionStore
	mutes    *MuteRegistry
	resolver *AvailabilityResolver
	calendar Calendar
	notifier Notifier
	admin    *AdminNotifier
	store    storage.Store
	therapy  *TherapyInfoService
}

// NewConversation wires the state machine to its collaborators.
func NewConversation(
	cfg *config.Config,
	sessions *SessionStore,
	mutes *MuteRegistry,
	cal Calendar,
	notifier Notifier,
	admin *AdminNotifier,
	store storage.Store,
	therapy *TherapyInfoService,
) *Conversation {
	return &Conversation{
		cfg:      cfg,
		sessions: sessions,
		mutes:    mutes,
		resolver: NewAvailabilityResolver(cal, cfg.Location),
		calendar: cal,
		notifier: notifier,
		admin:    admin,
		store:    store,
		therapy:  therapy,
	}
}

// Handle runs one message through the state machine and sends the replies.
func (c *Conversation) Handle(ctx context.Context, chatID, text string) error {
	text = strings.TrimSpace(text)

	// Menu/cancel keywords and greetings reset from any state.
	switch ClassifyIntent(text) {
	case IntentMenu, IntentGreeting:
		c.sessions.Reset(chatID)
		return c.reply(chatID, WelcomeMenu(c.cfg))
	}

	sess := c.sessions.Get(chatID)
	log.Printf("💬 %s in state %s: %q", chatID, sess.State, preview(text))

	switch sess.State {
	case StateIdle:
		return c.handleIdle(ctx, chatID, text)
	case StateTherapyType:
		return c.handleTherapyType(chatID, text)
	case StateTherapyDetail:
		return c.handleTherapyDetail(chatID, text, sess)
	case StateEmpresasConfirm:
		return c.handleEmpresasConfirm(chatID, text)
	case StateEmpresasDatos:
		return c.handleEmpresasDatos(chatID, text)
	case StateForgotName:
		return c.handleForgotName(chatID, text)
	case StateForgotDate:
		return c.handleForgotDate(chatID, text, sess)
	case StateCitaNombre:
		return c.handleCitaNombre(chatID, text)
	case StateCitaFechaFreeform:
		return c.handleCitaFechaFreeform(chatID, text)
	case StateCitaFechaConfirm:
		return c.handleCitaFechaConfirm(chatID, text)
	case StateCitaHoraFreeform:
		return c.handleCitaHoraFreeform(chatID, text)
	case StateCitaHoraConfirm:
		return c.handleCitaHoraConfirm(ctx, chatID, text, sess)
	case StateHumano:
		return c.reply(chatID, humanoAck)
	default:
		c.sessions.Reset(chatID)
		return c.reply(chatID, WelcomeMenu(c.cfg))
	}
}

func (c *Conversation) handleIdle(ctx context.Context, chatID, text string) error {
	switch text {
	case optionBooking:
		c.sessions.Update(chatID, func(s *Session) {
			s.State = StateCitaNombre
			s.Booking = &BookingData{TherapyKey: "individual"}
		})
		return c.reply(chatID, promptNombre)

	case optionLocation:
		return c.reply(chatID, LocationCopy(c.cfg))

	case optionHours:
		return c.reply(chatID, HoursCopy(c.cfg))

	case optionEmergency:
		return c.handleEmergency(chatID)

	case optionForgot:
		c.sessions.Update(chatID, func(s *Session) {
			s.State = StateForgotName
			s.Forgot = &ForgotData{}
		})
		return c.reply(chatID, promptForgotName)

	case optionTherapies:
		info := c.therapy.GeneralInfo(ctx)
		options := "\n\nElige una opción:\n" +
			fmt.Sprintf("1) %s\n", c.cfg.Therapies["individual"].Label) +
			fmt.Sprintf("2) %s\n", c.cfg.Therapies["pareja"].Label) +
			fmt.Sprintf("3) %s", c.cfg.Therapies["adolescentes"].Label)
		c.sessions.Update(chatID, func(s *Session) {
			s.State = StateTherapyType
			s.Therapy = &TherapyData{}
		})
		return c.reply(chatID, info+options)

	case optionEmpresas:
		c.sessions.Update(chatID, func(s *Session) {
			s.State = StateEmpresasConfirm
		})
		return c.reply(chatID, empresasIntro)

	default:
		// Anything else just shows the menu again; the state does not move.
		return c.reply(chatID, WelcomeMenu(c.cfg))
	}
}

// handleEmergency is the side-effecting IDLE transition: the bot goes quiet
// for the mute window, the session parks in HUMANO and the admin is paged.
func (c *Conversation) handleEmergency(chatID string) error {
	err := c.reply(chatID, EmergencyCopy(c.cfg))

	c.mutes.Mute(chatID, c.cfg.MuteDuration)
	c.sessions.Update(chatID, func(s *Session) {
		s.State = StateHumano
		s.Booking, s.Forgot, s.Therapy = nil, nil, nil
	})
	log.Printf("🔇 Chat %s muted for %s (human handoff)", chatID, c.cfg.MuteDuration)

	c.admin.Alert("🚨 *ALERTA EMERGENCIA / HUMANO*\n" +
		fmt.Sprintf("• Cliente (chatId): %s\n", chatID) +
		fmt.Sprintf("• Desde ahora el bot está *pausado %d h* para este chat.\n", int(c.cfg.MuteDuration/time.Hour)) +
		fmt.Sprintf("• Para reactivar manualmente: *activate bot %s* (envíalo aquí).", chatID))

	return err
}

func (c *Conversation) handleTherapyType(chatID, text string) error {
	key, ok := therapySelection[strings.TrimSpace(text)]
	if !ok {
		return c.reply(chatID, therapyPickOne)
	}
	c.sessions.Update(chatID, func(s *Session) {
		s.State = StateTherapyDetail
		s.Therapy = &TherapyData{Key: key}
	})
	return c.reply(chatID, c.therapy.DetailFor(key))
}

func (c *Conversation) handleTherapyDetail(chatID, text string, sess Session) error {
	if strings.TrimSpace(text) == "1" {
		therapyKey := "individual"
		if sess.Therapy != nil && sess.Therapy.Key != "" {
			therapyKey = sess.Therapy.Key
		}
		c.sessions.Update(chatID, func(s *Session) {
			s.State = StateCitaNombre
			s.Booking = &BookingData{TherapyKey: therapyKey}
			s.Therapy = nil
		})
		return c.reply(chatID, "Perfecto, vamos a *agendar tu cita*.\nPaso 1/4: Indícame tu *nombre completo*.")
	}
	return c.reply(chatID, therapyBookNudge)
}

func (c *Conversation) handleEmpresasConfirm(chatID, text string) error {
	switch ClassifyIntent(text) {
	case IntentAffirmative:
		c.sessions.Update(chatID, func(s *Session) {
			s.State = StateEmpresasDatos
		})
		return c.reply(chatID, empresasAskDatos)
	case IntentNegative:
		c.sessions.Reset(chatID)
		return c.reply(chatID, empresasDeclined)
	default:
		return c.reply(chatID, promptYesNo)
	}
}

func (c *Conversation) handleEmpresasDatos(chatID, text string) error {
	reference := "N/D"
	if lead, err := c.store.CreateLead(&models.BusinessLead{ChatID: chatID, Details: text}); err != nil {
		log.Printf("❌ Failed to store business lead from %s: %v", chatID, err)
	} else {
		reference = lead.ReferenceID
	}

	c.admin.Alert("🏢 *LEAD EMPRESAS*\n" +
		fmt.Sprintf("• Cliente: %s\n", chatID) +
		fmt.Sprintf("• Referencia: %s\n", reference) +
		fmt.Sprintf("• Datos: %s", text))

	c.sessions.Reset(chatID)
	return c.reply(chatID, empresasThanks)
}

func (c *Conversation) handleForgotName(chatID, text string) error {
	c.sessions.Update(chatID, func(s *Session) {
		s.State = StateForgotDate
		s.Forgot = &ForgotData{Nombre: text}
	})
	return c.reply(chatID, promptForgotDate)
}

func (c *Conversation) handleForgotDate(chatID, text string, sess Session) error {
	name := ""
	if sess.Forgot != nil {
		name = sess.Forgot.Nombre
	}

	reference := "N/D"
	if req, err := c.store.CreateRecoveryRequest(&models.RecoveryRequest{
		ChatID:      chatID,
		PatientName: name,
		ApproxDate:  text,
	}); err != nil {
		log.Printf("❌ Failed to store recovery request from %s: %v", chatID, err)
	} else {
		reference = req.ReferenceID
	}

	c.admin.Alert("🔗 *RECUPERAR CITA/LINK*\n" +
		fmt.Sprintf("• Cliente: %s\n", chatID) +
		fmt.Sprintf("• Referencia: %s\n", reference) +
		fmt.Sprintf("• Nombre: %s\n", name) +
		fmt.Sprintf("• Fecha aprox: %s", strings.ToLower(text)))

	c.sessions.Reset(chatID)
	return c.reply(chatID, forgotThanks)
}

func (c *Conversation) handleCitaNombre(chatID, text string) error {
	c.sessions.Update(chatID, func(s *Session) {
		if s.Booking == nil {
			s.Booking = &BookingData{TherapyKey: "individual"}
		}
		s.Booking.Nombre = text
		s.State = StateCitaFechaFreeform
	})
	return c.reply(chatID, promptFecha)
}

func (c *Conversation) handleCitaFechaFreeform(chatID, text string) error {
	parsed, ok := ParseDate(text, TodayIn(c.cfg.Location))
	if !ok {
		// Stay put; the user retries as many times as needed.
		return c.reply(chatID, promptFechaRetry)
	}

	c.sessions.Update(chatID, func(s *Session) {
		if s.Booking == nil {
			s.Booking = &BookingData{TherapyKey: "individual"}
		}
		s.Booking.FechaTexto = text
		s.Booking.Fecha = parsed.Date
		s.Booking.FechaReadable = parsed.Readable
		s.Booking.HasFecha = true
		s.State = StateCitaFechaConfirm
	})
	return c.reply(chatID, fmt.Sprintf(
		"Entendí la fecha como: *%s* (%s). ¿Es correcto? *sí/no*",
		parsed.Readable, parsed.Date.ISO()))
}

func (c *Conversation) handleCitaFechaConfirm(chatID, text string) error {
	switch ClassifyIntent(text) {
	case IntentAffirmative:
		c.sessions.Update(chatID, func(s *Session) {
			s.State = StateCitaHoraFreeform
		})
		return c.reply(chatID, promptHora)
	case IntentNegative:
		// Back to date entry; already collected data stays.
		c.sessions.Update(chatID, func(s *Session) {
			s.State = StateCitaFechaFreeform
		})
		return c.reply(chatID, promptFechaAgain)
	default:
		return c.reply(chatID, promptYesNo)
	}
}

func (c *Conversation) handleCitaHoraFreeform(chatID, text string) error {
	parsed, ok := ParseTime(text)
	if !ok {
		return c.reply(chatID, promptHoraRetry)
	}

	c.sessions.Update(chatID, func(s *Session) {
		if s.Booking == nil {
			s.Booking = &BookingData{TherapyKey: "individual"}
		}
		s.Booking.HoraTexto = text
		s.Booking.Hora = parsed.Time
		s.Booking.HoraReadable = parsed.Readable
		s.Booking.HasHora = true
		s.State = StateCitaHoraConfirm
	})
	return c.reply(chatID, fmt.Sprintf(
		"Entendí la hora como: *%s* (%s). ¿Es correcto? *sí/no*",
		parsed.Readable, parsed.Time))
}

func (c *Conversation) handleCitaHoraConfirm(ctx context.Context, chatID, text string, sess Session) error {
	switch ClassifyIntent(text) {
	case IntentAffirmative:
		if sess.Booking == nil || !sess.Booking.HasFecha || !sess.Booking.HasHora {
			// Should not happen; recover to a safe state instead of crashing.
			c.sessions.Reset(chatID)
			return c.reply(chatID, WelcomeMenu(c.cfg))
		}
		return c.confirmBooking(ctx, chatID, *sess.Booking)
	case IntentNegative:
		c.sessions.Update(chatID, func(s *Session) {
			s.State = StateCitaHoraFreeform
		})
		return c.reply(chatID, promptHoraAgain)
	default:
		return c.reply(chatID, promptYesNo)
	}
}

// confirmBooking validates the assembled request, checks the calendar and
// creates the event. Every failure path lands the session in a well-defined
// state: policy rejection back to time entry, busy slot back to date entry,
// calendar failure to IDLE.
func (c *Conversation) confirmBooking(ctx context.Context, chatID string, b BookingData) error {
	therapy := c.cfg.TherapyOrDefault(b.TherapyKey)

	if ok, reason := SlotAllowed(b.Fecha, b.Hora); !ok {
		c.sessions.Update(chatID, func(s *Session) {
			s.State = StateCitaHoraFreeform
		})
		return c.reply(chatID, "⛔ "+reason+"\nIndícame otra *hora*, por favor.")
	}

	free, err := c.resolver.IsFree(ctx, b.Fecha, b.Hora, therapy.DurationMin)
	if err != nil {
		return c.bookingFailure(chatID, err)
	}
	if !free {
		c.sessions.Update(chatID, func(s *Session) {
			s.State = StateCitaFechaFreeform
		})
		return c.reply(chatID, promptSlotBusy)
	}

	startAt := b.Fecha.At(b.Hora, c.cfg.Location)
	endAt := startAt.Add(time.Duration(therapy.DurationMin) * time.Minute)

	eventID, err := c.calendar.InsertEvent(ctx, EventRequest{
		Summary:     fmt.Sprintf("Cita (%s) con %s", therapy.Label, b.Nombre),
		Description: fmt.Sprintf("Cita agendada vía WhatsApp (%s).", chatID),
		Start:       startAt,
		End:         endAt,
	})
	if err != nil {
		return c.bookingFailure(chatID, err)
	}

	if _, err := c.store.CreateAppointment(&models.Appointment{
		ChatID:          chatID,
		PatientName:     b.Nombre,
		TherapyType:     b.TherapyKey,
		Date:            b.Fecha.ISO(),
		StartTime:       b.Hora.String(),
		DurationMin:     therapy.DurationMin,
		CalendarEventID: eventID,
	}); err != nil {
		// The calendar event exists; the record is secondary. Log and go on.
		log.Printf("❌ Failed to store appointment record for %s: %v", chatID, err)
	}

	replyErr := c.reply(chatID, fmt.Sprintf(
		"✅ *Cita creada* para *%s* a las *%s*.\nSi necesitas reprogramar, responde *menú* y elige la opción 5.",
		b.Fecha.ISO(), b.Hora))

	c.admin.Alert("📅 *ALERTA CITA*\n" +
		fmt.Sprintf("• Cliente: %s\n", chatID) +
		fmt.Sprintf("• Nombre: %s\n", b.Nombre) +
		fmt.Sprintf("• Terapia: %s\n", therapy.Label) +
		fmt.Sprintf("• Fecha: %s\n", b.Fecha.ISO()) +
		fmt.Sprintf("• Hora: %s\n", b.Hora) +
		fmt.Sprintf("• Evento ID: %s", eventID))

	c.sessions.Reset(chatID)
	return replyErr
}

// bookingFailure resolves a calendar error to IDLE with the right apology.
func (c *Conversation) bookingFailure(chatID string, err error) error {
	log.Printf("❌ Calendar error for %s: %v", chatID, err)
	c.sessions.Reset(chatID)
	if errors.Is(err, ErrCalendarAuth) {
		return c.reply(chatID, apologyCalendarAuth)
	}
	return c.reply(chatID, apologyCalendarDown)
}

func (c *Conversation) reply(chatID, text string) error {
	if c.notifier == nil {
		log.Printf("📤 Reply to %s (notifier not configured): %s", chatID, preview(text))
		return nil
	}
	if err := c.notifier.SendWhatsAppMessage(chatID, text); err != nil {
		log.Printf("❌ Failed to reply to %s: %v", chatID, err)
		return err
	}
	return nil
}

func preview(s string) string {
	if len(s) > 120 {
		return s[:120] + "…"
	}
	return s
}
