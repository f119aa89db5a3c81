package services

import (
	"fmt"

	"github.com/psicoclinica/citas-backend/internal/config"
)

// Menu option numbers accepted in IDLE.
const (
	optionBooking   = "1"
	optionLocation  = "2"
	optionHours     = "3"
	optionEmergency = "4"
	optionForgot    = "5"
	optionTherapies = "6"
	optionEmpresas  = "7"
)

// WelcomeMenu is the root menu, resent on any unrecognized IDLE input.
func WelcomeMenu(cfg *config.Config) string {
	return fmt.Sprintf("🤖 Gracias por contactar a *%s*.\n", cfg.ClinicName) +
		"¿En qué puedo apoyarte hoy?\n\n" +
		"1. Agendar cita\n" +
		"2. Conocer la ubicación del consultorio\n" +
		"3. Horarios de servicio\n" +
		"4. Tengo una emergencia / hablar con la psicóloga\n" +
		"5. Olvidé mi cita / perdí el link de la reunión\n" +
		"6. Conocer la información y costo de las terapias\n" +
		"7. Atención a empresas\n\n" +
		"_Escribe el número de la opción, o `menú` para volver aquí._"
}

// EmergencyCopy announces the human handoff.
func EmergencyCopy(cfg *config.Config) string {
	return fmt.Sprintf("⚠️ *Importante*: %s\n\n", cfg.EmergencyNote) +
		"Te atiende una psicóloga en breve por este medio. El asistente automático queda *en pausa*."
}

// HoursCopy answers menu option 3.
func HoursCopy(cfg *config.Config) string {
	return fmt.Sprintf("🕒 *Horarios de servicio*\n%s\n\n", cfg.ClinicHours) +
		"¿Deseas *agendar una cita*? Responde *1*.\nEscribe *menú* para regresar."
}

// LocationCopy answers menu option 2.
func LocationCopy(cfg *config.Config) string {
	return fmt.Sprintf("📍 *Ubicación del consultorio*\n%s\n\n", cfg.ClinicAddress) +
		fmt.Sprintf("Mapa: %s\n\n", cfg.ClinicMapsURL) +
		"Si necesitas referencias adicionales, con gusto te apoyamos."
}

// Fixed prompts for the booking and side flows.
const (
	promptNombre = "📅 *Agendar cita*\nPaso 1/4: Indícame tu *nombre completo*."
	promptFecha  = "Paso 2/4: Escribe la *fecha* (ej.: *próximo jueves*, *17 de agosto*, *17/08/2025*)."
	promptHora   = "Paso 3/4: Ahora dime la *hora* (ej.: *3 pm*, *15:00*, *medio día*)."

	promptFechaRetry = "No pude interpretar la fecha. Intenta con *mañana*, *próximo jueves* o *17/08/2025*."
	promptHoraRetry  = "No pude interpretar la hora. Intenta con *3 pm* o *15:00*."
	promptYesNo      = "Responde *sí* o *no*."

	promptFechaAgain = "Ok, escribe nuevamente la *fecha*."
	promptHoraAgain  = "Ok, escribe nuevamente la *hora*."

	promptSlotBusy = "⛔ Ese horario ya está ocupado. ¿Propones otra *fecha* u *hora*?"

	apologyCalendarAuth = "⚠️ No pude verificar/crear la cita en Calendar por un problema de autorización.\n" +
		"Por favor intenta más tarde o escribe *4* para asistencia humana."
	apologyCalendarDown = "⚠️ No pude verificar/crear la cita en Calendar por un error temporal.\n" +
		"Intenta más tarde o escribe *4* para asistencia."

	promptForgotName = "🔗 *Recuperar cita/link*\nPaso 1/2: Escríbeme tu *nombre completo* como aparece en tu cita."
	promptForgotDate = "Paso 2/2: ¿Recuerdas *fecha aproximada* de tu cita? (ej.: *lunes*, *ayer*, *15/09*). Si no, escribe *no sé*."
	forgotThanks     = "Gracias. Revisaremos tu registro y te compartiremos el enlace o confirmación. Escribe *menú* para volver."

	empresasIntro = "🏢 *Atención a empresas*\n" +
		"Ofrecemos charlas, talleres de bienestar emocional, intervención en crisis y evaluaciones. " +
		"Compártenos el tamaño de tu empresa y el servicio de interés para preparar una propuesta.\n\n" +
		"¿Deseas que te llame una asesora? *sí/no*"
	empresasAskDatos = "Perfecto, una asesora te contactará. ¿Podrías compartir *nombre de tu empresa* y un *teléfono* de contacto?"
	empresasDeclined = "De acuerdo. Si cambias de opinión, escribe *7* o *menú*."
	empresasThanks   = "¡Gracias! Compartimos tus datos con el equipo y te contactarán pronto. Escribe *menú* para volver."

	therapyPickOne   = "Por favor elige *1*, *2* o *3*."
	therapyBookNudge = "¿Deseas *agendar*? Responde *1*, o escribe *menú* para regresar."

	humanoAck = "Gracias, una psicóloga dará seguimiento por este medio. 🙌"
)
