package services

import "time"

// Business hours, minutes since midnight. The bound is the latest start time
// we accept, not the closing time of the last session.
const (
	openingMinute        = 10 * 60 // 10:00 every working day
	weekdayClosingStart  = 18 * 60 // Mon-Fri last start 18:00
	saturdayClosingStart = 15 * 60 // Sat last start 15:00
)

// SlotAllowed validates a candidate slot against clinic hours. It runs before
// any calendar query, so an out-of-hours request never costs an API call and
// the user gets a reason distinct from "that slot is taken".
func SlotAllowed(date CivilDate, t TimeOfDay) (bool, string) {
	minute := t.MinuteOfDay()

	switch date.Weekday() {
	case time.Sunday:
		return false, "Los domingos no ofrecemos consultas."
	case time.Saturday:
		if minute < openingMinute || minute > saturdayClosingStart {
			return false, "Los sábados atendemos de 10:00 a 15:00."
		}
	default:
		if minute < openingMinute || minute > weekdayClosingStart {
			return false, "De lunes a viernes atendemos de 10:00 a 18:00."
		}
	}

	return true, ""
}
