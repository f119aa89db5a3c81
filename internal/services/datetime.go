package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CivilDate is a calendar date with no attached timezone. It only becomes an
// absolute instant at the calendar boundary, via At.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the civil date of an instant as observed in its location.
func DateOf(t time.Time) CivilDate {
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// TodayIn returns today's civil date in the given timezone.
func TodayIn(loc *time.Location) CivilDate {
	return DateOf(time.Now().In(loc))
}

// ISO renders the date as YYYY-MM-DD.
func (d CivilDate) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// AddDays returns the date n days later, normalizing month/year rollover.
func (d CivilDate) AddDays(n int) CivilDate {
	return DateOf(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n))
}

// Weekday returns the day of week of the civil date.
func (d CivilDate) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// Before reports whether d is strictly earlier than other.
func (d CivilDate) Before(other CivilDate) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// At combines the date with a time of day in the given timezone, producing
// the absolute instant the slot starts.
func (d CivilDate) At(t TimeOfDay, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, loc)
}

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// MinuteOfDay returns minutes since midnight, for range comparisons.
func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// ParsedDate is the result of a successful date parse: the normalized date
// plus a human echo used in the confirmation prompt.
type ParsedDate struct {
	Date     CivilDate
	Readable string
}

// ParsedTime is the time-of-day counterpart of ParsedDate.
type ParsedTime struct {
	Time     TimeOfDay
	Readable string
}

// accentFolder maps the accented vowels (and ñ) that show up in date/time and
// intent words to plain ASCII, so patterns stay \b-friendly.
var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

func normalizeText(s string) string {
	return accentFolder.Replace(strings.ToLower(strings.TrimSpace(s)))
}

var weekdays = map[string]time.Weekday{
	"domingo":   time.Sunday,
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miercoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sabado":    time.Saturday,
}

// weekdayDisplay restores the accent dropped by normalizeText for echoes.
var weekdayDisplay = map[string]string{
	"miercoles": "miércoles",
	"sabado":    "sábado",
}

var months = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August, "septiembre": time.September,
	"setiembre": time.September, "octubre": time.October,
	"noviembre": time.November, "diciembre": time.December,
}

var (
	reToday        = regexp.MustCompile(`\bhoy\b`)
	reAfterTomorrw = regexp.MustCompile(`\bpasado\s+manana\b`)
	reTomorrow     = regexp.MustCompile(`\bmanana\b`)
	reWeekdayDate  = regexp.MustCompile(`\b(proximo|este|esta)\s+(domingo|lunes|martes|miercoles|jueves|viernes|sabado)\b`)
	reNumericDate  = regexp.MustCompile(`\b(\d{1,2})[/\-](\d{1,2})(?:[/\-](\d{4}))?\b`)
	reMonthDate    = regexp.MustCompile(`\b(\d{1,2})\s+de\s+(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|setiembre|octubre|noviembre|diciembre)(?:\s+de\s+(\d{4}))?\b`)
)

// ParseDate interprets a free-text Spanish date expression relative to ref
// (today in the clinic timezone). Rules apply in priority order; the first
// match wins. The second return value is false when nothing matched.
func ParseDate(text string, ref CivilDate) (ParsedDate, bool) {
	t := normalizeText(text)

	if reToday.MatchString(t) {
		return ParsedDate{Date: ref, Readable: "hoy"}, true
	}
	// "pasado mañana" must be checked before the bare "mañana" match eats it.
	if reAfterTomorrw.MatchString(t) {
		return ParsedDate{Date: ref.AddDays(2), Readable: "pasado mañana"}, true
	}
	if reTomorrow.MatchString(t) {
		return ParsedDate{Date: ref.AddDays(1), Readable: "mañana"}, true
	}

	if m := reWeekdayDate.FindStringSubmatch(t); m != nil {
		qualifier, dayName := m[1], m[2]
		target := weekdays[dayName]
		delta := (int(target) - int(ref.Weekday()) + 7) % 7
		// A delta of zero would book the reference day itself; push a week out
		// instead, for both "este" and "próximo" phrasings.
		if delta == 0 {
			delta = 7
		}
		display := dayName
		if alt, ok := weekdayDisplay[dayName]; ok {
			display = alt
		}
		if qualifier == "proximo" {
			qualifier = "próximo"
		}
		return ParsedDate{
			Date:     ref.AddDays(delta),
			Readable: qualifier + " " + display,
		}, true
	}

	if m := reNumericDate.FindStringSubmatch(t); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if date, ok := resolveExplicitDate(day, time.Month(month), m[3], ref); ok {
			echo := fmt.Sprintf("%d/%d", day, month)
			if m[3] != "" {
				echo = fmt.Sprintf("%d/%d/%s", day, month, m[3])
			}
			return ParsedDate{Date: date, Readable: echo}, true
		}
		return ParsedDate{}, false
	}

	if m := reMonthDate.FindStringSubmatch(t); m != nil {
		day, _ := strconv.Atoi(m[1])
		month := months[m[2]]
		if date, ok := resolveExplicitDate(day, month, m[3], ref); ok {
			echo := fmt.Sprintf("%d de %s", day, m[2])
			if m[3] != "" {
				echo = fmt.Sprintf("%d de %s de %s", day, m[2], m[3])
			}
			return ParsedDate{Date: date, Readable: echo}, true
		}
		return ParsedDate{}, false
	}

	return ParsedDate{}, false
}

// resolveExplicitDate validates a day/month pair and applies the roll-forward
// rule: with no explicit year, a date already past rolls to next year.
func resolveExplicitDate(day int, month time.Month, yearText string, ref CivilDate) (CivilDate, bool) {
	if month < time.January || month > time.December {
		return CivilDate{}, false
	}
	year := ref.Year
	hasYear := yearText != ""
	if hasYear {
		year, _ = strconv.Atoi(yearText)
	}
	if day < 1 || day > daysInMonth(year, month) {
		return CivilDate{}, false
	}

	date := CivilDate{Year: year, Month: month, Day: day}
	if !hasYear && date.Before(ref) {
		date.Year++
		if date.Day > daysInMonth(date.Year, date.Month) {
			return CivilDate{}, false
		}
	}
	return date, true
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

var (
	reMidday   = regexp.MustCompile(`\bmedio\s?dia\b`)
	reMidnight = regexp.MustCompile(`\bmedia\s?noche\b`)
	reAmPm     = regexp.MustCompile(`\b(\d{1,2})(?::(\d{1,2}))?\s*(am|pm)\b`)
	reHourMin  = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	reBareHour = regexp.MustCompile(`\b(\d{1,2})\b`)
)

// ParseTime interprets a free-text Spanish time expression. Bare hours from 1
// to 11 are shifted into the afternoon ("3" means 15:00): patients asking for
// business-hours slots virtually never mean the small hours.
func ParseTime(text string) (ParsedTime, bool) {
	t := strings.ReplaceAll(normalizeText(text), ".", "")
	t = strings.Join(strings.Fields(t), " ")
	if t == "" {
		return ParsedTime{}, false
	}

	if reMidday.MatchString(t) {
		return ParsedTime{Time: TimeOfDay{Hour: 12}, Readable: "mediodía"}, true
	}
	if reMidnight.MatchString(t) {
		return ParsedTime{Time: TimeOfDay{Hour: 0}, Readable: "medianoche"}, true
	}

	if m := reAmPm.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		switch {
		case hour == 12 && m[3] == "am":
			hour = 0
		case hour != 12 && m[3] == "pm":
			hour += 12
		}
		if hour > 23 || minute > 59 {
			return ParsedTime{}, false
		}
		tod := TimeOfDay{Hour: hour, Minute: minute}
		return ParsedTime{Time: tod, Readable: tod.String()}, true
	}

	if m := reHourMin.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return ParsedTime{}, false
		}
		tod := TimeOfDay{Hour: hour, Minute: minute}
		return ParsedTime{Time: tod, Readable: tod.String()}, true
	}

	if m := reBareHour.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour < 0 || hour > 23 {
			return ParsedTime{}, false
		}
		if hour >= 1 && hour <= 11 {
			hour += 12
		}
		tod := TimeOfDay{Hour: hour}
		return ParsedTime{Time: tod, Readable: tod.String()}, true
	}

	return ParsedTime{}, false
}
