package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Therapy describes one bookable service type
type Therapy struct {
	Price       int    `json:"price"`
	DurationMin int    `json:"durationMin"`
	Label       string `json:"label"`
}

// DefaultTherapies is used when THERAPY_CONFIG is absent or invalid
var DefaultTherapies = map[string]Therapy{
	"individual":   {Price: 600, DurationMin: 50, Label: "Terapia individual"},
	"pareja":       {Price: 850, DurationMin: 70, Label: "Terapia de pareja"},
	"adolescentes": {Price: 650, DurationMin: 55, Label: "Terapia para adolescentes (15+)"},
}

// Config holds all clinic and bot settings
type Config struct {
	ClinicName    string
	ClinicAddress string
	ClinicMapsURL string
	ClinicHours   string
	EmergencyNote string

	AdminNumber  string // digits only
	GroupTrigger string // lowercase, e.g. "!psico"

	TimezoneName string
	Location     *time.Location

	CalendarID string

	MuteDuration time.Duration

	Therapies map[string]Therapy
}

var nonDigits = regexp.MustCompile(`\D`)

// Load builds the configuration from environment variables
func Load() (*Config, error) {
	tzName := getEnv("TIMEZONE", "America/Mexico_City")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tzName, err)
	}

	muteHours := 24
	if v := os.Getenv("BOT_MUTE_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("⚠️  Invalid BOT_MUTE_HOURS %q, using default of 24", v)
		} else {
			muteHours = n
		}
	}

	cfg := &Config{
		ClinicName:    getEnv("CLINIC_NAME", "No disponible."),
		ClinicAddress: getEnv("CLINIC_ADDRESS", "No disponible."),
		ClinicMapsURL: getEnv("CLINIC_MAPS_URL", "No disponible."),
		ClinicHours:   getEnv("CLINIC_HOURS", "No disponible."),
		EmergencyNote: getEnv("EMERGENCY_NOTE", "No disponible."),
		AdminNumber:   nonDigits.ReplaceAllString(os.Getenv("ADMIN_NUMBER"), ""),
		GroupTrigger:  strings.ToLower(getEnv("GROUP_TRIGGER", "!psico")),
		TimezoneName:  tzName,
		Location:      loc,
		CalendarID:    getEnv("GOOGLE_CALENDAR_ID", "primary"),
		MuteDuration:  time.Duration(muteHours) * time.Hour,
		Therapies:     loadTherapies(),
	}

	return cfg, nil
}

// TherapyOrDefault returns the config for a therapy key, falling back to
// "individual" when the key is unknown or empty.
func (c *Config) TherapyOrDefault(key string) Therapy {
	if t, ok := c.Therapies[key]; ok {
		return t
	}
	return c.Therapies["individual"]
}

// loadTherapies merges THERAPY_CONFIG (JSON) over the defaults. A partial
// entry only overrides the fields it sets.
func loadTherapies() map[string]Therapy {
	merged := make(map[string]Therapy, len(DefaultTherapies))
	for k, v := range DefaultTherapies {
		merged[k] = v
	}

	raw := os.Getenv("THERAPY_CONFIG")
	if raw == "" {
		return merged
	}

	var overrides map[string]struct {
		Price       *int    `json:"price"`
		DurationMin *int    `json:"durationMin"`
		Label       *string `json:"label"`
	}
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		log.Printf("⚠️  Invalid THERAPY_CONFIG, using defaults. Error: %v", err)
		return merged
	}

	for key, o := range overrides {
		base, ok := merged[key]
		if !ok {
			continue
		}
		if o.Price != nil {
			base.Price = *o.Price
		}
		if o.DurationMin != nil {
			base.DurationMin = *o.DurationMin
		}
		if o.Label != nil {
			base.Label = *o.Label
		}
		merged[key] = base
	}

	return merged
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
