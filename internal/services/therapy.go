package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/psicoclinica/citas-backend/internal/config"
)

// ContentGenerator is the port to the external text-generation service used
// for warmer marketing copy. It is optional; without it the static copy is
// used.
type ContentGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const therapyInfoTTL = 2 * time.Hour

// therapySelection maps the 1/2/3 reply of the info flow to therapy keys.
var therapySelection = map[string]string{
	"1": "individual",
	"2": "pareja",
	"3": "adolescentes",
}

// TherapyInfoService builds the therapy information texts for menu option 6.
type TherapyInfoService struct {
	cfg       *config.Config
	generator ContentGenerator

	mu       sync.Mutex
	cached   string
	cachedAt time.Time
}

// NewTherapyInfoService creates the info service. generator may be nil.
func NewTherapyInfoService(cfg *config.Config, generator ContentGenerator) *TherapyInfoService {
	return &TherapyInfoService{cfg: cfg, generator: generator}
}

func (t *TherapyInfoService) staticInfo() string {
	return "Ofrecemos atención *presencial* y *en línea*.\n\n" +
		"🧠 *Terapias disponibles*\n" +
		fmt.Sprintf("1) %s\n", t.cfg.Therapies["individual"].Label) +
		fmt.Sprintf("2) %s\n", t.cfg.Therapies["pareja"].Label) +
		fmt.Sprintf("3) %s\n\n", t.cfg.Therapies["adolescentes"].Label) +
		"Responde con el *número* para ver detalles, costo y duración."
}

// GeneralInfo returns the therapy overview, preferring generated copy when a
// generator is wired, cached for therapyInfoTTL.
func (t *TherapyInfoService) GeneralInfo(ctx context.Context) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cached != "" && time.Since(t.cachedAt) < therapyInfoTTL {
		return t.cached
	}

	text := t.staticInfo()
	if t.generator != nil {
		prompt := fmt.Sprintf(
			"Eres recepcionista de %s. Redacta (3-6 líneas, español cálido y claro) un resumen de los servicios de terapia. "+
				"No inventes. Menciona que el cliente puede elegir: individual, pareja, adolescentes.",
			t.cfg.ClinicName)
		out, err := t.generator.Generate(ctx, prompt)
		if err != nil {
			log.Printf("⚠️  Content generator failed, using static therapy info: %v", err)
		} else if out != "" {
			text = out + "\n\nResponde *1*, *2* o *3* para ver *detalles, costo y duración*."
		}
	}

	t.cached = text
	t.cachedAt = time.Now()
	return text
}

// DetailFor renders the per-type detail with price and duration from the
// config table.
func (t *TherapyInfoService) DetailFor(key string) string {
	therapy := t.cfg.TherapyOrDefault(key)
	return fmt.Sprintf("*%s*\n", therapy.Label) +
		fmt.Sprintf("Costo: *$%d MXN*\n", therapy.Price) +
		fmt.Sprintf("Duración: *%d minutos*\n\n", therapy.DurationMin) +
		"¿Deseas *agendar*? Responde *1*."
}
