package services

import "regexp"

// Intent is the coarse classification of a short reply, used by the
// confirmation states and the global menu override.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentAffirmative
	IntentNegative
	IntentMenu
	IntentGreeting
)

// menuWords reset the dialogue from any state. Exact match on the whole
// (normalized) message, so "menu" embedded in a sentence does not reset.
var menuWords = map[string]bool{
	"menu":   true,
	"salir":  true,
	"inicio": true,
}

// intentRules are evaluated in order; the first matching rule wins.
// Patterns run against accent-folded lowercase text.
var intentRules = []struct {
	intent  Intent
	pattern *regexp.Regexp
}{
	{IntentAffirmative, regexp.MustCompile(`\b(si|correcto|confirmo|ok|de acuerdo|asi es|vale)\b`)},
	{IntentNegative, regexp.MustCompile(`\b(no|negativo|cambiar|no es|otra|equivocado)\b`)},
	{IntentGreeting, regexp.MustCompile(`\b(hola|buenos dias|buenas|buenas tardes|buenas noches)\b`)},
}

// ClassifyIntent tags a message as yes/no/menu/greeting/unknown.
func ClassifyIntent(text string) Intent {
	t := normalizeText(text)
	if t == "" {
		return IntentUnknown
	}
	if menuWords[t] {
		return IntentMenu
	}
	for _, rule := range intentRules {
		if rule.pattern.MatchString(t) {
			return rule.intent
		}
	}
	return IntentUnknown
}
