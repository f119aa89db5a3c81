package services

import "testing"

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		input string
		want  Intent
	}{
		{"sí", IntentAffirmative},
		{"si", IntentAffirmative},
		{"Sí, es correcto", IntentAffirmative},
		{"ok", IntentAffirmative},
		{"de acuerdo", IntentAffirmative},
		{"así es", IntentAffirmative},

		{"no", IntentNegative},
		{"No, cambiar", IntentNegative},
		{"esa no es la fecha", IntentNegative},

		{"menú", IntentMenu},
		{"menu", IntentMenu},
		{"salir", IntentMenu},
		{"inicio", IntentMenu},

		{"hola", IntentGreeting},
		{"Buenos días", IntentGreeting},
		{"buenas tardes", IntentGreeting},

		{"", IntentUnknown},
		{"tal vez", IntentUnknown},
		{"15:00", IntentUnknown},
	}

	for _, tt := range tests {
		if got := ClassifyIntent(tt.input); got != tt.want {
			t.Errorf("ClassifyIntent(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestClassifyIntentMenuRequiresExactMatch(t *testing.T) {
	// "menu" embedded in a sentence must not reset the dialogue.
	if got := ClassifyIntent("quiero ver el menu de terapias"); got == IntentMenu {
		t.Error("embedded menu word classified as IntentMenu")
	}
}

func TestClassifyIntentAffirmativeWinsOverNegative(t *testing.T) {
	// Rules are ordered; a message with both reads as affirmative.
	if got := ClassifyIntent("sí, no hay problema"); got != IntentAffirmative {
		t.Errorf("ClassifyIntent = %v, want IntentAffirmative", got)
	}
}
