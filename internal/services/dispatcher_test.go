package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func newDispatchFixture(t *testing.T) (*Dispatcher, *convFixture) {
	t.Helper()
	f := newConvFixture(t)
	d := NewDispatcher(f.cfg, f.conv, f.sessions, f.mutes, f.notifier)
	return d, f
}

func dispatch(t *testing.T, d *Dispatcher, msg InboundMessage) {
	t.Helper()
	if err := d.Dispatch(context.Background(), msg); err != nil {
		t.Fatalf("Dispatch(%+v) returned error: %v", msg, err)
	}
}

func TestDispatchDropsSelfEcho(t *testing.T) {
	d, f := newDispatchFixture(t)

	dispatch(t, d, InboundMessage{ChatID: testPatient, Text: "1", FromSelf: true})

	if len(f.notifier.sent) != 0 {
		t.Error("self echo produced a reply")
	}
	if f.sessions.Count() != 0 {
		t.Error("self echo created a session")
	}
}

func TestDispatchDropsEmptyText(t *testing.T) {
	d, f := newDispatchFixture(t)

	dispatch(t, d, InboundMessage{ChatID: testPatient, Text: "   "})

	if len(f.notifier.sent) != 0 {
		t.Error("blank message produced a reply")
	}
}

func TestDispatchGroupRequiresTrigger(t *testing.T) {
	d, f := newDispatchFixture(t)

	dispatch(t, d, InboundMessage{ChatID: "group-1", Text: "hola a todos", IsGroup: true})
	if len(f.notifier.sent) != 0 {
		t.Error("group message without trigger produced a reply")
	}

	dispatch(t, d, InboundMessage{ChatID: "group-1", Text: "!psico 1", IsGroup: true})
	if last := f.notifier.lastTo("group-1"); !strings.Contains(last, "nombre completo") {
		t.Errorf("triggered group message reply = %q, want booking prompt", last)
	}
}

func TestDispatchGroupTriggerIsCaseInsensitive(t *testing.T) {
	d, f := newDispatchFixture(t)

	dispatch(t, d, InboundMessage{ChatID: "group-2", Text: "!PSICO hola", IsGroup: true})
	if last := f.notifier.lastTo("group-2"); !strings.Contains(last, "Agendar cita") {
		t.Errorf("reply = %q, want welcome menu", last)
	}
}

func TestDispatchGroupBareTriggerGetsHint(t *testing.T) {
	d, f := newDispatchFixture(t)

	dispatch(t, d, InboundMessage{ChatID: "group-3", Text: "!psico", IsGroup: true})

	last := f.notifier.lastTo("group-3")
	if !strings.Contains(last, "!psico") {
		t.Errorf("reply = %q, want usage hint naming the trigger", last)
	}
	if f.state("group-3") != StateIdle {
		t.Error("bare trigger moved the state machine")
	}
}

func TestDispatchDirectChatNeedsNoTrigger(t *testing.T) {
	d, f := newDispatchFixture(t)

	dispatch(t, d, InboundMessage{ChatID: testPatient, Text: "hola"})
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, "Agendar cita") {
		t.Errorf("reply = %q, want welcome menu", last)
	}
}

func TestDispatchMuteGate(t *testing.T) {
	d, f := newDispatchFixture(t)

	f.mutes.Mute(testPatient, time.Hour)
	dispatch(t, d, InboundMessage{ChatID: testPatient, Text: "hola"})

	if msgs := f.notifier.messagesTo(testPatient); len(msgs) != 0 {
		t.Errorf("muted chat received %d replies", len(msgs))
	}
}

func TestDispatchMuteExpiresNaturally(t *testing.T) {
	d, f := newDispatchFixture(t)

	f.mutes.Mute(testPatient, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	dispatch(t, d, InboundMessage{ChatID: testPatient, Text: "hola"})
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, "Agendar cita") {
		t.Errorf("reply after mute expiry = %q, want welcome menu", last)
	}
}

func TestDispatchOperatorReactivatesOneChat(t *testing.T) {
	d, f := newDispatchFixture(t)

	f.mutes.Mute(testPatient, time.Hour)
	f.sessions.Update(testPatient, func(s *Session) { s.State = StateHumano })

	dispatch(t, d, InboundMessage{ChatID: testAdminNumber, Text: "activate bot " + testPatient})

	if f.mutes.IsMuted(testPatient) {
		t.Error("target still muted after operator command")
	}
	if got := f.state(testPatient); got != StateIdle {
		t.Errorf("target state = %s, want %s", got, StateIdle)
	}
	if last := f.notifier.lastTo(testAdminNumber); !strings.Contains(last, "reactivado") {
		t.Errorf("operator confirmation = %q", last)
	}
}

func TestDispatchOperatorReactivatesAll(t *testing.T) {
	d, f := newDispatchFixture(t)

	f.mutes.Mute("a", time.Hour)
	f.mutes.Mute("b", time.Hour)

	dispatch(t, d, InboundMessage{ChatID: testAdminNumber, Text: "activate bot"})

	if f.mutes.IsMuted("a") || f.mutes.IsMuted("b") {
		t.Error("chats still muted after global reactivation")
	}
	if last := f.notifier.lastTo(testAdminNumber); !strings.Contains(last, "todos") {
		t.Errorf("operator confirmation = %q", last)
	}
}

func TestDispatchOperatorCommandFromPatientIsPlainText(t *testing.T) {
	d, f := newDispatchFixture(t)

	f.mutes.Mute("someone-else", time.Hour)
	dispatch(t, d, InboundMessage{ChatID: testPatient, Text: "activate bot"})

	if !f.mutes.IsMuted("someone-else") {
		t.Error("non-operator cleared a mute")
	}
	// The text just falls through to the state machine.
	if last := f.notifier.lastTo(testPatient); !strings.Contains(last, "Agendar cita") {
		t.Errorf("reply = %q, want welcome menu", last)
	}
}

func TestDispatchOperatorBypassesMuteGate(t *testing.T) {
	d, f := newDispatchFixture(t)

	f.mutes.Mute(testAdminNumber, time.Hour)
	dispatch(t, d, InboundMessage{ChatID: testAdminNumber, Text: "hola"})

	if last := f.notifier.lastTo(testAdminNumber); !strings.Contains(last, "Agendar cita") {
		t.Errorf("operator reply = %q, want welcome menu despite mute", last)
	}
}

func TestDispatchOperatorHelp(t *testing.T) {
	d, f := newDispatchFixture(t)

	dispatch(t, d, InboundMessage{ChatID: testAdminNumber, Text: "ayuda"})
	if last := f.notifier.lastTo(testAdminNumber); !strings.Contains(last, "activate bot") {
		t.Errorf("help reply = %q, want command list", last)
	}
}

func TestDispatchOperatorMatchesOnDigits(t *testing.T) {
	d, f := newDispatchFixture(t)

	// Transports sometimes deliver the operator id with prefixes; only the
	// digits matter.
	f.mutes.Mute(testPatient, time.Hour)
	dispatch(t, d, InboundMessage{ChatID: "+" + testAdminNumber, Text: "activate bot " + testPatient})

	if f.mutes.IsMuted(testPatient) {
		t.Error("operator with formatted chat id was not recognized")
	}
}

func TestDispatchConcurrentChats(t *testing.T) {
	d, f := newDispatchFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := d.Dispatch(context.Background(), InboundMessage{ChatID: "chat-a", Text: "hola"}); err != nil {
				t.Errorf("Dispatch chat-a: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := d.Dispatch(context.Background(), InboundMessage{ChatID: "chat-b", Text: "hola"}); err != nil {
				t.Errorf("Dispatch chat-b: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(f.notifier.messagesTo("chat-a")); got != 10 {
		t.Errorf("chat-a replies = %d, want 10", got)
	}
	if got := len(f.notifier.messagesTo("chat-b")); got != 10 {
		t.Errorf("chat-b replies = %d, want 10", got)
	}
}
