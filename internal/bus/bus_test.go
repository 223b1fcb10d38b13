package bus

import (
	"testing"
	"time"
)

func TestEmitSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("feed.", 10)
	defer unsub()

	b.Emit(KindMessagesInserted, MessagesInserted{From: 1, To: 3})

	select {
	case evt := <-ch:
		if evt.Kind != KindMessagesInserted {
			t.Errorf("got kind %q, want %s", evt.Kind, KindMessagesInserted)
		}
		p, ok := evt.Payload.(MessagesInserted)
		if !ok || p.From != 1 || p.To != 3 {
			t.Errorf("payload = %#v", evt.Payload)
		}
		if evt.Timestamp.IsZero() {
			t.Error("timestamp not set")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPrefixFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("send.", 10)
	defer unsub()

	b.Emit(KindServerUnreachable, nil)
	b.Emit(KindValidationError, ValidationError{Detail: "empty"})

	select {
	case evt := <-ch:
		if evt.Kind != KindValidationError {
			t.Errorf("got kind %q, want %s", evt.Kind, KindValidationError)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("feed.", 10)
	unsub()
	unsub()

	b.Emit(KindMessagesLoaded, nil)

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("feed.", 1)
	defer unsub()

	b.Emit(KindImageReady, ImageReady{Index: 0})
	b.Emit(KindImageReady, ImageReady{Index: 1})

	evt := <-ch
	if p := evt.Payload.(ImageReady); p.Index != 0 {
		t.Errorf("got index %d, want 0", p.Index)
	}
	select {
	case evt := <-ch:
		t.Errorf("second event should have been dropped, got %v", evt)
	default:
	}
}
