package status

import (
	"testing"
	"time"
)

func TestEventString(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{Polling, "polling"},
		{PollDone, "poll_done"},
		{Event(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.event.String(); got != tt.want {
			t.Errorf("Event(%d).String() = %q, want %q", tt.event, got, tt.want)
		}
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	bus := NewBus()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	bus.Publish(Polling)
	bus.Publish(PollDone)

	if got := <-events; got != Polling {
		t.Errorf("first event = %v, want Polling", got)
	}
	if got := <-events; got != PollDone {
		t.Errorf("second event = %v, want PollDone", got)
	}
}

func TestMultipleSubscribersEachReceive(t *testing.T) {
	bus := NewBus()

	first, stopFirst := bus.Subscribe()
	defer stopFirst()
	second, stopSecond := bus.Subscribe()
	defer stopSecond()

	bus.Publish(Polling)

	if got := <-first; got != Polling {
		t.Errorf("first subscriber got %v, want Polling", got)
	}
	if got := <-second; got != Polling {
		t.Errorf("second subscriber got %v, want Polling", got)
	}
}

func TestSubscriberOnlySeesEventsAfterAttach(t *testing.T) {
	bus := NewBus()

	bus.Publish(Polling)

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	select {
	case got := <-events:
		t.Errorf("subscriber received %v published before attach", got)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestLaggingSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()

	// Never drained; its buffer fills up.
	_, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			bus.Publish(PollDone)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a lagging subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	events, unsubscribe := bus.Subscribe()

	unsubscribe()

	if _, ok := <-events; ok {
		t.Error("channel should be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(Polling)
}
