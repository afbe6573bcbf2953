// Package status broadcasts coarse-grained poll lifecycle events to any
// number of observers.
package status

import "sync"

// Event is a poll lifecycle notification.
type Event int

const (
	// Polling is emitted once at the start of each poll cycle.
	Polling Event = iota
	// PollDone is emitted once per source after its bookkeeping update.
	PollDone
)

func (e Event) String() string {
	switch e {
	case Polling:
		return "polling"
	case PollDone:
		return "poll_done"
	default:
		return "unknown"
	}
}

const subscriberBuffer = 128

// Bus is a broadcast channel with lagging-subscriber semantics: a subscriber
// that falls behind loses events rather than blocking the publisher.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe attaches a new observer. It receives every event published after
// this call, up to its buffer capacity. The returned function detaches the
// observer and closes its channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}

	return ch, unsubscribe
}

// Publish delivers the event to every subscriber without blocking. Events to
// subscribers with full buffers are dropped.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Subscriber is lagging; liveness of the poll loop wins.
		}
	}
}
