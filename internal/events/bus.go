package events

import "context"

// busCapacity is generous enough that a burst of per-image progress events
// during a large batch upload never blocks the pipeline on a slow UI.
const busCapacity = 256

// Bus is a single-producer, ordered fan-out of Events to the UI. Publish
// never blocks indefinitely: a full bus drops the oldest unread event rather
// than stall the core, since progress events are superseded by later ones
// anyway.
type Bus struct {
	ch chan Event
}

// NewBus creates a Bus with room for busCapacity buffered events.
func NewBus() *Bus {
	return &Bus{ch: make(chan Event, busCapacity)}
}

// Publish enqueues ev, dropping the oldest queued event if the bus is full.
func (b *Bus) Publish(ev Event) {
	select {
	case b.ch <- ev:
		return
	default:
	}

	select {
	case <-b.ch:
	default:
	}

	select {
	case b.ch <- ev:
	default:
	}
}

// Events returns the receive-only channel the UI layer drains.
func (b *Bus) Events() <-chan Event {
	return b.ch
}

// Close closes the underlying channel. Safe to call once, after every
// publisher has stopped.
func (b *Bus) Close() {
	close(b.ch)
}

// Drain returns up to limit currently-buffered events without waiting for
// more, used by tests that only care whether a Kind was published at some
// point.
func Drain(ctx context.Context, b *Bus, limit int) []Event {
	var out []Event

	for len(out) < limit {
		select {
		case ev, ok := <-b.Events():
			if !ok {
				return out
			}

			out = append(out, ev)
		case <-ctx.Done():
			return out
		default:
			return out
		}
	}

	return out
}
