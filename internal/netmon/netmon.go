// Package netmon polls system connectivity and publishes a boolean stream,
// the signal the pipeline pauses and resumes on.
package netmon

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"
)

// pollInterval is the fixed connectivity check period.
const pollInterval = 5 * time.Second

// dialTimeout bounds a single connectivity probe so a hung network stack
// never delays the next poll tick.
const dialTimeout = 3 * time.Second

// Prober reports whether the machine currently has network connectivity.
// Satisfied by dialProbe; tests inject a stub.
type Prober func(ctx context.Context) bool

// Monitor polls connectivity on a fixed interval and fans the boolean out to
// every subscriber.
type Monitor struct {
	probe  Prober
	logger *slog.Logger

	mu          sync.Mutex
	online      bool
	started     bool
	subscribers []chan bool
}

// New creates a Monitor. probe may be nil, in which case a TCP-dial-based
// default prober is used.
func New(probe Prober, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}

	if probe == nil {
		probe = dialProbe
	}

	return &Monitor{probe: probe, logger: logger}
}

// Subscribe returns a channel that receives the first observed connectivity
// state and then each change of it (see Run). The channel is buffered so a slow
// subscriber never blocks the poll loop; stale boolean reads are harmless
// since the caller only cares about the latest value.
func (m *Monitor) Subscribe() <-chan bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan bool, 1)
	m.subscribers = append(m.subscribers, ch)

	return ch
}

// Online returns the most recently observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.online
}

// Run polls connectivity every 5s until ctx is canceled, publishing each
// transition to every subscriber. It blocks; the first poll runs
// immediately so callers don't wait a full interval for the initial state.
func (m *Monitor) Run(ctx context.Context) {
	m.poll(ctx)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	online := m.probe(ctx)

	m.mu.Lock()
	changed := !m.started || online != m.online
	m.started = true
	m.online = online
	subs := append([]chan bool(nil), m.subscribers...)
	m.mu.Unlock()

	if !changed {
		return
	}

	m.logger.Debug("netmon: connectivity transition", "online", online)

	for _, ch := range subs {
		select {
		case ch <- online:
		default:
			select {
			case <-ch:
			default:
			}

			select {
			case ch <- online:
			default:
			}
		}
	}
}

// dialProbe reports connectivity by attempting a short TCP dial to port 443
// of a well-known public DNS resolver. No DNS lookup is needed since the target is
// a literal IP, so this works even when local DNS itself is the thing that's
// down.
func dialProbe(ctx context.Context) bool {
	d := net.Dialer{Timeout: dialTimeout}

	conn, err := d.DialContext(ctx, "tcp", "1.1.1.1:443")
	if err != nil {
		return false
	}

	conn.Close()

	return true
}
