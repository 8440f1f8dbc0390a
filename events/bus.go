package events

import (
	"log/slog"
	"sync"
	"time"
)

// Consumer receives events synchronously. A consumer that blocks beyond the
// bus threshold is detached with a warning.
type Consumer interface {
	OnEvent(e Event)
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(e Event)

func (f ConsumerFunc) OnEvent(e Event) { f(e) }

// Bus is the process-wide event dispatcher. Emission assigns sequence
// numbers and delivers in registration order.
type Bus struct {
	mu        sync.Mutex
	seq       uint64
	threshold time.Duration
	logger    *slog.Logger
	consumers []Consumer
}

// NewBus creates a bus. threshold bounds how long one consumer may hold the
// producer; zero means the 100ms default.
func NewBus(threshold time.Duration, logger *slog.Logger) *Bus {
	if threshold <= 0 {
		threshold = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{threshold: threshold, logger: logger}
}

// Subscribe registers a consumer.
func (b *Bus) Subscribe(c Consumer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consumers = append(b.consumers, c)
}

// Emit stamps and delivers the event to every consumer. Slow consumers are
// detached so they cannot stall ingestion.
func (b *Bus) Emit(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	e.Seq = b.seq
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	kept := b.consumers[:0]
	for _, c := range b.consumers {
		start := time.Now()
		c.OnEvent(e)
		if elapsed := time.Since(start); elapsed > b.threshold {
			b.logger.Warn("detaching slow event consumer",
				slog.String("event", string(e.Type)),
				slog.Duration("elapsed", elapsed),
				slog.Duration("threshold", b.threshold))
			continue
		}
		kept = append(kept, c)
	}
	b.consumers = kept
}

// Seq returns the last assigned sequence number.
func (b *Bus) Seq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}
