package main

import (
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Meter defaults
const (
	defaultInterval = time.Second
	defaultWindow   = 10   // seconds
	handoffBuffer   = 1024 // byte-count messages buffered between relay and feed loop
)

// MeterConfig configures a Meter.
type MeterConfig struct {
	Interval time.Duration // Reporter cadence (0 = 1s)
	Window   uint64        // Trailing window in seconds (0 = 10)
	Status   io.Writer     // Where status lines go (nil = discard)
	Inline   bool          // Rewrite the status line in place instead of one line per tick
	Logger   zerolog.Logger
	Metrics  *meterMetrics    // Optional Prometheus collectors
	Now      func() time.Time // Clock (nil = time.Now)
}

// Meter accounts for bytes handed to it by a relay and reports the transfer
// rate over a trailing window. It owns the ledger and the two loops that
// share it: the feed loop records counts, the reporter loop reads them.
type Meter struct {
	cfg    MeterConfig
	log    zerolog.Logger
	start  time.Time
	ledger *Ledger

	handoff  chan uint64
	pending  uint64 // counts not yet handed off; touched only by the Add/Close caller
	feedDone chan struct{}

	reporter  *reporter
	closeOnce sync.Once
}

// NewMeter creates a Meter and starts its feed and reporter loops.
// The Start Instant is captured here, before any byte can be added.
func NewMeter(cfg MeterConfig) *Meter {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Window == 0 {
		cfg.Window = defaultWindow
	}
	if cfg.Status == nil {
		cfg.Status = io.Discard
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &Meter{
		cfg:      cfg,
		log:      cfg.Logger.With().Str("component", "meter").Logger(),
		start:    cfg.Now(),
		ledger:   NewLedger(),
		handoff:  make(chan uint64, handoffBuffer),
		feedDone: make(chan struct{}),
	}
	m.reporter = &reporter{
		ledger:   m.ledger,
		start:    m.start,
		now:      cfg.Now,
		interval: cfg.Interval,
		window:   cfg.Window,
		out:      &statusWriter{w: cfg.Status, inline: cfg.Inline},
		metrics:  cfg.Metrics,
		log:      cfg.Logger.With().Str("component", "reporter").Logger(),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}

	go m.feed()
	go m.reporter.run()
	return m
}

// Add hands a byte count to the feed loop without blocking. When the
// handoff buffer is full the count is carried over to the next call.
// Add and Close must be called from a single goroutine.
func (m *Meter) Add(n int) {
	if n <= 0 {
		return
	}
	count := m.pending + uint64(n)
	select {
	case m.handoff <- count:
		m.pending = 0
	default:
		m.pending = count
	}
}

// Close flushes outstanding counts, stops both loops and waits for the
// reporter to write its final status line. It is safe to call more than once.
func (m *Meter) Close() {
	m.closeOnce.Do(func() {
		if m.pending > 0 {
			select {
			case m.handoff <- m.pending:
			case <-m.feedDone:
				m.log.Debug().Uint64("bytes", m.pending).Msg("feed loop gone, dropping pending count")
			}
			m.pending = 0
		}
		close(m.handoff)
		<-m.feedDone
		m.reporter.stop()
	})
}

// Ledger returns the ledger the meter records into.
func (m *Meter) Ledger() *Ledger {
	return m.ledger
}

// Elapsed returns the time since the meter was created.
func (m *Meter) Elapsed() time.Duration {
	return m.cfg.Now().Sub(m.start)
}

// feed drains the handoff channel into the ledger until the channel is
// closed or the ledger fails.
func (m *Meter) feed() {
	defer close(m.feedDone)
	for n := range m.handoff {
		bucket := elapsedSeconds(m.start, m.cfg.Now())
		if err := m.ledger.Record(bucket, n); err != nil {
			m.log.Debug().Err(err).Msg("feed loop stopped, rate reporting degraded")
			return
		}
		m.cfg.Metrics.addBytes(n)
	}
	m.log.Debug().Msg("handoff closed, feed loop done")
}

// elapsedSeconds returns the whole seconds between start and now, the
// bucket key for anything recorded at now.
func elapsedSeconds(start, now time.Time) uint64 {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return uint64(d / time.Second)
}
