package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// reporter periodically prints the transfer rate over the trailing window.
type reporter struct {
	ledger   *Ledger
	start    time.Time
	now      func() time.Time
	interval time.Duration
	window   uint64 // seconds
	out      *statusWriter
	metrics  *meterMetrics
	log      zerolog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// run sleeps one interval, reports, and repeats until stopped or until the
// ledger or the status output fails.
func (r *reporter) run() {
	defer close(r.done)

	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		select {
		case <-r.stopCh:
			if err := r.final(); err != nil {
				r.log.Debug().Err(err).Msg("final report skipped")
			}
			return
		case <-timer.C:
			if err := r.tick(); err != nil {
				r.log.Debug().Err(err).Msg("reporter stopped")
				return
			}
			// Sleep-then-act: the next interval starts after this report.
			timer.Reset(r.interval)
		}
	}
}

// stop asks the loop to emit its final line and waits for it to exit.
func (r *reporter) stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.done
}

// windowStart returns the first bucket of the trailing window at total
// elapsed seconds, or 0 while less than a full window has passed.
func windowStart(total, window uint64) uint64 {
	if total >= window {
		return total - window
	}
	return 0
}

// windowSpeed computes bytes per second over the trailing window ending at
// now. It also returns the window's first bucket.
func (r *reporter) windowSpeed(now time.Time) (float64, uint64, error) {
	total := elapsedSeconds(r.start, now)
	from := windowStart(total, r.window)
	duration := total - from
	if duration == 0 {
		return 0, from, nil
	}
	sum, err := r.ledger.WindowedSum(from)
	if err != nil {
		return 0, from, err
	}
	return float64(sum) / float64(duration), from, nil
}

// tick emits one status line and drops buckets that fell out of the window.
func (r *reporter) tick() error {
	speed, from, err := r.windowSpeed(r.now())
	if err != nil {
		return err
	}
	r.metrics.observeRate(speed)
	if err := r.out.status(FromBytes(speed)); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	if err := r.ledger.Prune(from); err != nil {
		return err
	}
	if n, err := r.ledger.Len(); err == nil {
		r.log.Debug().Float64("bytes_per_sec", speed).Uint64("window_from", from).Int("buckets", n).Msg("tick")
	}
	return nil
}

// finalSpeed is the window rate measured against the real, fractional time
// since the window began, so streams shorter than a second still get a rate.
func (r *reporter) finalSpeed(now time.Time) (float64, error) {
	from := windowStart(elapsedSeconds(r.start, now), r.window)
	elapsed := now.Sub(r.start.Add(time.Duration(from) * time.Second)).Seconds()
	if elapsed <= 0 {
		return 0, nil
	}
	sum, err := r.ledger.WindowedSum(from)
	if err != nil {
		return 0, err
	}
	return float64(sum) / elapsed, nil
}

func (r *reporter) final() error {
	speed, err := r.finalSpeed(r.now())
	if err != nil {
		return err
	}
	r.metrics.observeRate(speed)
	if err := r.out.status(FromBytes(speed)); err != nil {
		return err
	}
	return r.out.finish()
}

// statusWriter renders status lines, either one per line or rewritten in
// place on a terminal.
type statusWriter struct {
	w      io.Writer
	inline bool
	wrote  bool
}

func (s *statusWriter) status(rs ReadableSpeed) error {
	var err error
	if s.inline {
		_, err = fmt.Fprintf(s.w, "\r\x1b[K%s", rs)
	} else {
		_, err = fmt.Fprintf(s.w, "%s\n", rs)
	}
	if err == nil {
		s.wrote = true
	}
	return err
}

// finish terminates an inline status line so later output starts clean.
func (s *statusWriter) finish() error {
	if !s.inline || !s.wrote {
		return nil
	}
	_, err := io.WriteString(s.w, "\n")
	return err
}

// isTerminal reports whether w is a file descriptor attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
