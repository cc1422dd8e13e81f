package main

import (
	"errors"
	"fmt"
	"sync"
)

// ErrLedgerUnavailable is returned by every Ledger operation once a critical
// section has failed while holding the lock. The ledger's contents are no
// longer trusted after that point.
var ErrLedgerUnavailable = errors.New("throughput ledger unavailable")

// Ledger records how many bytes moved during each elapsed second.
// It is shared by the feed loop (writer) and the reporter loop (reader).
type Ledger struct {
	mu      sync.Mutex
	buckets map[uint64]uint64 // elapsed second -> bytes recorded in it
	total   uint64            // bytes ever recorded, survives Prune
	failed  bool
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		buckets: make(map[uint64]uint64),
	}
}

// guard runs fn with the lock held. A panic inside fn marks the ledger as
// failed and is reported as ErrLedgerUnavailable instead of unwinding further.
func (l *Ledger) guard(fn func()) (err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failed {
		return ErrLedgerUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			l.failed = true
			err = fmt.Errorf("%w: %v", ErrLedgerUnavailable, r)
		}
	}()
	fn()
	return nil
}

// Record adds amount to the given bucket, creating it if needed.
// An amount of 0 is valid and changes nothing.
func (l *Ledger) Record(bucket, amount uint64) error {
	return l.guard(func() {
		if amount == 0 {
			return
		}
		l.buckets[bucket] += amount
		l.total += amount
	})
}

// WindowedSum returns the sum of all buckets with key >= from.
func (l *Ledger) WindowedSum(from uint64) (uint64, error) {
	var sum uint64
	err := l.guard(func() {
		for bucket, n := range l.buckets {
			if bucket >= from {
				sum += n
			}
		}
	})
	if err != nil {
		return 0, err
	}
	return sum, nil
}

// Prune drops buckets with key < before. Sums over windows starting at or
// after before are unaffected.
func (l *Ledger) Prune(before uint64) error {
	return l.guard(func() {
		for bucket := range l.buckets {
			if bucket < before {
				delete(l.buckets, bucket)
			}
		}
	})
}

// Total returns every byte recorded since the ledger was created.
func (l *Ledger) Total() (uint64, error) {
	var total uint64
	err := l.guard(func() {
		total = l.total
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Len returns the number of buckets currently held.
func (l *Ledger) Len() (int, error) {
	var n int
	err := l.guard(func() {
		n = len(l.buckets)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
