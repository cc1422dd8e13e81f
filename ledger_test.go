package main

import (
	"errors"
	"sync"
	"testing"
)

func TestLedgerRecordAndSum(t *testing.T) {
	l := NewLedger()

	if err := l.Record(5, 100); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Record(5, 50); err != nil {
		t.Fatalf("Record: %v", err)
	}

	sum, err := l.WindowedSum(0)
	if err != nil {
		t.Fatalf("WindowedSum: %v", err)
	}
	if sum != 150 {
		t.Errorf("WindowedSum(0) = %d, want 150", sum)
	}

	sum, err = l.WindowedSum(6)
	if err != nil {
		t.Fatalf("WindowedSum: %v", err)
	}
	if sum != 0 {
		t.Errorf("WindowedSum(6) = %d, want 0", sum)
	}
}

func TestLedgerRecordZero(t *testing.T) {
	l := NewLedger()
	if err := l.Record(3, 0); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if n, _ := l.Len(); n != 0 {
		t.Errorf("zero record created %d buckets, want 0", n)
	}
	if sum, _ := l.WindowedSum(0); sum != 0 {
		t.Errorf("WindowedSum(0) = %d, want 0", sum)
	}
}

func TestLedgerConcurrentRecord(t *testing.T) {
	const (
		workers = 64
		perWork = 200
		amount  = 4096
	)
	l := NewLedger()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWork; j++ {
				if err := l.Record(7, amount); err != nil {
					t.Errorf("Record: %v", err)
					return
				}
			}
		}()
	}

	// Readers running alongside must not disturb the writers.
	stop := make(chan struct{})
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, err := l.WindowedSum(0); err != nil {
					t.Errorf("WindowedSum: %v", err)
					return
				}
			}
		}()
	}

	wg.Wait()
	close(stop)
	readers.Wait()

	sum, err := l.WindowedSum(0)
	if err != nil {
		t.Fatalf("WindowedSum: %v", err)
	}
	if want := uint64(workers * perWork * amount); sum != want {
		t.Errorf("sum = %d, want %d (lost updates)", sum, want)
	}
}

func TestLedgerWindowing(t *testing.T) {
	l := NewLedger()
	// Bucket b holds b+1 bytes so every bucket is distinguishable.
	for b := uint64(0); b <= 25; b++ {
		if err := l.Record(b, b+1); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	total := uint64(25)
	from := windowStart(total, 10)
	if from != 15 {
		t.Fatalf("windowStart(25, 10) = %d, want 15", from)
	}

	sum, err := l.WindowedSum(from)
	if err != nil {
		t.Fatalf("WindowedSum: %v", err)
	}
	var want uint64
	for b := uint64(15); b <= 25; b++ {
		want += b + 1
	}
	if sum != want {
		t.Errorf("WindowedSum(%d) = %d, want %d (buckets 15..25 only)", from, sum, want)
	}

	withFourteen, _ := l.WindowedSum(14)
	if withFourteen-sum != 15 {
		t.Errorf("bucket 14 should be the only difference, got %d", withFourteen-sum)
	}
}

func TestWindowStart(t *testing.T) {
	tests := []struct {
		total, window, want uint64
	}{
		{0, 10, 0},
		{3, 10, 0},
		{9, 10, 0},
		{10, 10, 0},
		{11, 10, 1},
		{25, 10, 15},
		{25, 1, 24},
	}
	for _, tt := range tests {
		if got := windowStart(tt.total, tt.window); got != tt.want {
			t.Errorf("windowStart(%d, %d) = %d, want %d", tt.total, tt.window, got, tt.want)
		}
	}
}

func TestLedgerPrune(t *testing.T) {
	l := NewLedger()
	for b := uint64(0); b < 20; b++ {
		l.Record(b, 10)
	}

	before, _ := l.WindowedSum(12)
	if err := l.Prune(12); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	after, _ := l.WindowedSum(12)
	if before != after {
		t.Errorf("WindowedSum(12) changed by prune: %d -> %d", before, after)
	}

	if n, _ := l.Len(); n != 8 {
		t.Errorf("Len after prune = %d, want 8", n)
	}
	if all, _ := l.WindowedSum(0); all != 80 {
		t.Errorf("WindowedSum(0) after prune = %d, want 80", all)
	}
	if total, _ := l.Total(); total != 200 {
		t.Errorf("Total after prune = %d, want 200", total)
	}
}

func TestLedgerFailedSectionDisablesLedger(t *testing.T) {
	l := NewLedger()
	l.Record(1, 10)

	err := l.guard(func() {
		panic("boom")
	})
	if !errors.Is(err, ErrLedgerUnavailable) {
		t.Fatalf("guard after panic: got %v, want ErrLedgerUnavailable", err)
	}

	if err := l.Record(1, 10); !errors.Is(err, ErrLedgerUnavailable) {
		t.Errorf("Record: got %v, want ErrLedgerUnavailable", err)
	}
	if _, err := l.WindowedSum(0); !errors.Is(err, ErrLedgerUnavailable) {
		t.Errorf("WindowedSum: got %v, want ErrLedgerUnavailable", err)
	}
	if err := l.Prune(0); !errors.Is(err, ErrLedgerUnavailable) {
		t.Errorf("Prune: got %v, want ErrLedgerUnavailable", err)
	}
	if _, err := l.Total(); !errors.Is(err, ErrLedgerUnavailable) {
		t.Errorf("Total: got %v, want ErrLedgerUnavailable", err)
	}

	// The lock must have been released, or the calls above would hang.
	done := make(chan struct{})
	go func() {
		l.mu.Lock()
		l.mu.Unlock()
		close(done)
	}()
	<-done
}
