package main

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/time/rate"
)

// Buffer and limit sizes
const (
	defaultBufferSize = 4096  // Size of read buffer for source data
	maxBurstSize      = 65536 // Cap burst at 64KB to prevent huge initial bursts
)

// Counter receives the size of every chunk the relay forwards.
type Counter interface {
	Add(n int)
}

// RelayConfig holds configuration for the data path.
type RelayConfig struct {
	BufferSize int   // Bytes per read (0 = 4096)
	Rate       int64 // Bytes per second (0 = unlimited)
	Burst      int   // Token bucket burst size (0 = auto-calculate)
}

// Relay copies a byte stream unmodified from src to dst, reporting each
// forwarded chunk to a Counter. It optionally caps throughput with a token
// bucket.
type Relay struct {
	config  RelayConfig
	counter Counter
	limiter *rate.Limiter
}

// NewRelay creates a Relay. counter may be nil.
func NewRelay(cfg RelayConfig, counter Counter) *Relay {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}

	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		// Calculate burst size: at least one chunk, or 100ms of data
		burst := cfg.Burst
		if burst == 0 {
			burst = int(cfg.Rate / 10)
			if cfg.BufferSize > burst {
				burst = cfg.BufferSize
			}
			if burst > maxBurstSize {
				burst = maxBurstSize
			}
		}
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}

	return &Relay{
		config:  cfg,
		counter: counter,
		limiter: limiter,
	}
}

// Run forwards src to dst until src returns io.EOF, which is not an error.
// Read and write failures are returned; the bytes forwarded so far are
// always reported.
func (r *Relay) Run(ctx context.Context, src io.Reader, dst io.Writer) (int64, error) {
	buf := make([]byte, r.config.BufferSize)
	var total int64

	for {
		n, err := src.Read(buf)
		if n > 0 {
			if werr := r.write(ctx, dst, buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
			if r.counter != nil {
				r.counter.Add(n)
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("read input: %w", err)
		}
	}
}

// write sends data to dst, waiting for tokens first when rate limited.
// Data is written in pieces no larger than the burst size.
func (r *Relay) write(ctx context.Context, dst io.Writer, data []byte) error {
	if r.limiter == nil {
		return writeFull(dst, data)
	}

	burst := r.limiter.Burst()
	for len(data) > 0 {
		toWrite := len(data)
		if toWrite > burst {
			toWrite = burst
		}

		// Wait for tokens
		if err := r.limiter.WaitN(ctx, toWrite); err != nil {
			return err
		}

		if err := writeFull(dst, data[:toWrite]); err != nil {
			return err
		}
		data = data[toWrite:]
	}
	return nil
}

func writeFull(dst io.Writer, data []byte) error {
	n, err := dst.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("write output: %w", io.ErrShortWrite)
	}
	return nil
}
