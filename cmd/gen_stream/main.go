// gen_stream writes a byte stream at a fixed rate, for checking that
// pipespeed reports what it is fed.
// Usage: go run ./cmd/gen_stream --rate 2MiB --size 64MiB | pipespeed > /dev/null
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	flag "github.com/spf13/pflag"
	"golang.org/x/time/rate"
)

func main() {
	rateFlag := flag.StringP("rate", "r", "1MiB", "Bytes per second (e.g., 512KiB, 10MB)")
	sizeFlag := flag.StringP("size", "n", "16MiB", "Total bytes to write")
	chunk := flag.IntP("chunk", "c", 4096, "Bytes per write")
	flag.Parse()

	bytesPerSec, err := humanize.ParseBytes(*rateFlag)
	if err != nil || bytesPerSec == 0 {
		fmt.Fprintf(os.Stderr, "error: invalid --rate %q\n", *rateFlag)
		os.Exit(1)
	}
	size, err := humanize.ParseBytes(*sizeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid --size %q\n", *sizeFlag)
		os.Exit(1)
	}
	if *chunk <= 0 {
		fmt.Fprintln(os.Stderr, "error: --chunk must be positive")
		os.Exit(1)
	}

	burst := *chunk
	if uint64(burst) > bytesPerSec {
		burst = int(bytesPerSec)
	}
	limiter := rate.NewLimiter(rate.Limit(bytesPerSec), burst)

	buf := make([]byte, burst)
	for i := range buf {
		buf[i] = byte('a' + i%26)
	}

	ctx := context.Background()
	start := time.Now()
	remaining := size
	for remaining > 0 {
		n := uint64(len(buf))
		if n > remaining {
			n = remaining
		}
		if err := limiter.WaitN(ctx, int(n)); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if _, err := os.Stdout.Write(buf[:n]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		remaining -= n
	}

	fmt.Fprintf(os.Stderr, "gen_stream: wrote %s in %v (target %s/s)\n",
		humanize.IBytes(size), time.Since(start).Round(time.Millisecond), humanize.IBytes(bytesPerSec))
}
