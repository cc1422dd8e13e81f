// verify_rate measures the average throughput of data piped through stdin,
// for cross-checking the rate pipespeed prints.
// Usage: go run ./cmd/gen_stream -r 2MiB | pipespeed | go run ./cmd/verify_rate
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

func main() {
	start := time.Now()
	// Read everything from Stdin until EOF
	n, err := io.Copy(io.Discard, os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	duration := time.Since(start)

	bytesPerSec := float64(n) / duration.Seconds()

	fmt.Printf("Read %s (%d bytes) in %v\n", humanize.IBytes(uint64(n)), n, duration)
	fmt.Printf("Rate: %s/s (%.2f bytes/sec)\n", humanize.IBytes(uint64(bytesPerSec)), bytesPerSec)
}
