package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
)

var version = "0.2.0"

// Config holds all command-line configuration
type Config struct {
	// Reporting
	Interval time.Duration
	Window   uint64
	Inline   bool
	Summary  bool

	// Data path
	BufferSize int
	Limit      int64 // bytes per second, 0 = unlimited

	// Observability
	MetricsAddr string
	LogLevel    string

	// Misc
	Help       bool
	Version    bool
	ListLimits bool
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Version {
		fmt.Printf("pipespeed %s\n", version)
		os.Exit(0)
	}

	if cfg.ListLimits {
		printLimitPresets(os.Stdout)
		os.Exit(0)
	}

	exitCode := run(cfg, os.Stdin, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

func parseFlags(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("pipespeed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.SortFlags = false // Preserve definition order in help

	interval := fs.StringP("interval", "i", "1s", "Time between status lines")
	fs.Uint64VarP(&cfg.Window, "window", "w", defaultWindow, "Trailing window for the rate, in seconds")
	fs.IntVarP(&cfg.BufferSize, "buffer", "b", defaultBufferSize, "Bytes per read")
	limit := fs.StringP("limit", "L", "", "Cap throughput (e.g., 1mbit, 100KB, or a preset)")
	fs.BoolVar(&cfg.Inline, "inline", false, "Rewrite the status line in place when stderr is a terminal")
	fs.BoolVarP(&cfg.Summary, "summary", "s", false, "Print a transfer summary at end of input")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g., :9100)")
	fs.StringVar(&cfg.LogLevel, "log-level", "warn", "Diagnostic log level (debug, info, warn, error)")
	fs.BoolVarP(&cfg.Help, "help", "h", false, "Show help")
	fs.BoolVarP(&cfg.Version, "version", "v", false, "Show version")
	fs.BoolVar(&cfg.ListLimits, "list-limits", false, "List --limit presets")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "pipespeed - measure the throughput of a pipe")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Copies stdin to stdout unmodified and prints the transfer rate")
		fmt.Fprintln(os.Stderr, "over a trailing window to stderr once per interval.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: pipespeed [flags] < input > output")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  tar cf - dir | pipespeed | ssh host 'tar xf -'")
		fmt.Fprintln(os.Stderr, "  pipespeed --inline --summary < big.iso > /dev/null")
		fmt.Fprintln(os.Stderr, "  cat dump.sql | pipespeed --limit 3g | psql")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Bandwidth formats: 100, 100bps, 56kbit, 56k, 1mbit, 100KB")
		fmt.Fprintln(os.Stderr, "  k=1000 (SI units), not 1024")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Help {
		fs.Usage()
		return cfg, flag.ErrHelp
	}

	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if err := parseDuration(*interval, "interval", &cfg.Interval); err != nil {
		return nil, err
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("invalid --interval: must be positive")
	}
	if cfg.Window == 0 {
		return nil, fmt.Errorf("invalid --window: must be at least 1 second")
	}
	if cfg.BufferSize <= 0 {
		return nil, fmt.Errorf("invalid --buffer: must be positive")
	}

	rate, err := resolveLimit(*limit)
	if err != nil {
		return nil, err
	}
	cfg.Limit = rate

	return cfg, nil
}

// parseDuration parses a duration flag value into dst if non-empty.
// Returns an error with the flag name if parsing fails.
func parseDuration(s string, flagName string, dst *time.Duration) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid --%s: %w", flagName, err)
	}
	*dst = d
	return nil
}

var bandwidthRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([a-z/]*)$`)

// parseBandwidth parses bandwidth strings like "56kbit", "1mbit", "100KB"
// Returns bytes per second. Uses SI units (k=1000).
func parseBandwidth(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, nil
	}

	matches := bandwidthRe.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid bandwidth format: %s", s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}

	unit := matches[2]
	var multiplier float64 = 1
	isBytes := false

	switch unit {
	case "", "bps", "bit", "bits":
		multiplier = 1
	case "k", "kbit", "kbps":
		multiplier = 1000
	case "m", "mbit", "mbps":
		multiplier = 1000000
	case "g", "gbit", "gbps":
		multiplier = 1000000000
	case "b", "b/s", "byte", "bytes":
		multiplier = 1
		isBytes = true
	case "kb", "kb/s":
		multiplier = 1000
		isBytes = true
	case "mb", "mb/s":
		multiplier = 1000000
		isBytes = true
	case "gb", "gb/s":
		multiplier = 1000000000
		isBytes = true
	default:
		return 0, fmt.Errorf("unknown bandwidth unit: %s", unit)
	}

	bits := value * multiplier
	if isBytes {
		return int64(bits), nil // Already in bytes
	}
	return int64(bits / 8), nil // Convert bits to bytes
}

// newLogger builds the diagnostic logger. Diagnostics share stderr with the
// status lines, so the default level keeps a healthy run quiet.
func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid --log-level: %w", err)
	}
	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !isTerminal(w),
		TimeFormat: time.TimeOnly,
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

func run(cfg *Config, stdin io.Reader, stdout, stderr io.Writer) int {
	logger, err := newLogger(stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	inline := cfg.Inline
	if inline && !isTerminal(stderr) {
		logger.Debug().Msg("stderr is not a terminal, ignoring --inline")
		inline = false
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var metrics *meterMetrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = newMeterMetrics(reg)
		if _, err := startMetricsServer(ctx, cfg.MetricsAddr, reg, logger); err != nil {
			fmt.Fprintf(stderr, "error: metrics listener: %v\n", err)
			return 1
		}
	}

	// The meter's loops must be running before the relay produces counts.
	meter := NewMeter(MeterConfig{
		Interval: cfg.Interval,
		Window:   cfg.Window,
		Status:   stderr,
		Inline:   inline,
		Logger:   logger,
		Metrics:  metrics,
	})

	relay := NewRelay(RelayConfig{
		BufferSize: cfg.BufferSize,
		Rate:       cfg.Limit,
	}, meter)

	logger.Debug().Int("buffer", cfg.BufferSize).Int64("limit", cfg.Limit).Msg("relay starting")
	n, relayErr := relay.Run(ctx, stdin, stdout)
	meter.Close()

	if cfg.Summary {
		printSummary(stderr, meter, n)
	}

	if relayErr != nil {
		fmt.Fprintf(stderr, "error: %v\n", relayErr)
		return 1
	}
	return 0
}

// printSummary writes the end-of-stream totals. The ledger total is used
// when available; relayed is the fallback when accounting has failed.
func printSummary(w io.Writer, meter *Meter, relayed int64) {
	total, err := meter.Ledger().Total()
	if err != nil {
		total = uint64(relayed)
	}
	elapsed := meter.Elapsed()

	var avg float64
	if elapsed > 0 {
		avg = float64(total) / elapsed.Seconds()
	}
	fmt.Fprintf(w, "transferred %s in %s (avg %s)\n",
		humanize.IBytes(total),
		elapsed.Round(time.Millisecond),
		FromBytes(avg),
	)
}
