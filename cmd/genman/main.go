//go:build ignore

// genman generates the pipespeed man page.
// Usage: go run cmd/genman/main.go > pipespeed.1
package main

import (
	"fmt"
	"os"
)

func main() {
	// Use a fixed date for reproducible builds/CI
	date := "October 2026"

	manpage := fmt.Sprintf(`.TH PIPESPEED 1 "%s" "pipespeed 0.2.0" "User Commands"
.SH NAME
pipespeed \- measure the throughput of a pipe
.SH SYNOPSIS
.B pipespeed
[\fIflags\fR] < \fIinput\fR > \fIoutput\fR
.SH DESCRIPTION
.B pipespeed
copies standard input to standard output unmodified and, once per interval,
prints the transfer rate over a trailing window to standard error.
.PP
Status lines have the form \fB3.42 MiB/s\fR and use binary (base 1024) units
from B/s up to YiB/s. During the first window the rate is averaged from the
start of the stream. A final line is printed when input ends.
.SH OPTIONS
.TP
.BR \-i ", " \-\-interval " \fIduration\fR"
Time between status lines (default: 1s).
.TP
.BR \-w ", " \-\-window " \fIseconds\fR"
Length of the trailing window the rate is averaged over (default: 10).
.TP
.BR \-b ", " \-\-buffer " \fIbytes\fR"
Bytes per read from standard input (default: 4096).
.TP
.BR \-L ", " \-\-limit " \fIbandwidth\fR|\fIpreset\fR"
Cap throughput with a token bucket. Example: \fB\-\-limit 1mbit\fR
.TP
.B \-\-list\-limits
List the \fB\-\-limit\fR presets.
.TP
.B \-\-inline
Rewrite the status line in place instead of printing one line per interval.
Only honoured when standard error is a terminal.
.TP
.BR \-s ", " \-\-summary
Print the total transferred, elapsed time and average rate when input ends.
.TP
.B \-\-metrics\-addr \fIaddr\fR
Serve Prometheus metrics at \fIaddr\fR/metrics while running.
.TP
.B \-\-log\-level \fIlevel\fR
Diagnostic log level: debug, info, warn or error (default: warn).
.TP
.BR \-h ", " \-\-help
Show help message.
.TP
.BR \-v ", " \-\-version
Show version information.
.SH BANDWIDTH FORMATS
Bandwidth values use SI units (k=1000, not 1024):
.TP
.B 100\fR or \fB100bps
100 bits per second
.TP
.B 56kbit\fR or \fB56k
56,000 bits per second
.TP
.B 1mbit\fR or \fB1m
1,000,000 bits per second
.TP
.B 100KB
100,000 bytes per second
.SH METRICS
.TP
.B pipespeed_bytes_total
Bytes relayed from input to output.
.TP
.B pipespeed_rate_bytes_per_second
Rate over the trailing window at the last report.
.TP
.B pipespeed_reports_total
Status lines emitted.
.SH EXAMPLES
Watch a transfer over ssh:
.PP
.RS
.nf
tar cf \- dir | pipespeed | ssh host 'tar xf \-'
.fi
.RE
.PP
Single updating line and a summary:
.PP
.RS
.nf
pipespeed \-\-inline \-\-summary < big.iso > /dev/null
.fi
.RE
.PP
Throttle a restore to a 3G link:
.PP
.RS
.nf
pipespeed \-\-limit 3g < dump.sql | psql
.fi
.RE
.SH EXIT STATUS
.B pipespeed
exits 0 when input ends, or 1 on a read, write or usage error.
.SH ENVIRONMENT
.B pipespeed
does not use any environment variables.
.SH NOTES
.IP \(bu 2
Rates are bucketed by whole elapsed seconds, so a reported rate can lag the
real one by up to a second.
.IP \(bu 2
If rate accounting fails internally, data keeps flowing and status lines stop.
.SH SEE ALSO
.BR pv (1),
.BR dd (1)
`, date)

	fmt.Fprint(os.Stdout, manpage)
}
