package main

import (
	"fmt"
	"io"
	"sort"
)

// limitPreset is a named throughput cap for --limit.
type limitPreset struct {
	Rate        int64 // bytes per second
	Description string
}

// limitPresets maps preset names to link speeds, for simulating a slow
// pipe or for keeping a bulk copy from saturating a link.
var limitPresets = map[string]limitPreset{
	// Serial connections
	"9600": {Rate: 960, Description: "9600 baud serial, 8N1"}, // 9600 baud / 10 bits per byte
	"2400": {Rate: 240, Description: "2400 baud serial, 8N1"},

	// Dial-up modems
	"dialup": {Rate: 56000 / 8, Description: "56k modem"},

	// Mobile networks
	"edge":     {Rate: 200000 / 8, Description: "2G/EDGE, 200kbit"},
	"3g":       {Rate: 1000000 / 8, Description: "3G, 1mbit"},
	"lte":      {Rate: 20000000 / 8, Description: "good LTE, 20mbit"},
	"lte-poor": {Rate: 2000000 / 8, Description: "poor LTE signal, 2mbit"},

	// Wired connections
	"dsl":           {Rate: 8000000 / 8, Description: "basic DSL, 8mbit"},
	"cable":         {Rate: 50000000 / 8, Description: "cable modem, 50mbit"},
	"fast-ethernet": {Rate: 100000000 / 8, Description: "100mbit ethernet"},
	"gigabit":       {Rate: 1000000000 / 8, Description: "1gbit ethernet"},

	// Satellite
	"satellite":     {Rate: 25000000 / 8, Description: "Starlink-ish, 25mbit"},
	"satellite-geo": {Rate: 10000000 / 8, Description: "geostationary VSAT, 10mbit"},

	// WiFi scenarios
	"wifi-poor": {Rate: 2000000 / 8, Description: "poor WiFi, 2mbit"},
	"wifi-bad":  {Rate: 500000 / 8, Description: "very bad WiFi, 500kbit"},
}

// resolveLimit turns a --limit value into bytes per second. A preset name
// wins over a bandwidth string.
func resolveLimit(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if p, ok := limitPresets[s]; ok {
		return p.Rate, nil
	}
	rate, err := parseBandwidth(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --limit: %w", err)
	}
	return rate, nil
}

// printLimitPresets lists presets sorted by rate.
func printLimitPresets(w io.Writer) {
	names := make([]string, 0, len(limitPresets))
	for name := range limitPresets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := limitPresets[names[i]].Rate, limitPresets[names[j]].Rate
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		p := limitPresets[name]
		fmt.Fprintf(w, "  %-14s %-12s %s\n", name, FromBytes(float64(p.Rate)), p.Description)
	}
}
