package domain

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// RPMPerHz converts a dominant vibration frequency into shaft speed.
const RPMPerHz = 60

// EstimateRPM derives rotation speed from the spectrum peak.
func EstimateRPM(peakHz float64) float64 {
	return peakHz * RPMPerHz
}

// FormatRuntime renders device uptime as "<h> h <m> min". Seconds are
// truncated, negative or non-finite input renders as zero and values past
// the uint64 range saturate.
func FormatRuntime(seconds float64) string {
	var total uint64
	switch {
	case math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0:
	case seconds >= 1<<64:
		total = math.MaxUint64
	default:
		total = uint64(seconds)
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	return fmt.Sprintf("%d h %d min", hours, minutes)
}

// FrequencyLabel formats a bin frequency with one decimal.
func FrequencyLabel(hz float64) string {
	return strconv.FormatFloat(hz, 'f', 1, 64)
}

// FrequencyLabels formats every bin of freqs.
func FrequencyLabels(freqs []float64) []string {
	out := make([]string, len(freqs))
	for i, f := range freqs {
		out[i] = FrequencyLabel(f)
	}
	return out
}

// TimeLabel is the wall-clock label attached to each sample group.
func TimeLabel(t time.Time) string {
	return t.Format("15:04:05")
}
