// Package format renders byte counts, durations and transfer telemetry as
// short human-readable strings. Every function is total: malformed input
// yields a best-effort value or a sentinel, never an error.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// UnknownSpeed is returned when a rate cannot be read.
	UnknownSpeed = "N/A"
	// PendingETA is returned while no remaining time is known.
	PendingETA = "calculating..."
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// Size scales bytes by 1024 up to TB with two decimals. Zero is "0 B".
func Size(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}

// Duration renders whole seconds as "45s", "1m 30s" or "1h 1m 1s".
func Duration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	switch {
	case total < 60:
		return fmt.Sprintf("%ds", total)
	case total < 3600:
		return fmt.Sprintf("%dm %ds", total/60, total%60)
	default:
		return fmt.Sprintf("%dh %dm %ds", total/3600, (total%3600)/60, total%60)
	}
}

var reRate = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?i?B)?/s`)

var rateScale = map[string]float64{
	"":    1,
	"B":   1,
	"KB":  1000,
	"KiB": 1024,
	"MB":  1000 * 1000,
	"MiB": 1024 * 1024,
	"GB":  1000 * 1000 * 1000,
	"GiB": 1024 * 1024 * 1024,
	"TB":  1000 * 1000 * 1000 * 1000,
	"TiB": 1024 * 1024 * 1024 * 1024,
}

// Speed normalizes a downloader rate such as "2.50MiB/s" to "2.50 MB/s".
func Speed(raw string) string {
	raw = strings.TrimSpace(raw)
	if isAbsent(raw) {
		return UnknownSpeed
	}

	m := reRate.FindStringSubmatch(raw)
	if m == nil {
		return UnknownSpeed
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return UnknownSpeed
	}
	scale, ok := rateScale[m[2]]
	if !ok {
		return UnknownSpeed
	}
	return Size(int64(num*scale)) + "/s"
}

// ETA turns "H:MM:SS" or "M:SS" into "remaining 2m 30s".
func ETA(raw string) string {
	raw = strings.TrimSpace(raw)
	if isAbsent(raw) {
		return PendingETA
	}

	parts := strings.Split(raw, ":")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return "remaining " + raw
		}
		nums = append(nums, n)
	}

	switch len(nums) {
	case 3:
		h, m, s := nums[0], nums[1], nums[2]
		switch {
		case h > 0:
			return fmt.Sprintf("remaining %dh %dm %ds", h, m, s)
		case m > 0:
			return fmt.Sprintf("remaining %dm %ds", m, s)
		default:
			return fmt.Sprintf("remaining %ds", s)
		}
	case 2:
		if nums[0] == 0 {
			return fmt.Sprintf("remaining %ds", nums[1])
		}
		return fmt.Sprintf("remaining %dm %ds", nums[0], nums[1])
	}
	return "remaining " + raw
}

func isAbsent(raw string) bool {
	switch strings.ToLower(raw) {
	case "", "n/a", "na", "none", "unknown":
		return true
	}
	return false
}
