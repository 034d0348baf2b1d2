// Package utils provides common formatting and parsing helpers for marketbrief.
package utils

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Round2 rounds v to 2 decimal places, halves away from zero.
// Binary noise below 1e-9 is removed first so 1.005 rounds to 1.01.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scaled, err := strconv.ParseFloat(strconv.FormatFloat(v*100, 'f', 9, 64), 64)
	if err != nil {
		scaled = v * 100
	}
	r := math.Round(scaled) / 100
	if r == 0 {
		return 0 // no negative zero
	}
	return r
}

// FormatPct formats a percentage value with sign and suffix.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%", 0 → "+0.00%"
func FormatPct(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatSigned formats a value with 2 decimals and an explicit sign.
func FormatSigned(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// FormatPrice formats a price with 2 decimals.
func FormatPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// FileStamp formats t as YYYYMMDD_HHMMSS for generated file names.
func FileStamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// DisplayTime formats t as shown in report headers.
func DisplayTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
