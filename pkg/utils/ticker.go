package utils

import (
	"strings"
)

// NormalizeTicker converts a user-provided ticker to canonical form.
// Handles case and whitespace, and strips the "$" prefix common in chat.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	return strings.TrimPrefix(ticker, "$")
}

// ParseTickerList splits a comma-separated ticker list, normalizing each entry
// and dropping blanks. Request order is preserved and duplicates are kept.
// Returns nil when nothing usable remains so callers can fall back to defaults.
func ParseTickerList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if t := NormalizeTicker(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// NormalizeTickers applies NormalizeTicker to every entry, dropping blanks.
// Entries that themselves contain commas are split.
func NormalizeTickers(tickers []string) []string {
	var out []string
	for _, t := range tickers {
		out = append(out, ParseTickerList(t)...)
	}
	return out
}
