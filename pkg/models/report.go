package models

import (
	"strings"
	"time"
)

// ReportResult is the assembled output of one report run. It is built once by
// the aggregator and never mutated afterwards.
type ReportResult struct {
	ID              string              `json:"id"`
	GeneratedAt     time.Time           `json:"generated_at"`
	PriceRecords    []PriceRecord       `json:"stock_data"`
	MarketSummary   string              `json:"summary"`
	SectorSummaries map[string]string   `json:"sector_analysis"`
	SectorOrder     []string            `json:"-"`           // lowercased keys, sector table order
	SectorTitles    map[string]string   `json:"-"`           // lowercased key -> declared name
	Headlines       map[string][]string `json:"headlines,omitempty"`
}

// SectorKey returns the result-map key for a sector name.
func SectorKey(name string) string {
	return strings.ToLower(name)
}

// OrderedSectors returns (title, summary) pairs in sector table order.
func (r *ReportResult) OrderedSectors() []SectorSummary {
	out := make([]SectorSummary, 0, len(r.SectorOrder))
	for _, key := range r.SectorOrder {
		text, ok := r.SectorSummaries[key]
		if !ok {
			continue
		}
		title := r.SectorTitles[key]
		if title == "" {
			title = key
		}
		out = append(out, SectorSummary{Key: key, Title: title, Summary: text})
	}
	return out
}

// SectorSummary is a single sector narrative with its display title.
type SectorSummary struct {
	Key     string
	Title   string
	Summary string
}
