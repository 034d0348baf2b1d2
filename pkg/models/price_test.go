package models

import "testing"

func TestNewPriceRecord(t *testing.T) {
	tests := []struct {
		ticker    string
		last, ref float64
		want      PriceRecord
	}{
		{"AAPL", 150.00, 148.00, PriceRecord{"AAPL", 150.00, 2.00, 1.35}},
		{"MSFT", 300.00, 305.00, PriceRecord{"MSFT", 300.00, -5.00, -1.64}},
		{"FLAT", 10.00, 10.00, PriceRecord{"FLAT", 10.00, 0, 0}},
		{"ODD", 101.2345, 100.1, PriceRecord{"ODD", 101.23, 1.13, 1.13}},
		{"PENNY", 0.8961, 0.9, PriceRecord{"PENNY", 0.9, 0, 0}},
		{"SUBCENT", 1000.004, 1000, PriceRecord{"SUBCENT", 1000, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			got := NewPriceRecord(tt.ticker, tt.last, tt.ref)
			if got != tt.want {
				t.Errorf("NewPriceRecord(%q, %v, %v) = %+v, want %+v", tt.ticker, tt.last, tt.ref, got, tt.want)
			}
			if (got.Change < 0) != (got.PercentChange < 0) || (got.Change > 0) != (got.PercentChange > 0) {
				t.Errorf("sign mismatch: change %v, pct %v", got.Change, got.PercentChange)
			}
		})
	}
}

func TestSectorMembers(t *testing.T) {
	records := []PriceRecord{
		{Ticker: "AAPL"}, {Ticker: "TSLA"}, {Ticker: "MSFT"},
	}
	tech := SectorDefinition{Name: "Technology", Tickers: []string{"MSFT", "AAPL"}}

	got := tech.Members(records)
	if len(got) != 2 || got[0].Ticker != "AAPL" || got[1].Ticker != "MSFT" {
		t.Fatalf("Members = %+v, want AAPL, MSFT in record order", got)
	}

	lower := SectorDefinition{Name: "Technology", Tickers: []string{"aapl"}}
	if n := len(lower.Members(records)); n != 0 {
		t.Errorf("membership must be case-sensitive, got %d members", n)
	}
}

func TestOrderedSectors(t *testing.T) {
	r := &ReportResult{
		SectorSummaries: map[string]string{"financial": "F", "technology": "T"},
		SectorOrder:     []string{"technology", "healthcare", "financial"},
		SectorTitles:    map[string]string{"technology": "Technology"},
	}
	got := r.OrderedSectors()
	if len(got) != 2 {
		t.Fatalf("OrderedSectors len = %d, want 2", len(got))
	}
	if got[0].Title != "Technology" || got[0].Summary != "T" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Title != "financial" || got[1].Summary != "F" {
		t.Errorf("second = %+v", got[1])
	}
}

func TestSourceKindDefault(t *testing.T) {
	if k := (NewsSource{}).EffectiveKind(); k != SourceHTML {
		t.Errorf("EffectiveKind = %q, want html", k)
	}
	if k := (NewsSource{Kind: SourceRSS}).EffectiveKind(); k != SourceRSS {
		t.Errorf("EffectiveKind = %q, want rss", k)
	}
}
