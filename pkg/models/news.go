package models

// SourceKind selects how a news source is fetched.
type SourceKind string

const (
	SourceHTML    SourceKind = "html"    // plain GET, selector extraction
	SourceBrowser SourceKind = "browser" // rendered in headless Chrome, then selector extraction
	SourceRSS     SourceKind = "rss"     // feed item titles
)

// NewsSource is a static scraping rule for one news site.
type NewsSource struct {
	Name         string     `json:"name"          mapstructure:"name"          validate:"required"`
	URL          string     `json:"url"           mapstructure:"url"           validate:"required,url"`
	Selector     string     `json:"selector"      mapstructure:"selector"      validate:"required_unless=Kind rss"`
	ClassFilter  string     `json:"class_filter"  mapstructure:"class_filter"`
	Kind         SourceKind `json:"kind"          mapstructure:"kind"          validate:"omitempty,oneof=html browser rss"`
	MaxHeadlines int        `json:"max_headlines" mapstructure:"max_headlines"` // 0 = scraper default
}

// EffectiveKind returns Kind, defaulting to SourceHTML.
func (s NewsSource) EffectiveKind() SourceKind {
	if s.Kind == "" {
		return SourceHTML
	}
	return s.Kind
}

// SectorDefinition maps a sector name to its member tickers.
// Ticker matching is exact and case-sensitive.
type SectorDefinition struct {
	Name    string   `json:"name"    mapstructure:"name"    validate:"required"`
	Tickers []string `json:"tickers" mapstructure:"tickers" validate:"required,min=1"`
}

// Members returns the records whose ticker belongs to the sector, in record order.
func (s SectorDefinition) Members(records []PriceRecord) []PriceRecord {
	set := make(map[string]struct{}, len(s.Tickers))
	for _, t := range s.Tickers {
		set[t] = struct{}{}
	}
	var out []PriceRecord
	for _, r := range records {
		if _, ok := set[r.Ticker]; ok {
			out = append(out, r)
		}
	}
	return out
}
