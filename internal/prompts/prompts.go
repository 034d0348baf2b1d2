// Package prompts builds the text prompts sent to the completion service.
// Builders are pure: identical inputs always produce identical strings.
package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/seenimoa/marketbrief/pkg/models"
	"github.com/seenimoa/marketbrief/pkg/utils"
)

// Language selects the prompt template set.
type Language string

const (
	English Language = "en"
	Spanish Language = "es"
)

// Builder renders prompts in one language. The zero value builds English prompts.
type Builder struct {
	Language Language
}

// NewBuilder returns a builder for lang; unknown values fall back to English.
func NewBuilder(lang string) Builder {
	if Language(lang) == Spanish {
		return Builder{Language: Spanish}
	}
	return Builder{Language: English}
}

// BuildMarketPrompt builds an English whole-market prompt.
func BuildMarketPrompt(records []models.PriceRecord, headlines map[string][]string, sourceOrder []string) string {
	return Builder{}.Market(records, headlines, sourceOrder)
}

// BuildSectorPrompt builds an English single-sector prompt.
func BuildSectorPrompt(sector string, records []models.PriceRecord) string {
	return Builder{}.Sector(sector, records)
}

// Market embeds every record as "TICKER: $LAST (+P.PP%)" and every headline
// grouped by source. Sources follow sourceOrder; sources missing from it are
// appended in name order.
func (b Builder) Market(records []models.PriceRecord, headlines map[string][]string, sourceOrder []string) string {
	t := b.templates()

	var sb strings.Builder
	sb.WriteString(t.marketIntro)
	sb.WriteString("\n\n")
	sb.WriteString(t.stockHeader)
	sb.WriteString("\n")
	for _, r := range records {
		fmt.Fprintf(&sb, "%s: $%s (%s)\n", r.Ticker, utils.FormatPrice(r.LastClose), utils.FormatPct(r.PercentChange))
	}

	sb.WriteString("\n")
	sb.WriteString(t.newsHeader)
	sb.WriteString("\n")
	for _, name := range orderedSources(headlines, sourceOrder) {
		fmt.Fprintf(&sb, "%s:\n", name)
		items := headlines[name]
		if len(items) == 0 {
			fmt.Fprintf(&sb, "- %s\n", t.noHeadlines)
			continue
		}
		for _, h := range items {
			fmt.Fprintf(&sb, "- %s\n", h)
		}
	}

	sb.WriteString("\n")
	sb.WriteString(t.marketAsk)
	return sb.String()
}

// Sector embeds each member as "TICKER: +P.PP%". Headlines are not included.
func (b Builder) Sector(sector string, records []models.PriceRecord) string {
	t := b.templates()

	var sb strings.Builder
	fmt.Fprintf(&sb, t.sectorIntro, sector)
	sb.WriteString("\n")
	for _, r := range records {
		fmt.Fprintf(&sb, "%s: %s\n", r.Ticker, utils.FormatPct(r.PercentChange))
	}
	sb.WriteString("\n")
	sb.WriteString(t.sectorAsk)
	return sb.String()
}

func orderedSources(headlines map[string][]string, order []string) []string {
	seen := make(map[string]bool, len(order))
	out := make([]string, 0, len(headlines))
	for _, name := range order {
		if _, ok := headlines[name]; ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	var rest []string
	for name := range headlines {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
