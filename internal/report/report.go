// Package report assembles price data, headlines and model narratives into a
// ReportResult and renders it as PDF or plain text.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seenimoa/marketbrief/pkg/models"
	"github.com/seenimoa/marketbrief/pkg/utils"
)

// DefaultFilenamePrefix is used when no prefix is configured.
const DefaultFilenamePrefix = "market_analysis"

// ErrRender is matched by every RenderError.
var ErrRender = errors.New("report: render failed")

// RenderError wraps a document rendering failure.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s (%s): %v", ErrRender, e.Stage, e.Err)
}

func (e *RenderError) Unwrap() []error { return []error{ErrRender, e.Err} }

// Filename returns "<prefix>_YYYYMMDD_HHMMSS.pdf".
func Filename(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultFilenamePrefix
	}
	return prefix + "_" + utils.FileStamp(now) + ".pdf"
}

// TextRenderer renders a report as plain text for terminals and email bodies.
type TextRenderer struct {
	Title string
}

// Render returns the text rendition of result.
func (t TextRenderer) Render(result *models.ReportResult, generatedAt time.Time) string {
	var b strings.Builder
	title := t.Title
	if title == "" {
		title = "Market Summary Report"
	}

	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("═", 60) + "\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", utils.DisplayTime(generatedAt))

	fmt.Fprintf(&b, "%-8s %12s %10s %10s\n", "Ticker", "Last Close", "Change", "% Change")
	b.WriteString(strings.Repeat("─", 43) + "\n")
	for _, r := range result.PriceRecords {
		fmt.Fprintf(&b, "%-8s %12s %10s %10s\n",
			r.Ticker, utils.FormatPrice(r.LastClose), utils.FormatSigned(r.Change), utils.FormatPct(r.PercentChange))
	}

	if s := strings.TrimSpace(result.MarketSummary); s != "" {
		b.WriteString("\nMarket Summary\n")
		b.WriteString(strings.Repeat("─", 43) + "\n")
		b.WriteString(plainText(s) + "\n")
	}

	for _, sec := range result.OrderedSectors() {
		if strings.TrimSpace(sec.Summary) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", sec.Title)
		b.WriteString(strings.Repeat("─", 43) + "\n")
		b.WriteString(plainText(strings.TrimSpace(sec.Summary)) + "\n")
	}

	return b.String()
}

// paragraphs splits text on blank lines, dropping blank paragraphs.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	var cur []string
	flush := func() {
		if p := strings.TrimSpace(strings.Join(cur, "\n")); p != "" {
			out = append(out, p)
		}
		cur = cur[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return out
}
