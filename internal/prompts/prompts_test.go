package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seenimoa/marketbrief/pkg/models"
)

var sampleRecords = []models.PriceRecord{
	{Ticker: "AAPL", LastClose: 150.00, Change: 2.00, PercentChange: 1.35},
	{Ticker: "MSFT", LastClose: 300.00, Change: -5.00, PercentChange: -1.64},
	{Ticker: "FLAT", LastClose: 10.00, Change: 0, PercentChange: 0},
}

var sampleHeadlines = map[string][]string{
	"Yahoo Finance": {"Stocks rally", "Fed holds"},
	"CNBC":          {"Oil slips"},
	"Reuters":       {},
}

func TestMarketPromptCompleteness(t *testing.T) {
	p := BuildMarketPrompt(sampleRecords, sampleHeadlines, []string{"Yahoo Finance", "CNBC"})

	for _, line := range []string{
		"AAPL: $150.00 (+1.35%)",
		"MSFT: $300.00 (-1.64%)",
		"FLAT: $10.00 (+0.00%)",
		"- Stocks rally",
		"- Fed holds",
		"- Oil slips",
		"Yahoo Finance:",
		"CNBC:",
		"Reuters:",
	} {
		assert.Contains(t, p, line)
	}
}

func TestMarketPromptSourceOrder(t *testing.T) {
	p := BuildMarketPrompt(sampleRecords, sampleHeadlines, []string{"CNBC", "Yahoo Finance"})

	cnbc := strings.Index(p, "CNBC:")
	yahoo := strings.Index(p, "Yahoo Finance:")
	reuters := strings.Index(p, "Reuters:")
	assert.True(t, cnbc < yahoo, "configured order must be kept")
	assert.True(t, yahoo < reuters, "unlisted sources come last")

	assert.True(t, strings.Index(p, "Stocks rally") < strings.Index(p, "Fed holds"),
		"headline order within a source must be kept")
}

func TestMarketPromptDeterministic(t *testing.T) {
	a := BuildMarketPrompt(sampleRecords, sampleHeadlines, nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a, BuildMarketPrompt(sampleRecords, sampleHeadlines, nil))
	}
}

func TestMarketPromptEmptyInputs(t *testing.T) {
	p := BuildMarketPrompt(nil, nil, []string{"CNBC"})
	assert.Contains(t, p, "Stock Data:")
	assert.NotContains(t, p, "CNBC:")
}

func TestSectorPrompt(t *testing.T) {
	p := BuildSectorPrompt("Technology", sampleRecords[:2])

	assert.Contains(t, p, "Analyze these Technology sector stocks:")
	assert.Contains(t, p, "AAPL: +1.35%")
	assert.Contains(t, p, "MSFT: -1.64%")
	assert.NotContains(t, p, "$150.00")
	assert.NotContains(t, p, "Stocks rally")
	assert.Equal(t, p, BuildSectorPrompt("Technology", sampleRecords[:2]))
}

func TestSpanishBuilder(t *testing.T) {
	b := NewBuilder("es")
	assert.Equal(t, Spanish, b.Language)

	p := b.Market(sampleRecords, sampleHeadlines, nil)
	assert.Contains(t, p, "Datos de acciones:")
	assert.Contains(t, p, "AAPL: $150.00 (+1.35%)")

	s := b.Sector("Financial", sampleRecords[1:2])
	assert.Contains(t, s, "Analiza estas acciones del sector Financial:")
	assert.Contains(t, s, "MSFT: -1.64%")
}

func TestNewBuilderFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, English, NewBuilder("").Language)
	assert.Equal(t, English, NewBuilder("fr").Language)
}
