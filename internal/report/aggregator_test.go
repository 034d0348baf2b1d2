package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/marketbrief/internal/config"
	"github.com/seenimoa/marketbrief/internal/datasource"
	"github.com/seenimoa/marketbrief/internal/infra"
	"github.com/seenimoa/marketbrief/internal/llm"
	"github.com/seenimoa/marketbrief/pkg/models"
	"github.com/seenimoa/marketbrief/pkg/utils"
)

// closes maps ticker to daily closes, oldest first.
type fakeHistory map[string][]float64

func (f fakeHistory) History(_ context.Context, ticker string) ([]models.Session, error) {
	closes, ok := f[ticker]
	if !ok {
		return nil, datasource.ErrTickerNotFound
	}
	sessions := make([]models.Session, len(closes))
	for i, c := range closes {
		sessions[i] = models.Session{Date: time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC), Open: c, Close: c}
	}
	return sessions, nil
}

type fakeNews map[string][]string

func (f fakeNews) ScrapeAll(_ context.Context, sources []models.NewsSource) map[string][]string {
	out := make(map[string][]string, len(sources))
	for _, s := range sources {
		out[s.Name] = append([]string{}, f[s.Name]...)
	}
	return out
}

// recordingCompleter answers every prompt and remembers what it was asked.
type recordingCompleter struct {
	mu      sync.Mutex
	prompts []string
	answer  func(prompt string) (string, error)
}

func (c *recordingCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	return c.answer(prompt)
}

func reportConfig() config.ReportConfig {
	return config.ReportConfig{
		DefaultTickers: []string{"AAPL", "MSFT"},
		Sectors: []models.SectorDefinition{
			{Name: "Technology", Tickers: []string{"AAPL", "MSFT"}},
			{Name: "Financial", Tickers: []string{"JPM", "BAC"}},
		},
		NewsSources: []models.NewsSource{
			{Name: "Yahoo Finance", URL: "https://finance.yahoo.com", Selector: "h3"},
		},
		Language:          "en",
		SectorConcurrency: 1,
	}
}

func newTestAggregator(history fakeHistory, completer llm.Completer, cfg config.ReportConfig, opts ...AggregatorOption) *Aggregator {
	logger := arbor.NewLogger()
	fetcher := datasource.NewPriceFetcher(history, infra.NewPacer(0, 0), cfg.DefaultTickers, time.Second, logger)
	news := fakeNews{"Yahoo Finance": {"Stocks climb", "Fed holds rates"}}
	return NewAggregator(fetcher, news, completer, cfg, logger, opts...)
}

func TestAssemble_EndToEnd(t *testing.T) {
	history := fakeHistory{
		"AAPL": {148, 150},
		"MSFT": {305, 300},
	}
	completer := &recordingCompleter{answer: func(p string) (string, error) {
		if strings.Contains(p, "sector stocks") {
			return "Tech mixed.", nil
		}
		return "Markets were mixed.", nil
	}}

	agg := newTestAggregator(history, completer, reportConfig())
	result, err := agg.Assemble(context.Background(), utils.ParseTickerList("AAPL, MSFT"))
	require.NoError(t, err)

	assert.Equal(t, []models.PriceRecord{
		{Ticker: "AAPL", LastClose: 150.00, Change: 2.00, PercentChange: 1.35},
		{Ticker: "MSFT", LastClose: 300.00, Change: -5.00, PercentChange: -1.64},
	}, result.PriceRecords)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "Markets were mixed.", result.MarketSummary)
	assert.Equal(t, map[string]string{"technology": "Tech mixed."}, result.SectorSummaries)
	assert.Equal(t, []string{"technology"}, result.SectorOrder)
	assert.Equal(t, "Technology", result.SectorTitles["technology"])
	assert.Equal(t, []string{"Stocks climb", "Fed holds rates"}, result.Headlines["Yahoo Finance"])

	require.Len(t, completer.prompts, 2)
	market := completer.prompts[0]
	assert.Contains(t, market, "AAPL: $150.00 (+1.35%)")
	assert.Contains(t, market, "MSFT: $300.00 (-1.64%)")
	assert.Contains(t, market, "Stocks climb")
}

func TestAssemble_SectorPartition(t *testing.T) {
	history := fakeHistory{
		"AAPL": {100, 101},
		"TSLA": {200, 190},
	}
	completer := &recordingCompleter{answer: func(string) (string, error) { return "ok", nil }}

	cfg := reportConfig()
	cfg.Sectors = []models.SectorDefinition{{Name: "Technology", Tickers: []string{"AAPL", "MSFT"}}}

	agg := newTestAggregator(history, completer, cfg)
	result, err := agg.Assemble(context.Background(), []string{"AAPL", "TSLA"})
	require.NoError(t, err)

	require.Contains(t, result.SectorSummaries, "technology")
	assert.Len(t, result.SectorSummaries, 1)

	sectorPrompt := completer.prompts[len(completer.prompts)-1]
	assert.Contains(t, sectorPrompt, "AAPL: +1.00%")
	assert.NotContains(t, sectorPrompt, "TSLA")
	assert.NotContains(t, sectorPrompt, "MSFT")
}

func TestAssemble_SkipsUnfetchableTickers(t *testing.T) {
	history := fakeHistory{"AAPL": {148, 150}}
	completer := &recordingCompleter{answer: func(string) (string, error) { return "ok", nil }}

	agg := newTestAggregator(history, completer, reportConfig())
	result, err := agg.Assemble(context.Background(), []string{"AAPL", "NOPE"})
	require.NoError(t, err)
	require.Len(t, result.PriceRecords, 1)
	assert.Equal(t, "AAPL", result.PriceRecords[0].Ticker)
}

func TestAssemble_AllFail(t *testing.T) {
	completer := &recordingCompleter{answer: func(string) (string, error) { return "ok", nil }}
	agg := newTestAggregator(fakeHistory{}, completer, reportConfig())

	result, err := agg.Assemble(context.Background(), []string{"NOPE", "NADA"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, datasource.ErrNoDataAvailable)

	var noData *datasource.NoDataError
	require.ErrorAs(t, err, &noData)
	assert.Equal(t, []string{"NOPE", "NADA"}, noData.Tickers)
	assert.Empty(t, completer.prompts)
}

func TestAssemble_DefaultsWhenEmpty(t *testing.T) {
	history := fakeHistory{"AAPL": {148, 150}, "MSFT": {305, 300}}
	completer := &recordingCompleter{answer: func(string) (string, error) { return "ok", nil }}

	agg := newTestAggregator(history, completer, reportConfig())
	result, err := agg.Assemble(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, models.Tickers(result.PriceRecords))
}

func TestAssemble_CompletionFailureLeavesEmpty(t *testing.T) {
	history := fakeHistory{"AAPL": {148, 150}, "JPM": {50, 51}}
	completer := &recordingCompleter{answer: func(string) (string, error) {
		return "", errors.New("quota exceeded")
	}}

	agg := newTestAggregator(history, completer, reportConfig())
	result, err := agg.Assemble(context.Background(), []string{"AAPL", "JPM"})
	require.NoError(t, err)

	assert.Equal(t, "", result.MarketSummary)
	assert.Equal(t, map[string]string{"technology": "", "financial": ""}, result.SectorSummaries)
	assert.Equal(t, []string{"technology", "financial"}, result.SectorOrder)
	assert.Len(t, completer.prompts, 3)
}

func TestAssemble_ConcurrentSectorsKeepOrder(t *testing.T) {
	history := fakeHistory{"AAPL": {1, 2}, "JPM": {3, 4}, "PFE": {5, 6}}
	cfg := reportConfig()
	cfg.Sectors = []models.SectorDefinition{
		{Name: "Technology", Tickers: []string{"AAPL"}},
		{Name: "Financial", Tickers: []string{"JPM"}},
		{Name: "Healthcare", Tickers: []string{"PFE"}},
	}
	cfg.SectorConcurrency = 3

	completer := &recordingCompleter{answer: func(p string) (string, error) {
		// Earlier sectors finish last.
		switch {
		case strings.Contains(p, "Technology"):
			time.Sleep(30 * time.Millisecond)
		case strings.Contains(p, "Financial"):
			time.Sleep(15 * time.Millisecond)
		}
		return "ok", nil
	}}

	agg := newTestAggregator(history, completer, cfg)
	result, err := agg.Assemble(context.Background(), []string{"AAPL", "JPM", "PFE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"technology", "financial", "healthcare"}, result.SectorOrder)
	assert.Len(t, result.SectorSummaries, 3)
}

func TestAssemble_CompletionTimeout(t *testing.T) {
	history := fakeHistory{"AAPL": {148, 150}}
	completer := llm.FuncCompleter(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	agg := newTestAggregator(history, completer, reportConfig(), WithCompletionTimeout(10*time.Millisecond))
	result, err := agg.Assemble(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "", result.MarketSummary)
	assert.Equal(t, "", result.SectorSummaries["technology"])
}

func TestAssemble_Clock(t *testing.T) {
	fixed := time.Date(2024, 3, 15, 16, 30, 0, 0, time.UTC)
	history := fakeHistory{"AAPL": {148, 150}}
	completer := &recordingCompleter{answer: func(string) (string, error) { return "ok", nil }}

	agg := newTestAggregator(history, completer, reportConfig(), WithClock(func() time.Time { return fixed }))
	result, err := agg.Assemble(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, fixed, result.GeneratedAt)
}
