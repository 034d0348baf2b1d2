package report

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/marketbrief/internal/config"
	"github.com/seenimoa/marketbrief/internal/llm"
	"github.com/seenimoa/marketbrief/internal/prompts"
	"github.com/seenimoa/marketbrief/pkg/models"
)

// PriceSource returns one record per fetchable ticker. An empty ticker list
// means the configured defaults.
type PriceSource interface {
	Fetch(ctx context.Context, tickers []string) ([]models.PriceRecord, error)
}

// HeadlineSource scrapes every configured news source.
type HeadlineSource interface {
	ScrapeAll(ctx context.Context, sources []models.NewsSource) map[string][]string
}

// Aggregator runs the report pipeline: prices, headlines, market narrative,
// then one narrative per sector that has fetched members.
type Aggregator struct {
	prices      PriceSource
	news        HeadlineSource
	completer   llm.Completer
	prompts     prompts.Builder
	sources     []models.NewsSource
	sectors     []models.SectorDefinition
	concurrency int
	timeout     time.Duration
	now         func() time.Time
	logger      arbor.ILogger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithCompletionTimeout bounds each completion call made by the aggregator.
func WithCompletionTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) { a.timeout = d }
}

// WithSectorConcurrency sets how many sector completions may run at once.
func WithSectorConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithClock overrides the time source used for GeneratedAt.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator wires the pipeline collaborators with the report section of
// the configuration.
func NewAggregator(prices PriceSource, news HeadlineSource, completer llm.Completer,
	cfg config.ReportConfig, logger arbor.ILogger, opts ...AggregatorOption) *Aggregator {

	a := &Aggregator{
		prices:      prices,
		news:        news,
		completer:   completer,
		prompts:     prompts.NewBuilder(cfg.Language),
		sources:     cfg.NewsSources,
		sectors:     cfg.Sectors,
		concurrency: cfg.SectorConcurrency,
		now:         time.Now,
		logger:      logger,
	}
	if a.concurrency < 1 {
		a.concurrency = 1
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds a report for the requested tickers. Only a total price
// failure (datasource.ErrNoDataAvailable) aborts; headline and completion
// failures degrade to empty values.
func (a *Aggregator) Assemble(ctx context.Context, tickers []string) (*models.ReportResult, error) {
	id := uuid.New().String()
	start := time.Now()

	records, err := a.prices.Fetch(ctx, tickers)
	if err != nil {
		a.logger.Error().Str("report_id", id).Err(err).Msg("Price fetch failed")
		return nil, err
	}

	headlines := a.news.ScrapeAll(ctx, a.sources)

	result := &models.ReportResult{
		ID:              id,
		GeneratedAt:     a.now(),
		PriceRecords:    records,
		SectorSummaries: make(map[string]string),
		SectorTitles:    make(map[string]string),
		Headlines:       headlines,
	}

	result.MarketSummary = a.complete(ctx, id, "market",
		a.prompts.Market(records, headlines, sourceNames(a.sources)))

	a.assembleSectors(ctx, result)

	a.logger.Info().
		Str("report_id", id).
		Int("records", len(records)).
		Int("sectors", len(result.SectorSummaries)).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("Report assembled")

	return result, nil
}

// assembleSectors fills SectorSummaries for every sector that intersects the
// fetched records. SectorOrder follows the sector table regardless of the
// order in which completions finish.
func (a *Aggregator) assembleSectors(ctx context.Context, result *models.ReportResult) {
	var mu sync.Mutex
	g := &errgroup.Group{}
	g.SetLimit(a.concurrency)

	for _, sector := range a.sectors {
		members := sector.Members(result.PriceRecords)
		if len(members) == 0 {
			continue
		}

		key := models.SectorKey(sector.Name)
		result.SectorOrder = append(result.SectorOrder, key)
		result.SectorTitles[key] = sector.Name

		prompt := a.prompts.Sector(sector.Name, members)
		name := sector.Name
		g.Go(func() error {
			summary := a.complete(ctx, result.ID, name, prompt)
			mu.Lock()
			result.SectorSummaries[key] = summary
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
}

// complete returns the narrative for prompt, or "" on failure.
func (a *Aggregator) complete(ctx context.Context, reportID, label, prompt string) string {
	if a.completer == nil {
		return ""
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	text, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		a.logger.Warn().
			Str("report_id", reportID).
			Str("section", label).
			Err(err).
			Msg("Completion failed, leaving section empty")
		return ""
	}
	return text
}

func sourceNames(sources []models.NewsSource) []string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name)
	}
	return names
}
