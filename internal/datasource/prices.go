package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/seenimoa/marketbrief/internal/infra"
	"github.com/seenimoa/marketbrief/pkg/models"
	"github.com/seenimoa/marketbrief/pkg/utils"
)

// FetchOutcome is the per-ticker result of a price fetch: either a record or
// the reason the ticker was skipped.
type FetchOutcome struct {
	Ticker string
	Record models.PriceRecord
	Err    error
}

// OK reports whether the ticker produced a record.
func (o FetchOutcome) OK() bool { return o.Err == nil }

// PriceFetcher turns tickers into price delta records. Calls to the history
// source are spaced by the pacer, one ticker at a time.
type PriceFetcher struct {
	source   HistorySource
	pacer    *infra.Pacer
	defaults []string
	timeout  time.Duration
	logger   arbor.ILogger
}

// NewPriceFetcher creates a fetcher. defaults replace an empty request;
// timeout bounds each ticker's history call (0 = caller's context only).
func NewPriceFetcher(source HistorySource, pacer *infra.Pacer, defaults []string, timeout time.Duration, logger arbor.ILogger) *PriceFetcher {
	return &PriceFetcher{
		source:   source,
		pacer:    pacer,
		defaults: append([]string(nil), defaults...),
		timeout:  timeout,
		logger:   logger,
	}
}

// Defaults returns the fallback ticker list.
func (f *PriceFetcher) Defaults() []string {
	return append([]string(nil), f.defaults...)
}

// Fetch returns one record per fetchable ticker, in request order. Tickers
// that fail are logged and omitted. If none succeed the error is a
// *NoDataError carrying the requested tickers.
func (f *PriceFetcher) Fetch(ctx context.Context, tickers []string) ([]models.PriceRecord, error) {
	if len(tickers) == 0 {
		tickers = f.Defaults()
	}

	outcomes := f.FetchOutcomes(ctx, tickers)
	records := make([]models.PriceRecord, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			records = append(records, o.Record)
		}
	}

	if len(records) == 0 {
		return nil, &NoDataError{Tickers: append([]string(nil), tickers...)}
	}
	return records, nil
}

// FetchOutcomes fetches every ticker sequentially and reports each result.
// If ctx ends mid-batch the remaining tickers are marked with ctx's error and
// outcomes gathered so far are kept.
func (f *PriceFetcher) FetchOutcomes(ctx context.Context, tickers []string) []FetchOutcome {
	outcomes := make([]FetchOutcome, 0, len(tickers))

	for i, ticker := range tickers {
		if err := f.pacer.Wait(ctx); err != nil {
			for _, rest := range tickers[i:] {
				outcomes = append(outcomes, FetchOutcome{Ticker: rest, Err: err})
			}
			f.logger.Warn().Err(err).Int("skipped", len(tickers)-i).Msg("Price fetch interrupted")
			break
		}

		record, err := f.fetchOne(ctx, ticker)
		if err != nil {
			f.logger.Warn().Str("ticker", ticker).Err(err).Msg("Skipping ticker")
			outcomes = append(outcomes, FetchOutcome{Ticker: ticker, Err: err})
			continue
		}

		f.logger.Debug().
			Str("ticker", ticker).
			Str("last_close", utils.FormatPrice(record.LastClose)).
			Str("change", utils.FormatPct(record.PercentChange)).
			Msg("Fetched price")
		outcomes = append(outcomes, FetchOutcome{Ticker: ticker, Record: record})
	}

	return outcomes
}

func (f *PriceFetcher) fetchOne(ctx context.Context, ticker string) (models.PriceRecord, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	sessions, err := f.source.History(ctx, ticker)
	if err != nil {
		return models.PriceRecord{}, err
	}
	return RecordFromSessions(ticker, sessions)
}

// RecordFromSessions builds a record from a daily history. The last session
// gives the price; the prior session's close is the reference, or the last
// session's open when only one session exists.
func RecordFromSessions(ticker string, sessions []models.Session) (models.PriceRecord, error) {
	if len(sessions) == 0 {
		return models.PriceRecord{}, fmt.Errorf("%w: %s", ErrEmptyHistory, ticker)
	}

	last := sessions[len(sessions)-1]
	ref := last.Open
	if len(sessions) >= 2 {
		ref = sessions[len(sessions)-2].Close
	}
	if ref == 0 {
		return models.PriceRecord{}, fmt.Errorf("%s: %w", ticker, errZeroReference)
	}

	return models.NewPriceRecord(ticker, last.Close, ref), nil
}

var errZeroReference = errors.New("reference price is zero")
