package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seenimoa/marketbrief/internal/config"
	"github.com/seenimoa/marketbrief/pkg/models"
)

// HistorySource returns the trailing daily sessions for one ticker, oldest first.
type HistorySource interface {
	History(ctx context.Context, ticker string) ([]models.Session, error)
}

// YFinance reads daily history from the Yahoo Finance v8 chart API.
type YFinance struct {
	client   *http.Client
	baseURL  string
	rng      string
	interval string
}

// NewYFinance creates a chart client from the price settings.
func NewYFinance(client *http.Client, cfg config.PricesConfig) *YFinance {
	return &YFinance{
		client:   client,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		rng:      cfg.Range,
		interval: cfg.Interval,
	}
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance v8 API types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

type yfIndicators struct {
	Quote []yfOHLCV `json:"quote"`
}

type yfOHLCV struct {
	Open  []*float64 `json:"open"`
	Close []*float64 `json:"close"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// History returns the daily sessions for ticker within the configured range.
func (y *YFinance) History(ctx context.Context, ticker string) ([]models.Session, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
		y.baseURL, url.PathEscape(ticker), url.QueryEscape(y.rng), url.QueryEscape(y.interval))

	body, status, err := doGet(ctx, y.client, u, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		if status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
		}
		return nil, fmt.Errorf("yfinance chart %s: %w", ticker, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp yfChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse yfinance chart: %w", err)
	}

	if resp.Chart.Error != nil {
		if strings.EqualFold(resp.Chart.Error.Code, "Not Found") {
			return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
		}
		return nil, fmt.Errorf("yfinance chart error: %s", resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
	}

	sessions := parseYFSessions(resp.Chart.Result[0])
	if len(sessions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyHistory, ticker)
	}
	return sessions, nil
}

// parseYFSessions keeps sessions that have a close. Yahoo emits nulls for
// halted days and for the partial bar of a session in progress.
func parseYFSessions(result yfChartResult) []models.Session {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	q := result.Indicators.Quote[0]
	sessions := make([]models.Session, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		s := models.Session{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *q.Close[i],
		}
		if i < len(q.Open) && q.Open[i] != nil {
			s.Open = *q.Open[i]
		}
		sessions = append(sessions, s)
	}
	return sessions
}
