// Package datasource fetches the raw inputs of a report: daily price history
// for tickers and headline text from configured news sources.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// --- Sentinel errors ---

// ErrTickerNotFound is returned when the upstream does not know a symbol.
var ErrTickerNotFound = errors.New("ticker not found")

// ErrEmptyHistory is returned when a symbol has no usable sessions.
var ErrEmptyHistory = errors.New("empty price history")

// ErrNoDataAvailable is returned when no requested ticker could be fetched.
var ErrNoDataAvailable = errors.New("no market data available")

// ErrSourceUnavailable marks a news source that could not be scraped.
// It is logged and never returned to callers of HeadlineScraper.
var ErrSourceUnavailable = errors.New("news source unavailable")

// NoDataError carries the tickers of a fully failed price fetch.
type NoDataError struct {
	Tickers []string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("%s for tickers %s", ErrNoDataAvailable, strings.Join(e.Tickers, ", "))
}

// Unwrap lets errors.Is match ErrNoDataAvailable.
func (e *NoDataError) Unwrap() error { return ErrNoDataAvailable }

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// doGet performs a GET request with the given URL and headers, returning the response body.
// Any non-2xx status is returned as *ErrHTTP.
// The caller is responsible for closing the returned ReadCloser.
func doGet(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	// Set default headers.
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	// Override/add custom headers.
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP GET %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, resp.StatusCode, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, resp.StatusCode, nil
}
