// Package infra provides shared infrastructure components used across
// the application: request pacing and HTTP client construction.
package infra

import (
	"context"
	"math/rand/v2"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// --- Pacer ---

// Pacer spaces calls to one upstream so that consecutive Wait returns are at
// least delay apart. An optional random jitter is slept before taking the
// rate token, so it lengthens gaps but never shortens them. Without jitter the
// first Wait returns immediately. A Pacer is safe for concurrent use; sharing
// one across concurrent reports keeps the spacing per upstream rather than
// per report.
type Pacer struct {
	limiter *rate.Limiter
	delay   time.Duration
	jitter  time.Duration
}

// NewPacer creates a pacer. A zero delay disables spacing.
func NewPacer(delay, jitter time.Duration) *Pacer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Pacer{
		limiter: rate.NewLimiter(limit, 1),
		delay:   delay,
		jitter:  jitter,
	}
}

// Delay returns the configured minimum spacing.
func (p *Pacer) Delay() time.Duration { return p.delay }

// Wait blocks until the next call is allowed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.jitter > 0 {
		t := time.NewTimer(time.Duration(rand.Int64N(int64(p.jitter))))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return p.limiter.Wait(ctx)
}

// --- HTTP client ---

// NewHTTPClient returns a client with the given overall timeout and a
// transport tuned for a handful of upstream hosts.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConnsPerHost = 4
	tr.IdleConnTimeout = 90 * time.Second
	return &http.Client{
		Timeout:   timeout,
		Transport: tr,
	}
}
