package infra

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerSpacesCalls(t *testing.T) {
	const (
		n     = 4
		delay = 40 * time.Millisecond
	)
	p := NewPacer(delay, 0)

	start := time.Now()
	for i := 0; i < n; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, time.Duration(n-1)*delay-5*time.Millisecond,
		"%d waits took %v", n, elapsed)
}

func TestPacerFirstWaitImmediate(t *testing.T) {
	p := NewPacer(time.Hour, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, p.Wait(ctx))
}

func TestPacerHonorsCancellation(t *testing.T) {
	p := NewPacer(time.Hour, 0)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, p.Wait(ctx))
}

func TestPacerConcurrentCallers(t *testing.T) {
	const delay = 30 * time.Millisecond
	p := NewPacer(delay, 0)

	var (
		mu    sync.Mutex
		times []time.Time
		wg    sync.WaitGroup
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Wait(context.Background()); err == nil {
				mu.Lock()
				times = append(times, time.Now())
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, times, 3)
	first, last := times[0], times[0]
	for _, ts := range times {
		if ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
	}
	assert.GreaterOrEqual(t, last.Sub(first), 2*delay-5*time.Millisecond)
}

func TestPacerZeroDelay(t *testing.T) {
	p := NewPacer(0, 0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, time.Duration(0), p.Delay())
}

func TestPacerJitterBounded(t *testing.T) {
	p := NewPacer(0, 10*time.Millisecond)
	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestPacerJitterKeepsMinimumSpacing(t *testing.T) {
	const (
		n      = 10
		delay  = 40 * time.Millisecond
		jitter = 35 * time.Millisecond
	)
	p := NewPacer(delay, jitter)

	returns := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		require.NoError(t, p.Wait(context.Background()))
		returns = append(returns, time.Now())
	}

	for i := 1; i < n; i++ {
		gap := returns[i].Sub(returns[i-1])
		assert.GreaterOrEqual(t, gap, delay-5*time.Millisecond,
			"waits %d and %d returned %v apart", i-1, i, gap)
	}
}

func TestPacerJitterHonorsCancellation(t *testing.T) {
	p := NewPacer(0, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.Canceled)
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(5 * time.Second)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.NotNil(t, c.Transport)
}
