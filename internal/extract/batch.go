package extract

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/notewise/internal/providers"
)

// DefaultRetryDelay is the first backoff step between attempts.
const DefaultRetryDelay = time.Second

// BatchOptions controls caller-side policy for RunBatch.
type BatchOptions struct {
	// Workers bounds concurrent calls; values below 1 mean one.
	Workers int
	// Retries is how many extra attempts a retryable failure gets.
	Retries int
	// Timeout is the deadline of one source, retries included. Zero means
	// none beyond ctx.
	Timeout    time.Duration
	RetryDelay time.Duration
}

// Item is the outcome of one source in a batch. Exactly one of Result and Err
// is set.
type Item struct {
	Source   string
	Result   *Result
	Err      error
	Attempts int
}

// RunBatch extracts every source and returns one Item per source in input
// order. A failing source never affects the others.
func (e *Extractor) RunBatch(ctx context.Context, sources []Source, opts BatchOptions) []Item {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	items := make([]Item, len(sources))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			items[i] = e.runOne(ctx, src, opts)
			return nil
		})
	}
	_ = g.Wait()
	return items
}

func (e *Extractor) runOne(ctx context.Context, src Source, opts BatchOptions) Item {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}

	var attempts atomic.Int32
	result, err := retry.DoWithData(
		func() (*Result, error) {
			attempts.Add(1)
			return e.Extract(ctx, src)
		},
		retry.Context(ctx),
		retry.Attempts(uint(retries)+1),
		retry.RetryIf(IsRetryable),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			e.logger.Warn("retrying extraction", "source", src.Name, "attempt", n+1, "error", err)
		}),
	)

	// A deadline that fires between attempts surfaces as a bare context
	// error; report it as the timeout it is.
	if err != nil && ctx.Err() != nil && !errors.Is(err, providers.ErrServiceUnavailable) {
		err = &providers.ServiceError{Provider: e.client.Name(), Timeout: true, Err: err}
	}

	item := Item{Source: src.Name, Attempts: int(attempts.Load())}
	if err != nil {
		item.Err = err
		return item
	}
	if result.Source == "" {
		result.Source = src.Name
	}
	item.Result = result
	return item
}
