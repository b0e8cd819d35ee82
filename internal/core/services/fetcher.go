package services

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
	"github.com/custodia-labs/chronicle/internal/logger"
)

// FetchStop explains why pagination of a container ended.
type FetchStop string

// Reasons a fetch stops.
const (
	// FetchExhausted means an empty page was returned: the history is complete.
	FetchExhausted FetchStop = "exhausted"

	// FetchLimitReached means maxItems was collected.
	FetchLimitReached FetchStop = "limit"

	// FetchCancelled means cancellation was observed before the next page.
	FetchCancelled FetchStop = "cancelled"

	// FetchForbidden means the container is not readable by this account.
	FetchForbidden FetchStop = "forbidden"

	// FetchFailed means any other non-success response ended pagination.
	FetchFailed FetchStop = "failed"
)

// Skipped reports whether the container ended on an error response.
func (s FetchStop) Skipped() bool {
	return s == FetchForbidden || s == FetchFailed
}

// FetchResult is the outcome of paginating one container.
// Items is always usable, even when Stop is FetchForbidden or FetchFailed.
type FetchResult struct {
	Items []domain.Item
	Pages int
	Stop  FetchStop

	// Err is the response that ended pagination, for forbidden and failed stops.
	Err error
}

// FetcherConfig holds pagination pacing.
type FetcherConfig struct {
	// PageSize is the number of items requested per page.
	PageSize int

	// PageDelay is the fixed pause after every successful page.
	PageDelay time.Duration

	// CooldownMargin is added to every server-provided cool-down.
	CooldownMargin time.Duration

	// DefaultCooldown is used when a rate limit carries no duration.
	DefaultCooldown time.Duration

	// RequestsPerSecond is a proactive ceiling across all requests.
	// Zero disables it.
	RequestsPerSecond int
}

// FetcherConfigFrom converts settings into fetcher pacing.
func FetcherConfigFrom(f domain.FetchSettings) FetcherConfig {
	return FetcherConfig{
		PageSize:          f.PageSize,
		PageDelay:         f.PageDelay(),
		CooldownMargin:    f.CooldownMargin(),
		DefaultCooldown:   f.DefaultCooldown(),
		RequestsPerSecond: f.RequestsPerSecond,
	}
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the default SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fetcher walks a container's history backward in time, one page at a time.
//
// Rate limits are handled in two layers:
//   - Proactive: a token bucket keeps the request rate under the global ceiling
//   - Reactive: a rate limit response suspends for the server cool-down plus
//     a margin, then repeats the same page request
type Fetcher struct {
	source  driven.MessageSource
	cfg     FetcherConfig
	bucket  *rate.Limiter
	metrics driven.PipelineMetrics
	sleep   SleepFunc
}

// NewFetcher creates a fetcher. A nil sleep uses SleepContext and nil
// metrics discard counters.
func NewFetcher(source driven.MessageSource, cfg FetcherConfig, metrics driven.PipelineMetrics, sleep SleepFunc) *Fetcher {
	if cfg.PageSize <= 0 {
		cfg.PageSize = domain.DefaultAppSettings().Fetch.PageSize
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	if sleep == nil {
		sleep = SleepContext
	}
	return &Fetcher{
		source:  source,
		cfg:     cfg,
		bucket:  rate.NewLimiter(limit, 1),
		metrics: metrics,
		sleep:   sleep,
	}
}

// Fetch returns the container's items, newest first and oldest last.
//
// maxItems of zero means unbounded. cancelled is checked before every
// page request, so a request already in flight is allowed to finish.
// Fetch never returns an error: forbidden and failed responses end
// pagination and are reported in the result alongside what was collected.
func (f *Fetcher) Fetch(
	ctx context.Context,
	containerID, token string,
	maxItems int,
	cancelled func() bool,
) FetchResult {
	var res FetchResult
	before := ""

	for {
		if (cancelled != nil && cancelled()) || ctx.Err() != nil {
			res.Stop = FetchCancelled
			return res
		}

		limit := f.cfg.PageSize
		if maxItems > 0 && maxItems-len(res.Items) < limit {
			limit = maxItems - len(res.Items)
		}

		if err := f.bucket.Wait(ctx); err != nil {
			res.Stop = FetchCancelled
			return res
		}

		page, err := f.source.ListMessages(ctx, token, containerID, before, limit)
		if err != nil {
			if domain.IsRateLimited(err) {
				wait, ok := domain.RetryAfter(err)
				if !ok {
					wait = f.cfg.DefaultCooldown
				}
				wait += f.cfg.CooldownMargin
				logger.Warn("rate limited on channel %s, waiting %s", containerID, wait)
				f.metrics.RateLimited(wait)
				if err := f.sleep(ctx, wait); err != nil {
					res.Stop = FetchCancelled
					return res
				}
				continue
			}
			if ctx.Err() != nil {
				res.Stop = FetchCancelled
				return res
			}
			res.Err = err
			if domain.IsForbidden(err) {
				logger.Debug("channel %s is not readable, keeping %d items", containerID, len(res.Items))
				res.Stop = FetchForbidden
				return res
			}
			logger.Warn("fetch channel %s stopped after %d items: %v", containerID, len(res.Items), err)
			res.Stop = FetchFailed
			return res
		}

		if len(page) == 0 {
			res.Stop = FetchExhausted
			return res
		}

		res.Items = append(res.Items, page...)
		res.Pages++
		f.metrics.PageFetched(len(page))
		before = page[len(page)-1].ID
		logger.Debug("channel %s page %d: %d items (total %d)", containerID, res.Pages, len(page), len(res.Items))

		if maxItems > 0 && len(res.Items) >= maxItems {
			res.Items = res.Items[:maxItems]
			res.Stop = FetchLimitReached
			return res
		}

		if err := f.sleep(ctx, f.cfg.PageDelay); err != nil {
			res.Stop = FetchCancelled
			return res
		}
	}
}
