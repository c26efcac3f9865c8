// Package failover runs one request against an ordered list of providers,
// moving on when a provider is rate limited or keeps failing transiently.
package failover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/llm"
	"github.com/joseph-ayodele/contracts-analyzer/internal/metrics"
	"github.com/joseph-ayodele/contracts-analyzer/internal/throttle"
)

// Provider is one credential able to serve Req.
type Provider[Req, Res any] interface {
	Name() string
	Attempt(ctx context.Context, req Req) (Res, error)
}

// Func adapts a function to Provider.
type Func[Req, Res any] struct {
	ProviderName string
	Fn           func(ctx context.Context, req Req) (Res, error)
}

func (f Func[Req, Res]) Name() string { return f.ProviderName }

func (f Func[Req, Res]) Attempt(ctx context.Context, req Req) (Res, error) {
	return f.Fn(ctx, req)
}

// Options tune a Chain. Zero values are usable: no timeout, no retries, no
// cooldown store.
type Options struct {
	Capability string // label for logs and metrics, e.g. "vision" or "text"
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	Cooldown   time.Duration
	Store      throttle.Store
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Attempt records how one provider failed.
type Attempt struct {
	Provider string
	Kind     llm.FailureKind
	Err      error
}

// ExhaustedError means every provider was skipped or failed over.
type ExhaustedError struct {
	Capability string
	Attempts   []Attempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: %v: no provider available", e.Capability, common.ErrProviderExhausted)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s=%s", a.Provider, a.Kind))
	}
	return fmt.Sprintf("%s: %v (%s)", e.Capability, common.ErrProviderExhausted, strings.Join(parts, ", "))
}

func (e *ExhaustedError) Is(target error) bool {
	return target == common.ErrProviderExhausted
}

// Unwrap exposes the last provider failure.
func (e *ExhaustedError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Chain is immutable after construction and safe for concurrent use.
type Chain[Req, Res any] struct {
	providers []Provider[Req, Res]
	opts      Options
	logger    *slog.Logger
}

func New[Req, Res any](providers []Provider[Req, Res], opts Options) *Chain[Req, Res] {
	if opts.Capability == "" {
		opts.Capability = "provider"
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ps := make([]Provider[Req, Res], len(providers))
	copy(ps, providers)
	return &Chain[Req, Res]{providers: ps, opts: opts, logger: logger.With("capability", opts.Capability)}
}

// Len is the number of configured providers.
func (c *Chain[Req, Res]) Len() int {
	return len(c.providers)
}

// Run tries providers in order and returns the first success with the name of
// the provider that produced it.
//
// A rate-limited provider is paused in the cooldown store and never retried in
// this run. A transient failure is retried up to MaxRetries times before the
// chain moves on. A fatal failure is returned as is. When the run context ends
// the result of the in-flight call is discarded.
func (c *Chain[Req, Res]) Run(ctx context.Context, req Req) (Res, string, error) {
	var zero Res
	log := common.LoggerFrom(ctx, c.logger)
	exhausted := &ExhaustedError{Capability: c.opts.Capability}

	for i, p := range c.providers {
		name := p.Name()
		if err := cancelled(ctx); err != nil {
			return zero, "", err
		}
		if c.paused(ctx, name) {
			log.Debug("failover.provider.skipped", "provider", name, "reason", "cooldown")
			c.opts.Metrics.ProviderCall(c.opts.Capability, name, "skipped")
			exhausted.Attempts = append(exhausted.Attempts, Attempt{Provider: name, Kind: llm.FailureRateLimited, Err: common.ErrRateLimited})
			continue
		}

		for try := 0; ; try++ {
			start := time.Now()
			res, err := c.call(ctx, p, req)
			if cerr := cancelled(ctx); cerr != nil {
				return zero, "", cerr
			}
			if err == nil {
				c.opts.Metrics.ProviderCall(c.opts.Capability, name, "ok")
				log.Debug("failover.provider.ok", "provider", name, "try", try+1, "duration_ms", time.Since(start).Milliseconds())
				return res, name, nil
			}

			kind := llm.Classify(err)
			c.opts.Metrics.ProviderCall(c.opts.Capability, name, kind.String())

			if kind == llm.FailureFatal {
				log.Warn("failover.provider.fatal", "provider", name, "error", err)
				return zero, name, err
			}
			if kind == llm.FailureRateLimited {
				log.Warn("failover.provider.rate_limited", "provider", name, "cooldown", c.opts.Cooldown, "error", err)
				c.pause(ctx, name)
				exhausted.Attempts = append(exhausted.Attempts, Attempt{Provider: name, Kind: kind, Err: err})
				break
			}
			if try >= c.opts.MaxRetries {
				log.Warn("failover.provider.failed", "provider", name, "tries", try+1, "error", err)
				exhausted.Attempts = append(exhausted.Attempts, Attempt{Provider: name, Kind: kind, Err: err})
				break
			}
			log.Info("failover.provider.retry", "provider", name, "try", try+1, "error", err)
			if werr := c.wait(ctx, try); werr != nil {
				return zero, "", werr
			}
		}

		if i < len(c.providers)-1 {
			c.opts.Metrics.Failover(c.opts.Capability)
		}
	}

	log.Warn("failover.exhausted", "attempts", len(exhausted.Attempts))
	return zero, "", exhausted
}

// call runs p detached from run cancellation and bounded by Timeout. Run
// discards the result when the run context has ended.
func (c *Chain[Req, Res]) call(ctx context.Context, p Provider[Req, Res], req Req) (Res, error) {
	callCtx := context.WithoutCancel(ctx)
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, c.opts.Timeout)
		defer cancel()
	}
	res, err := p.Attempt(callCtx, req)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = llm.NewProviderError(p.Name(), llm.FailureTransient, 0, err)
	}
	return res, err
}

// cooldownKey scopes a credential's cooldown to this chain's capability, so a
// vision rate limit does not pause the text model of the same provider.
func (c *Chain[Req, Res]) cooldownKey(name string) string {
	return c.opts.Capability + ":" + name
}

func (c *Chain[Req, Res]) paused(ctx context.Context, name string) bool {
	if c.opts.Store == nil {
		return false
	}
	paused, err := c.opts.Store.Paused(ctx, c.cooldownKey(name))
	if err != nil {
		c.logger.Warn("failover.cooldown.lookup_failed", "provider", name, "error", err)
		return false
	}
	return paused
}

func (c *Chain[Req, Res]) pause(ctx context.Context, name string) {
	if c.opts.Store == nil || c.opts.Cooldown <= 0 {
		return
	}
	if err := c.opts.Store.Pause(context.WithoutCancel(ctx), c.cooldownKey(name), c.opts.Cooldown); err != nil {
		c.logger.Warn("failover.cooldown.pause_failed", "provider", name, "error", err)
	}
}

// wait sleeps a linear backoff between retries of the same provider.
func (c *Chain[Req, Res]) wait(ctx context.Context, try int) error {
	if c.opts.Backoff <= 0 {
		return nil
	}
	t := time.NewTimer(c.opts.Backoff * time.Duration(try+1))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return cancelled(ctx)
	case <-t.C:
		return nil
	}
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(common.ErrCancelled, err)
	}
	return nil
}
