package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"animap/internal/jikan"
)

// Window describes one rate window: at most Calls requests per Per.
type Window struct {
	Calls int
	Per   time.Duration
}

// Config controls throttling and retry behavior.
type Config struct {
	Windows        []Window
	MaxInFlight    int64
	RetryAttempts  int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// DefaultWindows mirrors the public Jikan budget: a minimum gap between any
// two calls plus short- and medium-window ceilings. The effective rate is the
// most restrictive window.
func DefaultWindows() []Window {
	return []Window{
		{Calls: 1, Per: 300 * time.Millisecond},
		{Calls: 3, Per: time.Second},
		{Calls: 4, Per: 4 * time.Second},
	}
}

func (c Config) withDefaults() Config {
	if len(c.Windows) == 0 {
		c.Windows = DefaultWindows()
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 10
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 5
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 60 * time.Second
	}
	return c
}

// Gateway mediates all catalog API access. All limiter and in-flight state is
// owned by the Gateway value; one Gateway is shared by every worker of a run.
type Gateway struct {
	api      jikan.API
	cfg      Config
	limiters []*rate.Limiter
	inFlight *semaphore.Weighted
	logger   *slog.Logger
}

// New builds a Gateway around the supplied catalog client.
func New(api jikan.API, cfg Config, logger *slog.Logger) *Gateway {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	limiters := make([]*rate.Limiter, 0, len(cfg.Windows))
	for _, w := range cfg.Windows {
		limit := rate.Limit(float64(w.Calls) / w.Per.Seconds())
		limiters = append(limiters, rate.NewLimiter(limit, w.Calls))
	}
	return &Gateway{
		api:      api,
		cfg:      cfg,
		limiters: limiters,
		inFlight: semaphore.NewWeighted(cfg.MaxInFlight),
		logger:   logger.With("component", "gateway"),
	}
}

// Search runs a throttled catalog search.
func (g *Gateway) Search(ctx context.Context, query string, opts jikan.SearchOptions) (*jikan.SearchResponse, error) {
	var out *jikan.SearchResponse
	err := g.do(ctx, "search", func(ctx context.Context) error {
		resp, err := g.api.SearchAnime(ctx, query, opts)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	return out, err
}

// Anime fetches one entry by id.
func (g *Gateway) Anime(ctx context.Context, id int64) (*jikan.Anime, error) {
	var out *jikan.Anime
	err := g.do(ctx, "anime", func(ctx context.Context) error {
		resp, err := g.api.GetAnime(ctx, id)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	return out, err
}

// EpisodeURL fetches the URL of one numbered episode page.
func (g *Gateway) EpisodeURL(ctx context.Context, id int64, number int) (string, error) {
	var out string
	err := g.do(ctx, "episode", func(ctx context.Context) error {
		resp, err := g.api.GetEpisode(ctx, id, number)
		if err != nil {
			return err
		}
		out = resp.URL
		return nil
	})
	return out, err
}

// Relations fetches an entry's declared relation groups.
func (g *Gateway) Relations(ctx context.Context, id int64) ([]jikan.RelationGroup, error) {
	var out []jikan.RelationGroup
	err := g.do(ctx, "relations", func(ctx context.Context) error {
		resp, err := g.api.GetRelations(ctx, id)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	return out, err
}

// do acquires a slot in every rate window, bounds in-flight concurrency, and
// applies the retry schedule. Each caller sleeps only on its own turn; limiter
// reservations are the sole cross-worker synchronization point.
func (g *Gateway) do(ctx context.Context, op string, fn func(context.Context) error) error {
	delay := g.cfg.BackoffInitial
	transientAttempts := 0
	rateLimitAttempts := 0

	for {
		if err := g.waitTurn(ctx); err != nil {
			return err
		}
		err := g.invoke(ctx, fn)
		if err == nil {
			return nil
		}

		switch classify(err) {
		case kindCanceled:
			return err
		case kindNotFound:
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		case kindRateLimited:
			rateLimitAttempts++
			g.logger.Warn("rate limited, backing off",
				"operation", op,
				"attempt", rateLimitAttempts,
				"delay", delay)
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			delay = nextDelay(delay, g.cfg.BackoffMax)
		default:
			transientAttempts++
			if transientAttempts >= g.cfg.RetryAttempts {
				return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
			}
			g.logger.Warn("transient failure, retrying",
				"operation", op,
				"attempt", transientAttempts,
				"delay", delay,
				"error", err)
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			delay = nextDelay(delay, g.cfg.BackoffMax)
		}
	}
}

func (g *Gateway) waitTurn(ctx context.Context) error {
	for _, limiter := range g.limiters {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gateway) invoke(ctx context.Context, fn func(context.Context) error) error {
	if err := g.inFlight.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.inFlight.Release(1)
	return fn(ctx)
}

func nextDelay(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
