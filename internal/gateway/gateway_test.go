package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"animap/internal/jikan"
)

type fakeAPI struct {
	search       func(ctx context.Context, query string, opts jikan.SearchOptions) (*jikan.SearchResponse, error)
	getAnime     func(ctx context.Context, id int64) (*jikan.Anime, error)
	getEpisode   func(ctx context.Context, id int64, number int) (*jikan.Episode, error)
	getRelations func(ctx context.Context, id int64) ([]jikan.RelationGroup, error)
}

func (f *fakeAPI) SearchAnime(ctx context.Context, query string, opts jikan.SearchOptions) (*jikan.SearchResponse, error) {
	return f.search(ctx, query, opts)
}

func (f *fakeAPI) GetAnime(ctx context.Context, id int64) (*jikan.Anime, error) {
	return f.getAnime(ctx, id)
}

func (f *fakeAPI) GetEpisode(ctx context.Context, id int64, number int) (*jikan.Episode, error) {
	return f.getEpisode(ctx, id, number)
}

func (f *fakeAPI) GetRelations(ctx context.Context, id int64) ([]jikan.RelationGroup, error) {
	return f.getRelations(ctx, id)
}

func fastConfig() Config {
	return Config{
		Windows:        []Window{{Calls: 100, Per: time.Second}},
		MaxInFlight:    4,
		RetryAttempts:  3,
		BackoffInitial: time.Millisecond,
		BackoffMax:     5 * time.Millisecond,
	}
}

func TestRateLimitRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	api := &fakeAPI{
		getAnime: func(ctx context.Context, id int64) (*jikan.Anime, error) {
			if calls.Add(1) < 4 {
				return nil, &jikan.StatusError{Op: "anime", Code: http.StatusTooManyRequests}
			}
			return &jikan.Anime{MalID: id}, nil
		},
	}
	gw := New(api, fastConfig(), nil)

	anime, err := gw.Anime(context.Background(), 7)
	if err != nil {
		t.Fatalf("Anime returned error: %v", err)
	}
	if anime.MalID != 7 {
		t.Fatalf("unexpected anime: %#v", anime)
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("expected 4 attempts, got %d", got)
	}
}

func TestTransientFailureExhaustsBudget(t *testing.T) {
	var calls atomic.Int32
	api := &fakeAPI{
		getAnime: func(ctx context.Context, id int64) (*jikan.Anime, error) {
			calls.Add(1)
			return nil, errors.New("connection reset")
		},
	}
	gw := New(api, fastConfig(), nil)

	_, err := gw.Anime(context.Background(), 7)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestNotFoundPropagatesImmediately(t *testing.T) {
	var calls atomic.Int32
	api := &fakeAPI{
		getEpisode: func(ctx context.Context, id int64, number int) (*jikan.Episode, error) {
			calls.Add(1)
			return nil, &jikan.StatusError{Op: "episode", Code: http.StatusNotFound}
		},
	}
	gw := New(api, fastConfig(), nil)

	_, err := gw.EpisodeURL(context.Background(), 7, 2)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestMostRestrictiveWindowGoverns(t *testing.T) {
	api := &fakeAPI{
		getAnime: func(ctx context.Context, id int64) (*jikan.Anime, error) {
			return &jikan.Anime{MalID: id}, nil
		},
	}
	cfg := fastConfig()
	cfg.Windows = []Window{
		{Calls: 100, Per: time.Second},
		{Calls: 1, Per: 60 * time.Millisecond},
	}
	gw := New(api, cfg, nil)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := gw.Anime(context.Background(), 1); err != nil {
			t.Fatalf("Anime returned error: %v", err)
		}
	}
	// Three calls through a 1-per-60ms window need at least two waits.
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("calls completed too quickly: %v", elapsed)
	}
}

func TestInFlightBound(t *testing.T) {
	var current, peak atomic.Int32
	release := make(chan struct{})
	api := &fakeAPI{
		getAnime: func(ctx context.Context, id int64) (*jikan.Anime, error) {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			current.Add(-1)
			return &jikan.Anime{MalID: id}, nil
		},
	}
	cfg := fastConfig()
	cfg.MaxInFlight = 2
	gw := New(api, cfg, nil)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = gw.Anime(context.Background(), 1)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := peak.Load(); got > 2 {
		t.Fatalf("in-flight bound exceeded: %d", got)
	}
}

func TestCancellationStopsBackoff(t *testing.T) {
	api := &fakeAPI{
		getAnime: func(ctx context.Context, id int64) (*jikan.Anime, error) {
			return nil, &jikan.StatusError{Op: "anime", Code: http.StatusTooManyRequests}
		},
	}
	cfg := fastConfig()
	cfg.BackoffInitial = time.Hour
	gw := New(api, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := gw.Anime(ctx, 1)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("call did not stop after cancellation")
	}
}
