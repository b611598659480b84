package download

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/handiism/tiledl/internal/cache"
	"github.com/handiism/tiledl/internal/http"
	ioutils "github.com/handiism/tiledl/internal/io"
	"github.com/handiism/tiledl/internal/model"
	"github.com/handiism/tiledl/internal/tile"
)

// Outcome is the result of fetching one tile.
type Outcome int

const (
	// OutcomeCancelled means the context ended before or during the fetch.
	// It is neither a success nor a countable failure.
	OutcomeCancelled Outcome = iota
	// OutcomeCached means the tile was already on disk; nothing was fetched.
	OutcomeCached
	// OutcomeDownloaded means the tile was fetched and cached.
	OutcomeDownloaded
	// OutcomeFailed means every attempt failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCached:
		return "cached"
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeFailed:
		return "failed"
	default:
		return "cancelled"
	}
}

// sleepFunc waits for d and reports false if ctx ended first.
type sleepFunc func(ctx context.Context, d time.Duration) bool

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// globalSource draws from the goroutine-safe math/rand top-level source.
type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.Intn(n) }

// lockedSource serializes access to a caller supplied source.
type lockedSource struct {
	mu  sync.Mutex
	src model.IntSource
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

// Fetcher retrieves single tiles for one style.
//
// A fetch short-circuits on the cache, then retries the request up to
// Options.MaxRetries times with exponential backoff. Fetchers are safe for
// concurrent use.
type Fetcher struct {
	style  model.Style
	store  *cache.Store
	client *http.Client
	images *ioutils.ImageService
	opts   Options
	rnd    model.IntSource
	emit   func(Event)
	sleep  sleepFunc
	log    zerolog.Logger
}

// NewFetcher creates a Fetcher. onEvent receives skipped, downloaded and
// failed notifications and may be nil.
func NewFetcher(style model.Style, store *cache.Store, opts Options, onEvent func(Event)) *Fetcher {
	opts = opts.withDefaults()

	var rnd model.IntSource = globalSource{}
	if opts.Rand != nil {
		rnd = &lockedSource{src: opts.Rand}
	}
	if onEvent == nil {
		onEvent = func(Event) {}
	}

	return &Fetcher{
		style:  style,
		store:  store,
		client: http.NewClient(opts.HTTP),
		images: ioutils.NewImageService(),
		opts:   opts,
		rnd:    rnd,
		emit:   onEvent,
		sleep:  sleepCtx,
		log:    opts.Logger.With().Str("style", style.Name).Logger(),
	}
}

// Fetch retrieves one tile.
//
//  1. A cancelled context returns OutcomeCancelled without any event.
//  2. A cached tile emits EventTileSkipped and returns OutcomeCached without
//     network activity.
//  3. Otherwise up to MaxRetries GETs are made; only 200 counts as success.
//     Attempt i failing waits 2^i backoff units before the next one.
//  4. On success the tile is optionally palette-reduced, written to the
//     cache, EventTileDownloaded is emitted and OutcomeDownloaded returned.
//  5. When attempts run out EventTileFailed is emitted and OutcomeFailed
//     returned. Cancellation while retrying returns OutcomeCancelled.
func (f *Fetcher) Fetch(ctx context.Context, t tile.Tile) Outcome {
	if ctx.Err() != nil {
		return OutcomeCancelled
	}

	if f.store.Exists(f.style.Name, t) {
		f.emit(Event{Type: EventTileSkipped, Tile: t, BBox: t.BBox()})
		return OutcomeCached
	}

	url := f.style.TileURL(t, f.rnd)

	for attempt := 0; attempt < f.opts.MaxRetries; attempt++ {
		err := f.attempt(ctx, t, url)
		if err == nil {
			f.emit(Event{Type: EventTileDownloaded, Tile: t, BBox: t.BBox()})
			return OutcomeDownloaded
		}
		if ctx.Err() != nil {
			return OutcomeCancelled
		}

		f.log.Debug().
			Str("tile", t.String()).
			Int("attempt", attempt+1).
			Int("max_attempts", f.opts.MaxRetries).
			Err(err).
			Msg("Tile attempt failed")

		if attempt+1 < f.opts.MaxRetries {
			if !f.sleep(ctx, f.opts.attemptBackoff(attempt)) {
				return OutcomeCancelled
			}
		}
	}

	f.log.Warn().Str("tile", t.String()).Msg("Tile failed")
	f.emit(Event{Type: EventTileFailed, Tile: t})
	return OutcomeFailed
}

// attempt performs one request and, on success, stores the tile.
func (f *Fetcher) attempt(ctx context.Context, t tile.Tile, url string) error {
	data, err := f.client.Get(ctx, url)
	if err != nil {
		return err
	}

	if f.opts.ReduceColors {
		reduced, changed, err := f.images.ReducePalette(ctx, data)
		switch {
		case err != nil && ctx.Err() != nil:
			return err
		case err != nil:
			// Keep the original bytes; an undecodable tile is still a tile.
			f.log.Warn().Str("tile", t.String()).Err(err).Msg("Palette reduction failed")
		case changed:
			data = reduced
		}
	}

	_, err = f.store.Write(f.style.Name, t, data)
	return err
}
