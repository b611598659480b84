package download

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/tiledl/internal/cache"
	"github.com/handiism/tiledl/internal/model"
	"github.com/handiism/tiledl/internal/tile"
)

// State is the lifecycle state of a Manager run.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Progress is a snapshot of a run's counters.
type Progress struct {
	Total      int
	Downloaded int
	Cached     int
	Failed     int
}

// Done returns the number of tiles resolved so far.
func (p Progress) Done() int {
	return p.Downloaded + p.Cached
}

// Manager drives the download of a tile list for one style.
//
// Tiles are split into batches of Options.BatchSize. Each batch runs on a
// pool of Options.Concurrency workers and must finish before the next batch
// starts. Tiles that fail are collected and re-run in up to
// Options.RetryPasses further passes. Individual failures never abort the
// run: it ends either by draining the list (EventCompleted) or by
// cancellation of ctx (EventCancelled).
type Manager struct {
	jobID   string
	fetcher *Fetcher
	opts    Options
	log     zerolog.Logger

	onEvent func(Event)

	state      atomic.Int32
	total      atomic.Int64
	downloaded atomic.Int64
	cached     atomic.Int64
	failed     atomic.Int64
}

// NewManager creates a Manager for style writing into store. onEvent receives
// every event of the run and may be nil; it is called from worker goroutines
// and must be safe for concurrent use.
func NewManager(jobID string, style model.Style, store *cache.Store, opts Options, onEvent func(Event)) *Manager {
	opts = opts.withDefaults()
	m := &Manager{
		jobID:   jobID,
		opts:    opts,
		onEvent: onEvent,
		log:     opts.Logger.With().Str("job", jobID).Str("style", style.Name).Logger(),
	}
	m.fetcher = NewFetcher(style, store, opts, m.emit)
	return m
}

// Run downloads tiles and returns nil on completion or ctx.Err() when
// cancelled. A Manager runs once; its counters describe that run.
func (m *Manager) Run(ctx context.Context, tiles []tile.Tile) error {
	m.state.Store(int32(StateRunning))
	m.total.Store(int64(len(tiles)))
	m.emit(Event{Type: EventStarted, Total: len(tiles)})
	m.log.Info().Int("tiles", len(tiles)).Msg("Download started")

	pending := tiles
	for pass := 0; len(pending) > 0; pass++ {
		failed := m.runPass(ctx, pending, pass > 0)
		if ctx.Err() != nil {
			return m.cancelled(ctx)
		}
		if len(failed) == 0 || pass >= m.opts.RetryPasses {
			break
		}

		delay := m.opts.passBackoff(pass)
		m.log.Info().
			Int("failed", len(failed)).
			Int("pass", pass+1).
			Dur("delay", delay).
			Msg("Retrying failed tiles")
		if !m.fetcher.sleep(ctx, delay) {
			return m.cancelled(ctx)
		}
		pending = failed
	}

	m.state.Store(int32(StateCompleted))
	p := m.Progress()
	m.log.Info().
		Int("downloaded", p.Downloaded).
		Int("cached", p.Cached).
		Int("failed", p.Failed).
		Msg("Download completed")
	m.emit(Event{Type: EventCompleted})
	return nil
}

// runPass fetches tiles batch by batch and returns the tiles that failed.
// It stops issuing batches once ctx is done. A worker panic is re-raised on
// the calling goroutine once its batch has drained.
func (m *Manager) runPass(ctx context.Context, tiles []tile.Tile, retry bool) []tile.Tile {
	var (
		mu       sync.Mutex
		failed   []tile.Tile
		panicked any
	)

	for start := 0; start < len(tiles); start += m.opts.BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+m.opts.BatchSize, len(tiles))

		var g errgroup.Group
		g.SetLimit(m.opts.Concurrency)
		for _, t := range tiles[start:end] {
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						mu.Lock()
						if panicked == nil {
							panicked = r
						}
						mu.Unlock()
					}
				}()
				out := m.fetcher.Fetch(ctx, t)
				m.count(out, retry)
				if out == OutcomeFailed {
					mu.Lock()
					failed = append(failed, t)
					mu.Unlock()
				}
				return nil
			})
		}
		g.Wait()
		if panicked != nil {
			panic(panicked)
		}
	}

	return failed
}

// count updates the counters. Tiles re-run in a retry pass were already
// counted as failed once.
func (m *Manager) count(out Outcome, retry bool) {
	switch out {
	case OutcomeDownloaded:
		m.downloaded.Add(1)
	case OutcomeCached:
		m.cached.Add(1)
	case OutcomeFailed:
		if retry {
			return
		}
		m.failed.Add(1)
		return
	default:
		return
	}
	if retry {
		m.failed.Add(-1)
	}
}

func (m *Manager) cancelled(ctx context.Context) error {
	m.state.Store(int32(StateCancelled))
	m.log.Info().Msg("Download cancelled")
	m.emit(Event{Type: EventCancelled})
	return ctx.Err()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Progress returns current download progress.
func (m *Manager) Progress() Progress {
	return Progress{
		Total:      int(m.total.Load()),
		Downloaded: int(m.downloaded.Load()),
		Cached:     int(m.cached.Load()),
		Failed:     int(m.failed.Load()),
	}
}

func (m *Manager) emit(e Event) {
	if m.onEvent == nil {
		return
	}
	e.JobID = m.jobID
	m.onEvent(e)
}
