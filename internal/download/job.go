package download

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/handiism/tiledl/internal/cache"
	"github.com/handiism/tiledl/internal/model"
	"github.com/handiism/tiledl/internal/region"
	"github.com/handiism/tiledl/internal/tile"
)

var (
	// ErrNoTiles is returned when a region intersects no tile.
	ErrNoTiles = errors.New("download: region covers no tiles")

	// ErrInternal wraps unexpected faults caught at the job boundary.
	ErrInternal = errors.New("download: internal error")

	// ErrStyleMismatch is returned when the request names a different style
	// than the one the job was built with.
	ErrStyleMismatch = errors.New("download: request and job style differ")
)

// Job is one download request bound to its resolved style and cache.
//
// Each Job owns its cancellation through the context passed to Run, so
// several jobs can run side by side without cancelling each other.
type Job struct {
	ID      string
	Request model.Request
	Style   model.Style

	store   *cache.Store
	planner *region.Planner
	opts    Options

	mu      sync.Mutex
	manager *Manager
}

// NewJob creates a job with a fresh ID. The request's ReduceColors flag
// overrides opts.ReduceColors.
func NewJob(req model.Request, style model.Style, store *cache.Store, opts Options) *Job {
	opts.ReduceColors = req.ReduceColors
	return &Job{
		ID:      uuid.NewString(),
		Request: req,
		Style:   style,
		store:   store,
		planner: region.NewPlanner(),
		opts:    opts,
	}
}

// Plan validates the request and returns the ordered tile list.
func (j *Job) Plan() ([]tile.Tile, error) {
	if err := j.Request.Validate(); err != nil {
		return nil, err
	}
	if err := j.Style.Validate(); err != nil {
		return nil, err
	}
	if j.Request.Style != j.Style.Name {
		return nil, fmt.Errorf("%w: %q vs %q", ErrStyleMismatch, j.Request.Style, j.Style.Name)
	}
	return j.planner.Plan(j.Request.Region, j.Request.MinZoom, j.Request.MaxZoom)
}

// Run plans and downloads the job, reporting to onEvent.
//
// Invalid input and empty plans return an error before any event. Geometry
// faults and panics are reported as a single EventError and returned
// wrapped in ErrInternal. Cancellation returns ctx.Err() after
// EventCancelled.
func (j *Job) Run(ctx context.Context, onEvent func(Event)) (err error) {
	emit := func(e Event) {
		if onEvent != nil {
			e.JobID = j.ID
			onEvent(e)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInternal, r)
			emit(Event{Type: EventError, Message: "An error occurred while processing your request"})
		}
	}()

	tiles, err := j.Plan()
	if errors.Is(err, region.ErrGeometry) {
		emit(Event{Type: EventError, Message: "An error occurred while processing your request"})
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}
	if err != nil {
		return err
	}
	if len(tiles) == 0 {
		return ErrNoTiles
	}

	m := NewManager(j.ID, j.Style, j.store, j.opts, onEvent)
	j.mu.Lock()
	j.manager = m
	j.mu.Unlock()

	return m.Run(ctx, tiles)
}

// Progress returns the counters of the running download, or a zero value
// before the download starts.
func (j *Job) Progress() Progress {
	j.mu.Lock()
	m := j.manager
	j.mu.Unlock()
	if m == nil {
		return Progress{}
	}
	return m.Progress()
}

// Stream runs the job in the background and returns its events as a
// channel, plus a channel receiving the job's result.
//
// The event channel is closed after the last event; the error channel
// receives exactly one value. Events are queued without bound, so a slow
// reader never stalls the workers. Once ctx is done, events the reader has
// not taken may be dropped and the event channel is closed, so a reader
// that stops early only needs to cancel ctx.
func Stream(ctx context.Context, job *Job) (<-chan Event, <-chan error) {
	events := make(chan Event)
	result := make(chan error, 1)

	var (
		mu    sync.Mutex
		queue []Event
		done  bool
	)
	wake := make(chan struct{}, 1)
	signal := func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}

	go func() {
		err := job.Run(ctx, func(e Event) {
			mu.Lock()
			queue = append(queue, e)
			mu.Unlock()
			signal()
		})
		mu.Lock()
		done = true
		mu.Unlock()
		signal()
		result <- err
	}()

	go func() {
		defer close(events)
		for {
			mu.Lock()
			batch := queue
			queue = nil
			finished := done
			mu.Unlock()

			for _, e := range batch {
				select {
				case events <- e:
				case <-ctx.Done():
					return
				}
			}
			if finished && len(batch) == 0 {
				return
			}
			if len(batch) == 0 {
				<-wake
			}
		}
	}()

	return events, result
}
