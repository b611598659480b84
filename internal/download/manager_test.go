package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/handiism/tiledl/internal/cache"
	"github.com/handiism/tiledl/internal/tile"
)

func newTestManager(t *testing.T, serverURL string, opts Options) (*Manager, *cache.Store, *recorder, *sleepRecorder) {
	t.Helper()
	store := cache.NewStore(t.TempDir())
	rec := &recorder{}
	sleeps := &sleepRecorder{}
	m := NewManager("job-1", testStyle(serverURL), store, opts, rec.add)
	m.fetcher.sleep = sleeps.sleep
	return m, store, rec, sleeps
}

func TestManager_Run_SingleTile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	m, store, rec, _ := newTestManager(t, srv.URL, testOptions())
	tl := tile.Tile{Z: 1, X: 1, Y: 0}

	if err := m.Run(context.Background(), []tile.Tile{tl}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	events := rec.all()
	want := []EventType{EventStarted, EventTileDownloaded, EventCompleted}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want types %v", events, want)
	}
	for i, typ := range want {
		if events[i].Type != typ {
			t.Errorf("events[%d].Type = %v, want %v", i, events[i].Type, typ)
		}
		if events[i].JobID != "job-1" {
			t.Errorf("events[%d].JobID = %q, want %q", i, events[i].JobID, "job-1")
		}
	}
	if events[0].Total != 1 {
		t.Errorf("started Total = %d, want 1", events[0].Total)
	}
	if events[1].Tile != tl || events[1].BBox != tl.BBox() {
		t.Errorf("downloaded event = %+v, want tile %v with bbox", events[1], tl)
	}

	if !store.Exists("Test Style", tl) {
		t.Error("tile not cached")
	}
	if got := m.State(); got != StateCompleted {
		t.Errorf("State = %v, want completed", got)
	}
	if p := m.Progress(); p != (Progress{Total: 1, Downloaded: 1}) {
		t.Errorf("Progress = %+v", p)
	}
}

func TestManager_Run_SkipsCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	m, store, rec, _ := newTestManager(t, srv.URL, testOptions())
	tiles := []tile.Tile{{Z: 1, X: 0, Y: 0}, {Z: 1, X: 1, Y: 0}, {Z: 1, X: 1, Y: 1}}
	if _, err := store.Write("Test Style", tiles[1], []byte("old")); err != nil {
		t.Fatal(err)
	}

	if err := m.Run(context.Background(), tiles); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if n := hits.Load(); n != 2 {
		t.Errorf("server hits = %d, want 2", n)
	}
	if n := rec.count(EventTileSkipped); n != 1 {
		t.Errorf("tile_skipped = %d, want 1", n)
	}
	if p := m.Progress(); p.Cached != 1 || p.Downloaded != 2 || p.Done() != 3 {
		t.Errorf("Progress = %+v", p)
	}
}

func TestManager_Run_RetryPassRecovers(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fail every request of the first pass.
		if hits.Add(1) <= 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	opts := testOptions()
	opts.MaxRetries = 3
	opts.RetryPasses = 1
	m, store, rec, sleeps := newTestManager(t, srv.URL, opts)
	tl := tile.Tile{Z: 1, X: 0, Y: 0}

	if err := m.Run(context.Background(), []tile.Tile{tl}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if n := hits.Load(); n != 4 {
		t.Errorf("server hits = %d, want 4", n)
	}
	if rec.count(EventTileFailed) != 1 || rec.count(EventTileDownloaded) != 1 {
		t.Errorf("events = %v, want one failure then one download", rec.all())
	}
	if !store.Exists("Test Style", tl) {
		t.Error("tile not cached after retry pass")
	}
	if p := m.Progress(); p.Failed != 0 || p.Downloaded != 1 {
		t.Errorf("Progress = %+v, want the retried tile counted as downloaded", p)
	}

	// Two attempt backoffs and one pass backoff.
	want := []time.Duration{time.Millisecond, 2 * time.Millisecond, time.Millisecond}
	if len(sleeps.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", sleeps.delays, want)
	}
	for i := range want {
		if sleeps.delays[i] != want[i] {
			t.Errorf("delays[%d] = %v, want %v", i, sleeps.delays[i], want[i])
		}
	}
}

func TestManager_Run_AttemptBound(t *testing.T) {
	tests := []struct {
		name        string
		maxRetries  int
		retryPasses int
	}{
		{"no retry pass", 3, 0},
		{"one retry pass", 3, 1},
		{"several passes", 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			opts := testOptions()
			opts.MaxRetries = tt.maxRetries
			opts.RetryPasses = tt.retryPasses
			m, _, rec, _ := newTestManager(t, srv.URL, opts)

			if err := m.Run(context.Background(), []tile.Tile{{Z: 0, X: 0, Y: 0}}); err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			if got, want := int(hits.Load()), opts.MaxAttempts(); got != want {
				t.Errorf("server hits = %d, want %d", got, want)
			}
			if got := rec.count(EventTileFailed); got != 1+tt.retryPasses {
				t.Errorf("tile_failed = %d, want %d", got, 1+tt.retryPasses)
			}
			if rec.count(EventCompleted) != 1 {
				t.Error("run with failures did not complete")
			}
			if p := m.Progress(); p.Failed != 1 {
				t.Errorf("Failed = %d, want 1", p.Failed)
			}
		})
	}
}

func TestManager_Run_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 3 {
			cancel()
		}
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	opts := testOptions()
	opts.Concurrency = 1
	opts.BatchSize = 1
	m, store, rec, _ := newTestManager(t, srv.URL, opts)

	tiles := tile.World(3)
	err := m.Run(ctx, tiles)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}

	if rec.count(EventCompleted) != 0 {
		t.Error("completed emitted after cancellation")
	}
	events := rec.all()
	if last := events[len(events)-1]; last.Type != EventCancelled {
		t.Errorf("last event = %v, want cancelled", last.Type)
	}
	if got := m.State(); got != StateCancelled {
		t.Errorf("State = %v, want cancelled", got)
	}

	cached, err := store.List("Test Style")
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) < 2 || len(cached) >= len(tiles) {
		t.Errorf("cached %d of %d tiles, want the ones finished before cancel", len(cached), len(tiles))
	}
	if n := int(hits.Load()); n > 4 {
		t.Errorf("server hits = %d, want no new batches after cancel", n)
	}
}

func TestManager_Run_ConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	opts := testOptions()
	opts.Concurrency = 2
	opts.BatchSize = 6
	m, _, _, _ := newTestManager(t, srv.URL, opts)

	if err := m.Run(context.Background(), tile.World(2)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestManager_Run_BatchOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	opts := testOptions()
	opts.Concurrency = 1
	opts.BatchSize = 2
	m, _, _, _ := newTestManager(t, srv.URL, opts)

	tiles := tile.World(1)
	if err := m.Run(context.Background(), tiles); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(paths) != len(tiles) {
		t.Fatalf("requests = %v, want %d", paths, len(tiles))
	}
	for i, tl := range tiles {
		want := "/" + tl.String() + ".png"
		if paths[i] != want {
			t.Errorf("request %d = %q, want %q", i, paths[i], want)
		}
	}
}

func TestManager_Run_WorkerPanicPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	m := NewManager("job", testStyle(srv.URL), cache.NewStore(t.TempDir()), testOptions(), func(e Event) {
		if e.Type == EventTileDownloaded {
			panic("boom")
		}
	})

	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("recovered %v, want boom", r)
		}
	}()
	m.Run(context.Background(), []tile.Tile{{Z: 0, X: 0, Y: 0}})
	t.Error("Run returned without panicking")
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateRunning, "running"},
		{StateCompleted, "completed"},
		{StateCancelled, "cancelled"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestOptions_Backoff(t *testing.T) {
	opts := Options{BackoffUnit: time.Second}.withDefaults()

	if got := opts.attemptBackoff(2); got != 4*time.Second {
		t.Errorf("attemptBackoff(2) = %v, want 4s", got)
	}
	if got := opts.passBackoff(0); got != time.Second {
		t.Errorf("passBackoff(0) = %v, want 1s", got)
	}
	if got := opts.passBackoff(5); got != 8*time.Second {
		t.Errorf("passBackoff(5) = %v, want 8s cap", got)
	}
	if got := (Options{MaxRetries: 3, RetryPasses: 1}).MaxAttempts(); got != 6 {
		t.Errorf("MaxAttempts = %d, want 6", got)
	}
}
