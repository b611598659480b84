// Package download provides the download orchestration logic for fetching
// map tiles into the local cache.
//
// # Job
//
// A Job ties a request to its style and cache:
//
//  1. Validate the request and style
//  2. Plan the tile list from the region
//  3. Fetch tiles in batches with a worker pool
//  4. Re-run failed tiles in retry passes
//  5. Report completion or cancellation
//
// # Basic Usage
//
//	store := cache.NewStore("tile_cache")
//	job := download.NewJob(req, style, store, download.DefaultOptions())
//
//	err := job.Run(ctx, func(e download.Event) {
//	    fmt.Println(e.Type, e.Tile)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Consumers that prefer channels can use Stream:
//
//	events, result := download.Stream(ctx, job)
//	for e := range events {
//	    fmt.Println(e.Type)
//	}
//	err := <-result
//
// # Concurrency
//
// The Manager uses configurable concurrency limits:
//   - Concurrency: How many tiles of a batch are fetched in parallel
//   - BatchSize: How many tiles make up a batch
//
// Batches run one after another, so all tiles of coarse zoom levels are
// handled before finer ones.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives Event:
//
//	type Event struct {
//	    Type  EventType // started, tile_downloaded, tile_skipped, ...
//	    JobID string
//	    Total int
//	    Tile  tile.Tile
//	    BBox  tile.BBox
//	}
//
// The callback is invoked from worker goroutines.
//
// # Retry Logic
//
// Failed requests are retried with exponential backoff, configurable via
// Options.MaxRetries and Options.BackoffUnit. Tiles that still fail are
// re-queued for Options.RetryPasses further passes.
//
// # Cancellation
//
// Cancelling the context passed to Run stops new batches and interrupts
// backoff sleeps. Tiles already written stay in the cache.
package download
