package download

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/handiism/tiledl/internal/http"
	"github.com/handiism/tiledl/internal/model"
)

// Options configures fetchers and managers.
type Options struct {
	// Concurrency is the number of tiles fetched in parallel within a batch.
	Concurrency int

	// BatchSize is the number of tiles per batch. Batches run one after
	// another, so coarse zoom levels finish before fine ones start.
	BatchSize int

	// MaxRetries is the number of requests made for a tile per pass.
	MaxRetries int

	// RetryPasses is how many extra passes re-run tiles that failed in the
	// previous pass. A tile gets at most MaxRetries * (1 + RetryPasses)
	// requests in one run.
	RetryPasses int

	// BackoffUnit scales every delay: attempt i of a tile waits
	// 2^i units, pass p waits min(2^p units, MaxPassBackoff).
	BackoffUnit time.Duration

	// MaxPassBackoff caps the delay before a retry pass.
	MaxPassBackoff time.Duration

	// ReduceColors re-encodes tiles as 8-bit palette PNGs.
	ReduceColors bool

	// HTTP configures the tile client.
	HTTP http.Options

	// Rand picks CDN subdomains. Nil uses math/rand/v2.
	Rand model.IntSource

	// Logger receives diagnostic logs. The zero value discards them.
	Logger zerolog.Logger
}

// DefaultOptions returns the documented defaults: 5 workers, batches of 10,
// 3 attempts per tile, one retry pass, 1s backoff unit capped at 8s between
// passes, 10s request timeout.
func DefaultOptions() Options {
	return Options{
		Concurrency:    5,
		BatchSize:      10,
		MaxRetries:     3,
		RetryPasses:    1,
		BackoffUnit:    time.Second,
		MaxPassBackoff: 8 * time.Second,
		HTTP:           http.DefaultOptions(),
		Logger:         zerolog.Nop(),
	}
}

// withDefaults fills zero fields. RetryPasses is left alone: zero is a valid
// choice that disables retry passes.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Concurrency <= 0 {
		o.Concurrency = def.Concurrency
	}
	if o.BatchSize <= 0 {
		o.BatchSize = def.BatchSize
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = def.MaxRetries
	}
	if o.RetryPasses < 0 {
		o.RetryPasses = 0
	}
	if o.BackoffUnit <= 0 {
		o.BackoffUnit = def.BackoffUnit
	}
	if o.MaxPassBackoff <= 0 {
		o.MaxPassBackoff = 8 * o.BackoffUnit
	}
	return o
}

// attemptBackoff is the delay after failed attempt i of a tile.
func (o Options) attemptBackoff(attempt int) time.Duration {
	return o.BackoffUnit << attempt
}

// passBackoff is the delay before retry pass p+1.
func (o Options) passBackoff(pass int) time.Duration {
	d := o.BackoffUnit << pass
	if d > o.MaxPassBackoff || d <= 0 {
		return o.MaxPassBackoff
	}
	return d
}

// MaxAttempts is the upper bound of requests a single tile gets in one run.
func (o Options) MaxAttempts() int {
	o = o.withDefaults()
	return o.MaxRetries * (1 + o.RetryPasses)
}
