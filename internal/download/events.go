package download

import (
	"github.com/handiism/tiledl/internal/tile"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// EventType identifies a job lifecycle notification.
type EventType int

const (
	// EventStarted is emitted once per run with the number of tiles.
	EventStarted EventType = iota
	// EventTileDownloaded is emitted after a tile was fetched and cached.
	EventTileDownloaded
	// EventTileSkipped is emitted for tiles already in the cache.
	EventTileSkipped
	// EventTileFailed is emitted when a tile exhausted its attempts.
	EventTileFailed
	// EventCompleted is emitted when the tile list drained without
	// cancellation.
	EventCompleted
	// EventCancelled is emitted when a run stops because its context ended.
	EventCancelled
	// EventError is emitted when a job aborts on an internal fault.
	EventError
)

var eventNames = map[EventType]string{
	EventStarted:        "started",
	EventTileDownloaded: "tile_downloaded",
	EventTileSkipped:    "tile_skipped",
	EventTileFailed:     "tile_failed",
	EventCompleted:      "completed",
	EventCancelled:      "cancelled",
	EventError:          "error",
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return "unknown"
}

// Event is a download progress notification. Only the fields relevant to
// Type are set:
//   - EventStarted: Total
//   - EventTileDownloaded, EventTileSkipped: Tile, BBox
//   - EventTileFailed: Tile
//   - EventError: Message
type Event struct {
	Type    EventType
	JobID   string
	Total   int
	Tile    tile.Tile
	BBox    tile.BBox
	Message string
}

// Level maps the event onto the message levels used by the front ends.
func (e Event) Level() ProgressLevel {
	switch e.Type {
	case EventTileDownloaded, EventTileSkipped:
		return LevelVerbose
	case EventTileFailed, EventCancelled:
		return LevelWarning
	case EventError:
		return LevelError
	case EventCompleted:
		return LevelSuccess
	default:
		return LevelInfo
	}
}
