// Package http provides an HTTP client configured for tile server requests.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Timeout handling
//   - Client-side rate limiting (golang.org/x/time/rate)
//   - Typed errors for non-200 responses
//
// # Basic Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	// Fetch one tile
//	data, err := client.Get(ctx, "https://a.tile.openstreetmap.org/3/4/2.png")
//
//	var se *http.StatusError
//	if errors.As(err, &se) {
//	    fmt.Println("server answered", se.Code)
//	}
package http
