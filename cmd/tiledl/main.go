package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/handiism/tiledl/internal/archive"
	"github.com/handiism/tiledl/internal/cache"
	"github.com/handiism/tiledl/internal/config"
	"github.com/handiism/tiledl/internal/download"
	"github.com/handiism/tiledl/internal/model"
	"github.com/handiism/tiledl/internal/region"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

func main() {
	// Command line flags
	var (
		configFlag      = flag.StringP("config", "c", "", "Path to config file")
		styleFlag       = flag.StringP("style", "s", "", "Map style name or URL template from the styles file")
		regionFlag      = flag.StringP("region", "r", "", "Polygon file: [[[lat,lng],...]] rings or GeoJSON")
		minZoomFlag     = flag.Int("min-zoom", 0, "Minimum zoom level (0-19)")
		maxZoomFlag     = flag.Int("max-zoom", 0, "Maximum zoom level (0-19)")
		worldFlag       = flag.Bool("world", false, "Download the world basemap (zoom 0-7) instead of a region")
		reduceFlag      = flag.Bool("8bit", false, "Convert tiles to 8-bit palette PNGs")
		outputFlag      = flag.StringP("output", "o", "", "Downloads directory for the zip archive (overrides config)")
		cacheFlag       = flag.String("cache-dir", "", "Tile cache directory (overrides config)")
		concurrencyFlag = flag.IntP("concurrency", "j", 0, "Parallel downloads per batch (overrides config)")
		noZipFlag       = flag.Bool("no-zip", false, "Skip creating the zip archive")
		listStylesFlag  = flag.Bool("list-styles", false, "List available map styles and exit")
		listCachedFlag  = flag.String("list-cached", "", "List cached tiles of a style and exit")
		purgeFlag       = flag.String("purge", "", "Delete the cached tiles of a style and exit")
		verboseFlag     = flag.BoolP("verbose", "v", false, "Show verbose output")
		dryRunFlag      = flag.Bool("dry-run", false, "Plan tiles without downloading")
	)

	flag.Parse()

	logLevel := zerolog.InfoLevel
	if *verboseFlag {
		logLevel = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(logLevel).
		With().Timestamp().Logger()

	// Load config
	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fatal("Error loading config: %v", err)
		}
	}
	if err := settings.LoadFromEnv(); err != nil {
		fatal("Error loading config: %v", err)
	}

	// Apply flags
	if *outputFlag != "" {
		settings.DownloadsDir = *outputFlag
	}
	if *cacheFlag != "" {
		settings.CacheDir = *cacheFlag
	}
	if *concurrencyFlag > 0 {
		settings.Concurrency = *concurrencyFlag
	}
	if err := settings.Validate(); err != nil {
		fatal("Invalid config: %v", err)
	}

	store := cache.NewStore(settings.CacheDir)

	switch {
	case *listCachedFlag != "":
		listCached(store, *listCachedFlag)
		return
	case *purgeFlag != "":
		if err := store.Purge(*purgeFlag); err != nil {
			fatal("Error purging %q: %v", *purgeFlag, err)
		}
		green.Printf("✅ Purged cache of %s\n", *purgeFlag)
		return
	}

	styles, err := config.LoadStyles(settings.StylesFile)
	if err != nil {
		fatal("Error loading styles: %v", err)
	}

	if *listStylesFlag {
		for _, name := range styles.Names() {
			style, _ := styles.Lookup(name)
			fmt.Printf("%-28s %s\n", name, style.URLTemplate)
		}
		return
	}

	// CLI mode - require style and region
	if *styleFlag == "" || (*regionFlag == "" && !*worldFlag) {
		fmt.Println("Map Tile Downloader - Download map tiles for offline use")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  tiledl --style <name> --region <file> --min-zoom <z> --max-zoom <z> [options]")
		fmt.Println("  tiledl --style <name> --world [options]")
		fmt.Println()
		fmt.Println("For interactive mode, use: tiledl-tui")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(1)
	}

	style, err := styles.Resolve(*styleFlag)
	if err != nil {
		fatal("%v (see --list-styles)", err)
	}

	req := model.Request{
		Region:       region.Region{World: *worldFlag},
		MinZoom:      *minZoomFlag,
		MaxZoom:      *maxZoomFlag,
		Style:        style.Name,
		ReduceColors: *reduceFlag,
	}
	if !*worldFlag {
		req.Region.Polygons, err = region.LoadPolygons(*regionFlag)
		if err != nil {
			fatal("Error reading region: %v", err)
		}
	}

	job := download.NewJob(req, style, store, settings.ToOptions(logger))

	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cancelling...")
		cancel()
	}()

	fmt.Println("🗺️  Map Tile Downloader")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	if *dryRunFlag {
		tiles, err := job.Plan()
		if err != nil {
			fatal("Error planning: %v", err)
		}
		fmt.Printf("ℹ️  %d tiles for %s\n", len(tiles), style.Name)
		fmt.Println("\n[Dry run - not downloading]")
		return
	}

	var bar *progressbar.ProgressBar
	err = job.Run(ctx, func(e download.Event) {
		switch e.Type {
		case download.EventStarted:
			bold.Printf("📥 Downloading %d tiles of %s\n\n", e.Total, style.Name)
			bar = progressbar.NewOptions(e.Total,
				progressbar.OptionSetDescription("Tiles"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "=",
					SaucerHead:    ">",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetWidth(50),
			)
		case download.EventTileDownloaded, download.EventTileSkipped:
			if *verboseFlag {
				bar.Clear()
				fmt.Printf("   %s %s\n", e.Type, e.Tile)
			}
			bar.Add(1)
		case download.EventTileFailed:
			bar.Clear()
			yellow.Printf("⚠️  Failed %s\n", e.Tile)
		case download.EventCompleted:
			bar.Finish()
			fmt.Println()
		case download.EventCancelled:
			if bar != nil {
				bar.Exit()
			}
		case download.EventError:
			red.Printf("❌ %s\n", e.Message)
		}
	})

	switch {
	case errors.Is(err, context.Canceled):
		fmt.Println("\nDownload cancelled.")
		os.Exit(130)
	case errors.Is(err, download.ErrNoTiles):
		yellow.Println("⚠️  The region covers no tiles.")
		return
	case err != nil:
		fatal("Error during download: %v", err)
	}

	p := job.Progress()
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	green.Printf("✨ Complete! %d downloaded, %d cached, %d failed of %d tiles\n", p.Downloaded, p.Cached, p.Failed, p.Total)

	if *noZipFlag {
		return
	}
	zipPath := filepath.Join(settings.DownloadsDir, style.CacheName()+".zip")
	zipPath, err = archive.ZipDir(ctx, store.StyleDir(style.Name), zipPath)
	if err != nil {
		fatal("Error creating archive: %v", err)
	}
	fmt.Printf("📦 %s\n", zipPath)
}

func listCached(store *cache.Store, style string) {
	tiles, err := store.List(style)
	if err != nil {
		fatal("Error listing cache: %v", err)
	}
	for _, t := range tiles {
		fmt.Println(t)
	}
	fmt.Fprintf(os.Stderr, "ℹ️  %d tiles cached for %s\n", len(tiles), style)
}

func fatal(format string, args ...any) {
	red.Fprintf(os.Stderr, "❌ "+format+"\n", args...)
	os.Exit(1)
}
