package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/handiism/tiledl/internal/config"
	"github.com/handiism/tiledl/internal/tui"
)

func main() {
	configFlag := flag.StringP("config", "c", "", "Path to config file")
	logFlag := flag.String("log", "", "Write debug logs to this file")
	flag.Parse()

	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		if settings, err = config.Load(*configFlag); err != nil {
			fail(err)
		}
	}
	if err := settings.LoadFromEnv(); err != nil {
		fail(err)
	}
	if err := settings.Validate(); err != nil {
		fail(err)
	}

	styles, err := config.LoadStyles(settings.StylesFile)
	if err != nil {
		fail(err)
	}

	// The alternate screen owns the terminal, so logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if *logFlag != "" {
		f, err := os.OpenFile(*logFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fail(err)
		}
		defer f.Close()
		out = f
	}
	logger := zerolog.New(out).Level(zerolog.DebugLevel).With().Timestamp().Logger()

	if err := tui.Run(settings, styles, logger); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
