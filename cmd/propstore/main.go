// Command propstore is the maintenance CLI for item property databases:
// inspect and edit stored values, copy property sets between sources, and
// report store health.
package main

import (
	"os"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger().
		Level(zerolog.WarnLevel)

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitUserError)
	}
}
