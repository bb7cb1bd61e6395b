// Command marketctl is the operator CLI for the matching engine: it can run
// the admin/demo HTTP server, seed or generate state, and drive every
// public operation directly against an in-process engine for scripting and
// local debugging.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/opendoor-marketplace/matchengine/internal/obslog"
)

func main() {
	pretty := term.IsTerminal(int(os.Stderr.Fd()))
	obslog.Init(pretty, zerolog.InfoLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := Execute(ctx); err != nil {
		log.Error().Err(err).Msg("marketctl failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
