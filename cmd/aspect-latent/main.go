package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/koala-nodes/aspect-latent/internal/cli"
)

// Set by -ldflags at release time.
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli.SetVersion(version, commit, date)
	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
