// Command truthgraph ingests contract documents and answers questions over
// their layered facts, bindings and inferences.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/truthgraph/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(cli.GetExitCode(err))
	}
}
