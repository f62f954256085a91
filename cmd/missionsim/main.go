// Command missionsim simulates activity plans against mission models.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/roach88/missionsim/internal/cli"
)

func init() {
	_, _ = maxprocs.Set()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		cli.PrintUnreported(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}
