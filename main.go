package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taxisync/internal/cli"
)

var version = "dev"

func main() {
	// The first signal cancels the run; the in-flight batch is rolled back.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
