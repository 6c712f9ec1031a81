// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/wayfarer-cli/cmd"
)

// main is the entry point for the wayfarer CLI. The context is cancelled
// on SIGINT/SIGTERM so a run in progress finalizes what it has.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
