package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/olivierh59500/particle-emitter-go/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil && !errors.Is(err, context.Canceled) {
		stop()
		os.Exit(1)
	}
}
