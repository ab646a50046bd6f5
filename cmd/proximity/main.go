package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"vessel-proximity/cmd/proximity/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := app.NewProximityCommand(ctx).Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}
