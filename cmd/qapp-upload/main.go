package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"qapp_backend/internal/uploadcli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := uploadcli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
