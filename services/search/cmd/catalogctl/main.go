package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Anitha-22/myecommerce/services/search/cmd/catalogctl/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
