package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/Apurer/uniform-orders-api/internal/app/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cli.NewRootCommand(cli.LoadFromEnv).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "uniformctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}
