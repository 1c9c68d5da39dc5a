package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/finkeeper/internal/client/cli"
	"github.com/dmitrijs2005/finkeeper/internal/client/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}

	code := cli.Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, cfg, nil)
	stop()
	os.Exit(code)
}
