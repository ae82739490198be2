// Package main is the entry point for the odata-connect CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jongio/azd-odata/cmd/odata-connect/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := app.NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		app.ReportError(err)
		os.Exit(1)
	}
}
