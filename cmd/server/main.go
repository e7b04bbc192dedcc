package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sean-rowe/weather-tracker/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create application: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		application.Stop()
		fmt.Fprintf(os.Stderr, "failed to start application: %v\n", err)
		os.Exit(1)
	}

	application.WaitForShutdown()
	cancel()
	application.Stop()
}
