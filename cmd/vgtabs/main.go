// Package main provides vgtabs, which makes every variable group in the
// Azure DevOps library list open in a new browser tab.
//
// In live mode it drives a Chromium window through Playwright and rewrites
// the library table whenever the user navigates to it. In offline mode it
// rewrites a saved snapshot of the page.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information (set at build time).
var version = "0.1.0"

func main() {
	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cancel()
}
