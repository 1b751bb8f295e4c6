/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// restload fires a batch of HTTP requests through restclient.Client and prints a summary of the outcomes.
//
// Usage:
//
//	restload -url http://localhost:8080 -path /api/v1/users -n 1000 -max 16 -pacing 10ms
//
// Client and logging settings may also be loaded from a YAML or JSON file (-config) or from
// environment variables prefixed with RESTLOAD_ (e.g. RESTLOAD_CLIENT_MAXCONCURRENTREQUESTS).
// Flags take precedence over the file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
