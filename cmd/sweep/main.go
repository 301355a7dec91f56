// Command sweep runs one expired-account purge and exits. It is meant to be
// started by an external scheduler instead of the server's own sweep loop.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/communitykeeper/internal/server"
	"github.com/dmitrijs2005/communitykeeper/internal/server/config"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	n, err := app.Sweep(ctx)
	if err != nil {
		log.Printf("sweep failed after purging %d accounts: %v", n, err)
		os.Exit(1)
	}
	log.Printf("purged %d accounts", n)
}
