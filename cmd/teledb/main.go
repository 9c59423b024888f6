package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teledb/internal/channel"
	"teledb/internal/channel/memory"
	"teledb/internal/channel/nats"
	"teledb/internal/config"
	"teledb/internal/logging"
	"teledb/internal/store"
)

func main() {
	// 0. Parse Command Line Flags
	provider := flag.String("provider", "", "Channel provider override (memory, nats)")
	flag.Parse()

	// 1. Load Configuration
	cfg := config.LoadConfig()
	if *provider != "" {
		cfg.Channel.Provider = *provider
	}

	if err := logging.Initialize(cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Shutdown()

	log.Printf("Starting TeleDB (provider: %s)...", cfg.Channel.Provider)

	// 2. Open the Channel
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var ch channel.Channel
	switch cfg.Channel.Provider {
	case config.ProviderNATS:
		c, err := nats.New(ctx, cfg.Channel.NATS)
		if err != nil {
			log.Fatalf("Failed to connect channel: %v", err)
		}
		ch = c
	default:
		ch = memory.New()
	}

	// 3. Initialize the Store
	st := store.New(cfg.Store, cfg.Channel.MaxPayload, ch)
	if err := st.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	if stats, err := st.GetStats(context.Background(), ""); err == nil {
		log.Printf("Store ready: %d documents across %d messages", stats.TotalDocuments, stats.TotalMessages)
	}

	// 4. Wait for Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	if err := st.Close(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Store stopped.")
}
