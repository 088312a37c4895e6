package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/Harry166/stro/internal/di"
	"github.com/Harry166/stro/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s storage=%s cache=%s kafka=%t", cfg.Environment, cfg.Storage.Driver, cfg.Cache.Backend, cfg.Kafka.Enabled)

	app, err := di.InitializeApp(context.Background(), cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
