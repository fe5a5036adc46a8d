package main

import (
	"flag"
	"log"
	"os"

	"FinSignal/internal/di"
	"FinSignal/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s source=%s symbols=%v", cfg.Environment, cfg.Source.Type, cfg.Poller.Symbols)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	err = app.Run()
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
