package main

import (
	"log"

	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/config"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/router"
)

func main() {
	cfg := config.Load()

	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	if err := db.EnsureRootUser(cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		log.Fatalf("failed to ensure root user: %v", err)
	}

	r := router.SetupRouter(cfg)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
