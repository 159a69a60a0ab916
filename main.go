package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/ntbworks/dockyard/internal/api"
	"github.com/ntbworks/dockyard/internal/auth"
	"github.com/ntbworks/dockyard/internal/config"
	"github.com/ntbworks/dockyard/internal/db"
	"github.com/ntbworks/dockyard/internal/graph"
	"github.com/ntbworks/dockyard/internal/kv"
	"github.com/ntbworks/dockyard/internal/mailer"
)

func main() {
	cfg := config.Load()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	store, err := kv.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer store.Close()

	// The shared store is where all identity state lives; say up front
	// whether we can reach it.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := store.Ping(ctx); err != nil {
		log.Printf("redis unreachable at startup: %v", err)
	} else {
		log.Printf("redis connected")
	}
	cancel()

	bridge := auth.New(store, cfg.Auth)

	var drive *graph.Client
	if cfg.Graph.DriveID != "" {
		drive = graph.New(cfg.Graph, api.TokenFromContext)
	} else {
		log.Printf("drive not configured, attachment endpoints disabled")
	}

	var mail *mailer.Client
	if cfg.Mail.ConnectionString != "" {
		mail, err = mailer.NewFromConnectionString(cfg.Mail.ConnectionString, cfg.Mail.Sender)
		if err != nil {
			log.Fatalf("mailer: %v", err)
		}
	} else {
		log.Printf("mailer not configured, assignment notifications disabled")
	}

	server := api.New(database, bridge, drive, mail, store, cfg)

	log.Printf("listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, server.Router()); err != nil {
		log.Fatal(err)
	}
}
