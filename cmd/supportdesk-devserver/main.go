// Package main runs an in-memory support backend for local development.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/raphaelgruber/supportdesk/internal/config"
	"github.com/raphaelgruber/supportdesk/internal/devserver"
	"github.com/raphaelgruber/supportdesk/internal/models"
)

func main() {
	// Parse flags
	seed := flag.Bool("seed", false, "populate the store with sample tickets and documents")
	keywords := flag.String("keywords", strings.Join(devserver.DefaultKeywords, ","), "comma-separated words that escalate a chat to a ticket")
	flag.Parse()

	// Load configuration
	cfg := config.Load()

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	store := devserver.NewStore(strings.Split(*keywords, ","), nil)
	if *seed || os.Getenv("SUPPORTDESK_DEV_SEED") == "true" {
		seedStore(store)
		logger.Info("seeded sample data", "tickets", len(store.Tickets()), "documents", len(store.Documents()))
	}

	srv := devserver.New(devserver.Config{
		Addr:          ":" + cfg.DevPort,
		AdminEmail:    cfg.DevEmail,
		AdminPassword: cfg.DevPassword,
	}, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("support API available", "url", fmt.Sprintf("http://localhost:%s/", cfg.DevPort), "admin", cfg.DevEmail)
	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func seedStore(s *devserver.Store) {
	now := time.Now()
	samples := []models.Ticket{
		{ThreadID: "seed-thread-1", Query: "My package never arrived", Status: models.TicketOpen, AssignedTo: models.AssignedHuman, UserName: "Dana", UserEmail: "dana@example.com", CreatedAt: now.Add(-50 * time.Hour)},
		{ThreadID: "seed-thread-2", Query: "I was charged twice", Status: models.TicketOpen, AssignedTo: models.AssignedHuman, UserName: "Sam", CreatedAt: now.Add(-5 * time.Hour)},
		{ThreadID: "seed-thread-3", Query: "How do I reset my password?", Status: models.TicketResolved, AssignedTo: models.AssignedHuman, Remark: "Sent reset link", CreatedAt: now.Add(-9 * 24 * time.Hour)},
	}
	for _, t := range samples {
		s.AddTicket(t)
	}
	s.AddDocument("returns-policy.pdf", 182_344)
}
