package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/buildledger/buildledger/internal/app"
	"github.com/buildledger/buildledger/internal/config"
	"github.com/buildledger/buildledger/internal/database"
	log "github.com/sirupsen/logrus"
)

func main() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logrusLevel, err := log.ParseLevel(level)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(logrusLevel)
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = newRootCmd(connect).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect opens the configured database and wires the same services the HTTP server uses.
func connect(ctx context.Context, configPath string) (*services, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	deps := app.BuildDependencies(db, cfg)
	return &services{
		financials: deps.FinancialsService,
		sync:       deps.PhaseSyncService,
		allocation: deps.AllocationService,
	}, db.Close, nil
}
