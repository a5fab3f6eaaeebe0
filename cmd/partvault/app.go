package main

import (
	"fmt"

	"github.com/partvault/partvault/internal/config"
	"github.com/partvault/partvault/internal/db"
	"github.com/partvault/partvault/internal/gitsync"
	"github.com/partvault/partvault/internal/hooks"
	"github.com/partvault/partvault/internal/lfs"
	"github.com/partvault/partvault/internal/lifecycle"
	"github.com/partvault/partvault/internal/store"
	"github.com/partvault/partvault/internal/workflow"
)

// openStore loads config and returns the metadata store.
func openStore(configPath string) (*config.Config, *store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return cfg, store.New(gormDB), nil
}

// openCoordinator loads config and wires the full lifecycle coordinator:
// store, workflow engine and the design repository.
func openCoordinator(configPath string) (*config.Config, *lifecycle.Coordinator, error) {
	cfg, st, err := openStore(configPath)
	if err != nil {
		return nil, nil, err
	}

	repo, err := gitsync.Open(cfg.Repo.Path, gitsync.Options{AuthorName: cfg.User.Name})
	if err != nil {
		return nil, nil, fmt.Errorf("open repository %s: %w", cfg.Repo.Path, err)
	}

	coord := lifecycle.New(
		st,
		workflow.NewEngine(st.DB()),
		repo,
		lfs.NewManager(cfg.Repo.Path),
		hooks.NewManager(cfg.Repo.Path),
	)
	return cfg, coord, nil
}

// actorFromConfig builds the acting user from the local config.
func actorFromConfig(cfg *config.Config) lifecycle.Actor {
	return lifecycle.Actor{Name: cfg.User.Name, Role: cfg.User.Role}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
