package main

import (
	"fmt"

	"docrev/internal/config"
	"docrev/internal/filestore"
	"docrev/internal/store"
)

// withStore opens the configured database, runs fn, and closes it.
func withStore(cfg *config.Config, fn func(st *store.Store) error) error {
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("db path is required")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(st)
}

func openFilestore(cfg *config.Config) (*filestore.Store, error) {
	opts := filestore.Options{
		DrawingRoot: cfg.Storage.DrawingRoot,
		TechRoot:    cfg.Storage.TechRoot,
	}
	if cfg.Storage.LegacyDrawingRoot != "" {
		opts.LegacyDrawingRoot = []string{cfg.Storage.LegacyDrawingRoot}
	}
	if cfg.Storage.LegacyTechRoot != "" {
		opts.LegacyTechRoot = []string{cfg.Storage.LegacyTechRoot}
	}
	return filestore.New(opts)
}
