package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"docrev/internal/config"
	"docrev/internal/server"
	"docrev/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the docrev API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			files, err := openFilestore(cfg)
			if err != nil {
				return err
			}

			server.Version = version
			srv := server.New(addr, st, files, server.Options{
				MaxUploadBytes:     cfg.MaxUploadBytes(),
				MultipartMaxMemory: cfg.MultipartMaxMemory,
			}, logger)
			return srv.ListenAndServe()
		},
	}
}
