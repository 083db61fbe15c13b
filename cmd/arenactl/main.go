package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Dosada05/valorant-arena/config"
	"github.com/Dosada05/valorant-arena/db"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arenactl",
	Short: "Operator tool for the Valorant Arena backend",
	Long: `arenactl runs maintenance tasks against the arena database:
migrations, account role changes and one-off announcement runs.`,
	SilenceUsage: true,
}

// env собирает зависимости для команд, которым нужна база
type env struct {
	cfg    *config.Config
	db     *sql.DB
	logger *slog.Logger
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	conn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, db: conn, logger: logger}, nil
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		e.logger.Error("failed to close database connection", slog.Any("error", err))
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "arenactl: %s\n", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
