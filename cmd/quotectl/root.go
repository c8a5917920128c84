// quotectl is the operator CLI for inspecting the ledger database directly.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"quote/internal/storage"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "quotectl",
	Short: "Inspect the membership fee ledger",
	Long: `quotectl reads the ledger database directly: payment status,
audit trails and the category catalog. All commands are read-only.`,
	SilenceUsage: true,
}

func init() {
	_ = godotenv.Load()

	defaultPath := os.Getenv("SQLITE_DB_PATH")
	if defaultPath == "" {
		defaultPath = "./data/quote.db"
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultPath, "path to the ledger database")
}

func openStore() (*storage.Store, error) {
	store, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger database %s: %w", dbPath, err)
	}
	return store, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
