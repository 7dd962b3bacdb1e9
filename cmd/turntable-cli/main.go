package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagServer  string // value of --server flag
	flagTimeout int    // value of --timeout flag, seconds
)

func main() {
	log.SetFlags(0)

	rootCmd.PersistentFlags().StringVar(&flagServer, "server", envOr("TURNTABLE_SERVER", "http://localhost:8000"), "Base URL of the turntable server")
	rootCmd.PersistentFlags().IntVar(&flagTimeout, "timeout", 30, "HTTP request timeout in seconds")

	// never print messages
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Printf("turntable-cli: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "turntable-cli",
	Short:        "Control a turntable acquisition server",
	SilenceUsage: true,
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
