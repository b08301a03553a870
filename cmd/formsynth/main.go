// Package main provides the entry point for the synthetic form data generator CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "formsynth",
	Short: "Synthetic PDF form data generator",
	Long:  "formsynth fills AcroForm PDF templates with model-generated synthetic data, audits the filled forms with a vision model, and reports on batch quality.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
