// Package main provides the entry point for the BrandForge job worker.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "brandforge",
	Short: "BrandForge background job worker",
	Long:  "BrandForge extracts brand design systems from websites and documents, generates brand-styled templates, and renders markdown documents to branded PDFs through a durable job queue.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
