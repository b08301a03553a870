package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/daniel/formsynth/internal/avm"
	"github.com/daniel/formsynth/internal/oracle"
	"github.com/daniel/formsynth/internal/pdfform"
)

var avmCommand = &cobra.Command{
	Use:   "avm",
	Short: "Generate synthetic Automated Valuation Model reports",
	Long: `Generates AVM report PDFs from model-produced data: each sample is rendered
from an HTML template, converted to PDF with a headless browser, and
optionally rasterized to page images. Requires Chrome/Chromium.`,
	RunE: runAVMCmd,
}

var (
	avmOutputDir  string
	avmCount      int
	avmSkipImages bool
	avmProvider   string
	avmAPIKey     string
)

func init() {
	avmCommand.Flags().StringVarP(&avmOutputDir, "output", "o", "output/avm_reports", "Output directory")
	avmCommand.Flags().IntVarP(&avmCount, "count", "n", 1, "Number of reports to generate")
	avmCommand.Flags().BoolVar(&avmSkipImages, "skip-images", false, "Skip rasterizing report pages to images")
	avmCommand.Flags().StringVar(&avmProvider, "provider", "gemini", "Model provider: gemini or openai")
	avmCommand.Flags().StringVar(&avmAPIKey, "api-key", "", "Model API key (optional, defaults to GEMINI_API_KEY or OPENAI_API_KEY)")

	rootCmd.AddCommand(avmCommand)
}

func runAVMCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	apiKey := avmAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if apiKey == "" {
		return fmt.Errorf("a model API key is required (--api-key flag or provider env var)")
	}

	client, err := oracle.NewClient(ctx, oracle.ConfigForProvider(oracle.Provider(avmProvider)), apiKey)
	if err != nil {
		return err
	}
	defer client.Close()

	var rasterizer pdfform.Rasterizer
	if !avmSkipImages {
		rasterizer = pdfform.NewPopplerRasterizer()
	}
	generator := avm.NewGenerator(client, rasterizer)

	failed := 0
	for i := 1; i <= avmCount; i++ {
		sampleID := fmt.Sprintf("Sample%d_%s_%s", i,
			time.Now().UTC().Format("01_02_06_15_04_05"), uuid.New().String())
		sampleDir := filepath.Join(avmOutputDir, sampleID)

		sample, err := generator.GenerateSample(ctx, sampleDir)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "report %d/%d failed: %v\n", i, avmCount, err)
			continue
		}
		fmt.Fprintf(os.Stdout, "report %d/%d: %s\n", i, avmCount, sample.PDFPath)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d reports failed", failed, avmCount)
	}
	return nil
}
