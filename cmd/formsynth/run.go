package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daniel/formsynth/internal/config"
	"github.com/daniel/formsynth/internal/oracle"
	"github.com/daniel/formsynth/internal/pipeline"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Generate validated synthetic samples for one or more PDF templates",
	Long: `Runs the full generation pipeline for each template: field extraction -> label generation -> synthetic data -> PDF filling -> vision validation -> reporting.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath        string
	runInputPDF          string
	runBatchDir          string
	runOutputDir         string
	runVariants          int
	runDisableValidation bool
	runFieldFontSize     int
	runMaxRetries        int
	runProvider          string
	runAPIKey            string
	runBaseURL           string
	runVerbose           bool
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runInputPDF, "input-pdf", "i", "", "Single PDF template to process (mutually exclusive with --batch-dir)")
	runCommand.Flags().StringVarP(&runBatchDir, "batch-dir", "b", "", "Directory of PDF templates to process in batch (mutually exclusive with --input-pdf)")
	runCommand.Flags().StringVarP(&runOutputDir, "output", "o", "", "Output directory")
	runCommand.Flags().IntVarP(&runVariants, "variants", "n", 0, "Number of samples to generate per template")
	runCommand.Flags().BoolVar(&runDisableValidation, "disable-validation", false, "Skip the vision validation and correction loop")
	runCommand.Flags().IntVar(&runFieldFontSize, "field-font-size", 0, "Font size for field-name overlay markers")
	runCommand.Flags().IntVar(&runMaxRetries, "max-retries", 0, "Correction rounds after the first failed audit")
	runCommand.Flags().StringVar(&runProvider, "provider", "", "Model provider: gemini or openai")
	runCommand.Flags().StringVar(&runBaseURL, "base-url", "", "Provider endpoint override (Azure OpenAI deployments)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from the provider's env var
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Model API key (optional, defaults to GEMINI_API_KEY or OPENAI_API_KEY)")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if runConfigPath != "" {
		loadedCfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loadedCfg
		if runVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("input-pdf") {
		cfg.InputPDF = runInputPDF
	}
	if cmd.Flags().Changed("batch-dir") {
		cfg.BatchDir = runBatchDir
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = runOutputDir
	}
	if cmd.Flags().Changed("variants") {
		cfg.Variants = runVariants
	}
	if cmd.Flags().Changed("disable-validation") {
		cfg.DisableValidation = runDisableValidation
	}
	if cmd.Flags().Changed("field-font-size") {
		cfg.FieldFontSize = runFieldFontSize
	}
	if cmd.Flags().Changed("max-retries") {
		cfg.MaxRetries = runMaxRetries
	}
	if cmd.Flags().Changed("provider") {
		cfg.Provider = runProvider
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = runBaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	// Step 3: Apply defaults for unset values
	defaults := config.Config{
		OutputDir:     "output",
		Variants:      pipeline.DefaultVariants,
		FieldFontSize: 8,
		MaxRetries:    2,
		Provider:      "gemini",
	}
	cfg = cfg.MergeWithDefaults(defaults)

	// Step 4: Validate the merged configuration
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.InputPDF == "" && cfg.BatchDir == "" {
		return fmt.Errorf("either --input-pdf or --batch-dir must be provided (via flag or config)")
	}

	client, err := newModelClient(ctx, &cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	runner := pipeline.NewRunner(client)
	tally, err := runner.Run(ctx, pipeline.Options{
		InputPDF:          cfg.InputPDF,
		BatchDir:          cfg.BatchDir,
		OutputDir:         cfg.OutputDir,
		Variants:          cfg.Variants,
		DisableValidation: cfg.DisableValidation,
		FieldFontSize:     cfg.FieldFontSize,
		MaxRetries:        cfg.MaxRetries,
		Verbose:           cfg.Verbose,
		OnProgress: func(event pipeline.ProgressEvent) {
			_, _ = fmt.Fprintf(os.Stdout, "[%s] %s\n", event.Step, event.Message)
		},
	})
	if err != nil {
		return err
	}
	if tally.Failed > 0 {
		return fmt.Errorf("%d of %d templates failed", tally.Failed, tally.Total)
	}
	return nil
}

// newModelClient builds the provider client from the merged configuration,
// falling back to the provider's conventional environment variables.
func newModelClient(ctx context.Context, cfg *config.Config) (oracle.Client, error) {
	providerConfig := oracle.ConfigForProvider(oracle.Provider(cfg.Provider))
	providerConfig.BaseURL = cfg.BaseURL
	if providerConfig.BaseURL == "" {
		providerConfig.BaseURL = os.Getenv("AZURE_OPENAI_ENDPOINT")
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		switch providerConfig.Provider {
		case oracle.ProviderOpenAI:
			apiKey = os.Getenv("OPENAI_API_KEY")
			if apiKey == "" {
				apiKey = os.Getenv("AZURE_OPENAI_API_KEY")
			}
		default:
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("a model API key is required (--api-key flag or provider env var)")
	}

	return oracle.NewClient(ctx, providerConfig, apiKey)
}
