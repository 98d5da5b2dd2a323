package cmd

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/batch"
	"github.com/MeKo-Tech/cardscan/internal/config"
	"github.com/spf13/cobra"
)

// batchCmd represents the batch command for parallel card processing.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Extract contact details from many business cards in parallel",
	Long: `Extract contact details from many card scans using parallel workers.
Directories are scanned for images and PDFs; failures of single cards are
reported in the output and do not stop the batch.

Supported formats: JPEG, PNG, BMP, TIFF, WebP, PDF

Examples:
  cardscan batch *.jpg *.png
  cardscan batch scans/ --recursive --workers 8
  cardscan batch scans/ --format csv --output cards.csv
  cardscan batch scans/ --save --progress`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatchCommand,
}

// configToBatchConfig maps centralized configuration to batch.Config.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	bc := &batch.Config{
		Workers:    cfg.Batch.Workers,
		Recursive:  cfg.Batch.Recursive,
		Format:     cfg.Batch.Format,
		OutputFile: cfg.Batch.Output,
		Save:       cfg.Batch.Save,
	}

	if cmd.Flags().Changed("workers") {
		bc.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("recursive") {
		bc.Recursive, _ = cmd.Flags().GetBool("recursive")
	}
	if cmd.Flags().Changed("format") {
		bc.Format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("output") {
		bc.OutputFile, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("save") {
		bc.Save, _ = cmd.Flags().GetBool("save")
	}

	// File discovery and progress settings are CLI-only
	bc.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	bc.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	bc.ShowProgress, _ = cmd.Flags().GetBool("progress")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	bc.ProgressInterval, _ = cmd.Flags().GetDuration("progress-interval")
	bc.Progress = cmd.ErrOrStderr()
	bc.Logger = slog.Default()

	return bc
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := *GetConfig()
	applyOCRFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	bc := configToBatchConfig(&cfg, cmd)

	deps, err := buildRuntime(cmd.Context(), &cfg, bc.Save)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close() }()

	result, err := batch.Run(cmd.Context(), args, bc, deps.service)
	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	if err := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	if stats, _ := cmd.Flags().GetBool("stats"); stats && !bc.Quiet {
		result.PrintStats(cmd.ErrOrStderr())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// OCR flags
	batchCmd.Flags().String("engine", "", "OCR engine: tesseract, documentai, azure, fragments")
	batchCmd.Flags().String("language", "", "OCR language hint")
	batchCmd.Flags().Bool("preprocess", false, "enhance images before OCR")

	// Output flags
	batchCmd.Flags().StringP("format", "f", "text", "output format: text, json, csv")
	batchCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	batchCmd.Flags().Bool("save", false, "store every extracted card")

	// Parallel processing flags
	batchCmd.Flags().IntP("workers", "w", 0, fmt.Sprintf("number of parallel workers (default: %d)", runtime.NumCPU()))

	// File discovery flags
	batchCmd.Flags().BoolP("recursive", "r", false, "recursively scan directories")
	batchCmd.Flags().StringSlice("include", []string{}, "file patterns to include")
	batchCmd.Flags().StringSlice("exclude", []string{}, "file patterns to exclude")

	// Progress and monitoring flags
	batchCmd.Flags().Bool("progress", false, "show progress bar")
	batchCmd.Flags().Bool("quiet", false, "suppress progress output")
	batchCmd.Flags().Bool("stats", false, "show processing statistics")
	batchCmd.Flags().Duration("progress-interval", 500*time.Millisecond, "progress update interval")
}
