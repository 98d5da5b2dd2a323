package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/cardscan/internal/card"
	"github.com/MeKo-Tech/cardscan/internal/config"
	"github.com/MeKo-Tech/cardscan/internal/intake"
	"github.com/spf13/cobra"
)

// extractCmd runs a single card through OCR and field extraction.
var extractCmd = &cobra.Command{
	Use:   "extract <image|pdf|fragments.json>",
	Short: "Extract name, email, phone and address from one business card",
	Long: `Extract the contact details printed on a single business card.

The input is an image or PDF that is passed to the configured OCR engine.
With --fragments the input is OCR output already recorded as JSON, a list of
[box, text, confidence] triples, and no OCR runs. Use "-" to read fragments
from stdin.

Examples:
  cardscan extract card.jpg
  cardscan extract card.pdf --engine azure --format json
  cardscan extract --fragments ocr.json
  cat ocr.json | cardscan extract --fragments -`,
	Args: cobra.ExactArgs(1),
	RunE: runExtractCommand,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("engine", "", "OCR engine: tesseract, documentai, azure, fragments")
	extractCmd.Flags().String("language", "", "OCR language hint")
	extractCmd.Flags().StringP("format", "f", "text", "output format: text, json")
	extractCmd.Flags().Bool("preprocess", false, "enhance the image before OCR")
	extractCmd.Flags().Bool("fragments", false, "treat the input as recorded OCR fragments")
	extractCmd.Flags().Bool("save", false, "store the extracted card")
}

// applyOCRFlags copies OCR flag overrides into cfg.
func applyOCRFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("engine") {
		cfg.OCR.Engine, _ = cmd.Flags().GetString("engine")
	}
	if cmd.Flags().Changed("language") {
		cfg.OCR.Language, _ = cmd.Flags().GetString("language")
	}
	if cmd.Flags().Changed("preprocess") {
		cfg.OCR.Preprocess, _ = cmd.Flags().GetBool("preprocess")
	}
}

func runExtractCommand(cmd *cobra.Command, args []string) error {
	cfg := *GetConfig()
	applyOCRFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid output format: %s (must be text or json)", format)
	}
	rawFragments, _ := cmd.Flags().GetBool("fragments")
	save, _ := cmd.Flags().GetBool("save")

	var (
		res intake.Result
		err error
	)
	if rawFragments {
		res, err = extractFragments(cmd, &cfg, args[0])
	} else {
		res, err = extractImage(cmd, &cfg, args[0], save)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	writeRecordText(out, res.Record)
	if res.ID != 0 {
		_, _ = fmt.Fprintf(out, "Stored:  #%d\n", res.ID)
	}
	return nil
}

func extractFragments(cmd *cobra.Command, cfg *config.Config, path string) (intake.Result, error) {
	extractor, err := buildExtractor(cfg)
	if err != nil {
		return intake.Result{}, err
	}

	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return intake.Result{}, fmt.Errorf("failed to open fragments: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	rec, err := extractor.ExtractRaw(cmd.Context(), r)
	if err != nil {
		return intake.Result{}, fmt.Errorf("extraction failed: %w", err)
	}
	return intake.Result{File: path, Engine: "raw", Record: rec}, nil
}

func extractImage(cmd *cobra.Command, cfg *config.Config, path string, save bool) (intake.Result, error) {
	if _, err := os.Stat(path); err != nil {
		return intake.Result{}, fmt.Errorf("cannot access %s: %w", path, err)
	}

	deps, err := buildRuntime(cmd.Context(), cfg, save)
	if err != nil {
		return intake.Result{}, err
	}
	defer func() { _ = deps.Close() }()

	if !deps.service.Supported(path) {
		return intake.Result{}, fmt.Errorf("%w: %s", intake.ErrUnsupportedFile, filepath.Ext(path))
	}

	res, err := deps.service.Analyze(cmd.Context(), path)
	if err != nil {
		return res, err
	}

	if save {
		if deps.store == nil {
			return res, fmt.Errorf("saving requires a configured store")
		}
		res.ID, err = deps.store.Save(cmd.Context(), res.Record, filepath.Base(path))
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func writeRecordText(w io.Writer, rec card.Record) {
	_, _ = fmt.Fprintf(w, "Name:    %s\n", rec.Name)
	_, _ = fmt.Fprintf(w, "Email:   %s\n", orDash(rec.Email))
	_, _ = fmt.Fprintf(w, "Phone:   %s\n", orDash(rec.Phone))
	_, _ = fmt.Fprintf(w, "Address: %s\n", rec.Address)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
