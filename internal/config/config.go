package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/card"
	"github.com/MeKo-Tech/cardscan/internal/intake"
	"github.com/MeKo-Tech/cardscan/internal/ner"
	"github.com/MeKo-Tech/cardscan/internal/ocr"
	"github.com/MeKo-Tech/cardscan/internal/pdf"
	"github.com/MeKo-Tech/cardscan/internal/server"
	"github.com/MeKo-Tech/cardscan/internal/store"
	"github.com/MeKo-Tech/cardscan/internal/utils"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		OCR: OCRConfig{
			Engine:   ocr.KindTesseract,
			Language: "eng",
			Level:    ocr.LevelLine,
			DocumentAI: DocumentAIConfig{
				Location: "us",
			},
		},
		NER: NERConfig{
			Kind:       ner.KindGazetteer,
			TimeoutSec: 10,
		},
		Extraction: ExtractionConfig{
			NameCandidates: card.DefaultNameCandidates,
			PhoneLabels:    card.DefaultPhoneLabels(),
		},
		Store: StoreConfig{
			Driver: store.DriverSQLite,
			DSN:    store.DefaultDSN,
		},
		Upload: UploadConfig{
			Dir: intake.DefaultUploadDir,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     10,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 5000,
				MaxDataPerDayMB:   500,
			},
		},
		Batch: BatchConfig{
			Workers: 4,
			Format:  "text",
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validEngines := []string{ocr.KindTesseract, ocr.KindDocumentAI, ocr.KindAzure, ocr.KindFragments}
	if !slices.Contains(validEngines, strings.ToLower(c.OCR.Engine)) {
		return fmt.Errorf("invalid ocr engine: %s (must be one of: %s)", c.OCR.Engine, strings.Join(validEngines, ", "))
	}
	if c.OCR.Level != "" && c.OCR.Level != ocr.LevelLine && c.OCR.Level != ocr.LevelWord {
		return fmt.Errorf("invalid ocr level: %s (must be %s or %s)", c.OCR.Level, ocr.LevelLine, ocr.LevelWord)
	}

	validKinds := []string{ner.KindGazetteer, ner.KindHTTP, ner.KindChain, ner.KindNone}
	if !slices.Contains(validKinds, strings.ToLower(c.NER.Kind)) {
		return fmt.Errorf("invalid ner kind: %s (must be one of: %s)", c.NER.Kind, strings.Join(validKinds, ", "))
	}
	if c.NER.TimeoutSec < 0 {
		return fmt.Errorf("invalid ner timeout: %d (must not be negative)", c.NER.TimeoutSec)
	}

	if c.Extraction.NameCandidates < 0 {
		return fmt.Errorf("invalid name candidates: %d (must not be negative)", c.Extraction.NameCandidates)
	}
	if _, err := pdf.ParsePageRange(c.PDF.PageRange); err != nil {
		return fmt.Errorf("invalid pdf page range: %w", err)
	}

	validDrivers := []string{"", store.DriverSQLite, store.DriverPostgres}
	if !slices.Contains(validDrivers, c.Store.Driver) {
		return fmt.Errorf("invalid store driver: %s (must be %s, %s or empty)", c.Store.Driver, store.DriverSQLite, store.DriverPostgres)
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Batch.Format != "" && !slices.Contains(validFormats, c.Batch.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Batch.Format, strings.Join(validFormats, ", "))
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDayMB < 0 {
		return fmt.Errorf("invalid rate limit: quotas must not be negative")
	}

	return nil
}

// ToOCRConfig converts the config to the OCR engine configuration.
func (c *Config) ToOCRConfig() ocr.Config {
	return ocr.Config{
		Engine:   c.OCR.Engine,
		Language: c.OCR.Language,
		Level:    c.OCR.Level,
		DocumentAI: ocr.DocumentAIConfig{
			ProjectID:       c.OCR.DocumentAI.ProjectID,
			Location:        c.OCR.DocumentAI.Location,
			ProcessorID:     c.OCR.DocumentAI.ProcessorID,
			CredentialsFile: c.OCR.DocumentAI.CredentialsFile,
		},
		Azure: ocr.AzureConfig{
			Endpoint: c.OCR.Azure.Endpoint,
			Key:      c.OCR.Azure.Key,
		},
	}
}

// ToNERConfig converts the config to the recognizer configuration.
func (c *Config) ToNERConfig() ner.Config {
	return ner.Config{
		Kind:      c.NER.Kind,
		URL:       c.NER.URL,
		Model:     c.NER.Model,
		Timeout:   time.Duration(c.NER.TimeoutSec) * time.Second,
		NamesFile: c.NER.NamesFile,
	}
}

// ToRulesConfig converts the extraction section to pattern library settings.
func (c *Config) ToRulesConfig() card.RulesConfig {
	return card.RulesConfig{
		Corrections:    c.Extraction.Corrections,
		PhoneLabels:    c.Extraction.PhoneLabels,
		NameCandidates: c.Extraction.NameCandidates,
	}
}

// ToStoreConfig converts the store section. ok is false when storage is disabled.
func (c *Config) ToStoreConfig() (cfg store.Config, ok bool) {
	if c.Store.Driver == "" {
		return store.Config{}, false
	}
	return store.Config{Driver: c.Store.Driver, DSN: c.Store.DSN}, true
}

// ToIntakeConfig converts the config to the upload pipeline configuration.
func (c *Config) ToIntakeConfig() intake.Config {
	return intake.Config{
		UploadDir:  c.Upload.Dir,
		Preprocess: c.OCR.Preprocess,
		Enhance:    utils.DefaultEnhanceOptions(),
		PDF:        pdf.Options{PageRange: c.PDF.PageRange, Password: c.PDF.Password},
	}
}

// ToServerConfig converts the config to the HTTP server configuration.
func (c *Config) ToServerConfig(version string) server.Config {
	rl := c.Server.RateLimit
	return server.Config{
		Host:        c.Server.Host,
		Port:        c.Server.Port,
		CORSOrigin:  c.Server.CORSOrigin,
		MaxUploadMB: int64(c.Server.MaxUploadMB),
		TimeoutSec:  c.Server.TimeoutSec,
		Version:     version,
		RateLimit: server.RateLimitConfig{
			Enabled:           rl.Enabled,
			RequestsPerMinute: rl.RequestsPerMinute,
			RequestsPerHour:   rl.RequestsPerHour,
			MaxRequestsPerDay: rl.MaxRequestsPerDay,
			MaxDataPerDay:     int64(rl.MaxDataPerDayMB) * 1024 * 1024,
		},
	}
}
