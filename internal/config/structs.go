//nolint:lll
package config

import "github.com/MeKo-Tech/cardscan/internal/card"

// Config represents the complete configuration for the cardscan application.
// It covers every command (extract, batch, serve) and is loaded from
// configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// OCR engine selection
	OCR OCRConfig `mapstructure:"ocr" yaml:"ocr" json:"ocr"`

	// Named-entity recognition for the name field
	NER NERConfig `mapstructure:"ner" yaml:"ner" json:"ner"`

	// Field extraction rules
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction" json:"extraction"`

	// PDF intake
	PDF PDFConfig `mapstructure:"pdf" yaml:"pdf" json:"pdf"`

	// Card persistence
	Store StoreConfig `mapstructure:"store" yaml:"store" json:"store"`

	// Upload handling
	Upload UploadConfig `mapstructure:"upload" yaml:"upload" json:"upload"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// OCRConfig selects and configures the OCR engine.
type OCRConfig struct {
	Engine     string           `mapstructure:"engine" yaml:"engine" json:"engine"`
	Language   string           `mapstructure:"language" yaml:"language" json:"language"`
	Level      string           `mapstructure:"level" yaml:"level" json:"level"`
	Preprocess bool             `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`
	DocumentAI DocumentAIConfig `mapstructure:"documentai" yaml:"documentai" json:"documentai"`
	Azure      AzureConfig      `mapstructure:"azure" yaml:"azure" json:"azure"`
}

// DocumentAIConfig addresses a Google Document AI OCR processor.
type DocumentAIConfig struct {
	ProjectID       string `mapstructure:"project_id" yaml:"project_id" json:"project_id"`
	Location        string `mapstructure:"location" yaml:"location" json:"location"`
	ProcessorID     string `mapstructure:"processor_id" yaml:"processor_id" json:"processor_id"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file" json:"credentials_file"`
}

// AzureConfig addresses an Azure Computer Vision resource.
type AzureConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	Key      string `mapstructure:"key" yaml:"key" json:"-"`
}

// NERConfig selects the entity recognizer.
type NERConfig struct {
	Kind       string `mapstructure:"kind" yaml:"kind" json:"kind"`
	URL        string `mapstructure:"url" yaml:"url" json:"url"`
	Model      string `mapstructure:"model" yaml:"model" json:"model"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	NamesFile  string `mapstructure:"names_file" yaml:"names_file" json:"names_file"`
}

// ExtractionConfig extends the built-in pattern library.
type ExtractionConfig struct {
	NameCandidates int               `mapstructure:"name_candidates" yaml:"name_candidates" json:"name_candidates"`
	PhoneLabels    []string          `mapstructure:"phone_labels" yaml:"phone_labels" json:"phone_labels"`
	Corrections    []card.Correction `mapstructure:"corrections" yaml:"corrections" json:"corrections"`
}

// PDFConfig controls image extraction from PDF uploads.
type PDFConfig struct {
	PageRange string `mapstructure:"page_range" yaml:"page_range" json:"page_range"`
	Password  string `mapstructure:"password" yaml:"password" json:"-"`
}

// StoreConfig selects the card database. An empty driver disables storage.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver" json:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn" json:"-"`
}

// UploadConfig contains upload handling settings.
type UploadConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request quotas. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int  `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers   int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive bool   `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Format    string `mapstructure:"format" yaml:"format" json:"format"`
	Output    string `mapstructure:"output" yaml:"output" json:"output"`
	Save      bool   `mapstructure:"save" yaml:"save" json:"save"`
}
