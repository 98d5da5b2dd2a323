// Package intake runs an uploaded card through OCR, extraction, storage and
// notification.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/card"
	"github.com/MeKo-Tech/cardscan/internal/notify"
	"github.com/MeKo-Tech/cardscan/internal/ocr"
	"github.com/MeKo-Tech/cardscan/internal/pdf"
	"github.com/MeKo-Tech/cardscan/internal/store"
	"github.com/MeKo-Tech/cardscan/internal/utils"
)

// DefaultUploadDir is used when Config.UploadDir is empty.
const DefaultUploadDir = "uploads"

// ErrUnsupportedFile is returned for uploads that are neither images nor PDFs.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Config controls a Service.
type Config struct {
	UploadDir  string
	Preprocess bool
	Enhance    utils.EnhanceOptions
	PDF        pdf.Options
}

// Upload is an incoming card file.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Timing reports how long each stage took.
type Timing struct {
	OCRMs     int64 `json:"ocr_ms"`
	ExtractMs int64 `json:"extract_ms"`
	TotalMs   int64 `json:"total_ms"`
}

// Result is the outcome of processing one card.
type Result struct {
	ID         uint        `json:"id,omitempty"`
	File       string      `json:"file"`
	StoredPath string      `json:"stored_path,omitempty"`
	Engine     string      `json:"engine"`
	Fragments  int         `json:"fragments"`
	Record     card.Record `json:"record"`
	Timing     Timing      `json:"timing"`
}

// Service wires the OCR engine, the extractor and the optional collaborators.
type Service struct {
	cfg          Config
	engine       ocr.Engine
	extractor    *card.Extractor
	store        store.Store
	notifier     notify.Notifier
	preprocessor *ocr.Preprocessor
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithStore persists every processed card.
func WithStore(s store.Store) Option {
	return func(svc *Service) { svc.store = s }
}

// WithNotifier notifies the phone number found on a card.
func WithNotifier(n notify.Notifier) Option {
	return func(svc *Service) { svc.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// NewService creates a Service. engine and extractor are required.
func NewService(cfg Config, engine ocr.Engine, extractor *card.Extractor, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, errors.New("intake requires an OCR engine")
	}
	if extractor == nil {
		return nil, errors.New("intake requires an extractor")
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = DefaultUploadDir
	}
	if cfg.Enhance == (utils.EnhanceOptions{}) {
		cfg.Enhance = utils.DefaultEnhanceOptions()
	}
	svc := &Service{
		cfg:       cfg,
		engine:    engine,
		extractor: extractor,
		logger:    slog.Default(),
	}
	if cfg.Preprocess {
		svc.preprocessor = ocr.NewPreprocessor(cfg.Enhance)
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Engine returns the OCR engine in use.
func (s *Service) Engine() ocr.Engine { return s.engine }

// Extractor returns the field extractor in use.
func (s *Service) Extractor() *card.Extractor { return s.extractor }

// Store returns the configured store, or nil.
func (s *Service) Store() store.Store { return s.store }

// Supported reports whether path has an extension the service can read.
func (s *Service) Supported(path string) bool {
	if utils.IsSupportedImage(path) || utils.IsPDF(path) {
		return true
	}
	return s.engine.Name() == ocr.KindFragments && strings.EqualFold(filepath.Ext(path), ".json")
}

// Recognize runs OCR on path. PDFs are reduced to their first image and
// images are enhanced first when preprocessing is enabled. The fragments
// engine reads recorded output and skips both steps.
func (s *Service) Recognize(ctx context.Context, path string) ([]card.Fragment, error) {
	if s.engine.Name() == ocr.KindFragments {
		return s.engine.Recognize(ctx, path)
	}

	imagePath := path
	if utils.IsPDF(path) {
		tmpDir, err := os.MkdirTemp("", "cardscan-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp directory: %w", err)
		}
		defer func() { _ = os.RemoveAll(tmpDir) }()

		imagePath, err = pdf.FirstImage(path, tmpDir, s.cfg.PDF)
		if err != nil {
			return nil, fmt.Errorf("pdf %s: %w", filepath.Base(path), err)
		}
	}

	if s.preprocessor != nil {
		processed, err := s.preprocessor.Process(imagePath)
		if err != nil {
			return nil, fmt.Errorf("preprocessing failed: %w", err)
		}
		defer func() {
			if err := s.preprocessor.Cleanup(processed); err != nil {
				s.logger.Warn("failed to remove processed image", "path", processed, "error", err)
			}
		}()
		imagePath = processed
	}

	return s.engine.Recognize(ctx, imagePath)
}

// Analyze recognizes and extracts the card at path without storing it.
func (s *Service) Analyze(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	res := Result{File: path, Engine: s.engine.Name()}

	frags, err := s.Recognize(ctx, path)
	if err != nil {
		cardsProcessedTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("ocr failed: %w", err)
	}
	ocrDone := time.Now()
	res.Fragments = len(frags)
	fragmentsRecognized.Observe(float64(len(frags)))

	rec, err := s.extractor.Extract(ctx, frags)
	if err != nil {
		cardsProcessedTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("extraction failed: %w", err)
	}
	res.Record = rec
	observeRecord(rec)

	end := time.Now()
	res.Timing = Timing{
		OCRMs:     ocrDone.Sub(start).Milliseconds(),
		ExtractMs: end.Sub(ocrDone).Milliseconds(),
		TotalMs:   end.Sub(start).Milliseconds(),
	}
	stageDuration.WithLabelValues("ocr").Observe(ocrDone.Sub(start).Seconds())
	stageDuration.WithLabelValues("extract").Observe(end.Sub(ocrDone).Seconds())
	cardsProcessedTotal.WithLabelValues("success").Inc()
	return res, nil
}

// Process saves an upload, extracts its fields, stores the record, renames
// the saved file after the person and notifies the phone on the card.
func (s *Service) Process(ctx context.Context, up Upload) (Result, error) {
	start := time.Now()
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if !s.Supported(up.Filename) {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}

	saved, err := s.save(up, ext)
	if err != nil {
		return Result{}, err
	}

	res, err := s.Analyze(ctx, saved)
	if err != nil {
		_ = os.Remove(saved)
		return res, err
	}
	res.File = up.Filename

	if s.store != nil {
		res.ID, err = s.store.Save(ctx, res.Record, filepath.Base(saved))
		if err != nil {
			_ = os.Remove(saved)
			return res, err
		}
	}

	res.StoredPath = s.rename(ctx, saved, res.Record.Name, ext, res.ID)

	if res.Record.Phone != "" && s.notifier != nil {
		if err := s.notifier.Notify(ctx, res.Record.Phone, notify.ProcessedMessage); err != nil {
			s.logger.Warn("notification failed", "phone", res.Record.Phone, "error", err)
		}
	}

	stageDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	s.logger.Info("card processed",
		"id", res.ID,
		"file", up.Filename,
		"stored", res.StoredPath,
		"fragments", res.Fragments,
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

func (s *Service) save(up Upload, ext string) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	stem := SecureFilename(strings.TrimSuffix(filepath.Base(up.Filename), filepath.Ext(up.Filename)))
	if stem == "" {
		stem = "upload"
	}
	f, err := os.CreateTemp(s.cfg.UploadDir, stem+"-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(f, up.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return f.Name(), nil
}

// rename moves saved to a name derived from the person. Failures keep the
// upload under its temporary name.
func (s *Service) rename(ctx context.Context, saved, personName, ext string, id uint) string {
	name := CardFilename(personName, ext)
	if name == "" {
		return saved
	}
	target := uniquePath(filepath.Dir(saved), name, id)
	if err := os.Rename(saved, target); err != nil {
		s.logger.Warn("failed to rename upload", "from", saved, "to", target, "error", err)
		return saved
	}
	if s.store != nil && id != 0 {
		if err := s.store.SetImageName(ctx, id, filepath.Base(target)); err != nil {
			s.logger.Warn("failed to record image name", "id", id, "error", err)
		}
	}
	return target
}

// uniquePath returns dir/name, or a suffixed variant when that file exists.
func uniquePath(dir, name string, id uint) string {
	target := filepath.Join(dir, name)
	if !exists(target) {
		return target
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if id != 0 {
		target = filepath.Join(dir, stem+"_"+strconv.FormatUint(uint64(id), 10)+ext)
		if !exists(target) {
			return target
		}
	}
	for n := 2; ; n++ {
		target = filepath.Join(dir, stem+"_"+strconv.Itoa(n)+ext)
		if !exists(target) {
			return target
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
