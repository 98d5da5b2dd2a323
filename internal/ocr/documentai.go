package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/MeKo-Tech/cardscan/internal/card"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

var documentAIMimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

type documentProcessor interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
	Close() error
}

// DocumentAIEngine sends images to a Google Document AI OCR processor and
// converts the lines of the first page to fragments.
type DocumentAIEngine struct {
	client documentProcessor
	name   string
}

// NewDocumentAIEngine connects to the regional Document AI endpoint.
// An empty CredentialsFile falls back to GOOGLE_APPLICATION_CREDENTIALS.
func NewDocumentAIEngine(ctx context.Context, cfg DocumentAIConfig) (*DocumentAIEngine, error) {
	if cfg.ProjectID == "" || cfg.Location == "" || cfg.ProcessorID == "" {
		return nil, fmt.Errorf("document AI requires project_id, location and processor_id")
	}

	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)),
	}
	creds := cfg.CredentialsFile
	if creds == "" {
		creds = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	return newDocumentAIEngine(client, cfg), nil
}

func newDocumentAIEngine(client documentProcessor, cfg DocumentAIConfig) *DocumentAIEngine {
	return &DocumentAIEngine{
		client: client,
		name: fmt.Sprintf("projects/%s/locations/%s/processors/%s",
			cfg.ProjectID, cfg.Location, cfg.ProcessorID),
	}
}

// Name implements Engine.
func (e *DocumentAIEngine) Name() string { return KindDocumentAI }

// Close implements Engine.
func (e *DocumentAIEngine) Close() error { return e.client.Close() }

// Recognize implements Engine.
func (e *DocumentAIEngine) Recognize(ctx context.Context, imagePath string) ([]card.Fragment, error) {
	mimeType, ok := documentAIMimeTypes[strings.ToLower(filepath.Ext(imagePath))]
	if !ok {
		return nil, fmt.Errorf("unsupported file type for Document AI: %s", filepath.Ext(imagePath))
	}
	content, err := os.ReadFile(imagePath) //nolint:gosec // G304: reading the caller's image is expected
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	resp, err := e.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: e.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
		SkipHumanReview: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process document: %w", err)
	}
	return fragmentsFromDocument(resp.GetDocument()), nil
}

// fragmentsFromDocument converts the lines of the first page.
func fragmentsFromDocument(doc *documentaipb.Document) []card.Fragment {
	if doc == nil || len(doc.GetPages()) == 0 {
		return nil
	}
	page := doc.GetPages()[0]
	text := []rune(doc.GetText())

	frags := make([]card.Fragment, 0, len(page.GetLines()))
	for _, line := range page.GetLines() {
		layout := line.GetLayout()
		s := strings.TrimSpace(textFromLayout(layout, text))
		if s == "" {
			continue
		}
		frags = append(frags, card.Fragment{
			Box:        boxFromLayout(layout, page.GetDimension()),
			Text:       s,
			Confidence: float64(layout.GetConfidence()),
		})
	}
	return frags
}

// textFromLayout joins the text anchor segments of a layout. Indices count
// runes of the document text.
func textFromLayout(layout *documentaipb.Document_Page_Layout, text []rune) string {
	if layout.GetTextAnchor() == nil {
		return ""
	}
	var b strings.Builder
	for _, seg := range layout.GetTextAnchor().GetTextSegments() {
		start, end := int(seg.GetStartIndex()), int(seg.GetEndIndex())
		if end > len(text) {
			end = len(text)
		}
		if start < 0 {
			start = 0
		}
		if start > end {
			start = end
		}
		b.WriteString(string(text[start:end]))
	}
	return b.String()
}

// boxFromLayout prefers pixel vertices and scales normalized ones by the page
// dimension otherwise.
func boxFromLayout(layout *documentaipb.Document_Page_Layout, dim *documentaipb.Document_Page_Dimension) card.BoundingBox {
	poly := layout.GetBoundingPoly()
	if poly == nil {
		return nil
	}
	if vs := poly.GetVertices(); len(vs) > 0 {
		box := make(card.BoundingBox, len(vs))
		for i, v := range vs {
			box[i] = card.Point{X: float64(v.GetX()), Y: float64(v.GetY())}
		}
		return box
	}
	nvs := poly.GetNormalizedVertices()
	if len(nvs) == 0 || dim == nil {
		return nil
	}
	w, h := float64(dim.GetWidth()), float64(dim.GetHeight())
	box := make(card.BoundingBox, len(nvs))
	for i, v := range nvs {
		box[i] = card.Point{X: float64(v.GetX()) * w, Y: float64(v.GetY()) * h}
	}
	return box
}
