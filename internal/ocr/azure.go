package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/MeKo-Tech/cardscan/internal/card"
)

type printedTextRecognizer interface {
	RecognizePrintedTextInStream(ctx context.Context, detectOrientation bool, image io.ReadCloser,
		language computervision.OcrLanguages) (computervision.OcrResult, error)
}

// AzureEngine runs the Azure Computer Vision printed text OCR. The service
// does not report confidence, so fragments carry 0.
type AzureEngine struct {
	client   printedTextRecognizer
	language computervision.OcrLanguages
}

// NewAzureEngine creates an engine for the Computer Vision resource at cfg.Endpoint.
// language is an ISO code such as "en"; empty means automatic detection.
func NewAzureEngine(cfg AzureConfig, language string) (*AzureEngine, error) {
	if cfg.Endpoint == "" || cfg.Key == "" {
		return nil, fmt.Errorf("azure OCR requires endpoint and key")
	}
	client := computervision.New(cfg.Endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(cfg.Key)
	return newAzureEngine(client, language), nil
}

func newAzureEngine(client printedTextRecognizer, language string) *AzureEngine {
	lang := computervision.OcrLanguagesUnk
	if language != "" {
		lang = computervision.OcrLanguages(language)
	}
	return &AzureEngine{client: client, language: lang}
}

// Name implements Engine.
func (e *AzureEngine) Name() string { return KindAzure }

// Close implements Engine.
func (e *AzureEngine) Close() error { return nil }

// Recognize implements Engine.
func (e *AzureEngine) Recognize(ctx context.Context, imagePath string) ([]card.Fragment, error) {
	f, err := os.Open(imagePath) //nolint:gosec // G304: reading the caller's image is expected
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	result, err := e.client.RecognizePrintedTextInStream(ctx, true, f, e.language)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	return fragmentsFromOCRResult(result), nil
}

// fragmentsFromOCRResult turns each recognized line into a fragment.
func fragmentsFromOCRResult(result computervision.OcrResult) []card.Fragment {
	if result.Regions == nil {
		return nil
	}
	var frags []card.Fragment
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			text := lineText(line)
			if text == "" {
				continue
			}
			frags = append(frags, card.Fragment{
				Box:  parseAzureBox(line.BoundingBox),
				Text: text,
			})
		}
	}
	return frags
}

func lineText(line computervision.OcrLine) string {
	if line.Words == nil {
		return ""
	}
	words := make([]string, 0, len(*line.Words))
	for _, w := range *line.Words {
		if w.Text != nil && *w.Text != "" {
			words = append(words, *w.Text)
		}
	}
	return strings.Join(words, " ")
}

// parseAzureBox converts an "x,y,w,h" string into four corners.
func parseAzureBox(s *string) card.BoundingBox {
	if s == nil {
		return nil
	}
	parts := strings.Split(*s, ",")
	if len(parts) != 4 {
		return nil
	}
	var v [4]float64
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil
		}
		v[i] = n
	}
	return quad(v[0], v[1], v[2], v[3])
}
