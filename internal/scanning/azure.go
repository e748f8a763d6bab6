package scanning

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"github.com/zombor/receipt-splitter/internal/parsing"
)

// azureOCRAPI is the subset of the Computer Vision client used here
type azureOCRAPI interface {
	RecognizePrintedTextInStream(ctx context.Context, detectOrientation bool, imageParameter io.ReadCloser, language computervision.OcrLanguages) (computervision.OcrResult, error)
}

// Azure implements the Detector interface using the Azure Computer Vision
// OCR endpoint
type Azure struct {
	client  azureOCRAPI
	timeout time.Duration
}

// NewAzure creates an Azure Detector for a Computer Vision resource
func NewAzure(endpoint, apiKey string) (*Azure, error) {
	if endpoint == "" || apiKey == "" {
		return nil, fmt.Errorf("azure endpoint and api key are required")
	}

	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return NewAzureWithClient(client), nil
}

// NewAzureWithClient creates an Azure Detector around an existing client
func NewAzureWithClient(client azureOCRAPI) *Azure {
	return &Azure{client: client, timeout: 30 * time.Second}
}

// DetectWords runs printed text OCR and normalizes the pixel boxes by the
// size of the submitted image
func (a *Azure) DetectWords(imageData []byte, contentType string) ([]parsing.Word, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	data := imageData
	if mimeType := normalizeMIME(contentType); mimeType != "image/jpeg" || isHEIC(imageData, mimeType) {
		var err error
		if data, err = toPNG(imageData, contentType); err != nil {
			return nil, err
		}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading image size: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("image has no pixels")
	}

	result, err := a.client.RecognizePrintedTextInStream(ctx, false, io.NopCloser(bytes.NewReader(data)), computervision.En)
	if err != nil {
		return nil, fmt.Errorf("recognizing printed text: %w", err)
	}

	return azureWords(result, float64(cfg.Width), float64(cfg.Height)), nil
}

// Close is a no-op; the HTTP client holds no resources
func (a *Azure) Close() error {
	return nil
}

// azureWords flattens an OCR result into words. Boxes arrive as
// "left,top,width,height" in pixels.
func azureWords(result computervision.OcrResult, width, height float64) []parsing.Word {
	var words []parsing.Word
	if result.Regions == nil {
		return words
	}
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			for _, w := range *line.Words {
				if w.Text == nil || w.BoundingBox == nil {
					continue
				}
				box, ok := parsePixelBox(*w.BoundingBox)
				if !ok {
					continue
				}
				words = append(words, rectWord(*w.Text,
					box[0]/width, box[1]/height, box[2]/width, box[3]/height))
			}
		}
	}
	return words
}

func parsePixelBox(s string) ([4]float64, bool) {
	var box [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return box, false
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return box, false
		}
		box[i] = v
	}
	return box, true
}
