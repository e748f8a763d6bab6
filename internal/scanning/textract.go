package scanning

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/zombor/receipt-splitter/internal/parsing"
)

// textractAPI is the subset of the Textract client used here
type textractAPI interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// Textract implements the Detector interface using AWS Textract
type Textract struct {
	client  textractAPI
	timeout time.Duration
}

// NewTextract creates a Textract Detector using the default AWS credential
// chain. An empty region defers to the environment.
func NewTextract(region string) (*Textract, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return NewTextractWithClient(textract.NewFromConfig(cfg)), nil
}

// NewTextractWithClient creates a Textract Detector around an existing client
func NewTextractWithClient(client textractAPI) *Textract {
	return &Textract{client: client, timeout: 30 * time.Second}
}

// DetectWords sends the document to DetectDocumentText and keeps WORD blocks
func (t *Textract) DetectWords(imageData []byte, contentType string) ([]parsing.Word, error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	// Textract reads JPEG and PNG directly; everything else becomes PNG.
	data := imageData
	if mimeType := normalizeMIME(contentType); mimeType != "image/jpeg" || isHEIC(imageData, mimeType) {
		var err error
		if data, err = toPNG(imageData, contentType); err != nil {
			return nil, err
		}
	}

	out, err := t.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: data},
	})
	if err != nil {
		return nil, fmt.Errorf("detecting document text: %w", err)
	}

	words := make([]parsing.Word, 0, len(out.Blocks))
	for _, b := range out.Blocks {
		if b.BlockType != types.BlockTypeWord || b.Geometry == nil || b.Geometry.BoundingBox == nil {
			continue
		}
		bb := b.Geometry.BoundingBox
		words = append(words, rectWord(aws.ToString(b.Text),
			float64(bb.Left), float64(bb.Top), float64(bb.Width), float64(bb.Height)))
	}
	return words, nil
}

// Close is a no-op; the AWS client holds no resources
func (t *Textract) Close() error {
	return nil
}

// textractResponse mirrors the JSON a saved DetectDocumentText response has
// (for example from `aws textract detect-document-text`).
type textractResponse struct {
	Blocks []struct {
		BlockType string `json:"BlockType"`
		Text      string `json:"Text"`
		Geometry  *struct {
			BoundingBox *struct {
				Left   float64 `json:"Left"`
				Top    float64 `json:"Top"`
				Width  float64 `json:"Width"`
				Height float64 `json:"Height"`
			} `json:"BoundingBox"`
		} `json:"Geometry"`
	} `json:"Blocks"`
}

// WordsFromTextractJSON reads the WORD blocks of a saved Textract response
func WordsFromTextractJSON(r io.Reader) ([]parsing.Word, error) {
	var resp textractResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding textract response: %w", err)
	}

	words := make([]parsing.Word, 0, len(resp.Blocks))
	for _, b := range resp.Blocks {
		if b.BlockType != string(types.BlockTypeWord) || b.Geometry == nil || b.Geometry.BoundingBox == nil {
			continue
		}
		bb := b.Geometry.BoundingBox
		words = append(words, rectWord(b.Text, bb.Left, bb.Top, bb.Width, bb.Height))
	}
	return words, nil
}
