package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// normalizeMIME lowercases a content type, defaulting to JPEG when missing.
func normalizeMIME(contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" {
		return "image/jpeg"
	}
	return mimeType
}

// isHEIC checks the ftyp brand at offset 4 as well as the MIME type. Phones
// often upload HEIC photos labelled as something else.
func isHEIC(data []byte, mimeType string) bool {
	if strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif") {
		return true
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// decodeImage decodes the first page of a PDF, a HEIC photo or any format
// registered with the image package.
func decodeImage(data []byte, mimeType string) (image.Image, error) {
	switch {
	case mimeType == "application/pdf":
		doc, err := fitz.NewFromMemory(data)
		if err != nil {
			return nil, fmt.Errorf("opening PDF: %w", err)
		}
		defer doc.Close()

		img, err := doc.Image(0)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page: %w", err)
		}
		return img, nil
	case isHEIC(data, mimeType):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			if strings.Contains(err.Error(), "unknown format") {
				return nil, fmt.Errorf("unsupported image format (supported: JPEG, PNG, GIF, HEIC, HEIF, PDF): %w", err)
			}
			return nil, fmt.Errorf("decoding image: %w", err)
		}
		return img, nil
	}
}

// toPNG prepares an upload for a detector. PNG input is returned unchanged.
func toPNG(data []byte, contentType string) ([]byte, error) {
	mimeType := normalizeMIME(contentType)
	if mimeType == "image/png" && !isHEIC(data, mimeType) {
		return data, nil
	}

	img, err := decodeImage(data, mimeType)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
