package scanning

import "github.com/zombor/receipt-splitter/internal/parsing"

// Detector finds the words printed on a receipt image together with their
// bounding boxes in normalized coordinates.
type Detector interface {
	// DetectWords runs text detection on an image or PDF
	DetectWords(imageData []byte, contentType string) ([]parsing.Word, error)
	// Close releases any client resources
	Close() error
}

// rectWord builds a word from an axis-aligned rectangle given as left, top,
// width and height.
func rectWord(text string, left, top, width, height float64) parsing.Word {
	return parsing.Word{
		Text: text,
		BoundingBox: []parsing.Point{
			{X: left, Y: top},
			{X: left + width, Y: top},
			{X: left + width, Y: top + height},
			{X: left, Y: top + height},
		},
	}
}
