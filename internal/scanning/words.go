package scanning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zombor/receipt-splitter/internal/parsing"
)

// boxScale is the coordinate range vision models report box_2d values in.
const boxScale = 1000.0

// detectWordsPrompt is shared by the vision model detectors.
const detectWordsPrompt = `You are reading a photographed or scanned store receipt. Transcribe every word printed on it, including the store header, item names, quantities, prices and the summary lines (subtotal, tax, tip, total).

For each word return its bounding box as box_2d: [ymin, xmin, ymax, xmax], normalized to 0-1000 relative to the image height and width.

Return ONLY a JSON array in this exact format:
[
  {"text": "Coffee", "box_2d": [102, 80, 121, 190]},
  {"text": "3.50", "box_2d": [102, 820, 121, 900]}
]

Important:
- One element per word; split on whitespace
- Keep a price with its currency symbol as one word (e.g. "$3.50")
- Copy the text exactly as printed, do not correct spelling
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// detectedWord is one element of a vision model's response.
type detectedWord struct {
	Text  string    `json:"text"`
	Box2D []float64 `json:"box_2d"`
}

// parseWordsJSON extracts words from a model response. The response may be
// wrapped in code fences or prose; entries without text or a usable box are
// skipped.
func parseWordsJSON(text string) ([]parsing.Word, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")

	start := strings.Index(text, "[")
	if start == -1 {
		return nil, fmt.Errorf("no JSON array found in response")
	}
	end := strings.LastIndex(text, "]")
	if end < start {
		return nil, fmt.Errorf("invalid JSON array in response")
	}

	var detected []detectedWord
	if err := json.Unmarshal([]byte(text[start:end+1]), &detected); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	words := make([]parsing.Word, 0, len(detected))
	for _, d := range detected {
		t := strings.TrimSpace(d.Text)
		if t == "" || len(d.Box2D) != 4 {
			continue
		}
		ymin, xmin := clampUnit(d.Box2D[0]/boxScale), clampUnit(d.Box2D[1]/boxScale)
		ymax, xmax := clampUnit(d.Box2D[2]/boxScale), clampUnit(d.Box2D[3]/boxScale)
		if ymax <= ymin || xmax <= xmin {
			continue
		}
		words = append(words, rectWord(t, xmin, ymin, xmax-xmin, ymax-ymin))
	}
	return words, nil
}

func clampUnit(v float64) float64 {
	return min(max(v, 0), 1)
}
