package parsing

import "math"

// Point is a corner of a bounding box in normalized image coordinates.
// Y grows downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Word is a single OCR-detected token. BoundingBox holds the corners in
// top-left, top-right, bottom-right, bottom-left order.
type Word struct {
	Text        string  `json:"text"`
	BoundingBox []Point `json:"bounding_box"`
}

// Valid reports whether the word has a usable four-corner box.
func (w Word) Valid() bool {
	if len(w.BoundingBox) != 4 {
		return false
	}
	for _, p := range w.BoundingBox {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return false
		}
	}
	return true
}

// Top returns the y of the top-left corner
func (w Word) Top() float64 { return w.BoundingBox[0].Y }

// Bottom returns the y of the bottom-right corner
func (w Word) Bottom() float64 { return w.BoundingBox[2].Y }

// Left returns the x of the top-left corner
func (w Word) Left() float64 { return w.BoundingBox[0].X }

// Right returns the x of the top-right corner
func (w Word) Right() float64 { return w.BoundingBox[1].X }

// Height returns the vertical extent of the word.
func (w Word) Height() float64 { return w.Bottom() - w.Top() }

// anchor is the midpoint of the top edge. Run clustering measures distances
// between anchors so they line up with the top-edge gaps it is tuned against.
func (w Word) anchor() (float64, float64) {
	tl, tr := w.BoundingBox[0], w.BoundingBox[1]
	return (tl.X + tr.X) / 2, (tl.Y + tr.Y) / 2
}

// validWords drops words that cannot take part in layout inference.
func validWords(words []Word) []Word {
	out := make([]Word, 0, len(words))
	for _, w := range words {
		if w.Valid() {
			out = append(out, w)
		}
	}
	return out
}
