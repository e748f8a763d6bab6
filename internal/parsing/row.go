package parsing

import (
	"sort"
	"strings"
)

const (
	// rowEpsilon widens each row band to absorb jitter in detected boxes.
	rowEpsilon = 0.005
	// minRowOverlap is the share of a word's height that must fall inside a
	// row band for the word to belong to that row.
	minRowOverlap = 0.75
)

// MatchPriceToItem collects the description text on the row spanning
// [minY, maxY] for a price whose left edge is at priceX. Price tokens and
// words horizontally aligned with the price are never part of a description.
// Matched words are joined left to right.
func MatchPriceToItem(words []Word, minY, maxY, priceX float64) string {
	var row []Word
	for _, w := range words {
		if !w.Valid() {
			continue
		}
		top, bottom := w.Top(), w.Bottom()
		if bottom < minY || top > maxY {
			continue
		}
		if IsPrice(w.Text) || abs(priceX-w.Left()) < columnTolerance {
			continue
		}
		h := w.Height()
		if h <= 0 {
			continue
		}
		overlap := (min(maxY, bottom) - max(minY, top)) / h
		if overlap > minRowOverlap {
			row = append(row, w)
		}
	}

	sort.SliceStable(row, func(i, j int) bool { return row[i].Left() < row[j].Left() })
	parts := make([]string, len(row))
	for i, w := range row {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// rowBand returns the vertical band for the i-th price. Each row extends to
// the top of the next price; the last row ends just below its own price.
func rowBand(prices []PriceToken, i int) (float64, float64) {
	minY := prices[i].Top() - rowEpsilon
	if i+1 < len(prices) {
		return minY, prices[i+1].Top() + rowEpsilon
	}
	return minY, prices[i].Bottom() + rowEpsilon
}
