// Package parsing turns OCR words with bounding boxes into receipt line items.
//
// The layout of a receipt is inferred from geometry alone: prices are found
// and grouped into a column, each price is paired with the text on its row,
// rows are classified as items or summary fields, and item descriptions are
// split into a name and quantity.
package parsing

import (
	"log/slog"
	"math"
	"sort"
)

// LineItem is one purchased item.
type LineItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Result is the outcome of parsing one receipt.
type Result struct {
	Items      []LineItem `json:"items"`
	GrandTotal float64    `json:"grand_total"`
	SharedCost float64    `json:"shared_cost"`
	// TotalFallback is set when the detected grand total did not cover the
	// items and was replaced by the sum of unit prices.
	TotalFallback bool `json:"total_fallback"`
}

// ItemCost returns the sum of unit price times quantity over all items.
func (r Result) ItemCost() float64 {
	var sum float64
	for _, it := range r.Items {
		sum += it.UnitPrice * float64(it.Quantity)
	}
	return sum
}

// Parser extracts line items from receipt words. The zero value uses
// StrategyUnion. A Parser holds no state between calls and is safe for
// concurrent use.
type Parser struct {
	Strategy ColumnStrategy
}

// NewParser creates a Parser using the given column strategy.
func NewParser(strategy ColumnStrategy) *Parser {
	return &Parser{Strategy: strategy}
}

// Parse runs the full pipeline with the default strategy.
func Parse(words []Word) Result {
	return (&Parser{}).Parse(words)
}

// Parse extracts items, grand total and shared cost from words. It never
// fails: malformed words are ignored and rows that cannot be read are dropped.
func (p *Parser) Parse(words []Word) Result {
	strategy := p.Strategy
	if strategy == "" {
		strategy = StrategyUnion
	}

	words = validWords(words)
	prices := DetectPrices(words, strategy)
	if len(prices) == 0 {
		return Result{Items: []LineItem{}}
	}

	sort.SliceStable(words, func(i, j int) bool { return words[i].Top() < words[j].Top() })
	start := 0
	for start < len(words) && words[start].Top() < prices[0].Top()-rowEpsilon {
		start++
	}
	words = words[start:]

	res := Result{Items: []LineItem{}}
	specialsSeen := false
	for i, price := range prices {
		minY, maxY := rowBand(prices, i)
		desc := MatchPriceToItem(words, minY, maxY, price.Left())
		field := Classify(desc)

		if !field.Special() {
			if specialsSeen {
				slog.Debug("Dropping row below summary fields", "description", desc, "price", price.Text)
				continue
			}
			name, qty := ExtractQuantity(desc)
			res.Items = append(res.Items, LineItem{
				Name:      name,
				Quantity:  qty,
				UnitPrice: price.Value / float64(qty),
			})
			continue
		}

		specialsSeen = true
		if field == Total && IsGrandTotal(desc) {
			res.GrandTotal = price.Value
		}
	}

	return reconcile(res)
}

// reconcile derives the shared cost. When the grand total does not cover the
// itemized cost it is considered unreliable and replaced by the sum of unit
// prices. The shared cost is compared in whole cents so float error in the
// item sum cannot trip the fallback.
func reconcile(res Result) Result {
	cents := math.Round((res.GrandTotal - res.ItemCost()) * 100)
	res.SharedCost = math.Max(cents, 0) / 100
	if cents < 0 {
		slog.Debug("Shared cost is negative, falling back to item prices",
			"grand_total", res.GrandTotal,
			"item_cost", res.ItemCost(),
		)
		var sum float64
		for _, it := range res.Items {
			sum += it.UnitPrice
		}
		res.GrandTotal = sum
		res.SharedCost = 0
		res.TotalFallback = true
	}
	return res
}
