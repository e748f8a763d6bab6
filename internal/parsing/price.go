package parsing

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	// columnTolerance is the maximum horizontal distance between two prices
	// in the same column.
	columnTolerance = 0.1
	// gapTolerance scales the median vertical gap between consecutive prices.
	gapTolerance = 1.1
)

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)$`)

// ColumnStrategy selects how the item-price column is picked out of all
// monetary tokens on the page.
type ColumnStrategy string

const (
	// StrategyUnion keeps every token chosen by either heuristic.
	StrategyUnion ColumnStrategy = "union"
	// StrategyRuns keeps the largest vertical run and everything below it.
	StrategyRuns ColumnStrategy = "runs"
	// StrategyMedian keeps tokens aligned with the median right edge.
	StrategyMedian ColumnStrategy = "median"
)

// ParseColumnStrategy validates a strategy name. An empty name selects
// StrategyUnion.
func ParseColumnStrategy(name string) (ColumnStrategy, error) {
	switch s := ColumnStrategy(strings.ToLower(strings.TrimSpace(name))); s {
	case "":
		return StrategyUnion, nil
	case StrategyUnion, StrategyRuns, StrategyMedian:
		return s, nil
	default:
		return "", fmt.Errorf("unknown column strategy %q (valid: union, runs, median)", name)
	}
}

// PriceToken is a word recognized as a monetary value.
type PriceToken struct {
	Word
	Value float64
}

// IsPrice reports whether text reads as a monetary amount. A decimal point or
// comma is required so bare integers such as quantities or store numbers are
// not taken for prices.
func IsPrice(text string) bool {
	_, err := parsePrice(text)
	return err == nil
}

// parsePrice strips currency symbols and converts the amount. A comma is a
// decimal separator when no point is present ("3,50") and a thousands
// separator otherwise ("1,234.56").
func parsePrice(text string) (float64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(text, "$", ""))
	if !strings.ContainsAny(s, ".,") {
		return 0, fmt.Errorf("no decimal separator in %q", text)
	}
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	if !decimalPattern.MatchString(s) {
		return 0, fmt.Errorf("not a decimal number: %q", text)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", text, err)
	}
	return v, nil
}

// DetectPrices returns the tokens most likely to form the receipt's
// item-price column, ordered top to bottom.
func DetectPrices(words []Word, strategy ColumnStrategy) []PriceToken {
	var candidates []PriceToken
	for _, w := range words {
		if !w.Valid() {
			continue
		}
		v, err := parsePrice(w.Text)
		if err != nil {
			continue
		}
		candidates = append(candidates, PriceToken{Word: w, Value: v})
	}
	if len(candidates) == 0 {
		return nil
	}

	switch strategy {
	case StrategyRuns:
		return largestRunSuffix(candidates)
	case StrategyMedian:
		return medianColumn(candidates)
	default:
		return union(candidates, largestRunSuffix(candidates), medianColumn(candidates))
	}
}

// byTop returns the indices of tokens sorted by top edge, stable on input order.
func byTop(tokens []PriceToken) []int {
	idx := make([]int, len(tokens))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return tokens[idx[a]].Top() < tokens[idx[b]].Top()
	})
	return idx
}

// medianColumn keeps tokens whose right edge sits within columnTolerance of
// the median right edge.
func medianColumn(tokens []PriceToken) []PriceToken {
	xs := make([]float64, len(tokens))
	for i, t := range tokens {
		xs[i] = t.Right()
	}
	mx := median(xs)

	var out []PriceToken
	for _, i := range byTop(tokens) {
		d := tokens[i].Right() - mx
		if d < 0 {
			d = -d
		}
		if d < columnTolerance {
			out = append(out, tokens[i])
		}
	}
	return out
}

// largestRunSuffix partitions tokens into vertically connected runs and keeps
// the largest run together with every run below it. Summary rows sit under the
// item column, while stray numbers above it are dropped.
func largestRunSuffix(tokens []PriceToken) []PriceToken {
	order := byTop(tokens)
	sorted := make([]PriceToken, len(order))
	for i, j := range order {
		sorted[i] = tokens[j]
	}
	if len(sorted) == 1 {
		return sorted
	}

	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, sorted[i].Top()-sorted[i-1].Top())
	}
	yTol := median(gaps) * gapTolerance

	runs := [][]PriceToken{{sorted[0]}}
	for _, t := range sorted[1:] {
		cur := runs[len(runs)-1]
		xc, yc := t.anchor()
		xp, yp := cur[len(cur)-1].anchor()
		if abs(xc-xp) < columnTolerance && abs(yc-yp) < yTol {
			runs[len(runs)-1] = append(cur, t)
			continue
		}
		runs = append(runs, []PriceToken{t})
	}

	largest := 0
	for i := 1; i < len(runs); i++ {
		if len(runs[i]) > len(runs[largest]) {
			largest = i
		}
	}

	var out []PriceToken
	for _, r := range runs[largest:] {
		out = append(out, r...)
	}
	return out
}

// union merges selections drawn from all, keeping each token once and in
// top-to-bottom order.
func union(all []PriceToken, selections ...[]PriceToken) []PriceToken {
	type key struct {
		text       string
		top, right float64
		left       float64
	}
	keep := make(map[key]bool)
	for _, sel := range selections {
		for _, t := range sel {
			keep[key{t.Text, t.Top(), t.Right(), t.Left()}] = true
		}
	}

	var out []PriceToken
	for _, i := range byTop(all) {
		t := all[i]
		k := key{t.Text, t.Top(), t.Right(), t.Left()}
		if keep[k] {
			out = append(out, t)
			delete(keep, k)
		}
	}
	return out
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 0 {
		return (s[n/2-1] + s[n/2]) / 2
	}
	return s[n/2]
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
