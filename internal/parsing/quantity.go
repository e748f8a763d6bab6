package parsing

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	minQuantity = 1
	maxQuantity = 100
)

type quantityRule struct {
	name    string
	pattern *regexp.Regexp
	// groups of the quantity digits and of the item name
	qty, item int
}

// quantityRules are tried in order and the first match wins.
var quantityRules = []quantityRule{
	// "Burger 2", "Burger 2x", "Burger x2"
	{"trailing", regexp.MustCompile(`^(.*?)\s*(\d+)\s*[xX]?$`), 2, 1},
	// "2 Fries", "2x Fries", "2 x Fries"
	{"leading", regexp.MustCompile(`^(\d+)\s*(?:[xX]\b)?\s*(.*)$`), 1, 2},
	// "Nachos (3)", "Nachos (spicy) (3x)"
	{"parenthetical", regexp.MustCompile(`^(.*?)\s*\(\s*(\d+)\s*[xX]?\s*\)`), 2, 1},
}

// strayX matches a multiplication sign left at the end of a name ("Burger x").
var strayX = regexp.MustCompile(`\s*\b[xX]$`)

// ExtractQuantity splits a row description into an item name and a quantity.
// Counts outside [1, 100] are treated as part of the name (a store or serial
// number) and the quantity falls back to 1. A count with nothing left to name
// is kept as the name.
func ExtractQuantity(description string) (string, int) {
	desc := strings.TrimSpace(description)
	for _, rule := range quantityRules {
		m := rule.pattern.FindStringSubmatch(desc)
		if m == nil {
			continue
		}
		qty, err := strconv.Atoi(m[rule.qty])
		if err != nil || qty < minQuantity || qty > maxQuantity {
			return desc, 1
		}
		name := strings.TrimSpace(strayX.ReplaceAllString(strings.TrimSpace(m[rule.item]), ""))
		if name == "" {
			continue
		}
		return name, qty
	}
	return desc, 1
}
