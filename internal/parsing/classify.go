package parsing

import (
	"regexp"
	"strings"
)

// Field is the role a row plays on the receipt.
type Field int

const (
	Ordinary Field = iota
	Total
	Tax
	Gratuity
)

func (f Field) String() string {
	switch f {
	case Total:
		return "total"
	case Tax:
		return "tax"
	case Gratuity:
		return "gratuity"
	default:
		return "ordinary"
	}
}

// Special reports whether the field is a summary row rather than an item.
func (f Field) Special() bool { return f != Ordinary }

type fieldRule struct {
	field    Field
	keywords []string
}

// fieldRules are evaluated in order; the first rule with a keyword contained
// in the normalized description wins.
var fieldRules = []fieldRule{
	{Total, []string{"subtotal", "total", "amount", "due"}},
	{Tax, []string{"tax", "gst", "hst", "pst", "vat"}},
	{Gratuity, []string{"tip", "gratuity", "service", "charge"}},
}

// grandTotalPhrases separate the payable total from subtotals, which share
// the Total field.
var grandTotalPhrases = []*regexp.Regexp{
	regexp.MustCompile(`\btotal\b`),
	regexp.MustCompile(`\btotal amount\b`),
	regexp.MustCompile(`\bgrand total\b`),
	regexp.MustCompile(`\bfinal total\b`),
	regexp.MustCompile(`\bamount due\b`),
	regexp.MustCompile(`\bamount payable\b`),
	regexp.MustCompile(`\bbalance due\b`),
	regexp.MustCompile(`\btotal to pay\b`),
}

var nonLetters = regexp.MustCompile(`[^a-z\s]`)

func normalizeField(text string) string {
	return nonLetters.ReplaceAllString(strings.ToLower(text), "")
}

// Classify returns the field a description belongs to.
func Classify(description string) Field {
	text := normalizeField(description)
	for _, rule := range fieldRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.field
			}
		}
	}
	return Ordinary
}

// IsGrandTotal reports whether a description names the final payable amount.
func IsGrandTotal(description string) bool {
	text := normalizeField(description)
	for _, re := range grandTotalPhrases {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
