package receipt

import (
	"time"

	"github.com/zombor/receipt-splitter/internal/parsing"
)

// Receipt is a scanned receipt with its parsed totals. Money values are
// decimal strings with two places.
type Receipt struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	ContentType   string    `json:"content_type"`
	GrandTotal    string    `json:"grand_total"`
	SharedCost    string    `json:"shared_cost"`
	TotalFallback bool      `json:"total_fallback"` // grand total was derived from item prices
	Items         []*Item   `json:"items,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Item is one purchased line on a receipt
type Item struct {
	ID        string `json:"id"`
	ReceiptID string `json:"receipt_id"`
	Position  int    `json:"position"` // top-to-bottom order on the receipt
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"` // unit price
}

// Summary is the storage-boundary view of a parse result
type Summary struct {
	Items         []SummaryItem `json:"items"`
	GrandTotal    string        `json:"grand_total"`
	SharedCost    string        `json:"shared_cost"`
	TotalFallback bool          `json:"total_fallback"`
}

// SummaryItem is one parsed line item with its unit price formatted
type SummaryItem struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// NewSummary converts a parse result into fixed-precision money strings
func NewSummary(res parsing.Result) Summary {
	items := make([]SummaryItem, len(res.Items))
	for i, it := range res.Items {
		items[i] = SummaryItem{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: formatPrice(it.UnitPrice),
		}
	}
	return Summary{
		Items:         items,
		GrandTotal:    formatPrice(res.GrandTotal),
		SharedCost:    formatPrice(res.SharedCost),
		TotalFallback: res.TotalFallback,
	}
}
