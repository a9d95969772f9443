package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dkoun25/SportStoreProject/internal/pricing"
)

type LineItem struct {
	ProductID           int             `json:"productId"`
	Name                string          `json:"name"`
	Category            string          `json:"category,omitempty"`
	UnitPrice           decimal.Decimal `json:"unitPrice"`
	Quantity            int             `json:"quantity"`
	Size                string          `json:"size"`
	Color               string          `json:"color"`
	AddedAt             time.Time       `json:"addedAt"`
	ShopDiscountPercent *int            `json:"shopDiscountPercent,omitempty"`
}

// LineTotal is UnitPrice × Quantity.
func (it LineItem) LineTotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// ShopDiscounted reports whether the shop already marked the item down.
func (it LineItem) ShopDiscounted() bool {
	return it.ShopDiscountPercent != nil && *it.ShopDiscountPercent != 0
}

func (it LineItem) mergesWith(other LineItem) bool {
	return it.ProductID == other.ProductID && it.Size == other.Size && it.Color == other.Color
}

func (it LineItem) matches(productID int, size string) bool {
	return it.ProductID == productID && it.Size == size
}

// Snapshot is a priced, point-in-time copy of a session's cart.
type Snapshot struct {
	Items []LineItem `json:"items"`
	pricing.Totals
}

func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

func newSnapshot(calc pricing.Calculator, items []LineItem) Snapshot {
	if items == nil {
		items = []LineItem{}
	}

	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		lines[i] = pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity}
	}

	return Snapshot{Items: items, Totals: calc.Calculate(lines)}
}
