package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dkoun25/SportStoreProject/internal/cart"
)

// legacyOrder is the record layout written by the previous storefront:
// epoch-millisecond timestamps, no tax field, and items keyed by "id".
type legacyOrder struct {
	ID        int64               `json:"id"`
	SessionID string              `json:"sessionId"`
	UserEmail *string             `json:"userEmail"`
	Items     []legacyItem        `json:"items"`
	Subtotal  decimal.NullDecimal `json:"subtotal"`
	Shipping  decimal.NullDecimal `json:"shipping"`
	Discount  decimal.NullDecimal `json:"discount"`
	Total     decimal.NullDecimal `json:"total"`
	PromoCode *string             `json:"promoCode"`
	CreatedAt int64               `json:"createdAt"`
	Status    string              `json:"status"`
}

type legacyItem struct {
	ID              int                 `json:"id"`
	Name            string              `json:"name"`
	Category        string              `json:"category"`
	Price           decimal.NullDecimal `json:"price"`
	Quantity        *int                `json:"quantity"`
	Size            string              `json:"size"`
	Color           string              `json:"color"`
	AddedDate       *int64              `json:"addedDate"`
	DiscountPercent *int                `json:"discountPercent"`
}

func (lo legacyOrder) toOrder() Order {
	o := Order{
		ID:        lo.ID,
		SessionID: lo.SessionID,
		Items:     make([]cart.LineItem, 0, len(lo.Items)),
		Subtotal:  orZero(lo.Subtotal),
		Shipping:  orZero(lo.Shipping),
		Discount:  orZero(lo.Discount),
		Total:     orZero(lo.Total),
		CreatedAt: time.UnixMilli(lo.CreatedAt).UTC(),
		Status:    ParseStatus(lo.Status),
	}
	if lo.UserEmail != nil {
		o.UserEmail = *lo.UserEmail
	}
	if lo.PromoCode != nil {
		o.PromoCode = *lo.PromoCode
	}

	// total = subtotal + shipping + tax - discount
	o.Tax = o.Total.Sub(o.Subtotal).Sub(o.Shipping).Add(o.Discount)
	if o.Tax.IsNegative() {
		o.Tax = decimal.Zero
	}

	for _, li := range lo.Items {
		it := cart.LineItem{
			ProductID:           li.ID,
			Name:                li.Name,
			Category:            li.Category,
			UnitPrice:           orZero(li.Price),
			Size:                li.Size,
			Color:               li.Color,
			ShopDiscountPercent: li.DiscountPercent,
		}
		if li.Quantity != nil {
			it.Quantity = *li.Quantity
		}
		if li.AddedDate != nil {
			it.AddedAt = time.UnixMilli(*li.AddedDate).UTC()
		}
		o.Items = append(o.Items, it)
	}
	return o
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
