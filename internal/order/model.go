package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dkoun25/SportStoreProject/internal/apperr"
	"github.com/dkoun25/SportStoreProject/internal/cart"
)

var (
	ErrEmptyCart = apperr.Rejected("cart is empty")
	ErrNotFound  = apperr.NotFound("order not found")
	ErrPersist   = &apperr.Error{Kind: apperr.KindInternal, Message: "failed to persist order"}
)

type Order struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId"`
	UserEmail string          `json:"userEmail,omitempty"`
	Items     []cart.LineItem `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Tax       decimal.Decimal `json:"tax"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
	PromoCode string          `json:"promoCode,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	Status    Status          `json:"status"`
}

func (o *Order) clone() *Order {
	cp := *o
	cp.Items = make([]cart.LineItem, len(o.Items))
	for i, it := range o.Items {
		if it.ShopDiscountPercent != nil {
			v := *it.ShopDiscountPercent
			it.ShopDiscountPercent = &v
		}
		cp.Items[i] = it
	}
	return &cp
}

// Query selects a customer's orders. A non-blank UserEmail takes priority
// over SessionID.
type Query struct {
	SessionID string
	UserEmail string
	Page      int
	PageSize  int
}

type Page struct {
	Orders      []Order `json:"orders"`
	CurrentPage int     `json:"currentPage"`
	TotalPages  int     `json:"totalPages"`
	TotalOrders int64   `json:"totalOrders"`
	PageSize    int     `json:"pageSize"`
}
