package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dkoun25/SportStoreProject/internal/apperr"
	"github.com/dkoun25/SportStoreProject/internal/cart"
	"github.com/dkoun25/SportStoreProject/internal/catalog"
)

const defaultSize = "M"

type CartService interface {
	Get(sessionID string) cart.Snapshot
	Add(sessionID string, item cart.LineItem) (cart.Snapshot, error)
	UpdateQuantity(sessionID string, productID int, size string, quantity int) cart.Snapshot
	Remove(sessionID string, productID int, size string) cart.Snapshot
	Clear(sessionID string)
	Checkout(sessionID string) cart.Snapshot
	TotalQuantity(sessionID string) int
	LineCount(sessionID string) int
}

type ProductLookup interface {
	GetByID(id int) (catalog.Product, error)
}

type CartHandler struct {
	carts    CartService
	products ProductLookup
	logger   *log.Logger
}

func NewCartHandler(carts CartService, products ProductLookup, logger *log.Logger) *CartHandler {
	return &CartHandler{carts: carts, products: products, logger: logger}
}

type cartResponse struct {
	cart.Snapshot
	Empty bool `json:"empty"`
}

func newCartResponse(s cart.Snapshot) cartResponse {
	return cartResponse{Snapshot: s, Empty: s.IsEmpty()}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newCartResponse(h.carts.Get(SessionIDFrom(r.Context()))))
}

type cartStatusResponse struct {
	cartResponse
	LineCount int `json:"lineCount"`
}

// Status is the cart plus the number of distinct lines, for the cart badge.
func (h *CartHandler) Status(w http.ResponseWriter, r *http.Request) {
	sid := SessionIDFrom(r.Context())
	writeJSON(w, http.StatusOK, cartStatusResponse{
		cartResponse: newCartResponse(h.carts.Get(sid)),
		LineCount:    h.carts.LineCount(sid),
	})
}

// addItemRequest also accepts the older id/price field names.
type addItemRequest struct {
	ProductID           int              `json:"productId"`
	ID                  int              `json:"id"`
	Name                string           `json:"name"`
	Category            string           `json:"category"`
	UnitPrice           *decimal.Decimal `json:"unitPrice"`
	Price               *decimal.Decimal `json:"price"`
	Quantity            int              `json:"quantity"`
	Size                string           `json:"size"`
	Color               string           `json:"color"`
	ShopDiscountPercent *int             `json:"shopDiscountPercent"`
	DiscountPercent     *int             `json:"discountPercent"`
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	item, err := h.lineItemFrom(req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	snap, err := h.carts.Add(SessionIDFrom(r.Context()), item)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(snap))
}

func (h *CartHandler) lineItemFrom(req addItemRequest) (cart.LineItem, error) {
	item := cart.LineItem{
		ProductID:           req.ProductID,
		Name:                req.Name,
		Category:            req.Category,
		Quantity:            req.Quantity,
		Size:                strings.TrimSpace(req.Size),
		Color:               strings.TrimSpace(req.Color),
		ShopDiscountPercent: req.ShopDiscountPercent,
	}
	if item.ProductID == 0 {
		item.ProductID = req.ID
	}
	if item.ShopDiscountPercent == nil {
		item.ShopDiscountPercent = req.DiscountPercent
	}
	price := req.UnitPrice
	if price == nil {
		price = req.Price
	}
	if item.ProductID <= 0 {
		return cart.LineItem{}, cart.ErrInvalidProduct
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if item.Size == "" {
		item.Size = defaultSize
	}

	if h.products != nil {
		p, err := h.products.GetByID(item.ProductID)
		switch {
		case err == nil:
			if item.Name == "" {
				item.Name = p.Name
			}
			if item.Category == "" {
				item.Category = p.Category
			}
			if item.ShopDiscountPercent == nil {
				item.ShopDiscountPercent = p.DiscountPercent
			}
			if price == nil {
				price = &p.Price
			}
		case errors.Is(err, catalog.ErrNotFound):
			// not in the catalog; take the request as given
		default:
			return cart.LineItem{}, err
		}
	}

	if price == nil {
		return cart.LineItem{}, apperr.Validation("unitPrice is required")
	}
	item.UnitPrice = *price
	return item, nil
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "quantity must be an integer")
		return
	}

	snap := h.carts.UpdateQuantity(SessionIDFrom(r.Context()), productID, sizeParam(r), quantity)
	writeJSON(w, http.StatusOK, newCartResponse(snap))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	snap := h.carts.Remove(SessionIDFrom(r.Context()), productID, sizeParam(r))
	writeJSON(w, http.StatusOK, newCartResponse(snap))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.carts.Clear(SessionIDFrom(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"count": h.carts.TotalQuantity(SessionIDFrom(r.Context())),
	})
}

// Checkout clears the cart and returns what it held. It does not place an
// order; that is POST /api/orders/checkout.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sid := SessionIDFrom(r.Context())
	snap := h.carts.Checkout(sid)
	if !snap.IsEmpty() {
		h.logger.Printf("cart checkout: session %s cleared %d items", sid, snap.ItemCount)
	}
	writeJSON(w, http.StatusOK, newCartResponse(snap))
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "productId"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid productId")
		return 0, false
	}
	return id, true
}

func sizeParam(r *http.Request) string {
	if size := strings.TrimSpace(r.URL.Query().Get("size")); size != "" {
		return size
	}
	return defaultSize
}
