package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dkoun25/SportStoreProject/internal/order"
	"github.com/dkoun25/SportStoreProject/internal/promo"
)

type OrderService interface {
	CreateOrder(ctx context.Context, sessionID, userEmail, promoCode string) (*order.Order, error)
	History(ctx context.Context, q order.Query) (order.Page, error)
	GetByID(ctx context.Context, id int64) (*order.Order, error)
}

type PromoCatalog interface {
	Validate(sessionID, code string) promo.Result
	Lookup(code string) (promo.Code, bool)
	Codes() []promo.Code
}

type OrderHandler struct {
	orders  OrderService
	promos  PromoCatalog
	timeout time.Duration
	logger  *log.Logger
}

func NewOrderHandler(orders OrderService, promos PromoCatalog, timeout time.Duration, logger *log.Logger) *OrderHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &OrderHandler{orders: orders, promos: promos, timeout: timeout, logger: logger}
}

func (h *OrderHandler) ValidatePromo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	writeJSON(w, http.StatusOK, h.promos.Validate(SessionIDFrom(r.Context()), body.Code))
}

func (h *OrderHandler) PromoCodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.promos.Codes())
}

func (h *OrderHandler) PromoCode(w http.ResponseWriter, r *http.Request) {
	c, ok := h.promos.Lookup(chi.URLParam(r, "code"))
	if !ok {
		writeError(w, http.StatusNotFound, promo.MsgCodeNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PromoCode string `json:"promoCode"`
	}
	// the body is optional
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sid := SessionIDFrom(r.Context())
	o, err := h.orders.CreateOrder(ctx, sid, UserEmailFrom(r.Context()), body.PromoCode)
	if err != nil {
		if !errors.Is(err, order.ErrEmptyCart) {
			h.logger.Printf("order checkout: session %s: %v", sid, err)
		}
		writeAppError(w, err)
		return
	}

	h.logger.Printf("order checkout: session %s placed order %d total %s", sid, o.ID, o.Total)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	page, ok := intQuery(w, r, "page", 0)
	if !ok {
		return
	}
	size, ok := intQuery(w, r, "size", order.DefaultPageSize)
	if !ok {
		return
	}
	if size <= 0 {
		writeError(w, http.StatusBadRequest, "size must be positive")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.orders.History(ctx, order.Query{
		SessionID: SessionIDFrom(r.Context()),
		UserEmail: UserEmailFrom(r.Context()),
		Page:      page,
		PageSize:  size,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid orderId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	o, err := h.orders.GetByID(ctx, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func intQuery(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, key+" must be an integer")
		return 0, false
	}
	return v, true
}
