package promo

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dkoun25/SportStoreProject/internal/cart"
)

// Carts is the slice of the cart store the registry reads for previews.
type Carts interface {
	Get(sessionID string) cart.Snapshot
}

// Registry holds the promo catalog and per-session usage counts. Usage only
// grows: a use is recorded when a reservation commits, and a released
// reservation never touches the committed count.
type Registry struct {
	carts Carts
	codes map[string]Code

	mu      sync.RWMutex
	used    map[string]map[string]int
	pending map[string]map[string]int
}

func NewRegistry(carts Carts, codes ...Code) *Registry {
	r := &Registry{
		carts:   carts,
		codes:   make(map[string]Code, len(codes)),
		used:    make(map[string]map[string]int),
		pending: make(map[string]map[string]int),
	}
	for _, c := range codes {
		c.Code = Normalize(c.Code)
		r.codes[c.Code] = c
	}
	return r
}

func (r *Registry) Lookup(code string) (Code, bool) {
	c, ok := r.codes[Normalize(code)]
	return c, ok
}

// Codes returns the catalog sorted by code.
func (r *Registry) Codes() []Code {
	out := make([]Code, 0, len(r.codes))
	for _, c := range r.codes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Validate previews code against the session's current cart. It never
// changes usage counts.
func (r *Registry) Validate(sessionID, code string) Result {
	return r.Check(sessionID, code, r.carts.Get(sessionID).Items)
}

// Check is Validate against an explicit item list.
func (r *Registry) Check(sessionID, code string, items []cart.LineItem) Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.evaluate(sessionID, code, items)
}

// Reserve validates code and, if valid, holds one use for the session in the
// same critical section. The caller must Commit or Release the reservation.
func (r *Registry) Reserve(sessionID, code string, items []cart.LineItem) (*Reservation, Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.evaluate(sessionID, code, items)
	if !res.Valid {
		return nil, res
	}
	bump(r.pending, sessionID, res.Code, 1)
	return &Reservation{registry: r, sessionID: sessionID, code: res.Code}, res
}

// RecordUsage counts one use of code for the session.
func (r *Registry) RecordUsage(sessionID, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bump(r.used, sessionID, Normalize(code), 1)
}

// Usage is the committed use count.
func (r *Registry) Usage(sessionID, code string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.used[sessionID][Normalize(code)]
}

// evaluate must be called with r.mu held.
func (r *Registry) evaluate(sessionID, code string, items []cart.LineItem) Result {
	normalized := Normalize(code)
	if normalized == "" {
		return Result{Message: MsgCodeRequired}
	}

	promo, ok := r.codes[normalized]
	if !ok {
		return Result{Code: normalized, Message: MsgCodeNotFound}
	}

	taken := r.used[sessionID][normalized] + r.pending[sessionID][normalized]
	remaining := promo.MaxUsesPerSession - taken
	if remaining <= 0 {
		return Result{Code: normalized, Message: MsgUsageExhausted, DiscountFraction: promo.DiscountFraction}
	}

	amount := DiscountAmount(items, promo.DiscountFraction)
	if amount.IsZero() {
		return Result{Code: normalized, Message: MsgNoEligible, DiscountFraction: promo.DiscountFraction, RemainingUses: remaining}
	}

	return Result{
		Valid:            true,
		Code:             normalized,
		Message:          fmt.Sprintf("promo code applied: %s%% off", promo.DiscountFraction.Shift(2).String()),
		DiscountFraction: promo.DiscountFraction,
		RemainingUses:    remaining,
		DiscountAmount:   amount,
	}
}

// DiscountAmount sums fraction of every line the shop has not already
// discounted.
func DiscountAmount(items []cart.LineItem, fraction decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if it.ShopDiscounted() {
			continue
		}
		total = total.Add(it.LineTotal().Mul(fraction))
	}
	return total
}

func bump(m map[string]map[string]int, sessionID, code string, delta int) {
	bySession, ok := m[sessionID]
	if !ok {
		bySession = make(map[string]int)
		m[sessionID] = bySession
	}
	bySession[code] += delta
	if bySession[code] <= 0 {
		delete(bySession, code)
		if len(bySession) == 0 {
			delete(m, sessionID)
		}
	}
}

// Reservation is one held use of a promo code.
type Reservation struct {
	registry  *Registry
	sessionID string
	code      string
	done      bool
}

func (res *Reservation) Code() string {
	return res.code
}

// Commit records the use. Calling Commit or Release again is a no-op.
func (res *Reservation) Commit() {
	r := res.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.done {
		return
	}
	res.done = true
	bump(r.pending, res.sessionID, res.code, -1)
	bump(r.used, res.sessionID, res.code, 1)
}

// Release gives the held use back without recording it.
func (res *Reservation) Release() {
	r := res.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.done {
		return
	}
	res.done = true
	bump(r.pending, res.sessionID, res.code, -1)
}
