package cart

import (
	"sync"
	"time"

	"github.com/dkoun25/SportStoreProject/internal/apperr"
	"github.com/dkoun25/SportStoreProject/internal/pricing"
)

var (
	ErrInvalidProduct  = apperr.Validation("productId is required")
	ErrInvalidPrice    = apperr.Validation("unitPrice must not be negative")
	ErrInvalidQuantity = apperr.Validation("quantity must be at least 1")
	ErrInvalidDiscount = apperr.Validation("shopDiscountPercent must be between 0 and 100")
)

// Store keeps carts in memory keyed by session id. Mutations on one session
// are serialized; different sessions only share the brief map lookup.
type Store struct {
	calc pricing.Calculator
	now  func() time.Time

	mu    sync.Mutex
	carts map[string]*sessionCart
}

type sessionCart struct {
	mu      sync.Mutex
	items   []LineItem
	removed bool
}

func NewStore(calc pricing.Calculator) *Store {
	return &Store{
		calc:  calc,
		now:   time.Now,
		carts: make(map[string]*sessionCart),
	}
}

func (s *Store) lookup(sessionID string) *sessionCart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carts[sessionID]
}

func (s *Store) entry(sessionID string) *sessionCart {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.carts[sessionID]
	if !ok {
		sc = &sessionCart{}
		s.carts[sessionID] = sc
	}
	return sc
}

// drop must be called with sc.mu held.
func (s *Store) drop(sessionID string, sc *sessionCart) {
	s.mu.Lock()
	if s.carts[sessionID] == sc {
		delete(s.carts, sessionID)
	}
	s.mu.Unlock()
	sc.removed = true
	sc.items = nil
}

// locked runs fn with the session's cart locked. An entry dropped by a
// concurrent caller while we waited for its lock is retried against the
// live map so no update lands on a detached cart.
func (s *Store) locked(sessionID string, create bool, fn func(sc *sessionCart) error) error {
	for {
		var sc *sessionCart
		if create {
			sc = s.entry(sessionID)
		} else {
			sc = s.lookup(sessionID)
			if sc == nil {
				return fn(nil)
			}
		}

		sc.mu.Lock()
		if sc.removed {
			sc.mu.Unlock()
			continue
		}
		err := fn(sc)
		if len(sc.items) == 0 && !sc.removed {
			s.drop(sessionID, sc)
		}
		sc.mu.Unlock()
		return err
	}
}

func (s *Store) Get(sessionID string) Snapshot {
	var snap Snapshot
	_ = s.locked(sessionID, false, func(sc *sessionCart) error {
		snap = s.snapshot(sc)
		return nil
	})
	return snap
}

// Add merges item into an existing line with the same product, size and
// color, or appends it stamped with the current time.
func (s *Store) Add(sessionID string, item LineItem) (Snapshot, error) {
	if err := validate(item); err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	err := s.locked(sessionID, true, func(sc *sessionCart) error {
		merged := false
		for i := range sc.items {
			if sc.items[i].mergesWith(item) {
				sc.items[i].Quantity += item.Quantity
				merged = true
				break
			}
		}
		if !merged {
			item.AddedAt = s.now()
			item.ShopDiscountPercent = cloneInt(item.ShopDiscountPercent)
			sc.items = append(sc.items, item)
		}
		snap = s.snapshot(sc)
		return nil
	})
	return snap, err
}

// UpdateQuantity sets the quantity of the first line matching productID and
// size, ignoring color. A quantity of zero or less removes that line.
func (s *Store) UpdateQuantity(sessionID string, productID int, size string, quantity int) Snapshot {
	var snap Snapshot
	_ = s.locked(sessionID, false, func(sc *sessionCart) error {
		if sc == nil {
			snap = s.snapshot(nil)
			return nil
		}
		for i := range sc.items {
			if !sc.items[i].matches(productID, size) {
				continue
			}
			if quantity > 0 {
				sc.items[i].Quantity = quantity
			} else {
				sc.items = append(sc.items[:i], sc.items[i+1:]...)
			}
			break
		}
		snap = s.snapshot(sc)
		return nil
	})
	return snap
}

// Remove drops every line matching productID and size.
func (s *Store) Remove(sessionID string, productID int, size string) Snapshot {
	var snap Snapshot
	_ = s.locked(sessionID, false, func(sc *sessionCart) error {
		if sc == nil {
			snap = s.snapshot(nil)
			return nil
		}
		kept := sc.items[:0]
		for _, it := range sc.items {
			if !it.matches(productID, size) {
				kept = append(kept, it)
			}
		}
		sc.items = kept
		snap = s.snapshot(sc)
		return nil
	})
	return snap
}

func (s *Store) Clear(sessionID string) {
	_ = s.locked(sessionID, false, func(sc *sessionCart) error {
		if sc != nil {
			sc.items = nil
		}
		return nil
	})
}

// Checkout drops the session's cart and returns what it held.
func (s *Store) Checkout(sessionID string) Snapshot {
	var snap Snapshot
	_ = s.locked(sessionID, false, func(sc *sessionCart) error {
		snap = s.snapshot(sc)
		if sc != nil {
			sc.items = nil
		}
		return nil
	})
	return snap
}

// Consume hands fn the current snapshot while the session is locked and
// drops the cart only when fn returns nil.
func (s *Store) Consume(sessionID string, fn func(Snapshot) error) error {
	return s.locked(sessionID, false, func(sc *sessionCart) error {
		if err := fn(s.snapshot(sc)); err != nil {
			return err
		}
		if sc != nil {
			sc.items = nil
		}
		return nil
	})
}

func (s *Store) TotalQuantity(sessionID string) int {
	total := 0
	_ = s.locked(sessionID, false, func(sc *sessionCart) error {
		if sc == nil {
			return nil
		}
		for _, it := range sc.items {
			total += it.Quantity
		}
		return nil
	})
	return total
}

// LineCount is the number of distinct lines in the cart.
func (s *Store) LineCount(sessionID string) int {
	n := 0
	_ = s.locked(sessionID, false, func(sc *sessionCart) error {
		if sc != nil {
			n = len(sc.items)
		}
		return nil
	})
	return n
}

func (s *Store) snapshot(sc *sessionCart) Snapshot {
	if sc == nil {
		return newSnapshot(s.calc, nil)
	}
	items := make([]LineItem, len(sc.items))
	for i, it := range sc.items {
		it.ShopDiscountPercent = cloneInt(it.ShopDiscountPercent)
		items[i] = it
	}
	return newSnapshot(s.calc, items)
}

func validate(item LineItem) error {
	if item.ProductID <= 0 {
		return ErrInvalidProduct
	}
	if item.UnitPrice.IsNegative() {
		return ErrInvalidPrice
	}
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if p := item.ShopDiscountPercent; p != nil && (*p < 0 || *p > 100) {
		return ErrInvalidDiscount
	}
	return nil
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
