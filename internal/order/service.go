package order

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dkoun25/SportStoreProject/internal/apperr"
	"github.com/dkoun25/SportStoreProject/internal/cart"
	"github.com/dkoun25/SportStoreProject/internal/promo"
	"github.com/dkoun25/SportStoreProject/internal/sequence"
)

// Carts is the part of the cart store checkout needs.
type Carts interface {
	Consume(sessionID string, fn func(cart.Snapshot) error) error
}

// Promos reserves a promo use for the duration of a checkout.
type Promos interface {
	Reserve(sessionID, code string, items []cart.LineItem) (*promo.Reservation, promo.Result)
}

// Publisher is notified after an order is placed.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, o *Order) error
}

const DefaultPageSize = 5

type Service struct {
	carts     Carts
	promos    Promos
	store     Store
	publisher Publisher
	ids       *sequence.Counter
	logger    *log.Logger
	now       func() time.Time

	mu     sync.RWMutex
	orders map[int64]*Order

	// writeMu serialises insert+persist so the ledger on disk is always
	// a consistent prefix of what is in memory.
	writeMu sync.Mutex
}

// NewService loads the ledger from store and positions the id counter
// after the highest stored id. publisher may be nil.
func NewService(ctx context.Context, carts Carts, promos Promos, store Store, publisher Publisher, logger *log.Logger) (*Service, error) {
	existing, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	s := &Service{
		carts:     carts,
		promos:    promos,
		store:     store,
		publisher: publisher,
		ids:       sequence.NewCounter(1),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		orders:    make(map[int64]*Order, len(existing)),
	}

	for i := range existing {
		o := existing[i]
		s.orders[o.ID] = &o
		s.ids.AdvanceTo(o.ID + 1)
	}

	logger.Printf("ledger: loaded %d orders, next id %d", len(existing), s.ids.Peek())
	return s, nil
}

// CreateOrder turns the session's cart into an order. An invalid promo
// code is ignored and the order is placed without a discount.
func (s *Service) CreateOrder(ctx context.Context, sessionID, userEmail, promoCode string) (*Order, error) {
	var placed *Order

	err := s.carts.Consume(sessionID, func(snap cart.Snapshot) error {
		if snap.IsEmpty() {
			return ErrEmptyCart
		}

		o := &Order{
			SessionID: sessionID,
			UserEmail: strings.TrimSpace(userEmail),
			Items:     snap.Items,
			Subtotal:  snap.Subtotal,
			Shipping:  snap.Shipping,
			Tax:       snap.Tax,
			Discount:  decimal.Zero,
			Total:     snap.Total,
			Status:    StatusCompleted,
		}

		var reservation *promo.Reservation
		if strings.TrimSpace(promoCode) != "" {
			res, result := s.promos.Reserve(sessionID, promoCode, snap.Items)
			if res != nil {
				reservation = res
				o.Discount = result.DiscountAmount
				o.PromoCode = res.Code()
				o.Total = snap.Total.Sub(result.DiscountAmount)
			} else {
				s.logger.Printf("checkout: session %s promo %q not applied: %s", sessionID, promoCode, result.Message)
			}
		}

		o.ID = s.ids.Next()
		o.CreatedAt = s.now()

		if err := s.insert(ctx, o); err != nil {
			if reservation != nil {
				reservation.Release()
			}
			s.logger.Printf("checkout: persist order %d failed: %v", o.ID, err)
			return apperr.Wrap(ErrPersist, err)
		}
		if reservation != nil {
			reservation.Commit()
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, placed.clone()); err != nil {
			s.logger.Printf("checkout: publish order %d: %v", placed.ID, err)
		}
	}

	return placed.clone(), nil
}

// insert persists the ledger with o added and only then makes o visible.
func (s *Service) insert(ctx context.Context, o *Order) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	ledger := make([]Order, 0, len(s.orders)+1)
	for _, existing := range s.orders {
		ledger = append(ledger, *existing)
	}
	s.mu.RUnlock()
	ledger = append(ledger, *o)

	if err := s.store.Save(ctx, ledger); err != nil {
		return err
	}

	s.mu.Lock()
	s.orders[o.ID] = o.clone()
	s.mu.Unlock()
	return nil
}

func (s *Service) GetByID(_ context.Context, id int64) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.clone(), nil
}

// History returns one page of the customer's orders, newest first.
func (s *Service) History(_ context.Context, q Query) (Page, error) {
	if q.Page < 0 {
		return Page{}, apperr.Validation("page must not be negative")
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize < 0 {
		return Page{}, apperr.Validation("page size must be positive")
	}

	matched := s.matching(q)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	page := Page{
		Orders:      []Order{},
		CurrentPage: q.Page,
		TotalPages:  pageCount(len(matched), q.PageSize),
		TotalOrders: int64(len(matched)),
		PageSize:    q.PageSize,
	}

	// compare before multiplying: Page*PageSize may overflow
	if len(matched) == 0 || q.Page > (len(matched)-1)/q.PageSize {
		return page, nil
	}
	start := q.Page * q.PageSize
	end := len(matched)
	if q.PageSize < end-start {
		end = start + q.PageSize
	}
	for _, o := range matched[start:end] {
		page.Orders = append(page.Orders, *o.clone())
	}
	return page, nil
}

func pageCount(n, size int) int {
	pages := n / size
	if n%size != 0 {
		pages++
	}
	return pages
}

// Count is the number of orders History would page over.
func (s *Service) Count(q Query) int64 {
	return int64(len(s.matching(q)))
}

func (s *Service) matching(q Query) []*Order {
	email := strings.TrimSpace(q.UserEmail)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Order
	for _, o := range s.orders {
		if email != "" {
			if strings.EqualFold(o.UserEmail, email) {
				out = append(out, o)
			}
			continue
		}
		if q.SessionID != "" && o.SessionID == q.SessionID {
			out = append(out, o)
		}
	}
	return out
}
