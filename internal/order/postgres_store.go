package order

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dkoun25/SportStoreProject/internal/cart"
)

// PostgresStore keeps the ledger in the orders and order_items tables.
// Orders are immutable once placed, so Save only inserts ids it has not
// stored before.
type PostgresStore struct {
	db *sql.DB

	mu     sync.Mutex
	stored map[int64]struct{}
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, stored: make(map[int64]struct{})}
}

const selectLedgerSQL = `
SELECT o.id, o.session_id, o.user_email, o.subtotal, o.shipping, o.tax, o.discount, o.total,
       o.promo_code, o.created_at, o.status,
       i.line_no, i.product_id, i.name, i.category, i.unit_price, i.quantity, i.size, i.color,
       i.added_at, i.shop_discount_percent
FROM orders o
LEFT JOIN order_items i ON i.order_id = o.id
ORDER BY o.id, i.line_no`

func (s *PostgresStore) Load(ctx context.Context) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx, selectLedgerSQL)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var (
			o         Order
			userEmail sql.NullString
			promoCode sql.NullString
			status    string

			lineNo       sql.NullInt64
			productID    sql.NullInt64
			name         sql.NullString
			category     sql.NullString
			unitPrice    decimal.NullDecimal
			quantity     sql.NullInt64
			size         sql.NullString
			color        sql.NullString
			addedAt      sql.NullTime
			shopDiscount sql.NullInt64
		)
		if err := rows.Scan(
			&o.ID, &o.SessionID, &userEmail, &o.Subtotal, &o.Shipping, &o.Tax, &o.Discount, &o.Total,
			&promoCode, &o.CreatedAt, &status,
			&lineNo, &productID, &name, &category, &unitPrice, &quantity, &size, &color,
			&addedAt, &shopDiscount,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}

		if n := len(orders); n == 0 || orders[n-1].ID != o.ID {
			o.UserEmail = userEmail.String
			o.PromoCode = promoCode.String
			o.Status = ParseStatus(status)
			o.CreatedAt = o.CreatedAt.UTC()
			o.Items = []cart.LineItem{}
			orders = append(orders, o)
		}
		if !lineNo.Valid {
			continue
		}

		it := cart.LineItem{
			ProductID: int(productID.Int64),
			Name:      name.String,
			Category:  category.String,
			UnitPrice: unitPrice.Decimal,
			Quantity:  int(quantity.Int64),
			Size:      size.String,
			Color:     color.String,
		}
		if addedAt.Valid {
			it.AddedAt = addedAt.Time.UTC()
		}
		if shopDiscount.Valid {
			v := int(shopDiscount.Int64)
			it.ShopDiscountPercent = &v
		}
		last := &orders[len(orders)-1]
		last.Items = append(last.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.mu.Lock()
	for _, o := range orders {
		s.stored[o.ID] = struct{}{}
	}
	s.mu.Unlock()

	return orders, nil
}

func (s *PostgresStore) Save(ctx context.Context, orders []Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []Order
	for _, o := range orders {
		if _, ok := s.stored[o.ID]; !ok {
			fresh = append(fresh, o)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, o := range fresh {
		if err := insertOrder(ctx, tx, o); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	for _, o := range fresh {
		s.stored[o.ID] = struct{}{}
	}
	return nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, o Order) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO orders (id, session_id, user_email, subtotal, shipping, tax, discount, total, promo_code, created_at, status)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
         ON CONFLICT (id) DO NOTHING`,
		o.ID, o.SessionID, nullString(o.UserEmail), o.Subtotal, o.Shipping, o.Tax, o.Discount, o.Total,
		nullString(o.PromoCode), o.CreatedAt, string(o.Status),
	)
	if err != nil {
		return fmt.Errorf("insert order %d: %w", o.ID, err)
	}

	for i, it := range o.Items {
		var shopDiscount sql.NullInt64
		if it.ShopDiscountPercent != nil {
			shopDiscount = sql.NullInt64{Int64: int64(*it.ShopDiscountPercent), Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, line_no, product_id, name, category, unit_price, quantity, size, color, added_at, shop_discount_percent)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
             ON CONFLICT (order_id, line_no) DO NOTHING`,
			o.ID, i+1, it.ProductID, it.Name, it.Category, it.UnitPrice, it.Quantity, it.Size, it.Color,
			it.AddedAt, shopDiscount,
		)
		if err != nil {
			return fmt.Errorf("insert order_item %d/%d: %w", o.ID, i+1, err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
