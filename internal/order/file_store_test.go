package order

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoun25/SportStoreProject/internal/cart"
)

const legacyLedger = `[
  {
    "id": 3,
    "sessionId": "abc",
    "userEmail": null,
    "items": [
      {"id": 12, "name": "Running Shoe", "category": "shoes", "price": 250000.0, "image": "shoe.png",
       "quantity": 1, "size": "42", "color": "red", "addedDate": 1700000000000, "discountPercent": null}
    ],
    "subtotal": 250000.0,
    "shipping": 0.0,
    "discount": 37500.0,
    "total": 237500.0,
    "promoCode": "APEX15",
    "createdAt": 1700000100000,
    "status": "completed"
  },
  {
    "id": 1,
    "sessionId": "abc",
    "userEmail": "fan@example.com",
    "items": [
      {"id": 5, "name": "Cap", "price": 50000.0, "quantity": 2, "size": "M", "color": "", "addedDate": 1690000000000, "discountPercent": 10}
    ],
    "subtotal": 100000.0,
    "shipping": 30000.0,
    "discount": 0.0,
    "total": 140000.0,
    "promoCode": null,
    "createdAt": 1690000100000,
    "status": "pending"
  }
]`

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	return NewFileStore(filepath.Join(dir, "data", "orders.json"), filepath.Join(dir, "legacy", "orders.json"), log.New(io.Discard, "", 0)), dir
}

func sampleOrder(id int64) Order {
	pct := 20
	return Order{
		ID:        id,
		SessionID: "s1",
		Items: []cart.LineItem{{
			ProductID:           7,
			Name:                "Ball",
			UnitPrice:           decimal.NewFromInt(120000),
			Quantity:            1,
			Size:                "M",
			AddedAt:             time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			ShopDiscountPercent: &pct,
		}},
		Subtotal:  decimal.NewFromInt(120000),
		Shipping:  decimal.NewFromInt(30000),
		Tax:       decimal.NewFromInt(12000),
		Discount:  decimal.Zero,
		Total:     decimal.NewFromInt(162000),
		CreatedAt: time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC),
		Status:    StatusCompleted,
	}
}

func TestFileStore_LoadMissingIsEmpty(t *testing.T) {
	s, _ := newTestFileStore(t)

	orders, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestFileStore_SaveLoadSortedByID(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, []Order{sampleOrder(3), sampleOrder(1), sampleOrder(2)}))

	orders, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.EqualValues(t, 1, orders[0].ID)
	assert.EqualValues(t, 3, orders[2].ID)

	got := orders[0]
	want := sampleOrder(1)
	assert.True(t, want.Total.Equal(got.Total))
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.Items[0].ShopDiscountPercent)
	assert.Equal(t, 20, *got.Items[0].ShopDiscountPercent)
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, s.Save(ctx, []Order{sampleOrder(i)}))
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "orders.json", entries[0].Name())
}

func TestFileStore_SaveWritesJSONArray(t *testing.T) {
	s, _ := newTestFileStore(t)
	require.NoError(t, s.Save(context.Background(), nil))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var raw []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Empty(t, raw)
}

func TestFileStore_MigrateCreatesEmptyLedger(t *testing.T) {
	s, _ := newTestFileStore(t)

	require.NoError(t, s.Migrate(context.Background()))

	_, err := os.Stat(s.Path())
	require.NoError(t, err)
	orders, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestFileStore_MigrateFromLegacyPath(t *testing.T) {
	s, dir := newTestFileStore(t)
	legacyPath := filepath.Join(dir, "legacy", "orders.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(legacyPath), 0o755))
	require.NoError(t, os.WriteFile(legacyPath, []byte(legacyLedger), 0o644))

	require.NoError(t, s.Migrate(context.Background()))

	orders, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)

	first := orders[0]
	assert.EqualValues(t, 1, first.ID)
	assert.Equal(t, "fan@example.com", first.UserEmail)
	assert.Empty(t, first.PromoCode)
	assert.Equal(t, StatusPending, first.Status)
	assert.True(t, decimal.NewFromInt(10000).Equal(first.Tax), "tax is derived from the stored totals")
	assert.True(t, time.UnixMilli(1690000100000).Equal(first.CreatedAt))
	require.Len(t, first.Items, 1)
	assert.Equal(t, 5, first.Items[0].ProductID)
	require.NotNil(t, first.Items[0].ShopDiscountPercent)
	assert.Equal(t, 10, *first.Items[0].ShopDiscountPercent)

	second := orders[1]
	assert.Equal(t, "APEX15", second.PromoCode)
	assert.True(t, decimal.NewFromInt(25000).Equal(second.Tax), second.Tax.String())
	assert.Nil(t, second.Items[0].ShopDiscountPercent)
	assert.True(t, time.UnixMilli(1700000000000).Equal(second.Items[0].AddedAt))

	// the canonical file now holds the current layout
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	_, legacy, err := decodeLedger(data)
	require.NoError(t, err)
	assert.False(t, legacy)
}

func TestFileStore_MigrateUpgradesLegacyLayoutInPlace(t *testing.T) {
	s, _ := newTestFileStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(legacyLedger), 0o644))

	require.NoError(t, s.Migrate(context.Background()))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	orders, legacy, err := decodeLedger(data)
	require.NoError(t, err)
	assert.False(t, legacy)
	assert.Len(t, orders, 2)
}

func TestFileStore_MigrateKeepsCanonical(t *testing.T) {
	s, dir := newTestFileStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, []Order{sampleOrder(1)}))

	legacyPath := filepath.Join(dir, "legacy", "orders.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(legacyPath), 0o755))
	require.NoError(t, os.WriteFile(legacyPath, []byte(legacyLedger), 0o644))

	require.NoError(t, s.Migrate(ctx))

	orders, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1, "legacy file is ignored once a canonical ledger exists")
}

func TestFileStore_CorruptLedger(t *testing.T) {
	s, _ := newTestFileStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"not":"an array"`), 0o644))

	_, err := s.Load(context.Background())
	assert.Error(t, err)
	assert.Error(t, s.Migrate(context.Background()))
}

func TestFileStore_MigrateNormalisesLegacyStatus(t *testing.T) {
	s, dir := newTestFileStore(t)
	legacyPath := filepath.Join(dir, "legacy", "orders.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(legacyPath), 0o755))
	require.NoError(t, os.WriteFile(legacyPath, []byte(`[
  {"id": 1, "sessionId": "abc", "items": [], "subtotal": 0, "shipping": 0, "discount": 0, "total": 0,
   "createdAt": 1690000100000, "status": "CANCELLED"},
  {"id": 2, "sessionId": "abc", "items": [], "subtotal": 0, "shipping": 0, "discount": 0, "total": 0,
   "createdAt": 1690000200000, "status": "COMPLETED"}
]`), 0o644))

	require.NoError(t, s.Migrate(context.Background()))

	orders, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, StatusCancelled, orders[0].Status)
	assert.Equal(t, StatusCompleted, orders[1].Status)
}
