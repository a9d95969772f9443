//go:build integration

package integration

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoun25/SportStoreProject/internal/cart"
	"github.com/dkoun25/SportStoreProject/internal/order"
	"github.com/dkoun25/SportStoreProject/internal/pricing"
	"github.com/dkoun25/SportStoreProject/internal/promo"
	"github.com/dkoun25/SportStoreProject/internal/testutil"
)

func TestPostgresLedger_CheckoutSurvivesRestart(t *testing.T) {
	db, _ := testutil.StartPostgres(t)
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)

	carts := cart.NewStore(pricing.Default())
	promos := promo.NewRegistry(carts, promo.Seed()...)

	svc, err := order.NewService(ctx, carts, promos, order.NewPostgresStore(db), nil, logger)
	require.NoError(t, err)

	_, err = carts.Add("s1", cart.LineItem{
		ProductID: 12,
		Name:      "Running Shoe",
		Category:  "shoes",
		UnitPrice: decimal.NewFromInt(250000),
		Quantity:  1,
		Size:      "42",
		Color:     "red",
	})
	require.NoError(t, err)

	placed, err := svc.CreateOrder(ctx, "s1", "fan@example.com", "apex15")
	require.NoError(t, err)
	assert.EqualValues(t, 1, placed.ID)
	assert.Equal(t, "APEX15", placed.PromoCode)

	restarted, err := order.NewService(ctx, cart.NewStore(pricing.Default()), promos, order.NewPostgresStore(db), nil, logger)
	require.NoError(t, err)

	got, err := restarted.GetByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, "fan@example.com", got.UserEmail)
	assert.True(t, decimal.NewFromInt(37500).Equal(got.Discount))
	assert.True(t, decimal.NewFromInt(237500).Equal(got.Total))
	assert.WithinDuration(t, placed.CreatedAt, got.CreatedAt, time.Millisecond)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "red", got.Items[0].Color)

	page, err := restarted.History(ctx, order.Query{UserEmail: "FAN@example.com"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.TotalOrders)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items WHERE order_id = $1`, placed.ID).Scan(&count))
	assert.Equal(t, 1, count)
}
