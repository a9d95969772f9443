package promo

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoun25/SportStoreProject/internal/cart"
	"github.com/dkoun25/SportStoreProject/internal/pricing"
)

func newTestRegistry(t *testing.T) (*Registry, *cart.Store) {
	t.Helper()
	carts := cart.NewStore(pricing.Default())
	return NewRegistry(carts, Seed()...), carts
}

func addItem(t *testing.T, carts *cart.Store, sessionID string, productID int, price int64, qty int, shopDiscount *int) {
	t.Helper()
	_, err := carts.Add(sessionID, cart.LineItem{
		ProductID:           productID,
		UnitPrice:           decimal.NewFromInt(price),
		Quantity:            qty,
		Size:                "M",
		ShopDiscountPercent: shopDiscount,
	})
	require.NoError(t, err)
}

func intPtr(v int) *int { return &v }

func TestValidate_Rejections(t *testing.T) {
	r, carts := newTestRegistry(t)

	res := r.Validate("s1", "   ")
	assert.False(t, res.Valid)
	assert.Equal(t, MsgCodeRequired, res.Message)

	res = r.Validate("s1", "NOPE")
	assert.False(t, res.Valid)
	assert.Equal(t, MsgCodeNotFound, res.Message)

	res = r.Validate("s1", "APEX15")
	assert.False(t, res.Valid)
	assert.Equal(t, MsgNoEligible, res.Message)

	addItem(t, carts, "s1", 1, 100000, 1, intPtr(20))
	res = r.Validate("s1", "APEX15")
	assert.False(t, res.Valid, "shop-discounted items are not eligible")
	assert.Equal(t, MsgNoEligible, res.Message)
}

func TestValidate_NormalizesCode(t *testing.T) {
	r, carts := newTestRegistry(t)
	addItem(t, carts, "s1", 1, 250000, 1, nil)

	res := r.Validate("s1", "  apex15 ")

	require.True(t, res.Valid)
	assert.Equal(t, "APEX15", res.Code)
	assert.True(t, decimal.NewFromInt(37500).Equal(res.DiscountAmount))
	assert.True(t, decimal.RequireFromString("0.15").Equal(res.DiscountFraction))
	assert.Equal(t, 3, res.RemainingUses)
	assert.Equal(t, "promo code applied: 15% off", res.Message)
}

func TestValidate_SkipsShopDiscountedItems(t *testing.T) {
	r, carts := newTestRegistry(t)
	addItem(t, carts, "s1", 1, 100000, 2, nil)
	addItem(t, carts, "s1", 2, 500000, 1, intPtr(30))
	addItem(t, carts, "s1", 3, 40000, 1, intPtr(0))

	res := r.Validate("s1", "APEX15")

	require.True(t, res.Valid)
	assert.True(t, decimal.NewFromInt(36000).Equal(res.DiscountAmount), res.DiscountAmount.String())
}

func TestValidate_IsReadOnly(t *testing.T) {
	r, carts := newTestRegistry(t)
	addItem(t, carts, "s1", 1, 250000, 1, nil)

	for i := 0; i < 5; i++ {
		res := r.Validate("s1", "APEX15")
		require.True(t, res.Valid)
		assert.Equal(t, 3, res.RemainingUses)
	}
	assert.Equal(t, 0, r.Usage("s1", "APEX15"))
}

func TestReserve_CommitCountsUse(t *testing.T) {
	r, carts := newTestRegistry(t)
	addItem(t, carts, "s1", 1, 250000, 1, nil)
	items := carts.Get("s1").Items

	for i := 0; i < 3; i++ {
		res, out := r.Reserve("s1", "apex15", items)
		require.NotNil(t, res, "reservation %d", i)
		require.True(t, out.Valid)
		assert.Equal(t, 3-i, out.RemainingUses)
		res.Commit()
		res.Commit()
	}

	assert.Equal(t, 3, r.Usage("s1", "APEX15"))

	res, out := r.Reserve("s1", "APEX15", items)
	assert.Nil(t, res)
	assert.False(t, out.Valid)
	assert.Equal(t, MsgUsageExhausted, out.Message)

	preview := r.Validate("s1", "APEX15")
	assert.False(t, preview.Valid)
	assert.Equal(t, 0, preview.RemainingUses)

	other := r.Check("s2", "APEX15", items)
	assert.True(t, other.Valid, "limits are per session")
}

func TestReserve_ReleaseGivesUseBack(t *testing.T) {
	r, carts := newTestRegistry(t)
	addItem(t, carts, "s1", 1, 250000, 1, nil)
	items := carts.Get("s1").Items

	res, _ := r.Reserve("s1", "APEX15", items)
	require.NotNil(t, res)
	assert.Equal(t, 2, r.Check("s1", "APEX15", items).RemainingUses)

	res.Release()
	res.Commit()

	assert.Equal(t, 0, r.Usage("s1", "APEX15"))
	assert.Equal(t, 3, r.Check("s1", "APEX15", items).RemainingUses)
}

func TestRecordUsage(t *testing.T) {
	r, carts := newTestRegistry(t)
	addItem(t, carts, "s1", 1, 250000, 1, nil)

	r.RecordUsage("s1", " apex15")

	assert.Equal(t, 1, r.Usage("s1", "APEX15"))
	assert.Equal(t, 2, r.Validate("s1", "APEX15").RemainingUses)
}

func TestReserve_ConcurrentNeverExceedsCap(t *testing.T) {
	r, carts := newTestRegistry(t)
	addItem(t, carts, "s1", 1, 250000, 1, nil)
	items := carts.Get("s1").Items

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res, _ := r.Reserve("s1", "APEX15", items); res != nil {
				granted.Add(1)
				res.Commit()
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 3, granted.Load())
	assert.Equal(t, 3, r.Usage("s1", "APEX15"))
}

func TestParseCodes(t *testing.T) {
	codes, err := ParseCodes(" summer10:0.10:2:Summer sale ; VIP:0.5:1 ")
	require.NoError(t, err)
	require.Len(t, codes, 2)

	assert.Equal(t, "SUMMER10", codes[0].Code)
	assert.True(t, decimal.RequireFromString("0.1").Equal(codes[0].DiscountFraction))
	assert.Equal(t, 2, codes[0].MaxUsesPerSession)
	assert.Equal(t, "Summer sale", codes[0].Description)
	assert.Equal(t, "VIP", codes[1].Code)

	_, err = ParseCodes("BROKEN:abc:1")
	assert.Error(t, err)
	_, err = ParseCodes("TOOBIG:1.5:1")
	assert.Error(t, err)
	_, err = ParseCodes("SHORT:0.1")
	assert.Error(t, err)

	empty, err := ParseCodes("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLookup(t *testing.T) {
	r, _ := newTestRegistry(t)

	c, ok := r.Lookup("apex15")
	require.True(t, ok)
	assert.Equal(t, 3, c.MaxUsesPerSession)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
	assert.Len(t, r.Codes(), 1)
}

func TestRegistry_CodesSortedAndLookup(t *testing.T) {
	carts := cart.NewStore(pricing.Default())
	r := NewRegistry(carts, append(Seed(),
		Code{Code: " welcome5 ", DiscountFraction: decimal.RequireFromString("0.05"), MaxUsesPerSession: 1},
		Code{Code: "BULK10", DiscountFraction: decimal.RequireFromString("0.10"), MaxUsesPerSession: 2},
	)...)

	codes := r.Codes()
	require.Len(t, codes, 3)
	assert.Equal(t, []string{"APEX15", "BULK10", "WELCOME5"}, []string{codes[0].Code, codes[1].Code, codes[2].Code})

	c, ok := r.Lookup("  Welcome5")
	require.True(t, ok)
	assert.Equal(t, 1, c.MaxUsesPerSession)

	_, ok = r.Lookup("MISSING")
	assert.False(t, ok)
}
