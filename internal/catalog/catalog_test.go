package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoun25/SportStoreProject/internal/apperr"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"id": 2, "name": "Jersey", "category": "apparel", "price": 300000, "discountPercent": 20,
   "sizes": ["S", "M"], "description": "ignored", "specs": {"fabric": "poly"}},
  {"id": 1, "name": "Ball", "category": "equipment", "price": 120000.5, "discountPercent": null}
]`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	p, err := c.GetByID(2)
	require.NoError(t, err)
	assert.Equal(t, "Jersey", p.Name)
	require.NotNil(t, p.DiscountPercent)
	assert.Equal(t, 20, *p.DiscountPercent)

	ball, err := c.GetByID(1)
	require.NoError(t, err)
	assert.Nil(t, ball.DiscountPercent)
	assert.True(t, decimal.RequireFromString("120000.5").Equal(ball.Price))

	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].ID)
}

func TestLoad_MissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestGetByID_NotFound(t *testing.T) {
	_, err := New().GetByID(42)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
