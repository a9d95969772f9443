package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dkoun25/SportStoreProject/internal/apperr"
)

var ErrNotFound = apperr.NotFound("product not found")

// Product is the subset of the catalog record the cart needs.
type Product struct {
	ID              int             `json:"id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Price           decimal.Decimal `json:"price"`
	Image           string          `json:"image,omitempty"`
	Sizes           []string        `json:"sizes,omitempty"`
	Colors          []string        `json:"colors,omitempty"`
	DiscountPercent *int            `json:"discountPercent,omitempty"`
}

// Catalog is a read-only, in-memory product list loaded once at startup.
type Catalog struct {
	byID map[int]Product
}

func New(products ...Product) *Catalog {
	c := &Catalog{byID: make(map[int]Product, len(products))}
	for _, p := range products {
		c.byID[p.ID] = p
	}
	return c
}

// Load reads a JSON array of products. A missing file yields an empty catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return New(products...), nil
}

func (c *Catalog) GetByID(id int) (Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (c *Catalog) Len() int {
	return len(c.byID)
}

// All returns the products ordered by id.
func (c *Catalog) All() []Product {
	out := make([]Product, 0, len(c.byID))
	for _, p := range c.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
