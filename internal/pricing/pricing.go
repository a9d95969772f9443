package pricing

import "github.com/shopspring/decimal"

var (
	FreeShippingThreshold = decimal.NewFromInt(200000)
	FlatShippingFee       = decimal.NewFromInt(30000)
	TaxRate               = decimal.RequireFromString("0.10")
)

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

func (t Totals) IsEmpty() bool {
	return t.ItemCount == 0
}

// Calculator prices a cart. The zero value is not usable; use Default or New.
type Calculator struct {
	freeShippingAt decimal.Decimal
	shippingFee    decimal.Decimal
	taxRate        decimal.Decimal
}

func Default() Calculator {
	return Calculator{
		freeShippingAt: FreeShippingThreshold,
		shippingFee:    FlatShippingFee,
		taxRate:        TaxRate,
	}
}

func New(freeShippingAt, shippingFee, taxRate decimal.Decimal) Calculator {
	return Calculator{
		freeShippingAt: freeShippingAt,
		shippingFee:    shippingFee,
		taxRate:        taxRate,
	}
}

// Calculate computes pre-discount totals. Tax is truncated, never rounded.
func (c Calculator) Calculate(lines []Line) Totals {
	if len(lines) == 0 {
		return Totals{
			Subtotal: decimal.Zero,
			Shipping: decimal.Zero,
			Tax:      decimal.Zero,
			Total:    decimal.Zero,
		}
	}

	subtotal := decimal.Zero
	count := 0
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		count += l.Quantity
	}

	shipping := c.shippingFee
	if subtotal.GreaterThanOrEqual(c.freeShippingAt) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(c.taxRate).Floor()

	return Totals{
		Subtotal:  subtotal,
		Shipping:  shipping,
		Tax:       tax,
		Total:     subtotal.Add(shipping).Add(tax),
		ItemCount: count,
	}
}

// Calculate prices lines with the default store rules.
func Calculate(lines []Line) Totals {
	return Default().Calculate(lines)
}
