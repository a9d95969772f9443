package promo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Code is a discount rule. Codes are immutable once registered.
type Code struct {
	Code              string          `json:"code"`
	DiscountFraction  decimal.Decimal `json:"discountFraction"`
	MaxUsesPerSession int             `json:"maxUsesPerSession"`
	Description       string          `json:"description"`
}

// Result is the outcome of checking a code against a session's cart.
type Result struct {
	Valid            bool            `json:"valid"`
	Message          string          `json:"message"`
	Code             string          `json:"-"`
	DiscountFraction decimal.Decimal `json:"discountFraction"`
	RemainingUses    int             `json:"remainingUses"`
	DiscountAmount   decimal.Decimal `json:"discountAmount"`
}

const (
	MsgCodeRequired   = "promo code is required"
	MsgCodeNotFound   = "promo code not found"
	MsgUsageExhausted = "promo code usage limit reached"
	MsgNoEligible     = "no eligible items for this promo code"
)

// Normalize trims and upper-cases a code for lookup.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Seed is the built-in catalog.
func Seed() []Code {
	return []Code{
		{
			Code:              "APEX15",
			DiscountFraction:  decimal.RequireFromString("0.15"),
			MaxUsesPerSession: 3,
			Description:       "15% off items without a shop discount",
		},
	}
}

// ParseCodes reads "CODE:fraction:maxUses:description" entries separated by ';'.
func ParseCodes(raw string) ([]Code, error) {
	var out []Code
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 4)
		if len(parts) < 3 {
			return nil, fmt.Errorf("promo entry %q: want CODE:fraction:maxUses[:description]", entry)
		}

		fraction, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("promo entry %q: fraction: %w", entry, err)
		}
		maxUses, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("promo entry %q: maxUses: %w", entry, err)
		}

		c := Code{
			Code:              Normalize(parts[0]),
			DiscountFraction:  fraction,
			MaxUsesPerSession: maxUses,
		}
		if len(parts) == 4 {
			c.Description = strings.TrimSpace(parts[3])
		}
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("promo entry %q: %w", entry, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (c Code) validate() error {
	if c.Code == "" {
		return fmt.Errorf("empty code")
	}
	if c.DiscountFraction.IsNegative() || c.DiscountFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("discount fraction %s outside 0..1", c.DiscountFraction)
	}
	if c.MaxUsesPerSession < 0 {
		return fmt.Errorf("negative max uses")
	}
	return nil
}
