package usecase

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/oneentry/currency-sync/internal/domain"
	"github.com/shopspring/decimal"
)

// Reasons a product is left untouched during a pass
const (
	SkipAttributeSet = "attribute_set"
	SkipUnchanged    = "unchanged"
	SkipInvalidValue = "invalid_value"
	SkipDuplicate    = "duplicate"
)

// PriceUpdate is the write planned for one product
type PriceUpdate struct {
	ProductID int64
	Price     string
	Update    domain.ProductUpdate
}

// ConvertPrice returns base*rate rounded half away from zero to exactly two decimals
func ConvertPrice(base, rate decimal.Decimal) string {
	return base.Mul(rate).StringFixed(2)
}

// ParseAttributeValue reads a stored price. A missing value counts as zero.
func ParseAttributeValue(v any) (decimal.Decimal, error) {
	switch value := v.(type) {
	case nil:
		return decimal.Zero, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidAttributeValue, value)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(value), nil
	case int:
		return decimal.NewFromInt(int64(value)), nil
	case int64:
		return decimal.NewFromInt(value), nil
	case json.Number:
		d, err := decimal.NewFromString(value.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidAttributeValue, value)
		}
		return d, nil
	}
	return decimal.Zero, fmt.Errorf("%w: unsupported type %T", domain.ErrInvalidAttributeValue, v)
}

// PlanPriceUpdate decides whether product p needs a new sync-locale price.
// It returns a non-empty skip reason when no write is needed. p is not modified.
func PlanPriceUpdate(p *domain.Product, target domain.PriceTarget, rate decimal.Decimal, baseLocale, syncLocale string) (PriceUpdate, string) {
	if p.AttributeSetID != target.AttributeSetID {
		return PriceUpdate{}, SkipAttributeSet
	}

	base, err := ParseAttributeValue(p.AttributesSets[baseLocale][target.AttributeID])
	if err != nil {
		return PriceUpdate{}, SkipInvalidValue
	}
	price := ConvertPrice(base, rate)

	current := p.AttributesSets[syncLocale]
	if stored, ok := current[target.AttributeID].(string); ok && stored == price {
		return PriceUpdate{}, SkipUnchanged
	}

	values := maps.Clone(current)
	if values == nil {
		values = make(domain.AttributeValues, 1)
	}
	values[target.AttributeID] = price

	return PriceUpdate{
		ProductID: p.ID,
		Price:     price,
		Update: domain.ProductUpdate{
			AttributesSets: p.WithLocale(syncLocale, values),
			Version:        p.Version + 1,
		},
	}, ""
}
