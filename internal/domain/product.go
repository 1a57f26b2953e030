package domain

import (
	"fmt"
	"maps"
)

// AttributeValues maps an attribute internal id (e.g. "float_id12") to its value for one locale
type AttributeValues map[string]any

// Product is a catalog product as returned by the OneEntry developer API
type Product struct {
	ID             int64                      `json:"id"`
	Version        int64                      `json:"version"`
	AttributeSetID int64                      `json:"attributeSetId"`
	AttributesSets map[string]AttributeValues `json:"attributesSets"`
}

// ProductPage is one page of the product listing
type ProductPage struct {
	Total int       `json:"total"`
	Items []Product `json:"items"`
}

// ProductUpdate is the body of a product write
type ProductUpdate struct {
	AttributesSets map[string]AttributeValues `json:"attributesSets"`
	Version        int64                      `json:"version"`
}

// AttributeSchema describes one field of an attribute set
type AttributeSchema struct {
	Identifier string `json:"identifier"`
	Type       string `json:"type"`
	ID         int64  `json:"id"`
}

// InternalID returns the composite key the field is stored under inside attributesSets
func (s AttributeSchema) InternalID() string {
	return fmt.Sprintf("%s_id%d", s.Type, s.ID)
}

// AttributeSet is a named group of attribute schemas
type AttributeSet struct {
	ID     int64                      `json:"id"`
	Schema map[string]AttributeSchema `json:"schema"`
}

// FindAttribute returns the schema entry whose identifier equals marker
func (a *AttributeSet) FindAttribute(marker string) (AttributeSchema, bool) {
	for _, schema := range a.Schema {
		if schema.Identifier == marker {
			return schema, true
		}
	}
	return AttributeSchema{}, false
}

// PriceTarget identifies which products and which field a sync pass works on.
// Resolved once at startup.
type PriceTarget struct {
	AttributeSetID int64  `json:"attributeSetId"`
	AttributeID    string `json:"attributeId"`
}

// WithLocale returns a copy of the product attribute sets with locale replaced by values.
// The product itself is left untouched.
func (p *Product) WithLocale(locale string, values AttributeValues) map[string]AttributeValues {
	merged := maps.Clone(p.AttributesSets)
	if merged == nil {
		merged = make(map[string]AttributeValues, 1)
	}
	merged[locale] = values
	return merged
}
