package oneentry

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/oneentry/currency-sync/internal/domain"
)

// GetAttributeSet fetches an attribute set by marker
func (c *Client) GetAttributeSet(ctx context.Context, marker string) (*domain.AttributeSet, error) {
	var set domain.AttributeSet
	if err := c.Get(ctx, "attributes-sets/marker/"+url.PathEscape(marker), &set); err != nil {
		return nil, fmt.Errorf("get attribute set %q: %w", marker, err)
	}
	return &set, nil
}

// ListProducts fetches one page of products in langCode.
// The endpoint takes a filter list as body; an empty list means no filter.
func (c *Client) ListProducts(ctx context.Context, langCode string, limit, offset int) (*domain.ProductPage, error) {
	params := url.Values{}
	params.Set("langCode", langCode)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var page domain.ProductPage
	if err := c.Post(ctx, "products/all?"+params.Encode(), []any{}, &page); err != nil {
		return nil, fmt.Errorf("list products at offset %d: %w", offset, err)
	}
	return &page, nil
}

// UpdateProduct writes the attribute sets and version of a product
func (c *Client) UpdateProduct(ctx context.Context, id int64, update domain.ProductUpdate) error {
	if err := c.Put(ctx, "products/"+strconv.FormatInt(id, 10), update, nil); err != nil {
		return fmt.Errorf("update product %d: %w", id, err)
	}
	return nil
}

var _ domain.CatalogClient = (*Client)(nil)
