package domain

import (
	"context"
)

// CatalogClient defines the interface for the product catalog operations the sync loop needs
type CatalogClient interface {
	GetAttributeSet(ctx context.Context, marker string) (*AttributeSet, error)
	ListProducts(ctx context.Context, langCode string, limit, offset int) (*ProductPage, error)
	UpdateProduct(ctx context.Context, id int64, update ProductUpdate) error
}

// RateProvider defines the interface for fetching the latest exchange rate table
type RateProvider interface {
	LatestRates(ctx context.Context) (*RatesResponse, error)
}
