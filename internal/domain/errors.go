package domain

import "errors"

var (
	// ErrRatesUnavailable is returned when the rate provider answers without a rate table
	ErrRatesUnavailable = errors.New("no data available for exchange rates")

	// ErrCurrencyNotFound is returned when a configured currency is missing from the rate table
	ErrCurrencyNotFound = errors.New("currency not found in rate table")

	// ErrRateProviderFailure is returned when the rate provider request fails
	ErrRateProviderFailure = errors.New("rate provider request failed")

	// ErrCatalogAPIFailure is returned when a catalog API request fails
	ErrCatalogAPIFailure = errors.New("catalog API request failed")

	// ErrUnauthorized is returned when the catalog API rejects the access token
	ErrUnauthorized = errors.New("catalog API unauthorized")

	// ErrTokenRefresh is returned when the refresh token cannot be exchanged
	ErrTokenRefresh = errors.New("token refresh failed")

	// ErrVersionConflict is returned when a product write loses the optimistic version check
	ErrVersionConflict = errors.New("product version conflict")

	// ErrAttributeNotFound is returned when the price attribute is absent from the attribute set schema
	ErrAttributeNotFound = errors.New("unable to find attribute to change")

	// ErrInvalidAttributeValue is returned when a base price cannot be parsed as a number
	ErrInvalidAttributeValue = errors.New("invalid attribute value")
)
