package oneentry

import (
	"fmt"
	"net/http"

	"github.com/oneentry/currency-sync/internal/domain"
)

// APIError is a non-2xx answer from the developer API
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is lets callers match on the domain sentinels with errors.Is
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrCatalogAPIFailure:
		return true
	case domain.ErrVersionConflict:
		return e.StatusCode == http.StatusConflict
	case domain.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}
