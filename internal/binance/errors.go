package binance

import "fmt"

// APIError is any non-2xx answer from the exchange. The transport never
// retries; retry policy belongs to the caller.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance: http %d: %s", e.Status, e.Body)
}
