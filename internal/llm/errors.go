package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTimeout indicates the upstream call exceeded the configured wall-clock
// deadline. Not retried internally; callers translate it to 504.
var ErrTimeout = errors.New("llm: upstream request timed out")

// UpstreamError captures a non-2xx response from the model API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm: upstream returned status %d: %s", e.Status, e.Body)
}

// IsRateLimited reports whether err is an upstream 429, which callers pass
// through to the client as-is for "try again later" messaging.
func IsRateLimited(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Status == http.StatusTooManyRequests
}
