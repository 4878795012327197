package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bnema/shortsdash/internal/domain"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// Temporary reports whether retrying later could succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// readAPIError turns an error response into an error. Authentication failures
// wrap domain.ErrUnauthenticated and missing resources domain.ErrNotFound.
func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{StatusCode: resp.StatusCode, Detail: parseDetail(body)}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", domain.ErrUnauthenticated, apiErr)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, apiErr)
	}
	return apiErr
}

// parseDetail reads FastAPI error bodies, where detail is either a message
// or a list of validation errors.
func parseDetail(body []byte) string {
	var wire struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &wire) != nil || len(wire.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var msg string
	if json.Unmarshal(wire.Detail, &msg) == nil {
		return msg
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if json.Unmarshal(wire.Detail, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if len(it.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(wire.Detail)
}
