package twitch

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrFetchFailed  = errors.New("fetch failed")
)

// APIError is a non-200 Helix answer with its raw payload.
type APIError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("helix %s status %d: %s", e.Endpoint, e.Status, e.Body)
}

func (e *APIError) Unwrap() error { return ErrFetchFailed }
