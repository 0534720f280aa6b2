package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed marks a non-200 answer from the token endpoint.
	ErrAuthFailed = errors.New("auth failed")
	// ErrCodeExhausted means no valid authorization code is left to fall back
	// on; an operator has to authorize the app again.
	ErrCodeExhausted = errors.New("authorization code exhausted")
)

// ExchangeError carries the token endpoint's answer for a rejected grant.
type ExchangeError struct {
	Grant  string
	Status int
	Body   string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token endpoint rejected %s grant: status %d: %s", e.Grant, e.Status, e.Body)
}

func (e *ExchangeError) Unwrap() error { return ErrAuthFailed }
