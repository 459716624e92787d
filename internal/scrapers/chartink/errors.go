package chartink

import (
	"fmt"
	"net/http"
)

// FetchError is returned when a request to the screener fails, either at
// the transport level (Err is set) or with a non-2xx status.
type FetchError struct {
	Method string
	Url    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chartink: %s %s: %s", e.Method, e.Url, e.Err.Error())
	}
	return fmt.Sprintf(
		"chartink: %s %s: unexpected status %d %s",
		e.Method, e.Url, e.Status, http.StatusText(e.Status),
	)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// TokenNotFoundError is returned when the screener page does not carry a
// csrf token, this means the page layout changed and retrying will not help.
type TokenNotFoundError struct {
	Url string
	Err error
}

func (e *TokenNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chartink: csrf token not found on %s: %s", e.Url, e.Err.Error())
	}
	return fmt.Sprintf("chartink: csrf token not found on %s", e.Url)
}

func (e *TokenNotFoundError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is returned when a widget response does not match
// the groupData/results shape.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("chartink: malformed widget response: %s", e.Err.Error())
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
