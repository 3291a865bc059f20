package request

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors carried by Result.Err.
var (
	// ErrHTTPStatus marks a response with a non-2xx status code.
	ErrHTTPStatus = errors.New("request: unexpected HTTP status")

	// ErrEncodeBody is returned when Options.Body cannot be serialized.
	ErrEncodeBody = errors.New("request: failed to encode body")
)

// StatusError describes a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// Unwrap makes errors.Is(err, ErrHTTPStatus) hold.
func (e *StatusError) Unwrap() error {
	return ErrHTTPStatus
}

// Result is the uniform outcome of a dispatched call.
type Result struct {
	// Data is the response body of a successful call. It may be empty
	// (e.g. 204 No Content).
	Data json.RawMessage

	// Err is nil on success.
	Err error

	// StatusCode is the status the final attempt received, or 0 when that
	// attempt got no response (timeout or transport error).
	StatusCode int

	// Attempts is the number of attempts the call made.
	Attempts int

	// Shared reports whether the outcome was delivered to more than one
	// caller.
	Shared bool
}

// Success reports whether the call succeeded.
func (r Result) Success() bool {
	return r.Err == nil
}

// Decode unmarshals Data into v. It returns Err for a failed call.
func (r Result) Decode(v any) error {
	if r.Err != nil {
		return r.Err
	}
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// StatusCodeOf returns the HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
