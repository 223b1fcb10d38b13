package feed

import (
	"fmt"
	"net/http"
)

// Status classifies the outcome of a feed request.
type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusConflict
	StatusPayloadTooLarge
	StatusServerError
	// StatusTransport means no response was received at all.
	StatusTransport
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusConflict:
		return "conflict"
	case StatusPayloadTooLarge:
		return "payload_too_large"
	case StatusServerError:
		return "server_error"
	case StatusTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Classify maps an HTTP status code onto a Status.
func Classify(code int) Status {
	switch {
	case code == http.StatusOK:
		return StatusOK
	case code == http.StatusNotFound:
		return StatusNotFound
	case code == http.StatusConflict:
		return StatusConflict
	case code == http.StatusRequestEntityTooLarge:
		return StatusPayloadTooLarge
	case code >= 500 && code <= 599:
		return StatusServerError
	default:
		return StatusUnknown
	}
}

// StatusError carries the raw HTTP code of a non-OK response.
type StatusError struct {
	Status Status
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed responded %d (%s)", e.Code, e.Status)
}
