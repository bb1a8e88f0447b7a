package listfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
)

// ErrorKind names the class of a fetch failure.
type ErrorKind string

const (
	// KindNetwork means no response was received.
	KindNetwork ErrorKind = "network"

	// KindHTTP means the server answered with a 4xx or 5xx status.
	KindHTTP ErrorKind = "http"

	// KindUnknown covers everything else.
	KindUnknown ErrorKind = "unknown"
)

// StatusCoder is implemented by transport errors that carry the HTTP
// status of the response that caused them.
type StatusCoder interface {
	HTTPStatus() int
}

// NetworkError reports a fetch that never got a response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Kind returns KindNetwork.
func (e *NetworkError) Kind() ErrorKind { return KindNetwork }

// HTTPError reports a response with an error status.
type HTTPError struct {
	Status int
	Err    error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("http error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("http error (status %d)", e.Status)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// Kind returns KindHTTP.
func (e *HTTPError) Kind() ErrorKind { return KindHTTP }

// UnknownError wraps a failure of any other shape.
type UnknownError struct {
	Err error
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown error: %v", e.Err)
}

func (e *UnknownError) Unwrap() error { return e.Err }

// Kind returns KindUnknown.
func (e *UnknownError) Kind() ErrorKind { return KindUnknown }

// KindOf returns the kind of a classified error, or "" for nil.
func KindOf(err error) ErrorKind {
	var k interface{ Kind() ErrorKind }
	if errors.As(Classify(err), &k) {
		return k.Kind()
	}
	return ""
}

// Classify maps an arbitrary fetch error onto NetworkError, HTTPError or
// UnknownError. Errors that are already classified are returned as is.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		netErr     *NetworkError
		httpErr    *HTTPError
		unknownErr *UnknownError
	)
	switch {
	case errors.As(err, &netErr):
		return netErr
	case errors.As(err, &httpErr):
		return httpErr
	case errors.As(err, &unknownErr):
		return unknownErr
	}

	var sc StatusCoder
	if errors.As(err, &sc) && sc.HTTPStatus() >= 400 {
		return &HTTPError{Status: sc.HTTPStatus(), Err: err}
	}

	if isNetwork(err) {
		return &NetworkError{Err: err}
	}

	return &UnknownError{Err: err}
}

func isNetwork(err error) bool {
	var (
		ne  net.Error
		ue  *url.Error
		ope *net.OpError
	)
	switch {
	case errors.As(err, &ope), errors.As(err, &ue), errors.As(err, &ne):
		return true
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET):
		return true
	default:
		return false
	}
}
