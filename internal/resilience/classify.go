// Package resilience implements the failure-recovery discipline wrapped
// around the remote case backend: error classification, bounded retry with
// exponential backoff, and coordination with the session manager and the
// network monitor.
package resilience

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Category is the error vocabulary the retry policy reasons about. Deeper
// backend-specific codes are not modeled here.
type Category int

const (
	CategoryGeneral Category = iota
	CategoryAuth
	CategoryPermission
	CategoryNetwork
	CategoryValidation
)

func (c Category) String() string {
	switch c {
	case CategoryAuth:
		return "auth"
	case CategoryPermission:
		return "permission"
	case CategoryNetwork:
		return "network"
	case CategoryValidation:
		return "validation"
	default:
		return "general"
	}
}

// StatusCoder is implemented by errors carrying an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// ValidationError marks an error as a structured validation failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Field + ": " + e.Reason
}

var authMarkers = []string{"jwt", "auth", "unauthorized", "session"}

var networkMarkers = []string{
	"network",
	"fetch",
	"timeout",
	"connection refused",
	"connection reset",
	"no such host",
	"broken pipe",
	"unreachable",
}

// Classify assigns an error to a category. Best-effort heuristic: explicit
// status codes win, then lexical markers; auth takes precedence over network
// when both match.
func Classify(err error) Category {
	if err == nil {
		return CategoryGeneral
	}

	// Explicit HTTP status, if the error carries one.
	var sc StatusCoder
	if errors.As(err, &sc) {
		switch sc.StatusCode() {
		case 401:
			return CategoryAuth
		case 403:
			return CategoryPermission
		}
	}

	// gRPC transports surface status codes instead.
	if s, ok := status.FromError(err); ok && s.Code() != codes.OK {
		switch s.Code() {
		case codes.Unauthenticated:
			return CategoryAuth
		case codes.PermissionDenied:
			return CategoryPermission
		case codes.Unavailable, codes.DeadlineExceeded:
			return CategoryNetwork
		case codes.InvalidArgument:
			return CategoryValidation
		}
	}

	msg := strings.ToLower(err.Error())

	for _, marker := range authMarkers {
		if strings.Contains(msg, marker) {
			return CategoryAuth
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryNetwork
	}
	for _, marker := range networkMarkers {
		if strings.Contains(msg, marker) {
			return CategoryNetwork
		}
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return CategoryValidation
	}

	return CategoryGeneral
}
