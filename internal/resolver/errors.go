package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind distinguishes why an adapter failed.
type ErrorKind int

const (
	// KindTransport covers DNS failures, timeouts, and non-2xx upstream
	// status codes.
	KindTransport ErrorKind = iota
	// KindBadResponse covers empty or malformed payloads, including
	// responses whose link fields are all absent or "N/A".
	KindBadResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindBadResponse:
		return "bad response"
	default:
		return "unknown"
	}
}

// ResolverError is a failure from a single adapter.
type ResolverError struct {
	AdapterID string
	Kind      ErrorKind
	Cause     error
}

func (e *ResolverError) Error() string {
	return fmt.Sprintf("resolver %s: %s: %v", e.AdapterID, e.Kind, e.Cause)
}

func (e *ResolverError) Unwrap() error { return e.Cause }

// AllResolversFailed aggregates one ResolverError per failed adapter. Its
// message carries a concrete diagnostic for each, so callers can surface a
// single consolidated report instead of a generic failure.
type AllResolversFailed struct {
	Errors []*ResolverError
}

func (e *AllResolversFailed) Error() string {
	var b strings.Builder
	b.WriteString("all resolvers failed:")
	for _, re := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(re.Error())
	}
	return b.String()
}

// ErrNoUsableLink marks a response that parsed fine but carried no
// download URL.
var ErrNoUsableLink = errors.New("no usable download link in response")
