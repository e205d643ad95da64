package mailbox

import (
	"errors"
	"fmt"
	"strings"
)

// Kind partitions transport-level failures. Per-item fetch or parse failures
// during fan-out are not Errors; backends absorb those locally.
type Kind int

const (
	// KindConfiguration: required credentials or settings missing. Fatal,
	// never retried.
	KindConfiguration Kind = iota
	// KindAuthentication: the mailbox rejected the credentials.
	KindAuthentication
	// KindConnectivity: DNS, connection or timeout failure.
	KindConnectivity
	// KindQuota: upstream rate limiting.
	KindQuota
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuthentication:
		return "authentication"
	case KindConnectivity:
		return "connectivity"
	case KindQuota:
		return "quota"
	default:
		return "unknown"
	}
}

// Error is a typed transport failure from a mailbox backend.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a typed transport failure.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the failure kind from err, or ok=false when err carries no
// mailbox typing.
func KindOf(err error) (Kind, bool) {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind, true
	}
	return 0, false
}

// ClassifyTransport guesses a Kind from an untyped transport error message.
// Used by backends whose client libraries return plain errors.
func ClassifyTransport(err error) Kind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "auth") ||
		strings.Contains(msg, "credential") ||
		strings.Contains(msg, "login") ||
		strings.Contains(msg, "password"):
		return KindAuthentication
	case strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests"):
		return KindQuota
	default:
		return KindConnectivity
	}
}
