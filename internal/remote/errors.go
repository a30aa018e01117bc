package remote

import (
	"errors"
	"fmt"
)

// Kind classifies a failed upstream call.
type Kind int

const (
	KindTimeout Kind = iota + 1
	KindUnreachable
	KindUnauthorized
	KindNotFound
	KindRateLimited
	KindServerError
	KindCallFailed
)

var (
	ErrRemoteTimeout      = errors.New("remote: timeout")
	ErrRemoteUnreachable  = errors.New("remote: unreachable")
	ErrRemoteUnauthorized = errors.New("remote: unauthorized")
	ErrRemoteNotFound     = errors.New("remote: endpoint not found")
	ErrRemoteRateLimited  = errors.New("remote: rate limited")
	ErrRemoteServerError  = errors.New("remote: server error")
	ErrRemoteCallFailed   = errors.New("remote: call failed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrRemoteTimeout
	case KindUnreachable:
		return ErrRemoteUnreachable
	case KindUnauthorized:
		return ErrRemoteUnauthorized
	case KindNotFound:
		return ErrRemoteNotFound
	case KindRateLimited:
		return ErrRemoteRateLimited
	case KindServerError:
		return ErrRemoteServerError
	default:
		return ErrRemoteCallFailed
	}
}

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindServerError:
		return "server_error"
	default:
		return "call_failed"
	}
}

// retryable reports whether another attempt may be issued after this kind.
// Connection failures are terminal, unlike timeouts and unclassified errors.
func (k Kind) retryable() bool {
	return k == KindTimeout || k == KindCallFailed
}

// Error is returned by Client.Do once no further attempt will be made.
// Match it with errors.Is against the ErrRemote* sentinels.
type Error struct {
	Kind     Kind
	Status   int // HTTP status, 0 when no response was received
	Endpoint string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%v (%s, %d attempt(s))", e.Kind.sentinel(), e.Endpoint, e.Attempts)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind.sentinel() }
