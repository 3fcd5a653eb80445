package quake

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidURL
	KindBadStatus
	KindIOFailure
	KindMalformedJSON
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindBadStatus:
		return "bad_status"
	case KindIOFailure:
		return "io_failure"
	case KindMalformedJSON:
		return "malformed_json"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is; an *Error matches the sentinel of its Kind.
var (
	ErrInvalidURL    = errors.New("invalid url")
	ErrBadStatus     = errors.New("bad status")
	ErrIOFailure     = errors.New("io failure")
	ErrMalformedJSON = errors.New("malformed json")
)

// Error is returned by the Fetcher and the Decoder for every failure path.
type Error struct {
	Kind       Kind
	Op         string // "fetch" or "decode"
	URL        string
	StatusCode int // set for KindBadStatus
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "quake error"
	}

	msg := e.Op + ": " + e.Kind.String()
	if e.Kind == KindBadStatus {
		msg = fmt.Sprintf("%s %d", msg, e.StatusCode)
	}
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidURL:
		return e.Kind == KindInvalidURL
	case ErrBadStatus:
		return e.Kind == KindBadStatus
	case ErrIOFailure:
		return e.Kind == KindIOFailure
	case ErrMalformedJSON:
		return e.Kind == KindMalformedJSON
	}
	return false
}

// KindOf reports the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return KindUnknown
}

// StatusCodeOf returns the HTTP status of a KindBadStatus error, or 0.
func StatusCodeOf(err error) int {
	var qe *Error
	if errors.As(err, &qe) && qe.Kind == KindBadStatus {
		return qe.StatusCode
	}
	return 0
}

func malformed(format string, args ...any) error {
	return &Error{Kind: KindMalformedJSON, Op: "decode", Err: fmt.Errorf(format, args...)}
}
