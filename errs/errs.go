// Package errs defines the closed set of error kinds surfaced by this
// module's cryptographic core. Every package below (suite, crypto,
// enccontext, header, frame, keyring, session) reports failures through
// *errs.Error so a caller can discriminate on Kind with a single
// errors.As, regardless of which package raised it.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the error categories named by the specification this
// module implements. It is a closed set: do not add a kind without also
// updating every switch over Kind in this module.
type Kind uint8

const (
	// BadCiphertext covers any authentication or parse failure on
	// untrusted input: a forged or corrupted frame, a tampered header
	// tag, an EDK no keyring can unwrap.
	BadCiphertext Kind = iota
	// CryptoUnknown covers failures from the underlying crypto
	// primitives themselves (RNG failure, cipher construction failure)
	// rather than from attacker-controlled input.
	CryptoUnknown
	// UnsupportedSuite is returned for an algorithm suite id the
	// registry does not recognize, or recognizes but cannot serve
	// (signature-bearing suites; see suite.Lookup).
	UnsupportedSuite
	// SerializationError covers output that cannot be encoded in the
	// wire format, e.g. an encryption context whose serialized form
	// would exceed 16 bits.
	SerializationError
	// BadState covers API contract violations by the caller: setting
	// the message size twice, exceeding a previously set bound, or
	// calling an operation before its prerequisites are met.
	BadState
	// ShortBuffer covers a caller-supplied buffer smaller than a hard
	// requirement, as distinct from "need more bytes, call again."
	ShortBuffer
	// KeyringNotFound covers a decrypt where no keyring/EDK pairing
	// could unwrap a data key.
	KeyringNotFound
)

func (k Kind) String() string {
	switch k {
	case BadCiphertext:
		return "BadCiphertext"
	case CryptoUnknown:
		return "CryptoUnknown"
	case UnsupportedSuite:
		return "UnsupportedSuite"
	case SerializationError:
		return "SerializationError"
	case BadState:
		return "BadState"
	case ShortBuffer:
		return "ShortBuffer"
	case KeyringNotFound:
		return "KeyringNotFound"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned throughout this module. It
// carries a Kind for programmatic discrimination plus a human-readable
// message and optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, errs.New(errs.BadState, "")) style checks work without
// matching the message text.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error of the given kind around an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error,
// returning ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
