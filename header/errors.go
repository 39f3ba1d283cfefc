package header

import "errors"

// ErrIncomplete signals that buf does not yet hold a complete header plus
// its trailing auth-blob. It is not a parse failure: the caller is expected
// to supply more bytes and retry, mirroring the "need more input" discipline
// the session's ReadHeader state relies on. Callers distinguish this from a
// hard parse error with errors.Is.
var ErrIncomplete = errors.New("header: incomplete, need more bytes")

const (
	version1           uint8 = 1
	typeCustomerAEData uint8 = 0x80
	ivLenByte          uint8 = 12
)

// ContentType selects the body record shape described by a header.
type ContentType uint8

const (
	ContentTypeUnframed ContentType = 1
	ContentTypeFramed   ContentType = 2
)

func (c ContentType) valid() bool {
	return c == ContentTypeUnframed || c == ContentTypeFramed
}
