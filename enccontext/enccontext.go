// Package enccontext implements the canonical serialization of an
// encryption context: a string-to-string(-ish) map cryptographically bound
// to a message and to each encrypted data key. The wire form is
//
//	count_be16 || (key_len_be16 || key || value_len_be16 || value)*
//
// with entries sorted ascending by key bytes (lexicographic on unsigned
// octets). This is the one pure, stateless codec in the module — it has no
// notion of suites, sessions, or frames.
package enccontext

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/aws/aws-encryption-sdk-go/errs"
)

const maxUint16 = 0xFFFF

// Serialize canonicalizes ctx (sorting by key) and encodes it in the wire
// format. Fails with errs.SerializationError if any individual key or
// value exceeds 65535 bytes, or if the total serialized length would.
func Serialize(ctx map[string][]byte) ([]byte, error) {
	if len(ctx) > maxUint16 {
		return nil, errs.New(errs.SerializationError, "encryption context has %d entries, exceeds %d", len(ctx), maxUint16)
	}

	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var buf bytes.Buffer
	var countBuf [2]byte
	binary.BigEndian.PutUint16(countBuf[:], uint16(len(keys)))
	buf.Write(countBuf[:])

	for _, k := range keys {
		v := ctx[k]
		if len(k) > maxUint16 || len(v) > maxUint16 {
			return nil, errs.New(errs.SerializationError, "encryption context key/value exceeds %d bytes", maxUint16)
		}
		writeBE16Prefixed(&buf, []byte(k))
		writeBE16Prefixed(&buf, v)
	}

	if buf.Len() > maxUint16 {
		return nil, errs.New(errs.SerializationError, "serialized encryption context is %d bytes, exceeds %d", buf.Len(), maxUint16)
	}

	return buf.Bytes(), nil
}

func writeBE16Prefixed(buf *bytes.Buffer, b []byte) {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

// Parse is the inverse of Serialize: it rejects truncated input, duplicate
// keys, and keys that are not in strictly ascending order (the canonical
// form is unique, so a non-canonical encoding is treated as malformed
// rather than silently accepted).
func Parse(buf []byte) (map[string][]byte, error) {
	if len(buf) < 2 {
		return nil, errs.New(errs.BadCiphertext, "encryption context truncated (no count field)")
	}
	count := binary.BigEndian.Uint16(buf[0:2])
	cursor := buf[2:]

	ctx := make(map[string][]byte, count)
	var prevKey []byte
	for i := uint16(0); i < count; i++ {
		key, rest, err := readBE16Prefixed(cursor)
		if err != nil {
			return nil, err
		}
		cursor = rest

		value, rest, err := readBE16Prefixed(cursor)
		if err != nil {
			return nil, err
		}
		cursor = rest

		if prevKey != nil && bytes.Compare(key, prevKey) <= 0 {
			return nil, errs.New(errs.BadCiphertext, "encryption context keys out of order or duplicated")
		}
		prevKey = key

		ctx[string(key)] = value
	}

	if len(cursor) != 0 {
		return nil, errs.New(errs.BadCiphertext, "encryption context has %d trailing bytes", len(cursor))
	}

	return ctx, nil
}

func readBE16Prefixed(buf []byte) (value, rest []byte, err error) {
	if len(buf) < 2 {
		return nil, nil, errs.New(errs.BadCiphertext, "encryption context truncated (missing length prefix)")
	}
	n := int(binary.BigEndian.Uint16(buf[0:2]))
	buf = buf[2:]
	if len(buf) < n {
		return nil, nil, errs.New(errs.BadCiphertext, "encryption context truncated (short field)")
	}
	return buf[:n:n], buf[n:], nil
}
