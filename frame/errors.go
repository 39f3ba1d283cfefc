package frame

import "errors"

// ErrIncomplete signals that buf does not yet hold a complete frame record.
// The caller should supply more bytes and retry; this is not a parse
// failure, mirroring the header package's incremental-parse discipline.
var ErrIncomplete = errors.New("frame: incomplete, need more bytes")

// finalSeqnoMarker precedes the true sequence number on a final framed
// record, distinguishing it on the wire from a non-final frame.
const finalSeqnoMarker uint32 = 0xFFFFFFFF
