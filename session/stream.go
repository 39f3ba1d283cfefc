package session

import (
	"io"

	"github.com/aws/aws-encryption-sdk-go/errs"
)

// streamChunk is the buffer granularity the stream adapters drive Process
// with when the session's own estimate is smaller.
const streamChunk = 4096

// EncryptWriter adapts an encrypting Session to io.WriteCloser: plaintext
// written to it comes out of dst as ciphertext. The message is finalized
// on Close, which fixes the message size at the total number of bytes
// written (unless the caller already called SetMessageSize) and drains the
// remaining frames. The adapter is sugar over Process and adds no
// semantics of its own; in particular it inherits the session's
// single-goroutine discipline.
type EncryptWriter struct {
	s       *Session
	dst     io.Writer
	written uint64
	closed  bool
}

// NewEncryptWriter wraps s, which must already be initialized for encrypt,
// around dst.
func NewEncryptWriter(s *Session, dst io.Writer) *EncryptWriter {
	return &EncryptWriter{s: s, dst: dst}
}

func (w *EncryptWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errs.New(errs.BadState, "write on a closed EncryptWriter")
	}
	if err := w.drive(p); err != nil {
		return 0, err
	}
	w.written += uint64(len(p))
	return len(p), nil
}

// Close fixes the message size, drains the final frame(s) into dst, and
// leaves the session in Done.
func (w *EncryptWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if !w.s.MessageSizeKnown() {
		if err := w.s.SetMessageSize(w.written); err != nil {
			return err
		}
	}
	if err := w.drive(nil); err != nil {
		return err
	}
	if !w.s.IsDone() {
		return errs.New(errs.BadState, "close before the message completed (%d plaintext bytes written)", w.written)
	}
	return nil
}

// drive feeds in to the session and copies everything the session can
// currently produce into dst.
func (w *EncryptWriter) drive(in []byte) error {
	for {
		_, outNeed := w.s.EstimateBuf()
		if outNeed < streamChunk {
			outNeed = streamChunk
		}
		buf := make([]byte, outNeed)
		_, produced, err := w.s.Process(buf, in)
		if err != nil {
			return err
		}
		in = nil
		if produced == 0 {
			return nil
		}
		if _, err := w.dst.Write(buf[:produced]); err != nil {
			return err
		}
	}
}

// DecryptReader adapts a decrypting Session to io.Reader: ciphertext read
// from src comes out of Read as plaintext. Read returns io.EOF once the
// message's terminal frame has been consumed and delivered; a src that
// runs dry before then surfaces io.ErrUnexpectedEOF.
type DecryptReader struct {
	s     *Session
	src   io.Reader
	plain []byte
	inBuf []byte
}

// NewDecryptReader wraps s, which must already be initialized for decrypt,
// around src.
func NewDecryptReader(s *Session, src io.Reader) *DecryptReader {
	return &DecryptReader{s: s, src: src, inBuf: make([]byte, streamChunk)}
}

func (r *DecryptReader) Read(p []byte) (int, error) {
	for {
		if len(r.plain) > 0 {
			n := copy(p, r.plain)
			r.plain = r.plain[n:]
			return n, nil
		}
		if r.s.IsDone() {
			return 0, io.EOF
		}
		if err := r.s.Err(); err != nil {
			return 0, err
		}

		if err := r.fill(); err != nil {
			return 0, err
		}
	}
}

// fill reads one chunk of ciphertext from src, runs it through the
// session, and stashes whatever plaintext came out.
func (r *DecryptReader) fill() error {
	n, rerr := r.src.Read(r.inBuf)

	// A fixed-size output buffer is enough here: Process hands out whatever
	// it has ready in chunks of this size, so the frame length a hostile
	// header advertises never drives an allocation.
	in := r.inBuf[:n]
	for {
		out := make([]byte, streamChunk)
		_, produced, err := r.s.Process(out, in)
		if err != nil {
			return err
		}
		in = nil
		if produced == 0 {
			break
		}
		r.plain = append(r.plain, out[:produced]...)
	}

	if rerr != nil {
		if rerr == io.EOF {
			if r.s.IsDone() || len(r.plain) > 0 {
				return nil
			}
			return io.ErrUnexpectedEOF
		}
		return rerr
	}
	return nil
}
