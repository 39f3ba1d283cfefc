package session

import (
	"context"

	"github.com/pion/logging"

	"github.com/aws/aws-encryption-sdk-go/crypto"
	"github.com/aws/aws-encryption-sdk-go/errs"
	"github.com/aws/aws-encryption-sdk-go/frame"
	"github.com/aws/aws-encryption-sdk-go/header"
	"github.com/aws/aws-encryption-sdk-go/internal/secmem"
	"github.com/aws/aws-encryption-sdk-go/keyring"
	"github.com/aws/aws-encryption-sdk-go/suite"
)

// defaultHeaderEstimate is used for EstimateBuf's output_needed while a
// header is still being assembled and its final length is not yet known.
const defaultHeaderEstimate = 128

// Session drives one encrypt or decrypt operation through the message
// format's state machine. It is single-threaded and cooperative: every
// operation runs synchronously to completion before returning, and the
// caller achieves streaming by calling Process in a loop with whatever
// buffer sizes it chooses. A Session shares no mutable state with any
// other Session and holds no internal locks while the keyring runs, so
// independent sessions may run concurrently on independent goroutines, but
// a single Session must not be driven from more than one goroutine at once.
type Session struct {
	log logging.LeveledLogger

	kr   keyring.Keyring
	mode Mode
	state State

	errKind errs.Kind
	err     error

	suiteID suite.ID
	suite   suite.Suite

	frameSize        uint32 // 0 selects unframed mode
	frameSeqno       uint32 // next to emit/expect, starts at 1
	dataSoFar        uint64
	preciseSizeKnown bool
	preciseSize      uint64
	sizeBound        uint64
	sizeBoundSet     bool

	messageID  [crypto.MessageIDLen]byte
	encContext map[string][]byte

	dataKey    []byte
	contentKey []byte

	hdr     *header.Header
	authIV  []byte
	authTag []byte

	pendingIn  []byte
	pendingOut []byte

	// randomSource generates cryptographically strong bytes; overridable
	// so tests can fix message id and frame IVs to get deterministic
	// ciphertext, per the incremental-equivalence testable property.
	randomSource func([]byte) error
}

// New constructs a Session with no mode set; call InitEncrypt or
// InitDecrypt before the first Process call. loggerFactory may be nil, in
// which case the session logs nothing, matching the nil-safe logger
// convention used throughout this module's ambient stack.
func New(kr keyring.Keyring, loggerFactory logging.LoggerFactory) *Session {
	s := &Session{
		kr:           kr,
		state:        StateConfig,
		frameSeqno:   1,
		randomSource: crypto.Random,
	}
	if loggerFactory != nil {
		s.log = loggerFactory.NewLogger("esdk-session")
	}
	return s
}

// SetKeyring configures (or replaces) the keyring. Safe to call only while
// the session is in Config state.
func (s *Session) SetKeyring(kr keyring.Keyring) error {
	if s.state != StateConfig {
		return s.fail(errs.BadState, errs.New(errs.BadState, "SetKeyring called outside Config state (%s)", s.state))
	}
	s.kr = kr
	return nil
}

// SetEncryptionContext configures the encryption context bound to the
// message and to every encrypted data key. Safe to call only in Config.
func (s *Session) SetEncryptionContext(ctx map[string][]byte) error {
	if s.state != StateConfig {
		return s.fail(errs.BadState, errs.New(errs.BadState, "SetEncryptionContext called outside Config state (%s)", s.state))
	}
	s.encContext = ctx
	return nil
}

// SetRandomSource overrides the random byte generator used for the message
// id and frame IVs. Intended for tests that need deterministic ciphertext;
// production callers should leave this unset.
func (s *Session) SetRandomSource(fn func([]byte) error) {
	s.randomSource = fn
}

// SetFrameSize selects framed (n > 0, frames of exactly n plaintext bytes
// except possibly the final frame) or unframed (n == 0) mode. Only
// meaningful for an encrypting session configured before the first Process
// call; a decrypting session's frame size comes from the header.
func (s *Session) SetFrameSize(n uint32) error {
	if s.mode == ModeDecrypt {
		return s.fail(errs.BadState, errs.New(errs.BadState, "SetFrameSize is not valid for a decrypting session"))
	}
	if s.state != StateConfig && s.state != StateGenKey && s.state != StateWriteHeader {
		return s.fail(errs.BadState, errs.New(errs.BadState, "SetFrameSize called after body processing began (%s)", s.state))
	}
	s.frameSize = n
	return nil
}

// SetMessageSize fixes the exact total plaintext length. May be called at
// most once; calling it twice, after data_so_far has already exceeded n,
// or with n greater than any previously set bound, latches Error(BadState).
func (s *Session) SetMessageSize(n uint64) error {
	if s.preciseSizeKnown {
		return s.fail(errs.BadState, errs.New(errs.BadState, "message size already set"))
	}
	if s.dataSoFar > n {
		return s.fail(errs.BadState, errs.New(errs.BadState, "message size %d is less than bytes already processed (%d)", n, s.dataSoFar))
	}
	if s.sizeBoundSet && n > s.sizeBound {
		return s.fail(errs.BadState, errs.New(errs.BadState, "message size %d exceeds previously set bound %d", n, s.sizeBound))
	}
	s.preciseSize = n
	s.preciseSizeKnown = true
	return nil
}

// SetMessageBound may be called repeatedly; the effective bound is the
// minimum of every value passed. Exceeding it (directly, or via a later
// SetMessageSize) latches Error(BadState).
func (s *Session) SetMessageBound(n uint64) error {
	if !s.sizeBoundSet || n < s.sizeBound {
		s.sizeBound = n
		s.sizeBoundSet = true
	}
	if s.preciseSizeKnown && s.preciseSize > s.sizeBound {
		return s.fail(errs.BadState, errs.New(errs.BadState, "message size %d exceeds bound %d", s.preciseSize, s.sizeBound))
	}
	return nil
}

// InitEncrypt resets the session to Config for an encrypt operation under
// suiteID, preserving the configured keyring. Valid from any state,
// including Error (the error kind is cleared only by a fresh failure).
func (s *Session) InitEncrypt(suiteID suite.ID) error {
	sd, err := suite.Lookup(suiteID)
	if err != nil {
		return err
	}
	if s.kr == nil {
		return ErrNoKeyring
	}
	s.resetCommon()
	s.mode = ModeEncrypt
	s.suiteID = suiteID
	s.suite = sd
	return nil
}

// InitDecrypt resets the session to Config for a decrypt operation; the
// suite is determined later, from the header.
func (s *Session) InitDecrypt() error {
	if s.kr == nil {
		return ErrNoKeyring
	}
	s.resetCommon()
	s.mode = ModeDecrypt
	return nil
}

func (s *Session) resetCommon() {
	s.state = StateConfig
	s.err = nil
	s.frameSeqno = 1
	s.dataSoFar = 0
	s.preciseSizeKnown = false
	s.preciseSize = 0
	secmem.ZeroAll(s.dataKey, s.contentKey)
	s.dataKey = nil
	s.contentKey = nil
	s.hdr = nil
	s.authIV = nil
	s.authTag = nil
	s.pendingIn = nil
	s.pendingOut = nil
	s.sizeBound = 0
	s.sizeBoundSet = false
}

// Destroy zeroes key material and releases owned buffers. Safe only when
// no Process call is in flight.
func (s *Session) Destroy() {
	secmem.ZeroAll(s.dataKey, s.contentKey)
	secmem.Zero(s.pendingOut)
	s.dataKey = nil
	s.contentKey = nil
	s.pendingIn = nil
	s.pendingOut = nil
	s.hdr = nil
	s.state = StateDone
}

// Err returns the error that latched the session into Error, or nil.
func (s *Session) Err() error {
	return s.err
}

// ErrKind returns the kind of the error that latched the session into
// Error. ok is false if no error is currently latched. The stored kind
// itself survives InitEncrypt/InitDecrypt resets and is only overwritten
// by a fresh failure.
func (s *Session) ErrKind() (kind errs.Kind, ok bool) {
	return s.errKind, s.err != nil
}

// IsDone reports whether the session has finished the message and every
// produced byte has been handed to the caller.
func (s *Session) IsDone() bool {
	return s.state == StateDone && len(s.pendingOut) == 0
}

// MessageSizeKnown reports whether SetMessageSize has fixed the precise
// plaintext length for this message.
func (s *Session) MessageSizeKnown() bool {
	return s.preciseSizeKnown
}

// fail latches the session into Error state with kind and returns err
// (which is also stored for later retrieval via Err). Any bytes already
// staged for output are zeroed, matching the latching discipline: on error
// the output buffer contents never leak partial plaintext or ciphertext.
func (s *Session) fail(kind errs.Kind, err error) error {
	secmem.Zero(s.pendingOut)
	s.pendingOut = nil
	s.errKind = kind
	s.err = err
	s.state = StateError
	if s.log != nil {
		s.log.Warnf("session error (%s): %v", kind, err)
	}
	return err
}

// EstimateBuf reports (input_needed, output_needed) sufficient to
// guarantee forward progress from the current state, per the buffer
// estimate discipline: in ReadHeader, the bytes still needed to finish
// parsing the header; in EncryptBody/DecryptBody, one whole frame's worth;
// in terminal states, (1,1).
func (s *Session) EstimateBuf() (inputNeeded, outputNeeded int) {
	switch s.state {
	case StateDone:
		if len(s.pendingOut) > 0 {
			return 0, len(s.pendingOut)
		}
		return 1, 1
	case StateError:
		return 1, 1
	case StateConfig, StateGenKey, StateUnwrapKey, StateCheckTrailer:
		return 0, 0
	case StateWriteHeader:
		if len(s.pendingOut) > 0 {
			return 0, len(s.pendingOut)
		}
		return 0, defaultHeaderEstimate
	case StateEncryptBody:
		if s.frameSize == 0 {
			if s.preciseSizeKnown {
				need := int(s.preciseSize - s.dataSoFar)
				return need, need + s.suite.IVLen + s.suite.TagLen
			}
			return 1, 1
		}
		need := int(s.frameSize)
		return need, need + 4 + s.suite.IVLen + s.suite.TagLen
	case StateReadHeader:
		return len(s.pendingIn) + 1, 0
	case StateDecryptBody:
		if s.hdr.ContentType == header.ContentTypeUnframed {
			return s.suite.IVLen + 8, 0
		}
		need := int(s.hdr.FrameLength) + s.suite.IVLen + s.suite.TagLen + 4
		return need, int(s.hdr.FrameLength)
	default:
		return 1, 1
	}
}

// Process attempts to consume bytes from in, produce bytes into out, and
// advance state. It returns the number of bytes actually consumed from in
// and produced into out. On any internal failure the session latches
// Error and out is zeroed; the error is also returned here for Go-idiomatic
// handling, in addition to being retrievable later via Err.
func (s *Session) Process(out, in []byte) (consumed, produced int, err error) {
	switch s.state {
	case StateError:
		return 0, 0, s.err
	case StateDone:
		// The message is complete but earlier calls may not have offered
		// enough output space; keep draining, consuming nothing.
		produced = copy(out, s.pendingOut)
		s.pendingOut = s.pendingOut[produced:]
		return 0, produced, nil
	}

	if s.mode == ModeEncrypt {
		total := s.dataSoFar + uint64(len(s.pendingIn)) + uint64(len(in))
		if s.sizeBoundSet && total > s.sizeBound {
			secmem.Zero(out)
			return 0, 0, s.fail(errs.BadState, errs.New(errs.BadState, "plaintext exceeds message bound %d", s.sizeBound))
		}
		if s.preciseSizeKnown && total > s.preciseSize {
			secmem.Zero(out)
			return 0, 0, s.fail(errs.BadState, errs.New(errs.BadState, "plaintext exceeds declared message size %d", s.preciseSize))
		}
	}

	s.pendingIn = append(s.pendingIn, in...)
	consumed = len(in)

	s.advance()

	if s.err != nil {
		secmem.Zero(out)
		return consumed, 0, s.err
	}

	produced = copy(out, s.pendingOut)
	s.pendingOut = s.pendingOut[produced:]

	return consumed, produced, s.err
}

// advance runs as many state transitions as currently possible given
// s.pendingIn, stopping when no further progress can be made without more
// input, or the session reaches a terminal state.
func (s *Session) advance() {
	ctx := context.Background()
	for {
		switch s.state {
		case StateError, StateDone:
			return
		case StateConfig:
			switch s.mode {
			case ModeEncrypt:
				s.state = StateGenKey
			case ModeDecrypt:
				s.state = StateReadHeader
			default:
				return
			}
		case StateGenKey:
			if !s.stepGenKey(ctx) {
				return
			}
		case StateWriteHeader:
			if !s.stepWriteHeader() {
				return
			}
		case StateEncryptBody:
			if !s.stepEncryptBody() {
				return
			}
		case StateReadHeader:
			if !s.stepReadHeader() {
				return
			}
		case StateUnwrapKey:
			if !s.stepUnwrapKey(ctx) {
				return
			}
		case StateDecryptBody:
			if !s.stepDecryptBody() {
				return
			}
		case StateCheckTrailer:
			// Signature verification belongs here for a signing suite;
			// every suite this session accepts is SigNone (see
			// suite.Lookup), so there is nothing to verify yet.
			s.state = StateDone
		}
	}
}

func (s *Session) stepGenKey(ctx context.Context) bool {
	var mid [crypto.MessageIDLen]byte
	if err := s.randomSource(mid[:]); err != nil {
		s.fail(errs.CryptoUnknown, err)
		return false
	}
	s.messageID = mid

	dataKey, edks, err := s.generateDataKey(ctx)
	if err != nil {
		s.fail(kindOf(err), err)
		return false
	}
	s.dataKey = dataKey

	contentKey, err := crypto.DeriveContentKey(s.suite, dataKey, s.messageID)
	if err != nil {
		s.fail(errs.CryptoUnknown, err)
		return false
	}
	s.contentKey = contentKey

	contentType := header.ContentTypeFramed
	if s.frameSize == 0 {
		contentType = header.ContentTypeUnframed
	}
	s.hdr = &header.Header{
		SuiteID:           s.suiteID,
		MessageID:         s.messageID,
		EncryptionContext: s.encContext,
		EDKs:              edks,
		ContentType:       contentType,
		FrameLength:       s.frameSize,
	}

	s.state = StateWriteHeader
	return true
}

// multiGenerator is implemented by keyrings that wrap the data key more
// than once per message (one EDK per member), such as keyring.Multi.
type multiGenerator interface {
	GenerateAll(ctx context.Context, s suite.Suite, encContext map[string][]byte) ([]byte, []header.EDK, error)
}

func (s *Session) generateDataKey(ctx context.Context) ([]byte, []header.EDK, error) {
	if mk, ok := s.kr.(multiGenerator); ok {
		return mk.GenerateAll(ctx, s.suite, s.encContext)
	}
	dataKey, edk, err := s.kr.GenerateDataKey(ctx, s.suite, s.encContext)
	if err != nil {
		return nil, nil, err
	}
	return dataKey, []header.EDK{edk}, nil
}

func (s *Session) stepWriteHeader() bool {
	hb, err := header.Encode(s.hdr)
	if err != nil {
		s.fail(kindOf(err), err)
		return false
	}
	iv, tag, err := crypto.SealHeaderAuth(s.suite, s.contentKey, hb)
	if err != nil {
		s.fail(errs.CryptoUnknown, err)
		return false
	}
	s.pendingOut = append(s.pendingOut, hb...)
	s.pendingOut = append(s.pendingOut, iv...)
	s.pendingOut = append(s.pendingOut, tag...)

	s.state = StateEncryptBody
	return true
}

func (s *Session) stepEncryptBody() bool {
	if s.frameSize == 0 {
		return s.stepEncryptUnframed()
	}
	return s.stepEncryptFramed()
}

func (s *Session) stepEncryptUnframed() bool {
	if !s.preciseSizeKnown {
		return false
	}
	remaining := s.preciseSize - s.dataSoFar
	if uint64(len(s.pendingIn)) < remaining {
		return false
	}
	plaintext := s.pendingIn[:remaining]

	iv := make([]byte, s.suite.IVLen)
	if err := s.randomSource(iv); err != nil {
		s.fail(errs.CryptoUnknown, err)
		return false
	}
	sealed, err := crypto.SealFrame(s.suite, s.contentKey, s.messageID, s.frameSeqno, iv, plaintext, crypto.FrameSingle)
	if err != nil {
		s.fail(errs.CryptoUnknown, err)
		return false
	}
	ciphertext := sealed[:len(sealed)-s.suite.TagLen]
	tag := sealed[len(sealed)-s.suite.TagLen:]
	s.pendingOut = append(s.pendingOut, frame.EncodeUnframed(iv, ciphertext, tag)...)

	s.pendingIn = s.pendingIn[remaining:]
	s.dataSoFar += remaining
	s.state = StateCheckTrailer
	return true
}

func (s *Session) stepEncryptFramed() bool {
	avail := uint64(len(s.pendingIn))

	final := s.preciseSizeKnown && s.dataSoFar+avail == s.preciseSize && avail <= uint64(s.frameSize)
	if !final && avail < uint64(s.frameSize) {
		return false
	}

	n := uint64(s.frameSize)
	if final {
		n = avail
	}
	plaintext := s.pendingIn[:n]

	kind := crypto.FrameNonFinal
	if final {
		kind = crypto.FrameFinal
	}
	iv := make([]byte, s.suite.IVLen)
	if err := s.randomSource(iv); err != nil {
		s.fail(errs.CryptoUnknown, err)
		return false
	}
	sealed, err := crypto.SealFrame(s.suite, s.contentKey, s.messageID, s.frameSeqno, iv, plaintext, kind)
	if err != nil {
		s.fail(errs.CryptoUnknown, err)
		return false
	}
	ciphertext := sealed[:len(sealed)-s.suite.TagLen]
	tag := sealed[len(sealed)-s.suite.TagLen:]
	s.pendingOut = append(s.pendingOut, frame.EncodeFramed(s.frameSeqno, final, iv, ciphertext, tag)...)

	s.pendingIn = s.pendingIn[n:]
	s.dataSoFar += n
	s.frameSeqno++

	if final {
		s.state = StateCheckTrailer
	}
	return true
}

func (s *Session) stepReadHeader() bool {
	parsed, n, err := header.Parse(s.pendingIn)
	if err == header.ErrIncomplete {
		return false
	}
	if err != nil {
		s.fail(kindOf(err), err)
		return false
	}
	s.pendingIn = s.pendingIn[n:]
	s.hdr = parsed.Header
	s.suiteID = parsed.Header.SuiteID
	s.suite = parsed.Suite
	s.messageID = parsed.Header.MessageID
	s.frameSize = parsed.Header.FrameLength
	s.encContext = parsed.Header.EncryptionContext

	s.state = StateUnwrapKey
	s.authIV = parsed.AuthIV
	s.authTag = parsed.AuthTag
	return true
}

func (s *Session) stepUnwrapKey(ctx context.Context) bool {
	dataKey, err := s.kr.DecryptDataKey(ctx, s.suite, s.hdr.EncryptionContext, s.hdr.EDKs)
	if err != nil {
		s.fail(kindOf(err), err)
		return false
	}
	s.dataKey = dataKey

	contentKey, err := crypto.DeriveContentKey(s.suite, dataKey, s.messageID)
	if err != nil {
		s.fail(errs.CryptoUnknown, err)
		return false
	}
	s.contentKey = contentKey

	authBlob := append(append([]byte(nil), s.authIV...), s.authTag...)
	if err := crypto.VerifyHeaderAuth(s.suite, s.contentKey, s.hdr.Bytes, authBlob); err != nil {
		s.fail(errs.BadCiphertext, err)
		return false
	}

	s.state = StateDecryptBody
	return true
}

func (s *Session) stepDecryptBody() bool {
	if s.hdr.ContentType == header.ContentTypeUnframed {
		return s.stepDecryptUnframed()
	}
	return s.stepDecryptFramed()
}

func (s *Session) stepDecryptUnframed() bool {
	rec, n, err := frame.ParseUnframed(s.pendingIn, s.suite.IVLen, s.suite.TagLen)
	if err == frame.ErrIncomplete {
		return false
	}
	if err != nil {
		s.fail(errs.BadCiphertext, err)
		return false
	}

	plaintext, err := crypto.OpenFrame(s.suite, s.contentKey, s.messageID, s.frameSeqno, rec.IV, rec.Ciphertext, rec.Tag, crypto.FrameSingle)
	if err != nil {
		s.fail(errs.BadCiphertext, err)
		return false
	}

	s.pendingOut = append(s.pendingOut, plaintext...)
	s.pendingIn = s.pendingIn[n:]
	s.dataSoFar += uint64(len(plaintext))
	s.state = StateCheckTrailer
	return true
}

func (s *Session) stepDecryptFramed() bool {
	rec, n, err := frame.ParseFramed(s.pendingIn, s.suite.IVLen, s.suite.TagLen, s.frameSize)
	if err == frame.ErrIncomplete {
		return false
	}
	if err != nil {
		s.fail(errs.BadCiphertext, err)
		return false
	}
	if rec.Seqno != s.frameSeqno {
		s.fail(errs.BadCiphertext, errs.New(errs.BadCiphertext, "frame seqno %d, want %d", rec.Seqno, s.frameSeqno))
		return false
	}

	kind := crypto.FrameNonFinal
	if rec.Final {
		kind = crypto.FrameFinal
	}
	plaintext, err := crypto.OpenFrame(s.suite, s.contentKey, s.messageID, rec.Seqno, rec.IV, rec.Ciphertext, rec.Tag, kind)
	if err != nil {
		s.fail(errs.BadCiphertext, err)
		return false
	}

	s.pendingOut = append(s.pendingOut, plaintext...)
	s.pendingIn = s.pendingIn[n:]
	s.dataSoFar += uint64(len(plaintext))
	s.frameSeqno++

	if rec.Final {
		s.state = StateCheckTrailer
	}
	return true
}

func kindOf(err error) errs.Kind {
	if k, ok := errs.KindOf(err); ok {
		return k
	}
	return errs.CryptoUnknown
}
