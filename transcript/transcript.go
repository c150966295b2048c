// Package transcript implements the Fiat-Shamir transcript binding all
// prover/verifier messages of the opening protocol.
//
// The transcript is a strict sequential state machine over a BLAKE2b-512
// state: every absorbed element updates the state before any challenge
// depending on it is squeezed, and the prover and verifier must replay
// absorbs in identical order or their challenge streams diverge silently.
package transcript

import (
	"bytes"
	"encoding"
	"fmt"
	"hash"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/blake2b"
)

// DefaultDomainSeparator personalizes the transcript hash. Provers and
// verifiers of the same protocol instance must agree on it.
const DefaultDomainSeparator = "Halo2-Transcript"

type config struct {
	domainSep string
	encoding  ChallengeEncoding
}

// Option configures a transcript at construction time.
type Option func(*config) error

// WithChallengeEncoding selects how squeezed digests are converted into
// scalar-field challenges. The default is Wide.
func WithChallengeEncoding(e ChallengeEncoding) Option {
	return func(c *config) error {
		if e != Wide && e != Endo {
			return fmt.Errorf("transcript: unknown challenge encoding %d", e)
		}
		c.encoding = e
		return nil
	}
}

// WithDomainSeparator overrides the personalization string bound into the
// hash state at initialization.
func WithDomainSeparator(ds string) Option {
	return func(c *config) error {
		if ds == "" {
			return fmt.Errorf("transcript: empty domain separator")
		}
		c.domainSep = ds
		return nil
	}
}

func newConfig(opts ...Option) (*config, error) {
	cfg := &config{
		domainSep: DefaultDomainSeparator,
		encoding:  Wide,
	}
	for _, o := range opts {
		if o != nil {
			if err := o(cfg); err != nil {
				return nil, err
			}
		}
	}
	return cfg, nil
}

// state is the part shared by the prover and verifier views.
type state struct {
	h   hash.Hash
	cfg *config
}

func newState(cfg *config) state {
	h, _ := blake2b.New512(nil)
	h.Write([]byte(cfg.domainSep))
	return state{h: h, cfg: cfg}
}

// cloneHash deep-copies a BLAKE2b state through its binary serialization.
func cloneHash(h hash.Hash) (hash.Hash, error) {
	m, ok := h.(encoding.BinaryMarshaler)
	if !ok {
		return nil, fmt.Errorf("transcript: hash state is not marshalable")
	}
	raw, err := m.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("transcript: marshal hash state: %w", err)
	}
	h2, _ := blake2b.New512(nil)
	u, ok := h2.(encoding.BinaryUnmarshaler)
	if !ok {
		return nil, fmt.Errorf("transcript: hash state is not unmarshalable")
	}
	if err := u.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("transcript: unmarshal hash state: %w", err)
	}
	return h2, nil
}

// CommonPoint absorbs a curve point as a common input, without writing it to
// the proof stream. The identity point is rejected.
func (s *state) CommonPoint(p *bn254.G1Affine) error {
	enc, err := encodePoint(p)
	if err != nil {
		return err
	}
	s.h.Write(enc[:])
	return nil
}

// CommonScalar absorbs a scalar-field element as a common input.
func (s *state) CommonScalar(v *fr.Element) error {
	enc := encodeScalar(v)
	s.h.Write(enc[:])
	return nil
}

// CommonBase absorbs a base-field element as a common input. It is used to
// bind the scalar-side transcript back into this one.
func (s *state) CommonBase(v *fp.Element) error {
	enc := encodeBase(v)
	s.h.Write(enc[:])
	return nil
}

// SqueezeChallenge finalizes the current digest and re-seeds the state with
// it, so that repeated squeezes without intervening absorbs still diverge
// while remaining deterministic.
func (s *state) SqueezeChallenge() [64]byte {
	var digest [64]byte
	copy(digest[:], s.h.Sum(nil))
	s.h.Write(digest[:])
	return digest
}

// SqueezeChallengeScalar folds the purpose discriminant into the hash input
// and squeezes a scalar-field challenge tagged with that purpose. The
// discriminant prevents a challenge minted for one role from being reusable
// as another.
func (s *state) SqueezeChallengeScalar(purpose Purpose) Challenge {
	s.h.Write([]byte{byte(purpose)})
	digest := s.SqueezeChallenge()
	return Challenge{
		purpose: purpose,
		scalar:  s.cfg.encoding.scalarFromDigest(&digest),
	}
}

// Writer is the prover's view of the transcript: absorbed prover messages
// are also appended, in their literal encoding, to the output proof stream.
type Writer struct {
	state
	buf bytes.Buffer
}

// NewWriter initializes a prover transcript.
func NewWriter(opts ...Option) (*Writer, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &Writer{state: newState(cfg)}, nil
}

// WritePoint absorbs the point and appends its encoding to the proof stream.
func (w *Writer) WritePoint(p *bn254.G1Affine) error {
	enc, err := encodePoint(p)
	if err != nil {
		return err
	}
	w.h.Write(enc[:])
	w.buf.Write(enc[:])
	return nil
}

// WriteScalar absorbs the scalar and appends its encoding to the proof stream.
func (w *Writer) WriteScalar(v *fr.Element) error {
	enc := encodeScalar(v)
	w.h.Write(enc[:])
	w.buf.Write(enc[:])
	return nil
}

// AppendScalar appends the scalar's encoding to the proof stream without
// touching the base-field hash state. It is reserved for values that are
// bound through the scalar-side transcript instead (see ScalarSink).
func (w *Writer) AppendScalar(v *fr.Element) error {
	enc := encodeScalar(v)
	w.buf.Write(enc[:])
	return nil
}

// Clone returns an independent deep copy of the transcript, sharing no
// mutable state with the original. The speculative finalization loop of the
// multi-open prover relies on this to roll back failed attempts.
func (w *Writer) Clone() (*Writer, error) {
	h2, err := cloneHash(w.h)
	if err != nil {
		return nil, err
	}
	c := &Writer{state: state{h: h2, cfg: w.cfg}}
	c.buf.Write(w.buf.Bytes())
	return c, nil
}

// Finalize concludes the interaction and returns the accumulated proof bytes.
func (w *Writer) Finalize() []byte {
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	return out
}

// Reader is the verifier's view of the transcript: prover messages are
// decoded from the proof stream and absorbed exactly as the writer absorbed
// them.
type Reader struct {
	state
	proof []byte
	off   int
}

// NewReader initializes a verifier transcript over the proof bytes.
func NewReader(proof []byte, opts ...Option) (*Reader, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &Reader{state: newState(cfg), proof: proof}, nil
}

func (r *Reader) next(n int) ([]byte, error) {
	if r.off+n > len(r.proof) {
		return nil, fmt.Errorf("transcript: %w", io.ErrUnexpectedEOF)
	}
	b := r.proof[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadPoint decodes a point from the proof stream and absorbs it.
func (r *Reader) ReadPoint() (bn254.G1Affine, error) {
	b, err := r.next(PointBytes)
	if err != nil {
		return bn254.G1Affine{}, err
	}
	p, err := decodePoint(b)
	if err != nil {
		return bn254.G1Affine{}, err
	}
	r.h.Write(b)
	return p, nil
}

// ReadScalar decodes a scalar from the proof stream and absorbs it.
func (r *Reader) ReadScalar() (fr.Element, error) {
	b, err := r.next(ScalarBytes)
	if err != nil {
		return fr.Element{}, err
	}
	s, err := decodeScalar(b)
	if err != nil {
		return fr.Element{}, err
	}
	r.h.Write(b)
	return s, nil
}

// TakeScalar decodes a scalar from the proof stream without absorbing it
// into the base-field hash state, mirroring Writer.AppendScalar.
func (r *Reader) TakeScalar() (fr.Element, error) {
	b, err := r.next(ScalarBytes)
	if err != nil {
		return fr.Element{}, err
	}
	return decodeScalar(b)
}

// ReadNPoints reads n points from the proof stream.
func ReadNPoints(r *Reader, n int) ([]bn254.G1Affine, error) {
	out := make([]bn254.G1Affine, n)
	for i := range out {
		p, err := r.ReadPoint()
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// ReadNScalars reads n scalars from the proof stream.
func ReadNScalars(r *Reader, n int) ([]fr.Element, error) {
	out := make([]fr.Element, n)
	for i := range out {
		s, err := r.ReadScalar()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
