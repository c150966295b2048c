package transcript

import (
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/blake2b"
)

// scalarDomainSeparator personalizes the scalar-side transcript. Keeping it
// distinct from the main separator gives domain separation between
// base-field and scalar-field hashing.
const scalarDomainSeparator = "Halo2-Transcript-S"

// ScalarSink is the scalar-field side transcript. Challenges live in the
// scalar field while the main transcript hashes base-field encodings, so
// scalar evaluations are absorbed here and the squeezed digest is bound back
// into the main transcript as a base-field element.
type ScalarSink struct {
	h hash.Hash
}

// NewScalarSink initializes an empty scalar-side transcript.
func NewScalarSink() *ScalarSink {
	h, _ := blake2b.New512(nil)
	h.Write([]byte(scalarDomainSeparator))
	return &ScalarSink{h: h}
}

// Absorb updates the state with the canonical encoding of v.
func (s *ScalarSink) Absorb(v *fr.Element) {
	enc := encodeScalar(v)
	s.h.Write(enc[:])
}

// SqueezeBase finalizes the current digest, re-seeds the state with it, and
// reduces it into the base field for re-binding into the main transcript.
func (s *ScalarSink) SqueezeBase() fp.Element {
	var digest [64]byte
	copy(digest[:], s.h.Sum(nil))
	s.h.Write(digest[:])

	var be [64]byte
	for i := range be {
		be[i] = digest[63-i]
	}
	var out fp.Element
	out.SetBytes(be[:])
	return out
}

// Clone returns an independent deep copy of the sink.
func (s *ScalarSink) Clone() (*ScalarSink, error) {
	h2, err := cloneHash(s.h)
	if err != nil {
		return nil, err
	}
	return &ScalarSink{h: h2}, nil
}
