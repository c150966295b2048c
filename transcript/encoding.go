package transcript

import (
	"errors"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Wire sizes of the canonical little-endian encodings.
const (
	ScalarBytes = fr.Bytes
	BaseBytes   = fp.Bytes
	PointBytes  = 2 * fp.Bytes
)

var (
	// ErrIdentityPoint is returned when the point at infinity is offered to
	// the transcript. The identity has no coordinate encoding and must never
	// be silently accepted.
	ErrIdentityPoint = errors.New("transcript: cannot absorb the point at infinity")

	// ErrInvalidEncoding is returned when proof bytes do not form a
	// canonical field element or a point on the curve.
	ErrInvalidEncoding = errors.New("transcript: invalid canonical encoding in proof")
)

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// encodeScalar returns the canonical little-endian encoding of s.
func encodeScalar(s *fr.Element) [ScalarBytes]byte {
	b := s.Bytes()
	reverseBytes(b[:])
	return b
}

// decodeScalar rejects non-canonical encodings (values >= r).
func decodeScalar(b []byte) (fr.Element, error) {
	var be [ScalarBytes]byte
	copy(be[:], b)
	reverseBytes(be[:])
	var s fr.Element
	if err := s.SetBytesCanonical(be[:]); err != nil {
		return fr.Element{}, ErrInvalidEncoding
	}
	return s, nil
}

// encodeBase returns the canonical little-endian encoding of e.
func encodeBase(e *fp.Element) [BaseBytes]byte {
	b := e.Bytes()
	reverseBytes(b[:])
	return b
}

// encodePoint encodes the affine coordinates x || y, each little-endian.
// The identity point has no valid encoding.
func encodePoint(p *bn254.G1Affine) ([PointBytes]byte, error) {
	var out [PointBytes]byte
	if p.IsInfinity() {
		return out, ErrIdentityPoint
	}
	x := encodeBase(&p.X)
	y := encodeBase(&p.Y)
	copy(out[:BaseBytes], x[:])
	copy(out[BaseBytes:], y[:])
	return out, nil
}

// decodePoint rejects non-canonical coordinates, points not on the curve and
// the all-zero encoding (which would decode to the identity).
func decodePoint(b []byte) (bn254.G1Affine, error) {
	var p bn254.G1Affine

	var be [BaseBytes]byte
	copy(be[:], b[:BaseBytes])
	reverseBytes(be[:])
	if err := p.X.SetBytesCanonical(be[:]); err != nil {
		return bn254.G1Affine{}, ErrInvalidEncoding
	}
	copy(be[:], b[BaseBytes:])
	reverseBytes(be[:])
	if err := p.Y.SetBytesCanonical(be[:]); err != nil {
		return bn254.G1Affine{}, ErrInvalidEncoding
	}

	if p.IsInfinity() || !p.IsOnCurve() {
		return bn254.G1Affine{}, ErrInvalidEncoding
	}
	return p, nil
}
