package transcript

import (
	"encoding/binary"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Purpose identifies the role a challenge was squeezed for. The discriminant
// byte is folded into the hash input, so challenges for distinct purposes are
// never interchangeable.
type Purpose byte

// Challenge is a scalar-field verifier challenge tagged with the purpose it
// was squeezed for.
type Challenge struct {
	purpose Purpose
	scalar  fr.Element
}

// Scalar returns the challenge value.
func (c Challenge) Scalar() fr.Element { return c.scalar }

// Purpose returns the role the challenge was squeezed for.
func (c Challenge) Purpose() Purpose { return c.purpose }

// ChallengeEncoding selects how a squeezed digest becomes a scalar.
type ChallengeEncoding uint8

const (
	// Wide reduces the full 512-bit digest, interpreted as a little-endian
	// integer, modulo the scalar field order.
	Wide ChallengeEncoding = iota

	// Endo derives a 128-bit integer from the digest and recombines it into
	// a scalar through the endomorphism recurrence (Algorithm 1 of the Halo
	// paper). The resulting challenges are algebraically compatible with an
	// endomorphism-accelerated scalar multiplication.
	Endo
)

func (e ChallengeEncoding) scalarFromDigest(digest *[64]byte) fr.Element {
	wide := reduceWide(digest)
	if e == Endo {
		hi, lo := lower128(&wide)
		return endoscale(hi, lo)
	}
	return wide
}

// reduceWide interprets the digest as a little-endian integer and reduces it
// modulo the scalar field order.
func reduceWide(digest *[64]byte) fr.Element {
	var be [64]byte
	for i := range be {
		be[i] = digest[63-i]
	}
	var s fr.Element
	s.SetBytes(be[:])
	return s
}

// lower128 returns the low 128 bits of the canonical representation of s.
func lower128(s *fr.Element) (hi, lo uint64) {
	b := s.Bytes() // big-endian
	hi = binary.BigEndian.Uint64(b[16:24])
	lo = binary.BigEndian.Uint64(b[24:32])
	return hi, lo
}

var (
	zetaOnce sync.Once
	zeta     fr.Element
)

// Zeta returns the fixed element of multiplicative order 3 in the scalar
// field, the eigenvalue of the curve endomorphism used by endoscaling. It is
// computed once as (sqrt(-3) - 1) / 2.
func Zeta() fr.Element {
	zetaOnce.Do(func() {
		var negThree, s, one, twoInv fr.Element
		negThree.SetUint64(3)
		negThree.Neg(&negThree)
		if s.Sqrt(&negThree) == nil {
			// -3 is a quadratic residue whenever the field has elements of
			// order 3, which bn254's scalar field does.
			panic("transcript: -3 is not a square in fr")
		}
		one.SetOne()
		twoInv.SetUint64(2)
		twoInv.Inverse(&twoInv)
		zeta.Sub(&s, &one).Mul(&zeta, &twoInv)
	})
	return zeta
}

// endoscale maps a 128-bit integer to a scalar, processing bit-pairs from
// most to least significant: the odd bit selects a sign flip, the even bit
// selects multiplication by zeta, and each step computes acc = acc + q + acc.
func endoscale(hi, lo uint64) fr.Element {
	z := Zeta()

	var one, acc, q fr.Element
	one.SetOne()
	acc.Add(&z, &one)
	acc.Double(&acc)

	bit := func(i uint) uint64 {
		if i >= 64 {
			return (hi >> (i - 64)) & 1
		}
		return (lo >> i) & 1
	}

	for i := 63; i >= 0; i-- {
		shouldNegate := bit(uint(i)<<1+1) == 1
		shouldEndo := bit(uint(i)<<1) == 1

		q = one
		if shouldNegate {
			q.Neg(&q)
		}
		if shouldEndo {
			q.Mul(&q, &z)
		}

		// acc <- acc + q + acc
		acc.Double(&acc).Add(&acc, &q)
	}

	return acc
}
