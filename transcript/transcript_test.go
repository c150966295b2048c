package transcript

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func randomPoint(t *testing.T) bn254.G1Affine {
	t.Helper()
	var s fr.Element
	_, err := s.SetRandom()
	require.NoError(t, err)
	_, _, g, _ := bn254.Generators()
	var p bn254.G1Affine
	p.ScalarMultiplication(&g, s.BigInt(new(big.Int)))
	return p
}

func randomScalar(t *testing.T) fr.Element {
	t.Helper()
	var s fr.Element
	_, err := s.SetRandom()
	require.NoError(t, err)
	return s
}

func TestDeterminism(t *testing.T) {
	p := randomPoint(t)
	s := randomScalar(t)

	w1, err := NewWriter()
	require.NoError(t, err)
	w2, err := NewWriter()
	require.NoError(t, err)

	for _, w := range []*Writer{w1, w2} {
		require.NoError(t, w.CommonPoint(&p))
		require.NoError(t, w.CommonScalar(&s))
	}

	c1 := w1.SqueezeChallengeScalar(Purpose(1)).Scalar()
	c2 := w2.SqueezeChallengeScalar(Purpose(1)).Scalar()
	require.True(t, c1.Equal(&c2), "identical transcripts must yield identical challenges")
}

func TestReorderDiverges(t *testing.T) {
	s1 := randomScalar(t)
	s2 := randomScalar(t)

	w1, err := NewWriter()
	require.NoError(t, err)
	w2, err := NewWriter()
	require.NoError(t, err)

	require.NoError(t, w1.CommonScalar(&s1))
	require.NoError(t, w1.CommonScalar(&s2))
	require.NoError(t, w2.CommonScalar(&s2))
	require.NoError(t, w2.CommonScalar(&s1))

	c1 := w1.SqueezeChallengeScalar(Purpose(1)).Scalar()
	c2 := w2.SqueezeChallengeScalar(Purpose(1)).Scalar()
	require.False(t, c1.Equal(&c2), "reordered absorbs must change the challenge")
}

func TestIdentityPointRejected(t *testing.T) {
	var inf bn254.G1Affine // zero value is the point at infinity

	w, err := NewWriter()
	require.NoError(t, err)
	require.ErrorIs(t, w.CommonPoint(&inf), ErrIdentityPoint)
	require.ErrorIs(t, w.WritePoint(&inf), ErrIdentityPoint)
	require.Zero(t, len(w.Finalize()), "a rejected point must not reach the proof stream")
}

func TestSqueezeRatchet(t *testing.T) {
	w, err := NewWriter()
	require.NoError(t, err)
	c1 := w.SqueezeChallenge()
	c2 := w.SqueezeChallenge()
	require.NotEqual(t, c1, c2, "repeated squeezes without absorbs must diverge")
}

func TestPurposeSeparation(t *testing.T) {
	w, err := NewWriter()
	require.NoError(t, err)
	w1, err := w.Clone()
	require.NoError(t, err)
	w2, err := w.Clone()
	require.NoError(t, err)

	a := w1.SqueezeChallengeScalar(Purpose(1))
	b := w2.SqueezeChallengeScalar(Purpose(2))
	sa, sb := a.Scalar(), b.Scalar()
	require.False(t, sa.Equal(&sb), "purpose discriminants must separate challenges")
	require.NotEqual(t, a.Purpose(), b.Purpose())
}

func TestWriterReaderLockstep(t *testing.T) {
	p := randomPoint(t)
	s := randomScalar(t)

	w, err := NewWriter()
	require.NoError(t, err)
	require.NoError(t, w.WritePoint(&p))
	require.NoError(t, w.WriteScalar(&s))
	cw := w.SqueezeChallengeScalar(Purpose(3)).Scalar()

	r, err := NewReader(w.Finalize())
	require.NoError(t, err)
	rp, err := r.ReadPoint()
	require.NoError(t, err)
	require.True(t, rp.Equal(&p))
	rs, err := r.ReadScalar()
	require.NoError(t, err)
	require.True(t, rs.Equal(&s))
	cr := r.SqueezeChallengeScalar(Purpose(3)).Scalar()

	require.True(t, cw.Equal(&cr), "reader must replay the writer's challenge stream")
}

func TestNonCanonicalScalarRejected(t *testing.T) {
	// The little-endian encoding of the modulus itself is the smallest
	// non-canonical value.
	mod := fr.Modulus().Bytes() // big-endian
	reverseBytes(mod)
	r, err := NewReader(mod)
	require.NoError(t, err)
	_, err = r.ReadScalar()
	require.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestOffCurvePointRejected(t *testing.T) {
	buf := make([]byte, PointBytes)
	buf[0] = 5 // x=5, y=0 does not satisfy the curve equation
	r, err := NewReader(buf)
	require.NoError(t, err)
	_, err = r.ReadPoint()
	require.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestTruncatedProof(t *testing.T) {
	r, err := NewReader(make([]byte, ScalarBytes-1))
	require.NoError(t, err)
	_, err = r.ReadScalar()
	require.Error(t, err)
}

func TestCloneIndependence(t *testing.T) {
	s := randomScalar(t)

	w, err := NewWriter()
	require.NoError(t, err)
	require.NoError(t, w.CommonScalar(&s))

	snapshot, err := w.Clone()
	require.NoError(t, err)

	// Mutating the clone must not leak into the original.
	other := randomScalar(t)
	require.NoError(t, snapshot.WriteScalar(&other))

	w2, err := NewWriter()
	require.NoError(t, err)
	require.NoError(t, w2.CommonScalar(&s))

	c1 := w.SqueezeChallengeScalar(Purpose(1)).Scalar()
	c2 := w2.SqueezeChallengeScalar(Purpose(1)).Scalar()
	require.True(t, c1.Equal(&c2))
	require.Zero(t, len(w.Finalize()))
}

func TestDomainSeparation(t *testing.T) {
	w1, err := NewWriter()
	require.NoError(t, err)
	w2, err := NewWriter(WithDomainSeparator("halo2:test:other"))
	require.NoError(t, err)

	c1 := w1.SqueezeChallenge()
	c2 := w2.SqueezeChallenge()
	require.NotEqual(t, c1, c2)
}

func TestZeta(t *testing.T) {
	z := Zeta()
	var one fr.Element
	one.SetOne()
	require.False(t, z.Equal(&one))

	var cube fr.Element
	cube.Mul(&z, &z).Mul(&cube, &z)
	require.True(t, cube.Equal(&one), "zeta must have multiplicative order 3")

	// zeta² + zeta + 1 = 0
	var sum fr.Element
	sum.Mul(&z, &z).Add(&sum, &z).Add(&sum, &one)
	require.True(t, sum.IsZero())
}

// TestEndoscaleExactness recomputes the doubling/sign/endomorphism
// recurrence over big.Int and checks bit-exact agreement.
func TestEndoscaleExactness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	mod := fr.Modulus()
	zeta := Zeta()
	zetaBig := zeta.BigInt(new(big.Int))

	properties.Property("endoscale matches direct recurrence", prop.ForAll(
		func(hi, lo uint64) bool {
			got := endoscale(hi, lo)

			acc := new(big.Int).Add(zetaBig, big.NewInt(1))
			acc.Lsh(acc, 1)
			acc.Mod(acc, mod)

			bit := func(i uint) uint64 {
				if i >= 64 {
					return (hi >> (i - 64)) & 1
				}
				return (lo >> i) & 1
			}

			q := new(big.Int)
			for i := 63; i >= 0; i-- {
				q.SetInt64(1)
				if bit(uint(i)<<1+1) == 1 {
					q.Neg(q)
				}
				if bit(uint(i)<<1) == 1 {
					q.Mul(q, zetaBig)
				}
				acc.Lsh(acc, 1).Add(acc, q)
				acc.Mod(acc, mod)
			}

			var expect fr.Element
			expect.SetBigInt(acc)
			return expect.Equal(&got)
		},
		gen.UInt64(),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

func TestChallengeEncodingsDiffer(t *testing.T) {
	w1, err := NewWriter()
	require.NoError(t, err)
	w2, err := NewWriter(WithChallengeEncoding(Endo))
	require.NoError(t, err)

	c1 := w1.SqueezeChallengeScalar(Purpose(1)).Scalar()
	c2 := w2.SqueezeChallengeScalar(Purpose(1)).Scalar()
	require.False(t, c1.Equal(&c2))
}

func TestScalarSinkBinding(t *testing.T) {
	s := randomScalar(t)

	sink1 := NewScalarSink()
	sink2 := NewScalarSink()
	sink1.Absorb(&s)
	sink2.Absorb(&s)

	b1 := sink1.SqueezeBase()
	b2 := sink2.SqueezeBase()
	require.True(t, b1.Equal(&b2))

	// The sink ratchets like the main transcript.
	b3 := sink1.SqueezeBase()
	require.False(t, b1.Equal(&b3))
}
