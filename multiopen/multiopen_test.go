package multiopen

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/emirsoyturk/halo2/commitment"
	"github.com/emirsoyturk/halo2/polynomial"
	"github.com/emirsoyturk/halo2/transcript"
)

const testK = 4

func testParams(t *testing.T) *commitment.Params {
	t.Helper()
	pp, err := commitment.NewParams(testK)
	require.NoError(t, err)
	return pp
}

func randomScalar(t *testing.T) fr.Element {
	t.Helper()
	var s fr.Element
	_, err := s.SetRandom()
	require.NoError(t, err)
	return s
}

// committedPoly is one polynomial with everything both sides need to query it.
type committedPoly struct {
	handle int
	poly   polynomial.Polynomial
	blind  fr.Element
	comm   bn254.G1Affine
}

func commitPolys(t *testing.T, pp *commitment.Params, count int) []committedPoly {
	t.Helper()
	polys := make([]polynomial.Polynomial, count)
	blinds := make([]fr.Element, count)
	var err error
	for i := range polys {
		polys[i], err = polynomial.Random(pp.N)
		require.NoError(t, err)
		blinds[i] = randomScalar(t)
	}
	comms, err := pp.BatchCommit(polys, blinds)
	require.NoError(t, err)

	out := make([]committedPoly, count)
	for i := range out {
		out[i] = committedPoly{handle: i, poly: polys[i], blind: blinds[i], comm: comms[i]}
	}
	return out
}

func (c *committedPoly) queryAt(point fr.Element) (ProverQuery, VerifierQuery) {
	eval := c.poly.Eval(&point)
	pq := ProverQuery{Handle: c.handle, Poly: c.poly, Blind: c.blind, Point: point, Eval: eval}
	vq := VerifierQuery{Handle: c.handle, Commitment: c.comm, Point: point, Eval: eval}
	return pq, vq
}

func prove(t *testing.T, pp *commitment.Params, queries []ProverQuery, opts ...transcript.Option) []byte {
	t.Helper()
	w, err := transcript.NewWriter(opts...)
	require.NoError(t, err)
	proof, err := Create(pp, w, queries)
	require.NoError(t, err)
	require.NotNil(t, proof)
	return w.Finalize()
}

func verify(pp *commitment.Params, proof []byte, queries []VerifierQuery, opts ...transcript.Option) error {
	r, err := transcript.NewReader(proof, opts...)
	if err != nil {
		return err
	}
	return Verify(pp, r, queries)
}

func TestRoundTrip(t *testing.T) {
	pp := testParams(t)
	cs := commitPolys(t, pp, 3)
	z1, z2 := randomScalar(t), randomScalar(t)

	var pqs []ProverQuery
	var vqs []VerifierQuery
	for _, at := range []struct {
		c     *committedPoly
		point fr.Element
	}{
		{&cs[0], z1}, {&cs[0], z2}, {&cs[1], z1}, {&cs[2], z2},
	} {
		pq, vq := at.c.queryAt(at.point)
		pqs = append(pqs, pq)
		vqs = append(vqs, vq)
	}

	proof := prove(t, pp, pqs)
	require.NoError(t, verify(pp, proof, vqs))
}

func TestRoundTripSingleQuery(t *testing.T) {
	pp := testParams(t)
	cs := commitPolys(t, pp, 1)
	pq, vq := cs[0].queryAt(randomScalar(t))

	proof := prove(t, pp, []ProverQuery{pq})
	require.NoError(t, verify(pp, proof, []VerifierQuery{vq}))
}

func TestRoundTripEndoEncoding(t *testing.T) {
	pp := testParams(t)
	cs := commitPolys(t, pp, 2)
	z := randomScalar(t)

	pq1, vq1 := cs[0].queryAt(z)
	pq2, vq2 := cs[1].queryAt(z)

	endo := transcript.WithChallengeEncoding(transcript.Endo)
	proof := prove(t, pp, []ProverQuery{pq1, pq2}, endo)
	require.NoError(t, verify(pp, proof, []VerifierQuery{vq1, vq2}, endo))

	// The proof is bound to the challenge encoding.
	require.Error(t, verify(pp, proof, []VerifierQuery{vq1, vq2}))
}

// TestTwoPolynomialScenario exercises the canonical shape: P queried at z1
// and z2, Q queried at z1 only. The two handles land in distinct point-sets
// and a false claim on either polynomial must be rejected.
func TestTwoPolynomialScenario(t *testing.T) {
	pp := testParams(t)
	cs := commitPolys(t, pp, 2)
	p, q := &cs[0], &cs[1]
	z1, z2 := randomScalar(t), randomScalar(t)

	pz1, vpz1 := p.queryAt(z1)
	pz2, vpz2 := p.queryAt(z2)
	qz1, vqz1 := q.queryAt(z1)

	proof := prove(t, pp, []ProverQuery{pz1, pz2, qz1})
	require.NoError(t, verify(pp, proof, []VerifierQuery{vpz1, vpz2, vqz1}))

	// A wrong claimed evaluation for Q at z1 must fail even though P's
	// claims are genuine.
	var one fr.Element
	one.SetOne()
	wrong := vqz1
	wrong.Eval.Add(&wrong.Eval, &one)
	err := verify(pp, proof, []VerifierQuery{vpz1, vpz2, wrong})
	require.ErrorIs(t, err, commitment.ErrVerifyFailed)
}

func TestFalseClaimRejectedByProverProof(t *testing.T) {
	// The prover can produce a proof for a false claim; it must not verify.
	pp := testParams(t)
	cs := commitPolys(t, pp, 1)
	z := randomScalar(t)

	pq, vq := cs[0].queryAt(z)
	var one fr.Element
	one.SetOne()
	pq.Eval.Add(&pq.Eval, &one)
	vq.Eval.Add(&vq.Eval, &one)

	proof := prove(t, pp, []ProverQuery{pq})
	err := verify(pp, proof, []VerifierQuery{vq})
	require.ErrorIs(t, err, commitment.ErrVerifyFailed)
}

func TestTamperedProof(t *testing.T) {
	pp := testParams(t)
	cs := commitPolys(t, pp, 2)
	z1, z2 := randomScalar(t), randomScalar(t)

	pq1, vq1 := cs[0].queryAt(z1)
	pq2, vq2 := cs[1].queryAt(z2)
	pqs := []ProverQuery{pq1, pq2}
	vqs := []VerifierQuery{vq1, vq2}

	proof := prove(t, pp, pqs)
	require.NoError(t, verify(pp, proof, vqs))

	for i := 0; i < len(proof); i += 11 {
		tampered := make([]byte, len(proof))
		copy(tampered, proof)
		tampered[i] ^= 0x01
		require.Error(t, verify(pp, tampered, vqs), "flipped byte %d", i)
	}

	// Truncation is a structural failure, not an algebraic one.
	err := verify(pp, proof[:len(proof)-1], vqs)
	require.Error(t, err)
	require.NotErrorIs(t, err, commitment.ErrVerifyFailed)
}

func TestEmptyQueries(t *testing.T) {
	pp := testParams(t)
	w, err := transcript.NewWriter()
	require.NoError(t, err)
	_, err = Create(pp, w, nil)
	require.ErrorIs(t, err, ErrNoQueries)

	r, err := transcript.NewReader(nil)
	require.NoError(t, err)
	require.ErrorIs(t, Verify(pp, r, nil), ErrNoQueries)
}

func TestDuplicateQueryRejected(t *testing.T) {
	pp := testParams(t)
	cs := commitPolys(t, pp, 1)
	z := randomScalar(t)
	pq, _ := cs[0].queryAt(z)

	w, err := transcript.NewWriter()
	require.NoError(t, err)
	_, err = Create(pp, w, []ProverQuery{pq, pq})
	require.ErrorIs(t, err, ErrDuplicateQuery)
}

func TestInconsistentBlindRejected(t *testing.T) {
	pp := testParams(t)
	cs := commitPolys(t, pp, 1)
	pq1, _ := cs[0].queryAt(randomScalar(t))
	pq2, _ := cs[0].queryAt(randomScalar(t))
	pq2.Blind = randomScalar(t)

	w, err := transcript.NewWriter()
	require.NoError(t, err)
	_, err = Create(pp, w, []ProverQuery{pq1, pq2})
	require.ErrorIs(t, err, ErrInconsistentQuery)
}

func TestInconsistentCommitmentRejected(t *testing.T) {
	pp := testParams(t)
	cs := commitPolys(t, pp, 2)
	_, vq1 := cs[0].queryAt(randomScalar(t))
	_, vq2 := cs[0].queryAt(randomScalar(t))
	vq2.Commitment = cs[1].comm

	r, err := transcript.NewReader(nil)
	require.NoError(t, err)
	require.ErrorIs(t, Verify(pp, r, []VerifierQuery{vq1, vq2}), ErrInconsistentQuery)
}

func TestDomainSeparatorMismatch(t *testing.T) {
	pp := testParams(t)
	cs := commitPolys(t, pp, 1)
	pq, vq := cs[0].queryAt(randomScalar(t))

	proof := prove(t, pp, []ProverQuery{pq})
	err := verify(pp, proof, []VerifierQuery{vq}, transcript.WithDomainSeparator("halo2:other"))
	require.Error(t, err)
}

func TestIntermediateSetsGrouping(t *testing.T) {
	var z1, z2, z3 fr.Element
	z1.SetUint64(101)
	z2.SetUint64(202)
	z3.SetUint64(303)

	// Handles 0 and 1 are queried at {z1,z2} in opposite orders; handle 2
	// only at z1; handle 3 at {z1,z3}.
	sets, err := constructIntermediateSets([]queryRef{
		{handle: 0, point: z1},
		{handle: 0, point: z2},
		{handle: 1, point: z2},
		{handle: 1, point: z1},
		{handle: 2, point: z1},
		{handle: 3, point: z3},
		{handle: 3, point: z1},
	})
	require.NoError(t, err)

	// Point indices follow first-seen order.
	require.Equal(t, []fr.Element{z1, z2, z3}, sets.Points)

	require.Len(t, sets.Commitments, 4)
	require.Len(t, sets.PointSets, 3)

	// Insertion order within a set must not matter.
	require.Equal(t, sets.Commitments[0].SetIndex, sets.Commitments[1].SetIndex)
	require.NotEqual(t, sets.Commitments[0].SetIndex, sets.Commitments[2].SetIndex)
	require.NotEqual(t, sets.Commitments[0].SetIndex, sets.Commitments[3].SetIndex)
	require.NotEqual(t, sets.Commitments[2].SetIndex, sets.Commitments[3].SetIndex)
}

func TestIntermediateSetsEvalAlignment(t *testing.T) {
	var z1, z2 fr.Element
	z1.SetUint64(7)
	z2.SetUint64(9)
	var e1, e2 fr.Element
	e1.SetUint64(70)
	e2.SetUint64(90)

	// Evaluations are re-aligned to the canonical order of the point-index
	// set, whatever the query order was.
	sets, err := constructIntermediateSets([]queryRef{
		{handle: 0, point: z2, eval: e2},
		{handle: 0, point: z1, eval: e1},
	})
	require.NoError(t, err)

	// z2 was seen first, so its point index is 0: canonical order is
	// (e2, e1).
	require.Len(t, sets.Commitments, 1)
	require.Equal(t, []fr.Element{e2, e1}, sets.Commitments[0].Evals)
}

func TestQueryOrderIsBinding(t *testing.T) {
	// The folding schedule depends on first-seen query order: prover and
	// verifier must present queries identically ordered.
	pp := testParams(t)
	cs := commitPolys(t, pp, 2)
	z1, z2 := randomScalar(t), randomScalar(t)

	pq1, vq1 := cs[0].queryAt(z1)
	pq2, vq2 := cs[1].queryAt(z2)

	proof := prove(t, pp, []ProverQuery{pq1, pq2})
	require.NoError(t, verify(pp, proof, []VerifierQuery{vq1, vq2}))
	require.Error(t, verify(pp, proof, []VerifierQuery{vq2, vq1}))
}
