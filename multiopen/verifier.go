package multiopen

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/emirsoyturk/halo2/commitment"
	"github.com/emirsoyturk/halo2/transcript"
)

// Verify checks a batched multi-point opening proof against the claimed
// queries. It replays the prover's absorb/squeeze schedule in lockstep; any
// divergence in ordering or claims surfaces only as a failed final algebraic
// check. Structural errors in the proof bytes are reported distinctly from
// cryptographic invalidity.
func Verify(pp *commitment.Params, t *transcript.Reader, queries []VerifierQuery) error {
	sets, err := constructIntermediateSets(verifierRefs(queries))
	if err != nil {
		return err
	}
	if err := checkVerifierConsistency(queries); err != nil {
		return err
	}
	numPoints := len(sets.Points)

	// Collapse the claimed openings at each point, mirroring the prover:
	// commitments fold in the group, evaluations fold in the scalar field.
	x4 := t.SqueezeChallengeScalar(purposePolyBatch).Scalar()

	var x4bi big.Int
	x4.BigInt(&x4bi)
	qComms := make([]bn254.G1Jac, numPoints)
	qCommSet := make([]bool, numPoints)
	qClaims := make([]fr.Element, numPoints)
	for _, q := range queries {
		pi := sets.pointIndexOf[q.Point]
		if !qCommSet[pi] {
			qComms[pi].FromAffine(&q.Commitment)
			qCommSet[pi] = true
		} else {
			qComms[pi].ScalarMultiplication(&qComms[pi], &x4bi)
			qComms[pi].AddMixed(&q.Commitment)
		}
		qClaims[pi].Mul(&qClaims[pi], &x4)
		qClaims[pi].Add(&qClaims[pi], &q.Eval)
	}

	x5 := t.SqueezeChallengeScalar(purposeQuotientBatch).Scalar()

	fComm, err := t.ReadPoint()
	if err != nil {
		return err
	}

	x6 := t.SqueezeChallengeScalar(purposeEvalPoint).Scalar()

	evals := make([]fr.Element, numPoints)
	sink := transcript.NewScalarSink()
	for pi := range evals {
		if evals[pi], err = t.TakeScalar(); err != nil {
			return err
		}
		sink.Absorb(&evals[pi])
	}
	bound := sink.SqueezeBase()
	if err := t.CommonBase(&bound); err != nil {
		return err
	}

	x7 := t.SqueezeChallengeScalar(purposeFinalFold).Scalar()

	// Recompute the expected evaluation of the folded quotient polynomial
	// at x6 from the claims: Σ-fold of (q_i(x6) - r_i) / (x6 - z_i).
	denoms := make([]fr.Element, numPoints)
	for pi := range denoms {
		denoms[pi].Sub(&x6, &sets.Points[pi])
		if denoms[pi].IsZero() {
			return commitment.ErrVerifyFailed
		}
	}
	invs := fr.BatchInvert(denoms)

	var fEval, term fr.Element
	for pi := 0; pi < numPoints; pi++ {
		term.Sub(&evals[pi], &qClaims[pi])
		term.Mul(&term, &invs[pi])
		fEval.Mul(&fEval, &x5)
		fEval.Add(&fEval, &term)
	}

	// Fold the quotient commitment with the per-point aggregates into the
	// final opening claim.
	var x7bi big.Int
	x7.BigInt(&x7bi)
	var acc bn254.G1Jac
	acc.FromAffine(&fComm)
	finalEval := fEval
	for pi := 0; pi < numPoints; pi++ {
		acc.ScalarMultiplication(&acc, &x7bi)
		acc.AddAssign(&qComms[pi])
		finalEval.Mul(&finalEval, &x7)
		finalEval.Add(&finalEval, &evals[pi])
	}
	var finalComm bn254.G1Affine
	finalComm.FromJacobian(&acc)

	return pp.Verify(t, &finalComm, x6, finalEval)
}

// checkVerifierConsistency rejects query sets where one handle is presented
// with diverging commitments.
func checkVerifierConsistency(queries []VerifierQuery) error {
	comms := make(map[int]bn254.G1Affine, len(queries))
	for _, q := range queries {
		if c, ok := comms[q.Handle]; ok {
			if !c.Equal(&q.Commitment) {
				return ErrInconsistentQuery
			}
			continue
		}
		comms[q.Handle] = q.Commitment
	}
	return nil
}
