package multiopen

import (
	"errors"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/emirsoyturk/halo2/commitment"
	"github.com/emirsoyturk/halo2/logger"
	"github.com/emirsoyturk/halo2/polynomial"
	"github.com/emirsoyturk/halo2/transcript"
)

// Create proves that every queried polynomial evaluates to its claimed value
// at its claimed point, with a single opening whose cost is independent of
// the number of (polynomial, point) pairs. The proof bytes accumulate in the
// transcript writer; the caller obtains them from its Finalize.
func Create(pp *commitment.Params, t *transcript.Writer, queries []ProverQuery) (*Proof, error) {
	log := logger.Logger().With().Str("component", "multiopen").Logger()
	start := time.Now()

	sets, err := constructIntermediateSets(proverRefs(queries))
	if err != nil {
		return nil, err
	}
	if err := checkProverConsistency(queries); err != nil {
		return nil, err
	}
	numPoints := len(sets.Points)

	// Collapse openings at the same point together into single openings,
	// in first-seen query order.
	x4 := t.SqueezeChallengeScalar(purposePolyBatch).Scalar()

	qPolys := make([]polynomial.Polynomial, numPoints)
	qBlinds := make([]fr.Element, numPoints)
	qEvals := make([]fr.Element, numPoints)
	for _, q := range queries {
		pi := sets.pointIndexOf[q.Point]
		if qPolys[pi] == nil {
			qPolys[pi] = q.Poly.Clone(pp.N)
		} else {
			qPolys[pi].Fold(q.Poly, x4)
		}
		qBlinds[pi].Mul(&qBlinds[pi], &x4)
		qBlinds[pi].Add(&qBlinds[pi], &q.Blind)
		qEvals[pi].Mul(&qEvals[pi], &x4)
		qEvals[pi].Add(&qEvals[pi], &q.Eval)
	}

	// Divide each per-point aggregate by (X - point) and fold the witness
	// quotients into one polynomial. The claimed evaluation is subtracted
	// before the division: a false claim leaves a remainder that surfaces
	// in the final algebraic check.
	x5 := t.SqueezeChallengeScalar(purposeQuotientBatch).Scalar()

	var fPoly polynomial.Polynomial
	for pi := 0; pi < numPoints; pi++ {
		numer := qPolys[pi].Clone(pp.N)
		numer[0].Sub(&numer[0], &qEvals[pi])
		quot := polynomial.DivideByLinear(numer, sets.Points[pi])
		if fPoly == nil {
			fPoly = quot.Clone(pp.N)
		} else {
			fPoly.Fold(quot, x5)
		}
	}

	var fBlind fr.Element
	if _, err := fBlind.SetRandom(); err != nil {
		return nil, err
	}
	fComm, err := pp.Commit(fPoly, fBlind)
	if err != nil {
		return nil, err
	}

	sink := transcript.NewScalarSink()

	// Speculative finalization: all work past this point depends on the
	// quotient commitment, so it runs on transcript clones that are thrown
	// away if the final opening degenerates.
	for attempt := 0; attempt < maxOpeningRetries; attempt++ {
		tw, err := t.Clone()
		if err != nil {
			return nil, err
		}
		sk, err := sink.Clone()
		if err != nil {
			return nil, err
		}

		if err := tw.WritePoint(&fComm); err != nil {
			if errors.Is(err, transcript.ErrIdentityPoint) {
				bumpBlind(&fBlind, &fComm, &pp.H)
				continue
			}
			return nil, err
		}

		x6 := tw.SqueezeChallengeScalar(purposeEvalPoint).Scalar()

		// Evaluations live in the scalar field; they are bound through the
		// scalar-side transcript, whose digest is re-absorbed into the
		// main (base-field) transcript.
		evals := make([]fr.Element, numPoints)
		for pi := range evals {
			evals[pi] = qPolys[pi].Eval(&x6)
			sk.Absorb(&evals[pi])
			if err := tw.AppendScalar(&evals[pi]); err != nil {
				return nil, err
			}
		}
		bound := sk.SqueezeBase()
		if err := tw.CommonBase(&bound); err != nil {
			return nil, err
		}

		x7 := tw.SqueezeChallengeScalar(purposeFinalFold).Scalar()

		finalPoly := fPoly.Clone(pp.N)
		finalBlind := fBlind
		for pi := 0; pi < numPoints; pi++ {
			finalBlind.Mul(&finalBlind, &x7)
			finalBlind.Add(&finalBlind, &qBlinds[pi])
			finalPoly.Fold(qPolys[pi], x7)
		}

		err = pp.Open(tw, finalPoly, finalBlind, x6)
		if err == nil {
			*t = *tw
			log.Debug().
				Int("queries", len(queries)).
				Int("points", numPoints).
				Int("attempts", attempt+1).
				Dur("took", time.Since(start)).
				Msg("proof created")
			return &Proof{QEvals: evals, FCommitment: fComm}, nil
		}
		if errors.Is(err, commitment.ErrOpeningFailed) {
			bumpBlind(&fBlind, &fComm, &pp.H)
			continue
		}
		return nil, err
	}

	return nil, ErrRetriesExhausted
}

// bumpBlind increments the quotient blind by one and shifts the commitment
// by the blinding generator accordingly, re-randomizing a degenerate opening
// attempt.
func bumpBlind(blind *fr.Element, comm, h *bn254.G1Affine) {
	var one fr.Element
	one.SetOne()
	blind.Add(blind, &one)
	var shifted bn254.G1Affine
	shifted.Add(comm, h)
	*comm = shifted
}

// checkProverConsistency rejects query sets where one handle is presented
// with diverging blinds: the folding below assumes a handle denotes one
// committed polynomial.
func checkProverConsistency(queries []ProverQuery) error {
	blinds := make(map[int]fr.Element, len(queries))
	for _, q := range queries {
		if b, ok := blinds[q.Handle]; ok {
			if !b.Equal(&q.Blind) {
				return ErrInconsistentQuery
			}
			continue
		}
		blinds[q.Handle] = q.Blind
	}
	return nil
}
