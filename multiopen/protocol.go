package multiopen

import (
	"errors"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/emirsoyturk/halo2/transcript"
)

// Challenge purposes of the multi-open protocol, squeezed strictly in this
// order. Each challenge is derived only after every message feeding it has
// been absorbed.
const (
	// purposePolyBatch collapses all polynomials queried at one point into
	// a single aggregate per point.
	purposePolyBatch transcript.Purpose = 0x01

	// purposeQuotientBatch folds the per-point witness quotients into one
	// polynomial.
	purposeQuotientBatch transcript.Purpose = 0x02

	// purposeEvalPoint is the single evaluation point of the final opening.
	purposeEvalPoint transcript.Purpose = 0x03

	// purposeFinalFold folds the per-point aggregates and the quotient
	// polynomial into the final opening claim.
	purposeFinalFold transcript.Purpose = 0x04
)

// maxOpeningRetries caps the speculative finalization loop. Termination of
// the loop is probabilistic; a freshly perturbed blind colliding again is
// astronomically unlikely, so reaching the cap indicates something is badly
// wrong rather than bad luck.
const maxOpeningRetries = 64

// ErrRetriesExhausted is returned when the speculative finalization loop
// exceeds its defensive cap. It is a fatal condition, distinct from an
// invalid proof.
var ErrRetriesExhausted = errors.New("multiopen: opening retries exhausted")

// Proof is a batched multi-point opening proof. Its wire form is the
// transcript writer's byte stream: the per-point evaluations at the final
// challenge point, the aggregate quotient commitment and the single-point
// opening proof, in absorb order, with no length prefixes.
type Proof struct {
	// QEvals are the evaluations of the per-point aggregate polynomials at
	// the final challenge point.
	QEvals []fr.Element

	// FCommitment commits to the folded witness quotient polynomial.
	FCommitment bn254.G1Affine
}
