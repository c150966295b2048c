// Package multiopen batches opening claims across many polynomials and many
// evaluation points into a single single-point opening, using two layers of
// random-linear-combination folding driven by the Fiat-Shamir transcript.
package multiopen

import (
	"errors"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/emirsoyturk/halo2/polynomial"
)

var (
	// ErrNoQueries is returned when a proof is requested over an empty
	// query set.
	ErrNoQueries = errors.New("multiopen: no queries")

	// ErrDuplicateQuery is returned when the same polynomial handle is
	// queried twice at the same point.
	ErrDuplicateQuery = errors.New("multiopen: duplicate query for handle and point")

	// ErrInconsistentQuery is returned when two queries carrying the same
	// handle disagree on the polynomial's blind or commitment.
	ErrInconsistentQuery = errors.New("multiopen: inconsistent queries for handle")
)

// ProverQuery is one opening claim on the prover side. Handle is an explicit
// small-integer identity assigned at construction: two distinct polynomials
// may coincide numerically, so polynomials are never compared by value.
type ProverQuery struct {
	Handle int
	Poly   polynomial.Polynomial
	Blind  fr.Element
	Point  fr.Element
	Eval   fr.Element
}

// VerifierQuery is one opening claim on the verifier side, with the
// commitment standing in for the polynomial.
type VerifierQuery struct {
	Handle     int
	Commitment bn254.G1Affine
	Point      fr.Element
	Eval       fr.Element
}

// queryRef is the part of a query the aggregator cares about.
type queryRef struct {
	handle int
	point  fr.Element
	eval   fr.Element
}

// CommitmentData describes how one polynomial handle is queried: the
// point-indices in insertion order, and the claimed evaluations re-aligned
// to the canonical (sorted) order of its point-index set. The alignment must
// be reproduced identically by prover and verifier or evaluations silently
// mismatch.
type CommitmentData struct {
	Handle       int
	PointIndices []int
	Evals        []fr.Element
	SetIndex     int

	evalByPoint map[int]fr.Element
}

// intermediateSets is the output of one aggregation pass over a query
// collection.
type intermediateSets struct {
	// Points lists the distinct evaluation points, indexed by their stable
	// PointIndex in first-seen order.
	Points []fr.Element

	// Commitments holds one entry per distinct polynomial handle, in
	// first-seen order.
	Commitments []CommitmentData

	// PointSets lists the deduplicated canonical point-index sets, indexed
	// by their stable group index in first-seen order. Two handles queried
	// at the same set of points share an entry regardless of insertion
	// order.
	PointSets []*bitset.BitSet

	pointIndexOf map[fr.Element]int
}

// constructIntermediateSets assigns stable point and group indices and
// groups queries by polynomial handle. Grouping is keyed on set equality of
// point-indices, never on sequence order and never on polynomial values.
func constructIntermediateSets(queries []queryRef) (*intermediateSets, error) {
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}

	sets := &intermediateSets{
		pointIndexOf: make(map[fr.Element]int),
	}
	commitmentOf := make(map[int]int)

	for _, q := range queries {
		pi, ok := sets.pointIndexOf[q.point]
		if !ok {
			pi = len(sets.Points)
			sets.pointIndexOf[q.point] = pi
			sets.Points = append(sets.Points, q.point)
		}

		ci, ok := commitmentOf[q.handle]
		if !ok {
			ci = len(sets.Commitments)
			commitmentOf[q.handle] = ci
			sets.Commitments = append(sets.Commitments, CommitmentData{
				Handle:      q.handle,
				evalByPoint: make(map[int]fr.Element),
			})
		}

		cd := &sets.Commitments[ci]
		if _, seen := cd.evalByPoint[pi]; seen {
			return nil, ErrDuplicateQuery
		}
		cd.evalByPoint[pi] = q.eval
		cd.PointIndices = append(cd.PointIndices, pi)
	}

	// Canonicalize each handle's point-index collection into a set and
	// deduplicate the sets, assigning stable group indices.
	for ci := range sets.Commitments {
		cd := &sets.Commitments[ci]

		bs := bitset.New(uint(len(sets.Points)))
		for _, pi := range cd.PointIndices {
			bs.Set(uint(pi))
		}

		cd.SetIndex = -1
		for si, existing := range sets.PointSets {
			if existing.Equal(bs) {
				cd.SetIndex = si
				break
			}
		}
		if cd.SetIndex == -1 {
			cd.SetIndex = len(sets.PointSets)
			sets.PointSets = append(sets.PointSets, bs)
		}

		// Re-derive the evaluation vector in the canonical sorted order of
		// the set.
		cd.Evals = make([]fr.Element, 0, len(cd.PointIndices))
		for pi, ok := bs.NextSet(0); ok; pi, ok = bs.NextSet(pi + 1) {
			cd.Evals = append(cd.Evals, cd.evalByPoint[int(pi)])
		}
	}

	return sets, nil
}

func proverRefs(queries []ProverQuery) []queryRef {
	refs := make([]queryRef, len(queries))
	for i, q := range queries {
		refs[i] = queryRef{handle: q.Handle, point: q.Point, eval: q.Eval}
	}
	return refs
}

func verifierRefs(queries []VerifierQuery) []queryRef {
	refs := make([]queryRef, len(queries))
	for i, q := range queries {
		refs[i] = queryRef{handle: q.Handle, point: q.Point, eval: q.Eval}
	}
	return refs
}
