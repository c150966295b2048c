// Package halo2 implements the polynomial commitment scheme and batched
// multi-point opening argument of the Halo 2 proving system over the BN254
// curve.
//
// The building blocks live in subpackages:
//   - transcript: the Fiat-Shamir transcript and challenge derivation
//   - polynomial: coefficient-form polynomials over the scalar field
//   - commitment: blinded Pedersen commitments and single-point openings
//   - multiopen: batching of opening claims across polynomials and points
package halo2

import (
	"github.com/blang/semver/v4"
)

// Version of the library.
var Version = semver.MustParse("0.1.0")
