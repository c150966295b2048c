package commitment

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/sync/errgroup"

	"github.com/emirsoyturk/halo2/polynomial"
)

// Commit commits to a polynomial in coefficient form:
// Commit(p, b) = Σᵢ [p[i]]G[i] + [b]H.
func (pp *Params) Commit(p polynomial.Polynomial, blind fr.Element) (bn254.G1Affine, error) {
	if len(p) == 0 || len(p) > pp.N {
		return bn254.G1Affine{}, ErrInvalidPolynomialSize
	}

	acc, err := pp.msm(pp.G[:len(p)], p)
	if err != nil {
		return bn254.G1Affine{}, err
	}

	var hb bn254.G1Affine
	hb.ScalarMultiplication(&pp.H, blind.BigInt(new(big.Int)))
	acc.AddMixed(&hb)

	var res bn254.G1Affine
	res.FromJacobian(&acc)
	return res, nil
}

// BatchCommit commits to independent polynomials concurrently.
func (pp *Params) BatchCommit(polys []polynomial.Polynomial, blinds []fr.Element) ([]bn254.G1Affine, error) {
	if len(polys) != len(blinds) {
		return nil, ErrInvalidPolynomialSize
	}
	out := make([]bn254.G1Affine, len(polys))
	var g errgroup.Group
	for i := range polys {
		g.Go(func() error {
			c, err := pp.Commit(polys[i], blinds[i])
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
