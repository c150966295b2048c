// Package polynomial implements coefficient-form univariate polynomials over
// the bn254 scalar field, with the evaluation, synthetic-division and folding
// operations the opening protocol is built from.
package polynomial

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/emirsoyturk/halo2/internal/parallel"
)

// Polynomial is a list of coefficients in ascending degree order:
// p(X) = ∑_{i<len(p)} p[i]·Xⁱ.
type Polynomial []fr.Element

// Random returns a polynomial with n uniformly random coefficients.
func Random(n int) (Polynomial, error) {
	p := make(Polynomial, n)
	for i := range p {
		if _, err := p[i].SetRandom(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Clone returns an independent copy of p, padded with zero coefficients to
// size at least n.
func (p Polynomial) Clone(n int) Polynomial {
	if n < len(p) {
		n = len(p)
	}
	q := make(Polynomial, n)
	copy(q, p)
	return q
}

// Eval returns p(x), evaluated with Horner's rule.
func (p Polynomial) Eval(x *fr.Element) fr.Element {
	var res fr.Element
	if len(p) == 0 {
		return res
	}
	res.Set(&p[len(p)-1])
	for i := len(p) - 2; i >= 0; i-- {
		res.Mul(&res, x).Add(&res, &p[i])
	}
	return res
}

// Fold replaces p with p·x + q in place. Coefficients are independent, so
// the update runs as a data-parallel map over disjoint index ranges.
// len(q) must not exceed len(p).
func (p Polynomial) Fold(q Polynomial, x fr.Element) {
	parallel.Execute(len(p), func(start, end int) {
		var t fr.Element
		for i := start; i < end; i++ {
			t.Mul(&p[i], &x)
			if i < len(q) {
				t.Add(&t, &q[i])
			}
			p[i] = t
		}
	})
}

// KateDivision returns (p(X) - p(a)) / (X - a), computed by synthetic
// division. The division is exact: subtracting p(a) removes the remainder.
func KateDivision(p Polynomial, a fr.Element) Polynomial {
	if len(p) == 0 {
		return nil
	}
	f := p.Clone(len(p))
	fa := p.Eval(&a)
	f[0].Sub(&f[0], &fa)
	return DivideByLinear(f, a)
}

// DivideByLinear divides p by (X - a) in place and returns the quotient,
// discarding the remainder. Callers wanting an exact division must subtract
// p(a) from the constant coefficient first.
func DivideByLinear(p Polynomial, a fr.Element) Polynomial {
	var t fr.Element
	for i := len(p) - 2; i >= 0; i-- {
		t.Mul(&p[i+1], &a)
		p[i].Add(&p[i], &t)
	}
	return p[1:]
}
