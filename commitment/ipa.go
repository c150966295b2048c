package commitment

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/emirsoyturk/halo2/internal/parallel"
	"github.com/emirsoyturk/halo2/polynomial"
	"github.com/emirsoyturk/halo2/transcript"
)

// Challenge purposes of the opening argument. The mask challenge binds the
// random masking polynomial, the inner-product challenge weighs the claimed
// evaluation, and the round challenge is squeezed once per halving round.
const (
	purposeMask         transcript.Purpose = 0x10
	purposeInnerProduct transcript.Purpose = 0x11
	purposeRound        transcript.Purpose = 0x12
)

// Open proves, in the given transcript session, that p evaluates at x to the
// value already bound into the transcript by the caller. The commitment to
// (p, blind) is assumed to be known to the verifier.
//
// Open fails with ErrOpeningFailed on degenerate conditions: a
// non-invertible round challenge, an unencodable round commitment, or the
// masked commitment coinciding with the blinding generator. Callers treat
// this as a signal to re-randomize and retry, not as a fatal error.
func (pp *Params) Open(t *transcript.Writer, p polynomial.Polynomial, blind fr.Element, x fr.Element) error {
	if len(p) == 0 || len(p) > pp.N {
		return ErrInvalidPolynomialSize
	}

	// Sample a random polynomial with a root at x and commit to it. The
	// mask keeps the final openings from leaking the coefficients of p.
	sPoly, err := polynomial.Random(pp.N)
	if err != nil {
		return err
	}
	sAtX := sPoly.Eval(&x)
	sPoly[0].Sub(&sPoly[0], &sAtX)
	var sBlind fr.Element
	if _, err := sBlind.SetRandom(); err != nil {
		return err
	}
	sComm, err := pp.Commit(sPoly, sBlind)
	if err != nil {
		return err
	}
	if err := t.WritePoint(&sComm); err != nil {
		if errors.Is(err, transcript.ErrIdentityPoint) {
			return ErrOpeningFailed
		}
		return err
	}

	xi := t.SqueezeChallengeScalar(purposeMask).Scalar()
	z := t.SqueezeChallengeScalar(purposeInnerProduct).Scalar()

	// a = p + ξ·s, blinded with blind + ξ·s_blind. The verifier works with
	// the matching commitment C + [ξ]S.
	a := p.Clone(pp.N)
	var tmp fr.Element
	for i := range a {
		tmp.Mul(&sPoly[i], &xi)
		a[i].Add(&a[i], &tmp)
	}
	var f fr.Element
	f.Mul(&sBlind, &xi).Add(&f, &blind)

	// The opening is ill-defined when the masked commitment collapses onto
	// the blinding generator.
	aComm, err := pp.Commit(a, f)
	if err != nil {
		return err
	}
	if aComm.Equal(&pp.H) {
		return ErrOpeningFailed
	}

	// b = (1, x, x², …)
	b := make([]fr.Element, pp.N)
	b[0].SetOne()
	for i := 1; i < pp.N; i++ {
		b[i].Mul(&b[i-1], &x)
	}

	g := make([]bn254.G1Affine, pp.N)
	copy(g, pp.G)

	var ubi big.Int
	for j := 0; j < pp.K; j++ {
		half := len(a) / 2
		aLo, aHi := a[:half], a[half:]
		bLo, bHi := b[:half], b[half:]
		gLo, gHi := g[:half], g[half:]

		valueL := innerProduct(aHi, bLo)
		valueR := innerProduct(aLo, bHi)

		var lRand, rRand fr.Element
		if _, err := lRand.SetRandom(); err != nil {
			return err
		}
		if _, err := rRand.SetRandom(); err != nil {
			return err
		}

		l, err := pp.roundCommitment(gLo, aHi, valueL, z, lRand)
		if err != nil {
			return err
		}
		r, err := pp.roundCommitment(gHi, aLo, valueR, z, rRand)
		if err != nil {
			return err
		}
		if err := t.WritePoint(&l); err != nil {
			if errors.Is(err, transcript.ErrIdentityPoint) {
				return ErrOpeningFailed
			}
			return err
		}
		if err := t.WritePoint(&r); err != nil {
			if errors.Is(err, transcript.ErrIdentityPoint) {
				return ErrOpeningFailed
			}
			return err
		}

		u := t.SqueezeChallengeScalar(purposeRound).Scalar()
		if u.IsZero() {
			return ErrOpeningFailed
		}
		var uInv fr.Element
		uInv.Inverse(&u)

		var s fr.Element
		for i := 0; i < half; i++ {
			s.Mul(&aHi[i], &uInv)
			aLo[i].Add(&aLo[i], &s)
			s.Mul(&bHi[i], &u)
			bLo[i].Add(&bLo[i], &s)
		}
		u.BigInt(&ubi)
		parallel.Execute(half, func(start, end int) {
			var t bn254.G1Affine
			for i := start; i < end; i++ {
				t.ScalarMultiplication(&gHi[i], &ubi)
				gLo[i].Add(&gLo[i], &t)
			}
		})

		s.Mul(&lRand, &uInv)
		f.Add(&f, &s)
		s.Mul(&rRand, &u)
		f.Add(&f, &s)

		a, b, g = aLo, bLo, gLo
	}

	if err := t.WriteScalar(&a[0]); err != nil {
		return err
	}
	return t.WriteScalar(&f)
}

// roundCommitment computes MSM(g, a) + [z·value]U + [rand]H for one halving
// round.
func (pp *Params) roundCommitment(g []bn254.G1Affine, a []fr.Element, value, z, rand fr.Element) (bn254.G1Affine, error) {
	acc, err := pp.msm(g, a)
	if err != nil {
		return bn254.G1Affine{}, err
	}

	var s fr.Element
	var bi big.Int
	var t bn254.G1Affine

	s.Mul(&value, &z)
	t.ScalarMultiplication(&pp.U, s.BigInt(&bi))
	acc.AddMixed(&t)
	t.ScalarMultiplication(&pp.H, rand.BigInt(&bi))
	acc.AddMixed(&t)

	var res bn254.G1Affine
	res.FromJacobian(&acc)
	return res, nil
}

// Verify checks a single-point opening: that the polynomial committed to by
// comm evaluates to v at x. Structural errors (truncated or non-canonical
// proof bytes) are reported as such; an algebraic mismatch yields
// ErrVerifyFailed with no further diagnostic.
func (pp *Params) Verify(t *transcript.Reader, comm *bn254.G1Affine, x, v fr.Element) error {
	sComm, err := t.ReadPoint()
	if err != nil {
		return err
	}

	xi := t.SqueezeChallengeScalar(purposeMask).Scalar()
	z := t.SqueezeChallengeScalar(purposeInnerProduct).Scalar()

	ls := make([]bn254.G1Affine, pp.K)
	rs := make([]bn254.G1Affine, pp.K)
	us := make([]fr.Element, pp.K)
	for j := 0; j < pp.K; j++ {
		if ls[j], err = t.ReadPoint(); err != nil {
			return err
		}
		if rs[j], err = t.ReadPoint(); err != nil {
			return err
		}
		us[j] = t.SqueezeChallengeScalar(purposeRound).Scalar()
		if us[j].IsZero() {
			return ErrVerifyFailed
		}
	}

	c, err := t.ReadScalar()
	if err != nil {
		return err
	}
	f, err := t.ReadScalar()
	if err != nil {
		return err
	}

	// b₀ = Π_j (1 + u_j·x^(2^(k-1-j))), the fold of the powers-of-x vector.
	var b0, term, xp fr.Element
	b0.SetOne()
	xp = x
	for j := pp.K - 1; j >= 0; j-- {
		term.Mul(&us[j], &xp)
		var one fr.Element
		one.SetOne()
		term.Add(&term, &one)
		b0.Mul(&b0, &term)
		xp.Square(&xp)
	}

	// The folded generator g₀ = Σᵢ [sᵢ]G[i] with sᵢ = Π_{j: bit_{k-1-j}(i)=1} u_j.
	s := make([]fr.Element, pp.N)
	s[0].SetOne()
	width := 1
	for j := pp.K - 1; j >= 0; j-- {
		for i := 0; i < width; i++ {
			s[width+i].Mul(&s[i], &us[j])
		}
		width <<= 1
	}
	g0, err := pp.msm(pp.G, s)
	if err != nil {
		return err
	}

	// lhs = [c]g₀ + [z·c·b₀]U + [f]H
	var bi big.Int
	var lhs bn254.G1Jac
	var aux bn254.G1Affine
	lhs.ScalarMultiplication(&g0, c.BigInt(&bi))
	var cb fr.Element
	cb.Mul(&c, &b0).Mul(&cb, &z)
	aux.ScalarMultiplication(&pp.U, cb.BigInt(&bi))
	lhs.AddMixed(&aux)
	aux.ScalarMultiplication(&pp.H, f.BigInt(&bi))
	lhs.AddMixed(&aux)

	// rhs = comm + [ξ]S + [z·v]U + Σ_j ([u_j⁻¹]L_j + [u_j]R_j)
	var rhs bn254.G1Jac
	rhs.FromAffine(comm)
	aux.ScalarMultiplication(&sComm, xi.BigInt(&bi))
	rhs.AddMixed(&aux)
	var zv fr.Element
	zv.Mul(&z, &v)
	aux.ScalarMultiplication(&pp.U, zv.BigInt(&bi))
	rhs.AddMixed(&aux)

	uInvs := fr.BatchInvert(us)
	for j := 0; j < pp.K; j++ {
		aux.ScalarMultiplication(&ls[j], uInvs[j].BigInt(&bi))
		rhs.AddMixed(&aux)
		aux.ScalarMultiplication(&rs[j], us[j].BigInt(&bi))
		rhs.AddMixed(&aux)
	}

	if !lhs.Equal(&rhs) {
		return ErrVerifyFailed
	}
	return nil
}

func innerProduct(a, b []fr.Element) fr.Element {
	var res, t fr.Element
	for i := range a {
		t.Mul(&a[i], &b[i])
		res.Add(&res, &t)
	}
	return res
}
