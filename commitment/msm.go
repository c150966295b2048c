package commitment

import (
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// MSMFunc computes the multi-scalar multiplication Σᵢ [scalars[i]]points[i].
type MSMFunc func(points []bn254.G1Affine, scalars []fr.Element) (bn254.G1Jac, error)

// accelMSM is installed by the icicle build. When nil, only the CPU path is
// available.
var accelMSM MSMFunc

// msm dispatches between the CPU path and the accelerated path on problem
// size. The two paths are observably result-identical.
func (pp *Params) msm(points []bn254.G1Affine, scalars []fr.Element) (bn254.G1Jac, error) {
	if f := pp.accelerator(); f != nil && len(scalars) >= pp.cfg.GPUThreshold {
		return f(points, scalars)
	}
	var res bn254.G1Jac
	if _, err := res.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return bn254.G1Jac{}, err
	}
	return res, nil
}

func (pp *Params) accelerator() MSMFunc {
	if pp.cfg.msm != nil {
		return pp.cfg.msm
	}
	return accelMSM
}
