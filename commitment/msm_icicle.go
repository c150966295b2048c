//go:build icicle

package commitment

import (
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	icicle_core "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/core"
	icicle_bn254 "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/curves/bn254"
	icicle_msm "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/curves/bn254/msm"
	icicle_runtime "github.com/ingonyama-zk/icicle-gnark/v3/wrappers/golang/runtime"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/emirsoyturk/halo2/logger"
)

// HasGPU reports whether the accelerated MSM backend is compiled in.
const HasGPU = true

var onceWarmUpDevice sync.Once

func init() {
	accelMSM = gpuMSM
}

func warmUpDevice() {
	onceWarmUpDevice.Do(func() {
		log := logger.Logger()
		if err := icicle_runtime.LoadBackendFromEnvOrDefault(); err != icicle_runtime.Success {
			panic(fmt.Sprintf("ICICLE backend loading error: %s", err.AsString()))
		}
		device := icicle_runtime.CreateDevice("CUDA", 0)
		log.Debug().Int32("id", device.Id).Str("type", device.GetDeviceType()).Msg("ICICLE device created")
		if err := icicle_runtime.SetDevice(&device); err != icicle_runtime.Success {
			panic(fmt.Sprintf("ICICLE device selection error: %s", err.AsString()))
		}
	})
}

func gpuMSM(points []bn254.G1Affine, scalars []fr.Element) (bn254.G1Jac, error) {
	warmUpDevice()

	cfg := icicle_core.GetDefaultMSMConfig()
	cfg.ArePointsMontgomeryForm = true
	cfg.AreScalarsMontgomeryForm = true

	res := make(icicle_core.HostSlice[icicle_bn254.Projective], 1)
	if err := icicle_msm.Msm(
		icicle_core.HostSliceFromElements(scalars),
		icicle_core.HostSliceFromElements(points),
		&cfg,
		res,
	); err != icicle_runtime.Success {
		return bn254.G1Jac{}, fmt.Errorf("icicle msm: %s", err.AsString())
	}

	return g1ProjectiveToG1Jac(&res[0]), nil
}

func g1ProjectiveToG1Jac(p *icicle_bn254.Projective) bn254.G1Jac {
	px, _ := fp.LittleEndian.Element((*[fp.Bytes]byte)((&p.X).ToBytesLittleEndian()))
	py, _ := fp.LittleEndian.Element((*[fp.Bytes]byte)((&p.Y).ToBytesLittleEndian()))
	pz, _ := fp.LittleEndian.Element((*[fp.Bytes]byte)((&p.Z).ToBytesLittleEndian()))

	var res bn254.G1Jac
	if pz.IsZero() {
		res.X.SetOne()
		res.Y.SetOne()
		return res
	}

	var zInv, x, y fp.Element
	zInv.Inverse(&pz)
	x.Mul(&px, &zInv)
	y.Mul(&py, &zInv)

	var aff bn254.G1Affine
	aff.X = x
	aff.Y = y
	res.FromAffine(&aff)
	return res
}
