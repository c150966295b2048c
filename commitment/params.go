// Package commitment implements the blinded Pedersen polynomial commitment
// the opening protocol reduces to: committing is a multi-scalar
// multiplication over an untrusted generator vector, and a single-point
// opening is proven with an inner-product argument.
package commitment

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/emirsoyturk/halo2/logger"
)

var (
	// ErrInvalidPolynomialSize is returned when a polynomial exceeds the
	// size the parameters were generated for.
	ErrInvalidPolynomialSize = errors.New("invalid polynomial size (larger than params or == 0)")

	// ErrOpeningFailed reports a degenerate opening attempt. It drives the
	// multi-open retry loop and is never meaningful to surface to callers.
	ErrOpeningFailed = errors.New("opening construction failed")

	// ErrVerifyFailed is returned when a structurally well-formed proof
	// fails the final algebraic check.
	ErrVerifyFailed = errors.New("opening proof verification failed")
)

// gpuThresholdEnv overrides the default problem size above which the
// accelerated MSM path is used, as a power of two exponent.
const gpuThresholdEnv = "HALO2_GPU_MSM_MIN"

// Config holds the tunable knobs of the commitment engine.
type Config struct {
	// GPUThreshold is the MSM size from which the accelerated path is
	// selected. Below it the CPU path is always used.
	GPUThreshold int

	msm MSMFunc
}

// Option configures the commitment parameters. With no options, sensible
// defaults are used.
type Option func(*Config) error

// WithGPUThreshold sets the MSM size from which the accelerated path is
// used. Both paths compute identical results and differ only in latency.
func WithGPUThreshold(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("invalid gpu threshold %d", n)
		}
		c.GPUThreshold = n
		return nil
	}
}

// WithMSM overrides the accelerated multi-scalar multiplication hook. The
// hook must return the same result as the CPU path.
func WithMSM(f MSMFunc) Option {
	return func(c *Config) error {
		if f == nil {
			return fmt.Errorf("nil msm hook")
		}
		c.msm = f
		return nil
	}
}

func newConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		GPUThreshold: 1 << 8,
	}
	if v := os.Getenv(gpuThresholdEnv); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil || k < 0 || k > 30 {
			return nil, fmt.Errorf("invalid %s value %q", gpuThresholdEnv, v)
		}
		cfg.GPUThreshold = 1 << k
	}
	for _, o := range opts {
		if o != nil {
			if err := o(cfg); err != nil {
				return nil, err
			}
		}
	}
	return cfg, nil
}

// Params are the public parameters of the commitment scheme: a vector of n
// generators for the coefficients, a blinding generator H and an
// inner-product generator U. The setup is untrusted: every generator is
// hashed to the curve, so no party knows discrete-log relations among them.
type Params struct {
	K int // log2 of the maximum polynomial size
	N int // maximum polynomial size, 1 << K

	G []bn254.G1Affine
	H bn254.G1Affine
	U bn254.G1Affine

	cfg *Config
}

// NewParams generates parameters for polynomials of up to 2^k coefficients.
func NewParams(k int, opts ...Option) (*Params, error) {
	if k <= 0 || k > 28 {
		return nil, fmt.Errorf("invalid parameter size k=%d", k)
	}
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	log := logger.Logger().With().Str("component", "commitment").Int("k", k).Logger()
	start := time.Now()

	n := 1 << k
	pp := &Params{K: k, N: n, G: make([]bn254.G1Affine, n), cfg: cfg}

	var msg [8]byte
	for i := range pp.G {
		binary.LittleEndian.PutUint64(msg[:], uint64(i))
		if pp.G[i], err = bn254.HashToG1(msg[:], []byte("halo2:pedersen:g")); err != nil {
			return nil, fmt.Errorf("hash to curve: %w", err)
		}
	}
	if pp.H, err = bn254.HashToG1(nil, []byte("halo2:pedersen:h")); err != nil {
		return nil, fmt.Errorf("hash to curve: %w", err)
	}
	if pp.U, err = bn254.HashToG1(nil, []byte("halo2:pedersen:u")); err != nil {
		return nil, fmt.Errorf("hash to curve: %w", err)
	}

	log.Debug().Dur("took", time.Since(start)).Msg("params generated")
	return pp, nil
}
