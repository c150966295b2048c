//go:build !icicle

package commitment

// HasGPU reports whether the accelerated MSM backend is compiled in.
const HasGPU = false
