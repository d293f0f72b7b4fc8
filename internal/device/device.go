// Package device resolves the compute device for a run. The device is
// resolved once, stored in the run context and never changed afterwards.
package device

import (
	"fmt"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// #region kinds
// Kind names a compute device.
type Kind string

const (
	KindAuto Kind = "auto"
	KindCPU  Kind = "cpu"
	KindCUDA Kind = "cuda"
)

// #endregion kinds

// #region device
// Device is the resolved device plus a description of the host CPU.
type Device struct {
	Kind      Kind // always a concrete device, never auto
	Requested Kind
	Fallback  bool // requested device was unavailable
	Brand     string
	Vendor    string
	Cores     int
	Threads   int
	Features  []string
}

// String summarizes the device for logs.
func (d Device) String() string {
	s := fmt.Sprintf("%s (%s, %d cores/%d threads", d.Kind, d.Brand, d.Cores, d.Threads)
	if len(d.Features) > 0 {
		s += ", " + strings.Join(d.Features, " ")
	}
	s += ")"
	if d.Fallback {
		s += fmt.Sprintf(" [requested %s]", d.Requested)
	}
	return s
}

// #endregion device

// #region resolve
var simdFeatures = []struct {
	name string
	ids  []cpuid.FeatureID
}{
	{"avx2", []cpuid.FeatureID{cpuid.AVX2}},
	{"fma3", []cpuid.FeatureID{cpuid.FMA3}},
	{"avx512", []cpuid.FeatureID{cpuid.AVX512F, cpuid.AVX512DQ}},
	{"asimd", []cpuid.FeatureID{cpuid.ASIMD}},
}

// Resolve maps a configured device name to a concrete device. Only the CPU
// kernels are built in, so auto resolves to cpu and cuda falls back to cpu
// with Fallback set. Unknown names are an error.
func Resolve(requested string) (Device, error) {
	req := Kind(strings.ToLower(strings.TrimSpace(requested)))
	if req == "" {
		req = KindAuto
	}
	switch req {
	case KindAuto, KindCPU, KindCUDA:
	default:
		return Device{}, fmt.Errorf("unknown device %q (want auto, cpu or cuda)", requested)
	}

	d := Device{
		Kind:      KindCPU,
		Requested: req,
		Fallback:  req == KindCUDA,
		Brand:     cpuid.CPU.BrandName,
		Vendor:    cpuid.CPU.VendorString,
		Cores:     cpuid.CPU.PhysicalCores,
		Threads:   cpuid.CPU.LogicalCores,
	}
	for _, p := range simdFeatures {
		if cpuid.CPU.Supports(p.ids...) {
			d.Features = append(d.Features, p.name)
		}
	}
	return d, nil
}

// #endregion resolve
