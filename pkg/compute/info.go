package compute

import (
	"runtime"

	"github.com/klauspost/cpuid"
)

// DeviceInfo describes the host processor that backs a Device
type DeviceInfo struct {
	Brand          string
	PhysicalCores  int
	LogicalCores   int
	ThreadsPerCore int
	CacheLine      int
	AVX2           bool
	SSE4           bool
	GoMaxProcs     int
}

// Info queries the host processor
func Info() DeviceInfo {
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = runtime.GOARCH
	}

	return DeviceInfo{
		Brand:          brand,
		PhysicalCores:  cpuid.CPU.PhysicalCores,
		LogicalCores:   cpuid.CPU.LogicalCores,
		ThreadsPerCore: cpuid.CPU.ThreadsPerCore,
		CacheLine:      cpuid.CPU.CacheLine,
		AVX2:           cpuid.CPU.AVX2(),
		SSE4:           cpuid.CPU.SSE4(),
		GoMaxProcs:     runtime.GOMAXPROCS(0),
	}
}
