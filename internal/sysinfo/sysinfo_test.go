package sysinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectProfile(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want Profile
	}{
		{"arm64 is snapdragon", Info{Architecture: "arm64", CPUName: "unknown"}, ProfileSnapdragon},
		{"snapdragon cpu name", Info{Architecture: "amd64", CPUName: "Snapdragon X Elite X1E-84-100"}, ProfileSnapdragon},
		{"qualcomm cpu name", Info{Architecture: "amd64", CPUName: "Qualcomm Oryon"}, ProfileSnapdragon},
		{"intel core ultra", Info{Architecture: "amd64", CPUName: "Intel(R) Core(TM) Ultra 7 155H"}, ProfileIntel},
		{"unknown defaults to intel", Info{Architecture: "amd64", CPUName: "Mystery CPU"}, ProfileIntel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectProfile(&tt.info))
		})
	}
}

func TestDetectProfileEnvOverride(t *testing.T) {
	t.Setenv(ForceProfileEnv, "snapdragon")
	info := &Info{Architecture: "amd64", CPUName: "Intel(R) Core(TM) Ultra 7 155H"}
	assert.Equal(t, ProfileSnapdragon, DetectProfile(info))

	t.Setenv(ForceProfileEnv, "INTEL")
	info = &Info{Architecture: "arm64", CPUName: "Snapdragon X Elite"}
	assert.Equal(t, ProfileIntel, DetectProfile(info))

	// An unrecognized override falls back to detection.
	t.Setenv(ForceProfileEnv, "toaster")
	assert.Equal(t, ProfileSnapdragon, DetectProfile(info))
}

func TestProcessorModel(t *testing.T) {
	assert.Equal(t, "Snapdragon X Elite", ProcessorModel(&Info{CPUName: "Snapdragon(R) X Elite X1E-84-100"}))
	assert.Equal(t, "Intel Core Ultra", ProcessorModel(&Info{CPUName: "Intel(R) Core(TM) Ultra 7 155H"}))
	assert.Equal(t, "Intel Core Ultra", ProcessorModel(&Info{CPUName: "Intel Core Ultra 5 125U"}))
	assert.Equal(t, "AMD Ryzen 9", ProcessorModel(&Info{CPUName: "AMD Ryzen 9"}))
}

func TestNormalizeArch(t *testing.T) {
	assert.Equal(t, "arm64", normalizeArch("aarch64"))
	assert.Equal(t, "arm64", normalizeArch("ARM64"))
	assert.Equal(t, "amd64", normalizeArch("x86_64"))
	assert.Equal(t, "riscv64", normalizeArch("riscv64"))
}

func TestFingerprintStable(t *testing.T) {
	a := &Info{Hostname: "demo-01", CPUName: "Snapdragon X Elite", TotalMemoryBytes: 16 << 30}
	b := &Info{Hostname: "demo-01", CPUName: "Snapdragon X Elite", TotalMemoryBytes: 16 << 30}
	c := &Info{Hostname: "demo-02", CPUName: "Snapdragon X Elite", TotalMemoryBytes: 16 << 30}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Len(t, a.Fingerprint(), 32)
}
