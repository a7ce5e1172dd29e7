// Package sysinfo queries the hardware and OS inventory used for profile
// detection, resource checks, and checkpoint machine identity.
package sysinfo

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/zeebo/blake3"

	"github.com/felixgeelhaar/rigup/internal/errors"
)

// ForceProfileEnv overrides hardware detection when set to a profile name.
const ForceProfileEnv = "RIGUP_FORCE_PROFILE"

// Info holds the detected hardware and OS inventory
type Info struct {
	Hostname         string `json:"hostname"`
	CPUName          string `json:"cpu_name"`
	Manufacturer     string `json:"manufacturer"`
	Architecture     string `json:"architecture"`
	TotalMemoryBytes uint64 `json:"total_memory_bytes"`
	FreeDiskBytes    uint64 `json:"free_disk_bytes"`
	OSVersion        string `json:"os_version"`
}

// Collect gathers the hardware inventory for the current machine
func Collect(ctx context.Context) (*Info, error) {
	info := &Info{Architecture: normalizeArch(runtime.GOARCH)}

	hostInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSystemInfo, "failed to query host info", err)
	}
	info.Hostname = hostInfo.Hostname
	info.OSVersion = fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion)
	if hostInfo.KernelArch != "" {
		info.Architecture = normalizeArch(hostInfo.KernelArch)
	}

	cpus, err := cpu.InfoWithContext(ctx)
	if err == nil && len(cpus) > 0 {
		info.CPUName = cpus[0].ModelName
		info.Manufacturer = cpus[0].VendorID
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSystemInfo, "failed to query memory", err)
	}
	info.TotalMemoryBytes = vm.Total

	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	usage, err := disk.UsageWithContext(ctx, wd)
	if err == nil {
		info.FreeDiskBytes = usage.Free
	}

	return info, nil
}

// Fingerprint derives a stable machine identifier from the inventory.
// Checkpoints carry it so state from one machine is never silently
// resumed on another.
func (i *Info) Fingerprint() string {
	sum := blake3.Sum256([]byte(fmt.Sprintf("%s|%s|%d", i.Hostname, i.CPUName, i.TotalMemoryBytes)))
	return hex.EncodeToString(sum[:16])
}

// Profile identifies a supported hardware target
type Profile string

const (
	// ProfileSnapdragon targets Snapdragon X Elite machines with an NPU
	ProfileSnapdragon Profile = "snapdragon"
	// ProfileIntel targets Intel Core Ultra machines
	ProfileIntel Profile = "intel"
)

// DetectProfile classifies the machine as a Snapdragon or Intel target.
// The RIGUP_FORCE_PROFILE environment variable overrides detection.
func DetectProfile(info *Info) Profile {
	switch strings.ToLower(os.Getenv(ForceProfileEnv)) {
	case string(ProfileSnapdragon):
		return ProfileSnapdragon
	case string(ProfileIntel):
		return ProfileIntel
	}

	if info.Architecture == "arm64" {
		return ProfileSnapdragon
	}

	cpuName := strings.ToLower(info.CPUName)
	if strings.Contains(cpuName, "snapdragon") || strings.Contains(cpuName, "qualcomm") {
		return ProfileSnapdragon
	}

	return ProfileIntel
}

var trademarkReplacer = strings.NewReplacer("(r)", "", "(tm)", "", "(c)", "")

// ProcessorModel names the specific processor family when recognizable.
// Vendors decorate the model name with trademark marks ("Intel(R)
// Core(TM) Ultra"), so those are stripped before matching.
func ProcessorModel(info *Info) string {
	cpuName := trademarkReplacer.Replace(strings.ToLower(info.CPUName))
	cpuName = strings.Join(strings.Fields(cpuName), " ")
	switch {
	case strings.Contains(cpuName, "x elite"):
		return "Snapdragon X Elite"
	case strings.Contains(cpuName, "core ultra"):
		return "Intel Core Ultra"
	default:
		return info.CPUName
	}
}

func normalizeArch(arch string) string {
	switch strings.ToLower(arch) {
	case "arm64", "aarch64":
		return "arm64"
	case "amd64", "x86_64":
		return "amd64"
	default:
		return strings.ToLower(arch)
	}
}
