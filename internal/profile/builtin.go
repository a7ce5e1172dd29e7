package profile

import (
	"fmt"

	"github.com/felixgeelhaar/rigup/internal/resource"
	"github.com/felixgeelhaar/rigup/internal/sysinfo"
)

// Builtin returns the built-in profile for a detected hardware target
func Builtin(target sysinfo.Profile) (*Profile, error) {
	switch target {
	case sysinfo.ProfileSnapdragon:
		return snapdragonProfile(), nil
	case sysinfo.ProfileIntel:
		return intelProfile(), nil
	default:
		return nil, fmt.Errorf("no built-in profile for target %q", target)
	}
}

func commonPackages() []Package {
	return []Package{
		{Name: "numpy", Critical: true},
		{Name: "pillow", Critical: true},
		{Name: "requests", Critical: true},
		{Name: "psutil"},
		{Name: "torch", Version: "2.1.2", Critical: true},
		{Name: "diffusers", Version: "0.25.0", Critical: true},
		{Name: "transformers", Version: "4.36.2", Critical: true},
		{Name: "safetensors", Critical: true},
		{Name: "accelerate"},
		{Name: "huggingface_hub"},
	}
}

func snapdragonProfile() *Profile {
	return &Profile{
		Name:        "snapdragon",
		Description: "Snapdragon X Elite with QNN NPU acceleration",
		Python:      "python",
		Resources: resource.Requirements{
			MemoryGB:      8,
			DiskGB:        20,
			MaxCPUPercent: 85,
		},
		Packages: append(commonPackages(),
			Package{Name: "onnxruntime", Critical: true},
		),
		Models: []Model{
			{
				Name:        "sdxl-snapdragon-optimized",
				Destination: "models/sdxl_snapdragon/model.onnx",
				Sources: []string{
					"https://huggingface.co/qualcomm/Stable-Diffusion-XL/resolve/main/model.onnx",
					"https://mirror.aidemo.example.com/models/sdxl_snapdragon/model.onnx",
				},
				ExpectedSize: 3_452_764_160,
			},
		},
		Providers: []Provider{
			{Name: "QNN", Priority: 100, Package: "onnxruntime-qnn"},
			{Name: "DirectML", Priority: 50, Package: "onnxruntime-directml"},
			{Name: "CPU", Priority: 0, Package: "onnxruntime"},
		},
	}
}

func intelProfile() *Profile {
	return &Profile{
		Name:        "intel",
		Description: "Intel Core Ultra with OpenVINO / DirectML acceleration",
		Python:      "python",
		Resources: resource.Requirements{
			MemoryGB:      16,
			DiskGB:        30,
			MaxCPUPercent: 85,
		},
		Packages: append(commonPackages(),
			Package{Name: "onnxruntime", Critical: true},
			Package{Name: "torchvision"},
		),
		Models: []Model{
			{
				Name:        "sdxl-base-1.0",
				Destination: "models/sdxl-base-1.0/sd_xl_base_1.0.safetensors",
				Sources: []string{
					"https://huggingface.co/stabilityai/stable-diffusion-xl-base-1.0/resolve/main/sd_xl_base_1.0.safetensors",
					"https://mirror.aidemo.example.com/models/sdxl-base-1.0/sd_xl_base_1.0.safetensors",
				},
				ExpectedSize: 6_938_078_334,
			},
		},
		Providers: []Provider{
			{Name: "OpenVINO", Priority: 100, Package: "openvino"},
			{Name: "DirectML", Priority: 75, Package: "onnxruntime-directml"},
			{Name: "CPU", Priority: 0, Package: "onnxruntime"},
		},
	}
}
