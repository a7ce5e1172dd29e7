package pkginstall

// alternatives maps architecture -> package -> substitute package. The
// table is keyed by architecture up front so an x86-only build is never
// offered on an ARM machine.
var alternatives = map[string]map[string]string{
	"amd64": {
		"onnxruntime": "onnxruntime-directml",
		"torch":       "torch-directml",
		"openvino":    "openvino-dev",
	},
	"arm64": {
		"onnxruntime": "onnxruntime-qnn",
	},
}

// minimalVersions pins the oldest version known to work when the
// requested one cannot be resolved.
var minimalVersions = map[string]string{
	"torch":        "2.0.0",
	"onnxruntime":  "1.16.0",
	"diffusers":    "0.21.0",
	"transformers": "4.30.0",
	"numpy":        "1.24.0",
}

// AlternativeFor returns the substitute package for the architecture,
// or empty when none is defined.
func AlternativeFor(arch, pkg string) string {
	return alternatives[arch][pkg]
}

func minimalVersion(pkg string) string {
	return minimalVersions[pkg]
}
