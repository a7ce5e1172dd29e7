package pkginstall

import "fmt"

// strategy is one rung of the fallback chain. skip returns a non-empty
// reason when the strategy does not apply to this installer or request;
// args renders the pip arguments after "install".
type strategy struct {
	name      string
	networked bool
	skip      func(i *Installer, req Request) string
	args      func(i *Installer, req Request) []string
}

func never(*Installer, Request) string { return "" }

// strategies returns the chain in its fixed order: local cache, prebuilt
// binary, alternate index, source build, alternative package, minimal
// version.
func (i *Installer) strategies() []strategy {
	return []strategy{
		{
			name: "cached-wheel",
			skip: func(i *Installer, _ Request) string {
				if i.CacheDir == "" {
					return "no cache directory configured"
				}
				return ""
			},
			args: func(i *Installer, req Request) []string {
				return []string{"--no-index", "--find-links", i.CacheDir, req.Spec()}
			},
		},
		{
			name:      "prebuilt-binary",
			networked: true,
			skip:      skipOffline,
			args: func(_ *Installer, req Request) []string {
				return []string{"--only-binary", ":all:", req.Spec()}
			},
		},
		{
			name:      "alternate-index",
			networked: true,
			skip: func(i *Installer, _ Request) string {
				if i.Offline {
					return "offline mode"
				}
				if i.IndexURL == "" {
					return "no alternate index configured"
				}
				return ""
			},
			args: func(i *Installer, req Request) []string {
				return []string{"--index-url", i.IndexURL, req.Spec()}
			},
		},
		{
			name:      "source-build",
			networked: true,
			skip:      skipOffline,
			args: func(_ *Installer, req Request) []string {
				// Build tooling rides along so a cold environment can
				// compile from sdist.
				return []string{"--no-binary", ":all:", "setuptools", "wheel", req.Spec()}
			},
		},
		{
			name:      "alternative-package",
			networked: true,
			skip: func(i *Installer, req Request) string {
				if i.Offline {
					return "offline mode"
				}
				if AlternativeFor(i.Arch, req.Name) == "" {
					return fmt.Sprintf("no %s alternative for %s", i.Arch, req.Name)
				}
				return ""
			},
			args: func(i *Installer, req Request) []string {
				return []string{AlternativeFor(i.Arch, req.Name)}
			},
		},
		{
			name:      "minimal-version",
			networked: true,
			skip: func(i *Installer, req Request) string {
				if i.Offline {
					return "offline mode"
				}
				if req.Version == "" && minimalVersion(req.Name) == "" {
					return "no version pin to relax"
				}
				return ""
			},
			args: func(_ *Installer, req Request) []string {
				if min := minimalVersion(req.Name); min != "" {
					return []string{fmt.Sprintf("%s==%s", req.Name, min)}
				}
				// Last resort: drop the pin and take whatever resolves.
				return []string{req.Name}
			},
		},
	}
}

func skipOffline(i *Installer, _ Request) string {
	if i.Offline {
		return "offline mode"
	}
	return ""
}
