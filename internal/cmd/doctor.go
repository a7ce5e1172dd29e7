package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rigup/internal/execx"
	"github.com/felixgeelhaar/rigup/internal/profile"
	"github.com/felixgeelhaar/rigup/internal/sysinfo"
)

var doctorJSON bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run machine diagnostics before an installation",
	Long: `Run diagnostics to check whether this machine can host the demo.

Checks include:
  • Hardware profile detection (Snapdragon X Elite / Intel Core Ultra)
  • Memory and disk headroom against the profile's requirements
  • Python runtime and pip availability
  • Network reachability of the model download sources

Examples:
  rigup doctor
  rigup doctor --json`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output diagnostics as JSON")

	rootCmd.AddCommand(doctorCmd)
}

// DoctorReport is the complete diagnostics result
type DoctorReport struct {
	Hardware  *DoctorCheck            `json:"hardware"`
	Memory    *DoctorCheck            `json:"memory"`
	Disk      *DoctorCheck            `json:"disk"`
	Python    *DoctorCheck            `json:"python"`
	Pip       *DoctorCheck            `json:"pip"`
	Sources   map[string]*DoctorCheck `json:"sources"`
	Issues    []string                `json:"issues"`
	Warnings  []string                `json:"warnings"`
	NextSteps []string                `json:"next_steps"`
	Healthy   bool                    `json:"healthy"`
}

// DoctorCheck is a single diagnostic result
type DoctorCheck struct {
	Name    string                 `json:"name"`
	Status  string                 `json:"status"` // "ok", "warning", "error"
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	info, err := sysinfo.Collect(ctx)
	if err != nil {
		return err
	}

	prof, err := profile.Builtin(sysinfo.DetectProfile(info))
	if err != nil {
		return err
	}

	report := &DoctorReport{
		Sources:   make(map[string]*DoctorCheck),
		Issues:    []string{},
		Warnings:  []string{},
		NextSteps: []string{},
	}

	checkHardware(info, prof, report)
	checkMemoryAndDisk(info, prof, report)
	checkPython(ctx, prof, report)
	checkSources(ctx, prof, report)
	doctorNextSteps(report)

	report.Healthy = len(report.Issues) == 0

	if doctorJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal diagnostics: %w", err)
		}
		cmd.Println(string(data))
		if !report.Healthy {
			return fmt.Errorf("machine diagnostics failed")
		}
		return nil
	}

	return printDoctorReport(cmd, report)
}

func checkHardware(info *sysinfo.Info, prof *profile.Profile, report *DoctorReport) {
	model := sysinfo.ProcessorModel(info)

	status := "ok"
	message := fmt.Sprintf("%s (%s), profile %q", model, info.Architecture, prof.Name)
	switch model {
	case "Snapdragon X Elite", "Intel Core Ultra":
	default:
		status = "warning"
		message = fmt.Sprintf("unrecognized processor %q, defaulting to profile %q", info.CPUName, prof.Name)
		report.Warnings = append(report.Warnings, "processor is not a known demo target")
	}

	report.Hardware = &DoctorCheck{
		Name:    "Hardware",
		Status:  status,
		Message: message,
		Details: map[string]interface{}{
			"cpu":          info.CPUName,
			"architecture": info.Architecture,
			"os":           info.OSVersion,
		},
	}
}

func checkMemoryAndDisk(info *sysinfo.Info, prof *profile.Profile, report *DoctorReport) {
	memGB := float64(info.TotalMemoryBytes) / (1 << 30)
	if memGB >= prof.Resources.MemoryGB {
		report.Memory = &DoctorCheck{
			Name:    "Memory",
			Status:  "ok",
			Message: fmt.Sprintf("%.1fGB installed, %.0fGB required", memGB, prof.Resources.MemoryGB),
		}
	} else {
		report.Memory = &DoctorCheck{
			Name:    "Memory",
			Status:  "error",
			Message: fmt.Sprintf("%.1fGB installed but %.0fGB required", memGB, prof.Resources.MemoryGB),
		}
		report.Issues = append(report.Issues, "insufficient memory for the selected profile")
	}

	diskGB := float64(info.FreeDiskBytes) / (1 << 30)
	if diskGB >= prof.Resources.DiskGB {
		report.Disk = &DoctorCheck{
			Name:    "Disk",
			Status:  "ok",
			Message: fmt.Sprintf("%.1fGB free, %.0fGB required", diskGB, prof.Resources.DiskGB),
		}
	} else {
		report.Disk = &DoctorCheck{
			Name:    "Disk",
			Status:  "error",
			Message: fmt.Sprintf("%.1fGB free but %.0fGB required", diskGB, prof.Resources.DiskGB),
		}
		report.Issues = append(report.Issues, "insufficient disk space for the selected profile")
	}
}

func checkPython(ctx context.Context, prof *profile.Profile, report *DoctorReport) {
	runner := execx.NewLocalRunner(30 * time.Second)

	result, err := runner.Run(ctx, prof.Python, "--version")
	if err != nil || result.ExitCode != 0 {
		report.Python = &DoctorCheck{
			Name:    "Python",
			Status:  "error",
			Message: fmt.Sprintf("python interpreter %q not runnable", prof.Python),
		}
		report.Issues = append(report.Issues, "Python runtime not found")
		report.Pip = &DoctorCheck{
			Name:    "pip",
			Status:  "error",
			Message: "skipped, Python runtime missing",
		}
		return
	}

	pythonVersion := result.Stdout + result.Stderr
	report.Python = &DoctorCheck{
		Name:    "Python",
		Status:  "ok",
		Message: fmt.Sprintf("%s available", trimLine(pythonVersion)),
	}

	result, err = runner.Run(ctx, prof.Python, "-m", "pip", "--version")
	if err != nil || result.ExitCode != 0 {
		report.Pip = &DoctorCheck{
			Name:    "pip",
			Status:  "error",
			Message: "pip module not available",
		}
		report.Issues = append(report.Issues, "pip not found in the Python runtime")
		return
	}

	report.Pip = &DoctorCheck{
		Name:    "pip",
		Status:  "ok",
		Message: trimLine(result.Stdout),
	}
}

// checkSources probes every model download source concurrently. A dead
// primary is only a warning while a mirror still answers; all sources
// dead is an issue.
func checkSources(ctx context.Context, prof *profile.Profile, report *DoctorReport) {
	client := &http.Client{Timeout: 10 * time.Second}

	var wg sync.WaitGroup
	var mu sync.Mutex

	reachable := 0
	total := 0

	for _, model := range prof.Models {
		for _, source := range model.Sources {
			if !isHTTPSource(source) {
				continue
			}
			total++
			wg.Add(1)

			go func(url string) {
				defer wg.Done()

				check := &DoctorCheck{Name: url}

				req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
				if err != nil {
					check.Status = "error"
					check.Message = err.Error()
					mu.Lock()
					report.Sources[url] = check
					mu.Unlock()
					return
				}

				start := time.Now()
				resp, err := client.Do(req)
				latency := time.Since(start)

				if err != nil {
					check.Status = "error"
					check.Message = fmt.Sprintf("unreachable: %v", err)
				} else {
					resp.Body.Close()
					check.Status = "ok"
					check.Message = fmt.Sprintf("reachable (status %d, latency %dms)", resp.StatusCode, latency.Milliseconds())
					check.Details = map[string]interface{}{
						"status_code": resp.StatusCode,
						"latency_ms":  latency.Milliseconds(),
					}
					mu.Lock()
					reachable++
					mu.Unlock()
				}

				mu.Lock()
				report.Sources[url] = check
				mu.Unlock()
			}(source)
		}
	}

	wg.Wait()

	if total == 0 {
		return
	}
	if reachable == 0 {
		report.Issues = append(report.Issues, "no model download source reachable")
	} else if reachable < total {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d of %d model sources unreachable, downloads will use mirrors", total-reachable, total))
	}
}

func doctorNextSteps(report *DoctorReport) {
	if report.Python != nil && report.Python.Status == "error" {
		report.NextSteps = append(report.NextSteps, "Install Python 3.10 or later and ensure it is on PATH")
	}
	if report.Disk != nil && report.Disk.Status == "error" {
		report.NextSteps = append(report.NextSteps, "Free disk space or point --install-dir at a larger volume")
	}
	if len(report.Issues) == 0 {
		report.NextSteps = append(report.NextSteps, "Run 'rigup prepare' to provision this machine")
	}
}

func printDoctorReport(cmd *cobra.Command, report *DoctorReport) error {
	cmd.Println()
	cmd.Println("Machine Diagnostics")
	cmd.Println()

	for _, check := range []*DoctorCheck{report.Hardware, report.Memory, report.Disk, report.Python, report.Pip} {
		if check != nil {
			printDoctorCheck(cmd, check)
		}
	}

	if len(report.Sources) > 0 {
		cmd.Println()
		cmd.Println("Model sources:")
		for _, url := range sortedCheckKeys(report.Sources) {
			printDoctorCheck(cmd, report.Sources[url])
		}
	}

	if len(report.Issues) > 0 {
		cmd.Println()
		cmd.Println("Issues:")
		for _, issue := range report.Issues {
			cmd.Printf("   • %s\n", issue)
		}
	}

	if len(report.Warnings) > 0 {
		cmd.Println()
		cmd.Println("Warnings:")
		for _, warning := range report.Warnings {
			cmd.Printf("   • %s\n", warning)
		}
	}

	if len(report.NextSteps) > 0 {
		cmd.Println()
		cmd.Println("Next steps:")
		for i, step := range report.NextSteps {
			cmd.Printf("   %d. %s\n", i+1, step)
		}
	}

	cmd.Println()
	if report.Healthy {
		cmd.Println("✓ Machine is ready to provision")
		return nil
	}

	cmd.Println("✗ Machine has issues that need attention")
	return fmt.Errorf("machine diagnostics failed")
}

func trimLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

func isHTTPSource(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func sortedCheckKeys(m map[string]*DoctorCheck) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printDoctorCheck(cmd *cobra.Command, check *DoctorCheck) {
	icon := "✓"
	switch check.Status {
	case "warning":
		icon = "⚠"
	case "error":
		icon = "✗"
	}
	cmd.Printf("  %s %s: %s\n", icon, check.Name, check.Message)
}
