package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rigup/internal/checkpoint"
	"github.com/felixgeelhaar/rigup/internal/download"
	"github.com/felixgeelhaar/rigup/internal/evaluate"
	"github.com/felixgeelhaar/rigup/internal/execx"
	"github.com/felixgeelhaar/rigup/internal/log"
	"github.com/felixgeelhaar/rigup/internal/pipeline"
	"github.com/felixgeelhaar/rigup/internal/pkginstall"
	"github.com/felixgeelhaar/rigup/internal/profile"
	"github.com/felixgeelhaar/rigup/internal/report"
	"github.com/felixgeelhaar/rigup/internal/resource"
	"github.com/felixgeelhaar/rigup/internal/retry"
	"github.com/felixgeelhaar/rigup/internal/sysinfo"
)

var (
	prepareProfile       string
	prepareCheckOnly     bool
	prepareForce         bool
	prepareResume        bool
	prepareSkipModels    bool
	prepareOffline       bool
	prepareInstallDir    string
	prepareCheckpointDir string
	prepareReportDir     string
	prepareCacheDir      string
	prepareIndexURL      string
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Provision this machine for the demo",
	Long: `Provision this machine for the AI image-generation demo.

The installation runs as a checkpointed step pipeline: hardware
detection, resource preflight, Python environment setup, package
installation with multi-tier fallback, acceleration provider selection,
model downloads with mirror fallback, and a final readiness score.

Critical step failures abort the run; resume after fixing the cause
with --resume, or downgrade them to warnings with --force.

Examples:
  rigup prepare
  rigup prepare --profile snapdragon
  rigup prepare --resume
  rigup prepare --check-only
  rigup prepare --profile ./custom-profile.yaml --skip-model-download`,
	RunE: runPrepare,
}

func init() {
	prepareCmd.Flags().StringVar(&prepareProfile, "profile", "auto", "target profile: auto, intel, snapdragon, or a profile YAML path")
	prepareCmd.Flags().BoolVar(&prepareCheckOnly, "check-only", false, "run checks without making changes")
	prepareCmd.Flags().BoolVar(&prepareForce, "force", false, "downgrade critical failures to warnings and continue")
	prepareCmd.Flags().BoolVar(&prepareResume, "resume", false, "resume from an existing checkpoint")
	prepareCmd.Flags().BoolVar(&prepareSkipModels, "skip-model-download", false, "skip the model download step")
	prepareCmd.Flags().BoolVar(&prepareOffline, "offline", false, "skip steps that need network connectivity")
	prepareCmd.Flags().StringVar(&prepareInstallDir, "install-dir", ".rigup", "directory for the venv, models, and launcher")
	prepareCmd.Flags().StringVar(&prepareCheckpointDir, "checkpoint-dir", defaultCheckpointDir, "directory for checkpoint files")
	prepareCmd.Flags().StringVar(&prepareReportDir, "report-dir", defaultReportDir, "directory for run reports")
	prepareCmd.Flags().StringVar(&prepareCacheDir, "wheel-cache", "", "local wheel cache searched before the network")
	prepareCmd.Flags().StringVar(&prepareIndexURL, "index-url", "", "alternate package index for fallback installs")

	rootCmd.AddCommand(prepareCmd)
}

const (
	defaultCheckpointDir = ".rigup/checkpoints"
	defaultReportDir     = ".rigup/reports"
)

func runPrepare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := log.DefaultLogger()

	info, err := sysinfo.Collect(ctx)
	if err != nil {
		return err
	}
	logger.Info("hardware detected",
		"cpu", info.CPUName,
		"architecture", info.Architecture,
		"memory_gb", fmt.Sprintf("%.1f", float64(info.TotalMemoryBytes)/(1<<30)),
		"model", sysinfo.ProcessorModel(info))

	prof, err := resolveProfile(info)
	if err != nil {
		return err
	}
	logger.Info("using profile", "profile", prof.Name, "description", prof.Description)

	machineID := info.Fingerprint()
	mgr := checkpoint.NewManager(prepareCheckpointDir)

	runner := execx.NewLocalRunner(15 * time.Minute)
	env := &prepareEnv{
		info:    info,
		profile: prof,
		runner:  runner,
		logger:  logger,
	}
	env.buildComponents()

	if prepareCheckOnly {
		return env.runChecksOnly(ctx, cmd)
	}

	steps := env.buildSteps()
	state := resumeOrFresh(mgr, prof.Name, machineID, len(steps), logger)

	rc := &pipeline.Context{
		State:   state,
		Manager: mgr,
		Options: pipeline.Options{
			Force:             prepareForce,
			Resume:            prepareResume,
			SkipModelDownload: prepareSkipModels,
			Offline:           prepareOffline,
		},
		Logger: logger,
	}

	p := &pipeline.Pipeline{
		Steps:    steps,
		Evaluate: env.evaluateRun,
	}

	runErr := p.Run(ctx, rc)

	rep := buildReport(prof.Name, machineID, rc)
	if path, saveErr := rep.Save(prepareReportDir); saveErr != nil {
		logger.Warn("failed to persist run report", "error", saveErr.Error())
	} else {
		logger.Info("run report saved", "path", path)
	}
	cmd.Println(rep.Render())

	return runErr
}

// resumeOrFresh loads the checkpoint when --resume was given and it is
// safe to reuse. State recorded on different hardware is never reused
// silently: a machine-ID mismatch warns loudly and starts fresh.
func resumeOrFresh(mgr *checkpoint.Manager, profileName, machineID string, totalSteps int, logger *log.Logger) *checkpoint.State {
	if !prepareResume {
		return checkpoint.NewState(machineID, profileName, totalSteps)
	}

	state, err := mgr.Load(profileName)
	if err != nil {
		logger.Warn("cannot resume checkpoint, starting fresh", "error", err.Error())
		return checkpoint.NewState(machineID, profileName, totalSteps)
	}

	if state.MachineID != machineID {
		logger.Warn("checkpoint belongs to different hardware, starting fresh",
			"checkpoint_machine", state.MachineID,
			"this_machine", machineID)
		return checkpoint.NewState(machineID, profileName, totalSteps)
	}

	logger.Info("resuming from checkpoint",
		"completed_steps", len(state.CompletedSteps),
		"failed_steps", len(state.FailedSteps))
	state.TotalSteps = totalSteps
	return state
}

func resolveProfile(info *sysinfo.Info) (*profile.Profile, error) {
	switch prepareProfile {
	case "auto":
		return profile.Builtin(sysinfo.DetectProfile(info))
	case "intel":
		return profile.Builtin(sysinfo.ProfileIntel)
	case "snapdragon":
		return profile.Builtin(sysinfo.ProfileSnapdragon)
	default:
		return profile.Load(prepareProfile)
	}
}

// prepareEnv bundles the components a prepare run wires together
type prepareEnv struct {
	info    *sysinfo.Info
	profile *profile.Profile
	runner  execx.Runner
	logger  *log.Logger

	monitor    *resource.Monitor
	installer  *pkginstall.Installer
	downloader *download.Downloader
}

func (e *prepareEnv) buildComponents() {
	e.monitor = resource.NewMonitor(e.logger)
	e.monitor.Force = prepareForce

	e.installer = pkginstall.NewInstaller(e.runner, e.info.Architecture, e.logger)
	e.installer.Python = e.profile.Python
	e.installer.CacheDir = prepareCacheDir
	e.installer.IndexURL = prepareIndexURL
	e.installer.Offline = prepareOffline
	e.installer.Retry = retry.New(retry.Options{
		MaxAttempts:  4,
		InitialDelay: 2 * time.Second,
		Hook:         resource.RecoveryHook(e.logger),
		Logger:       e.logger,
	})

	e.downloader = download.NewDownloader(e.logger)
	e.downloader.Progress = downloadProgress(e.logger)
}

func (e *prepareEnv) venvDir() string {
	return filepath.Join(prepareInstallDir, "venv")
}

func (e *prepareEnv) modelDestination(m profile.Model) string {
	return filepath.Join(prepareInstallDir, m.Destination)
}

// evaluateRun derives the component checks from the run's recorded
// facts and scores them with the default weights.
func (e *prepareEnv) evaluateRun(_ context.Context, rc *pipeline.Context) evaluate.Result {
	envTrue := func(key string) bool {
		v, ok := rc.State.GetEnv(key)
		return ok && v == "ok"
	}

	providerName, providerOK := rc.State.GetEnv("provider")

	checks := map[string]bool{
		evaluate.ComponentRuntime:      envTrue("runtime"),
		evaluate.ComponentEnvironment:  envTrue("venv"),
		evaluate.ComponentAcceleration: providerOK && providerName != "CPU",
		evaluate.ComponentModels:       envTrue("models"),
		evaluate.ComponentPackages:     envTrue("packages"),
		evaluate.ComponentPerfTest:     envTrue("perftest"),
	}

	return evaluate.Evaluate(checks, evaluate.DefaultWeights())
}

func buildReport(profileName, machineID string, rc *pipeline.Context) *report.Report {
	rep := report.New(profileName, machineID)
	rep.FinishedAt = time.Now()
	rep.CompletedSteps = rc.State.CompletedSteps
	rep.FailedSteps = rc.State.FailedSteps
	rep.SkippedSteps = rc.State.SkippedSteps
	rep.Warnings = rc.Warnings()

	if rc.State.Evaluation != nil {
		rep.Score = rc.State.Evaluation.Score
		rep.Level = rc.State.Evaluation.Level
		rep.Components = rc.State.Evaluation.Components
	}

	if name, ok := rc.State.GetEnv("provider"); ok {
		rep.SelectedProvider = name
	}
	rep.SkippedProviders = make(map[string]string)
	for key, value := range rc.State.Environment {
		if after, found := strings.CutPrefix(key, "provider.skip."); found {
			rep.SkippedProviders[after] = value
		}
	}

	return rep
}

// downloadProgress logs throttled progress updates
func downloadProgress(logger *log.Logger) download.ProgressFunc {
	var lastLogged time.Time
	return func(written, total int64) {
		if time.Since(lastLogged) < 5*time.Second {
			return
		}
		lastLogged = time.Now()
		if total > 0 {
			logger.Info("downloading",
				"progress", fmt.Sprintf("%.1f%%", float64(written)/float64(total)*100),
				"written_mb", written/(1<<20))
		} else {
			logger.Info("downloading", "written_mb", written/(1<<20))
		}
	}
}
