package console

import (
	"context"
	"time"

	clog "github.com/baaaaaaaka/caspar-console/internal/log"
	"github.com/baaaaaaaka/caspar-console/internal/metrics"
	"github.com/baaaaaaaka/caspar-console/internal/sysinfo"
)

type Step string

const (
	StepSettings Step = "settings"
	StepSetup    Step = "setup"
	StepProfiles Step = "profiles"
	StepSelect   Step = "select"
	StepConnect  Step = "connect"
	StepDevices  Step = "devices"
	StepVersions Step = "versions"
)

// StepResult records one startup step. Err is nil when the step succeeded.
type StepResult struct {
	Step Step
	Err  error
}

type StartupReport struct {
	Steps      []StepResult
	NeedsSetup bool
}

// Ran reports whether step was attempted.
func (r StartupReport) Ran(step Step) bool {
	for _, s := range r.Steps {
		if s.Step == step {
			return true
		}
	}
	return false
}

// Err returns the failure of step, or nil.
func (r StartupReport) Err(step Step) error {
	for _, s := range r.Steps {
		if s.Step == step {
			return s.Err
		}
	}
	return nil
}

// Startup restores the previous session: settings, profile listing, the
// last profile, the last connection, then devices and versions. Failures
// after the setup check are recorded and do not stop later steps.
func (c *Console) Startup(ctx context.Context) StartupReport {
	var report StartupReport
	record := func(step Step, start time.Time, err error) {
		metrics.ObserveStartupStep(string(step), time.Since(start), err)
		report.Steps = append(report.Steps, StepResult{Step: step, Err: err})
		if err != nil {
			c.log.Warn().Err(err).Str(clog.FieldStep, string(step)).Msg("startup step failed")
		}
	}

	start := time.Now()
	settings := c.Settings().Load(ctx)
	record(StepSettings, start, nil)

	if settings.InstallPath() == "" {
		c.mu.Lock()
		c.needsSetup = true
		c.mu.Unlock()
		report.NeedsSetup = true
		report.Steps = append(report.Steps, StepResult{Step: StepSetup})
		c.log.Info().Msg("install path not configured, setup required")
		return report
	}
	c.mu.Lock()
	c.needsSetup = false
	c.mu.Unlock()

	start = time.Now()
	c.Profiles().List(ctx)
	record(StepProfiles, start, nil)

	if settings.LastProfile != nil && *settings.LastProfile != "" {
		start = time.Now()
		record(StepSelect, start, c.Profiles().Select(ctx, *settings.LastProfile))
	}

	if host, port, ok := settings.LastEndpoint(); ok && settings.LastServerWasRunning {
		start = time.Now()
		record(StepConnect, start, c.Control().Connect(ctx, host, port))
	}

	start = time.Now()
	_, err := c.Devices().Refresh(ctx)
	record(StepDevices, start, err)

	start = time.Now()
	_, err = c.RefreshVersions(ctx)
	record(StepVersions, start, err)

	return report
}

// RefreshVersions collects component versions. A partial result is kept
// together with the joined error. The server version of a live session fills
// a missing CasparCG entry.
func (c *Console) RefreshVersions(ctx context.Context) (sysinfo.Versions, error) {
	var (
		v   sysinfo.Versions
		err error
	)
	if c.b.Versions != nil {
		v, err = c.b.Versions.Collect(ctx)
	}
	c.mu.Lock()
	if v.Caspar == "" && c.conn.State == Connected {
		v.Caspar = c.conn.Version
	}
	c.versions = v
	c.mu.Unlock()
	return v, err
}
