package oneshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phaseNames(report Report) []string {
	names := make([]string, len(report))
	for idx, item := range report {
		names[idx] = item.Phase
	}
	return names
}

func TestOrchestratorFullRun(t *testing.T) {
	ctx := testContext(t)
	cfg := testConfig(t, DefaultOptions())
	runner := newFakeRunner()
	simulateToolchain(t, runner, cfg)

	var seen []string
	orch := NewOrchestrator(cfg, runner)
	orch.OnPhase = func(phase Phase) {
		seen = append(seen, phase.Name)
	}

	report, err := orch.Run(ctx)
	require.NoError(t, err)
	assert.False(t, report.Failed())
	assert.NoError(t, report.Err())
	assert.Equal(t, []string{"prepare", "build", "finalize"}, seen)
	assert.Equal(t, []string{"../runConfigureICU Linux", "make -j2", "./icu_dat_generator.py"}, runner.commands())

	assert.Equal(t, "generated", readFile(t, filepath.Join(cfg.Paths.DataDir, "icudt51l-all.dat")))
	assert.NoDirExists(t, cfg.Paths.BuildDir)
}

func TestOrchestratorContinuesAfterFailedBuild(t *testing.T) {
	ctx := testContext(t)
	cfg := testConfig(t, DefaultOptions())
	require.Equal(t, ContinueOnError, cfg.Policy)
	runner := newFakeRunner()
	runner.failWith(cfg.Commands.Make, "make: *** [all] Error 2")

	report, err := NewOrchestrator(cfg, runner).Run(ctx)
	require.NoError(t, err)
	require.True(t, report.Failed())
	assert.Equal(t, []string{"prepare", "build", "finalize"}, phaseNames(report))
	assert.NoError(t, report[0].Err)
	assert.Error(t, report[1].Err)
	assert.Contains(t, runner.commands(), "./icu_dat_generator.py", "finalize has to be attempted")
}

func TestOrchestratorStrictStopsAfterFailedBuild(t *testing.T) {
	ctx := testContext(t)
	cfg := testConfig(t, Options{Fresh: true, Strict: true})
	require.Equal(t, FailFast, cfg.Policy)
	runner := newFakeRunner()
	runner.failWith(cfg.Commands.Make, "make: *** [all] Error 2")

	report, err := NewOrchestrator(cfg, runner).Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build")
	assert.Equal(t, []string{"../runConfigureICU Linux", "make -j2"}, runner.commands())

	require.Len(t, report, 3)
	assert.True(t, report[2].Skipped)
	assert.NoError(t, report[2].Err)
	assert.DirExists(t, cfg.Paths.BuildDir)
}

func TestOrchestratorRebuildNeverDeletesBuildDir(t *testing.T) {
	ctx := testContext(t)
	cfg := testConfig(t, Options{Fresh: false, KeepIntermediates: true})
	object := filepath.Join(cfg.Paths.BuildDir, "i18n", "coll.o")
	writeFile(t, object, "object")

	runner := newFakeRunner()
	runner.handlers[cfg.Commands.Make] = func(string) error {
		assert.FileExists(t, object, "build directory was touched before make")
		writeFile(t, cfg.Artifacts.Source, "make output")
		return nil
	}

	_, err := NewOrchestrator(cfg, runner).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"make -j2", "./icu_dat_generator.py"}, runner.commands())
	assert.FileExists(t, object)
}

func TestOrchestratorStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	cancel()
	cfg := testConfig(t, DefaultOptions())
	runner := newFakeRunner()

	report, err := NewOrchestrator(cfg, runner).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, runner.calls)
	assert.Equal(t, []string{"prepare", "build", "finalize"}, phaseNames(report))
}
