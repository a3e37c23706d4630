package oneshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type runnerCall struct {
	Dir     string
	Command string

	// DirExisted records whether Dir existed when the command was started
	DirExisted bool
}

// fakeRunner records all commands. Handlers can simulate the side effects of a command.
type fakeRunner struct {
	calls    []runnerCall
	handlers map[string]func(dir string) error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{handlers: make(map[string]func(dir string) error)}
}

func (r *fakeRunner) Run(ctx context.Context, dir, command string) error {
	_, err := os.Stat(dir)
	r.calls = append(r.calls, runnerCall{Dir: dir, Command: command, DirExisted: err == nil})

	if handler, ok := r.handlers[command]; ok {
		return handler(dir)
	}
	return nil
}

func (r *fakeRunner) commands() []string {
	result := make([]string, len(r.calls))
	for idx, call := range r.calls {
		result[idx] = call.Command
	}
	return result
}

func (r *fakeRunner) failWith(command string, msg string) {
	r.handlers[command] = func(string) error {
		return eris.New(msg)
	}
}

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return WithLogger(context.Background(), &logger)
}

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o770))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o660))
}

func readFile(t *testing.T, path string) string {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func defaultSettings() *Settings {
	return &Settings{
		BuildDir:     "icuBuid",
		DataDir:      "stubdata",
		Configure:    "../runConfigureICU Linux",
		Make:         "make",
		MakeJobs:     2,
		Generator:    "./icu_dat_generator.py",
		DataFile:     "data/out/tmp/icudt51l.dat",
		Intermediate: "icudt51l-all.dat",
		Generated:    "icudt51l-default.dat",
		LogLevel:     "info",
	}
}

// testConfig returns a BuildConfig rooted in a fresh temporary directory which already contains the data directory
func testConfig(t *testing.T, opts Options) BuildConfig {
	root := t.TempDir()
	cfg, err := NewBuildConfig(root, defaultSettings(), opts)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(cfg.Paths.DataDir, 0o770))
	return cfg
}

// simulateToolchain makes the fake make produce the data file and the fake generator write its output
func simulateToolchain(t *testing.T, r *fakeRunner, cfg BuildConfig) {
	r.handlers[cfg.Commands.Make] = func(string) error {
		writeFile(t, cfg.Artifacts.Source, "make output")
		return nil
	}
	r.handlers[cfg.Commands.Generator] = func(dir string) error {
		require.Equal(t, "make output", readFile(t, cfg.Artifacts.Intermediate))
		writeFile(t, filepath.Join(dir, "icudt51l-default.dat"), "generated")
		return nil
	}
}
