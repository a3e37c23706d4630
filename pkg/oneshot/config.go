package oneshot

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Policy decides what happens after a phase failed
type Policy int

const (
	// ContinueOnError logs the failure and attempts the remaining phases
	ContinueOnError Policy = iota
	// FailFast stops the run after the first failed phase
	FailFast
)

func (p Policy) String() string {
	switch p {
	case ContinueOnError:
		return "continue"
	case FailFast:
		return "fail-fast"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Options contains the values passed on the command line
type Options struct {
	Fresh             bool
	KeepIntermediates bool
	Strict            bool
	ConfigFile        string
}

// DefaultOptions returns the options used when no flags are passed
func DefaultOptions() Options {
	return Options{Fresh: true}
}

// BuildPaths contains the absolute paths derived from the working directory
type BuildPaths struct {
	Root     string
	BuildDir string
	DataDir  string
}

// Commands contains the shell command lines for each external tool
type Commands struct {
	Configure string
	Make      string
	Generator string
}

// Artifacts contains the absolute paths of every file touched by the finalize phase
type Artifacts struct {
	// Source is the data file produced by make
	Source string

	// Intermediate is the copy of Source inside the data directory; it is replaced by Generated
	Intermediate string

	// Generated is the file written by the data generator
	Generated string
}

// BuildConfig is built once before the first phase and never modified afterwards
type BuildConfig struct {
	Paths             BuildPaths
	Commands          Commands
	Artifacts         Artifacts
	Fresh             bool
	KeepIntermediates bool
	Policy            Policy
}

// NewBuildConfig derives a BuildConfig from the working directory, the settings and the CLI options
func NewBuildConfig(root string, settings *Settings, opts Options) (BuildConfig, error) {
	var cfg BuildConfig

	if err := settings.Validate(); err != nil {
		return cfg, err
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return cfg, eris.Wrapf(err, "Failed to resolve %s", root)
	}

	paths := BuildPaths{
		Root:     root,
		BuildDir: filepath.Join(root, settings.BuildDir),
		DataDir:  filepath.Join(root, settings.DataDir),
	}

	if !isSubdir(paths.Root, paths.BuildDir) {
		return cfg, eris.Errorf("Build directory %s is not inside %s", paths.BuildDir, paths.Root)
	}

	cfg.Paths = paths
	cfg.Commands = Commands{
		Configure: settings.Configure,
		Make:      fmt.Sprintf("%s -j%d", settings.Make, settings.MakeJobs),
		Generator: settings.Generator,
	}
	cfg.Artifacts = Artifacts{
		Source:       filepath.Join(paths.BuildDir, filepath.FromSlash(settings.DataFile)),
		Intermediate: filepath.Join(paths.DataDir, settings.Intermediate),
		Generated:    filepath.Join(paths.DataDir, settings.Generated),
	}
	cfg.Fresh = opts.Fresh
	cfg.KeepIntermediates = opts.KeepIntermediates

	if opts.Strict || settings.Strict {
		cfg.Policy = FailFast
	} else {
		cfg.Policy = ContinueOnError
	}

	return cfg, nil
}

func isSubdir(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}

	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
