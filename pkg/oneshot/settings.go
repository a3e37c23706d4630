package oneshot

import (
	"path/filepath"
	"strings"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// DefaultSettingsFile is picked up from the working directory if it exists
const DefaultSettingsFile = "oneshot.yml"

// Settings describes all tunables that aren't exposed as CLI flags
type Settings struct {
	BuildDir string `default:"icuBuid" json:"build_dir" yaml:"build_dir" usage:"Build directory, relative to the working directory"`
	DataDir  string `default:"stubdata" json:"data_dir" yaml:"data_dir" usage:"Stub data directory, relative to the working directory"`

	Configure string `default:"../runConfigureICU Linux" json:"configure" yaml:"configure" usage:"Configure command, run inside the build directory"`
	Make      string `default:"make" json:"make" yaml:"make" usage:"Make command, run inside the build directory"`
	MakeJobs  int    `default:"2" json:"make_jobs" yaml:"make_jobs" usage:"Parallel make jobs"`
	Generator string `default:"./icu_dat_generator.py" json:"generator" yaml:"generator" usage:"Data generator, run inside the data directory"`

	DataFile     string `default:"data/out/tmp/icudt51l.dat" json:"data_file" yaml:"data_file" usage:"Data file produced by make, relative to the build directory"`
	Intermediate string `default:"icudt51l-all.dat" json:"intermediate" yaml:"intermediate" usage:"Name of the copied data file and of the final artifact"`
	Generated    string `default:"icudt51l-default.dat" json:"generated" yaml:"generated" usage:"Name of the file written by the data generator"`

	Strict   bool   `default:"false" json:"strict" yaml:"strict" usage:"Abort after the first failed phase"`
	LogLevel string `default:"info" json:"log_level" yaml:"log_level" usage:"debug, info, warn or error"`
}

var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// SettingsLoader initializes an empty Settings object and returns a new Loader for it.
// If file is empty, DefaultSettingsFile inside root is used when present.
func SettingsLoader(root, file string) (*Settings, *aconfig.Loader) {
	cfg := Settings{}
	acfg := aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "ONESHOT",
		Files:     []string{filepath.Join(root, DefaultSettingsFile)},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yml":  aconfigyaml.New(),
			".yaml": aconfigyaml.New(),
		},
	}

	// ONESHOT_DEBUG belongs to the console writer
	acfg.AllowUnknownEnvs = true

	if file != "" {
		acfg.Files = []string{file}
		acfg.FailOnFileNotFound = true
	}

	return &cfg, aconfig.LoaderFor(&cfg, acfg)
}

// LoadSettings loads, validates and returns the settings
func LoadSettings(root, file string) (*Settings, error) {
	cfg, loader := SettingsLoader(root, file)
	if err := loader.Load(); err != nil {
		if file != "" {
			return nil, eris.Wrapf(err, "Failed to load settings from %s", file)
		}
		return nil, eris.Wrap(err, "Failed to load settings")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func checkRelDir(name, value string) error {
	if value == "" {
		return eris.Errorf("Invalid value for %s: must not be empty", name)
	}

	if filepath.IsAbs(value) {
		return eris.Errorf("Invalid value for %s: %s is not a relative path", name, value)
	}

	clean := filepath.Clean(value)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return eris.Errorf("Invalid value for %s: %s is outside of the working directory", name, value)
	}

	return nil
}

// Validate verifies that all fields have valid values
func (cfg *Settings) Validate() error {
	if err := checkRelDir("build_dir", cfg.BuildDir); err != nil {
		return err
	}

	if filepath.Clean(cfg.BuildDir) == "." {
		return eris.New("Invalid value for build_dir: the build directory can't be the working directory")
	}

	if err := checkRelDir("data_dir", cfg.DataDir); err != nil {
		return err
	}

	if cfg.MakeJobs < 1 {
		return eris.Errorf("Invalid value for make_jobs: %d (must be at least 1)", cfg.MakeJobs)
	}

	for name, value := range map[string]string{
		"data_file":    cfg.DataFile,
		"intermediate": cfg.Intermediate,
		"generated":    cfg.Generated,
	} {
		if value == "" {
			return eris.Errorf("Invalid value for %s: must not be empty", name)
		}
	}

	if _, ok := logLevels[cfg.LogLevel]; !ok {
		return eris.Errorf("Invalid value for log_level: %s", cfg.LogLevel)
	}

	return nil
}

// Level converts the LogLevel field to a zerolog.Level
func (cfg *Settings) Level() zerolog.Level {
	return logLevels[cfg.LogLevel]
}
