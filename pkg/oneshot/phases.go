package oneshot

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/multierr"
)

// PrepareWorkingDirectory recreates the build directory and runs the configure command inside it.
// It only does something for fresh builds; a rebuild reuses the existing directory as is.
func PrepareWorkingDirectory(ctx context.Context, cfg BuildConfig, runner Runner) error {
	buildDir := cfg.Paths.BuildDir
	if !cfg.Fresh {
		_, err := os.Stat(buildDir)
		if err != nil {
			log(ctx).Warn().
				Str("phase", "prepare").
				Str("path", buildDir).
				Msgf("Reusing %s but it can't be accessed: %s", buildDir, err)
		} else {
			log(ctx).Info().Str("phase", "prepare").Msg("Rebuild requested; keeping the existing build directory")
		}
		return nil
	}

	info, err := os.Stat(buildDir)
	if err == nil && info.IsDir() {
		log(ctx).Debug().Str("phase", "prepare").Str("path", buildDir).Msgf("Removing %s", buildDir)

		if err = os.RemoveAll(buildDir); err != nil {
			// not fatal, the mkdir below will tell us if the directory is unusable
			log(ctx).Error().
				Str("phase", "prepare").
				Str("path", buildDir).
				Err(eris.Wrapf(err, "Can not remove directory %s", buildDir)).
				Msgf("Can not remove directory %s", buildDir)
		}
	}

	if err = os.MkdirAll(buildDir, 0o770); err != nil {
		return eris.Wrapf(err, "Can not create directory %s", buildDir)
	}

	log(ctx).Info().
		Str("phase", "prepare").
		Str("path", buildDir).
		Msgf("Temporary directory %s has been created", buildDir)

	if err = runner.Run(ctx, buildDir, cfg.Commands.Configure); err != nil {
		return eris.Wrapf(err, "Configure failed in %s", buildDir)
	}

	return nil
}

// RunBuild runs the make command inside the build directory
func RunBuild(ctx context.Context, cfg BuildConfig, runner Runner) error {
	if err := runner.Run(ctx, cfg.Paths.BuildDir, cfg.Commands.Make); err != nil {
		return eris.Wrapf(err, "Error during making resource in %s", cfg.Paths.BuildDir)
	}

	return nil
}

// FinalizeArtifact copies the data file produced by make into the data directory, removes the build
// directory (unless intermediates are kept), runs the data generator and moves its output over the copy.
// All steps are attempted; their errors are combined.
func FinalizeArtifact(ctx context.Context, cfg BuildConfig, runner Runner) error {
	var result error
	art := cfg.Artifacts

	err := CopyFile(ctx, art.Source, art.Intermediate, true)
	if err != nil {
		result = multierr.Append(result, eris.Wrapf(err, "Can not copy %s", art.Source))
	} else {
		log(ctx).Info().
			Str("phase", "finalize").
			Str("path", art.Intermediate).
			Msgf("Copied data file to %s", art.Intermediate)
	}

	if cfg.KeepIntermediates {
		log(ctx).Info().
			Str("phase", "finalize").
			Str("path", cfg.Paths.BuildDir).
			Msgf("Debug mode; keeping %s", cfg.Paths.BuildDir)
	} else if err = os.RemoveAll(cfg.Paths.BuildDir); err != nil {
		result = multierr.Append(result, eris.Wrapf(err, "Can not remove directory %s", cfg.Paths.BuildDir))
	}

	if err = runner.Run(ctx, cfg.Paths.DataDir, cfg.Commands.Generator); err != nil {
		result = multierr.Append(result, eris.Wrapf(err, "Data generator failed in %s", cfg.Paths.DataDir))
	}

	// os.Rename replaces the intermediate copy. If the generator didn't produce anything, the copy stays.
	if err = os.Rename(art.Generated, art.Intermediate); err != nil {
		result = multierr.Append(result, eris.Wrapf(err, "Can not move %s to %s", art.Generated, art.Intermediate))
	}

	return result
}
