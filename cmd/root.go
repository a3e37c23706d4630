package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wcd-oss/icu-oneshot/pkg"
	"github.com/wcd-oss/icu-oneshot/pkg/oneshot"
)

// ErrHelpRequested is returned by ParseArguments if -h or --help was passed
var ErrHelpRequested = eris.New("help requested")

type parsedFlags struct {
	opts    oneshot.Options
	rebuild bool
	help    bool
}

func newRootCmd(flags *parsedFlags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "icu-oneshot",
		Short: "One shot ICU package system",
		Long: `Configures and builds ICU in a temporary directory, then packages the generated
data file as stubdata/icudt51l-all.dat.

Run it from the ICU source directory (the one containing runConfigureICU).`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	f := rootCmd.Flags()
	f.BoolVarP(&flags.opts.Fresh, "new", "n", true, "start a new build (default)")
	f.BoolVarP(&flags.rebuild, "rebuild", "r", false, "rebuild in the existing build directory")
	f.BoolVarP(&flags.opts.KeepIntermediates, "debug", "d", false, "keep the build directory after packaging")
	f.BoolVarP(&flags.opts.Strict, "strict", "s", false, "stop after the first failed phase")
	f.StringVarP(&flags.opts.ConfigFile, "config", "c", "", "settings file (default ./"+oneshot.DefaultSettingsFile+" if present)")
	f.BoolVarP(&flags.help, "help", "h", false, "print this help")
	rootCmd.MarkFlagsMutuallyExclusive("new", "rebuild")

	rootCmd.SetHelpFunc(func(*cobra.Command, []string) {
		flags.help = true
	})

	return rootCmd
}

// ParseArguments turns the command line into Options. It returns ErrHelpRequested if help was requested
// and an error for unknown flags or stray arguments.
func ParseArguments(args []string) (oneshot.Options, error) {
	flags := parsedFlags{opts: oneshot.DefaultOptions()}
	rootCmd := newRootCmd(&flags)

	if args == nil {
		// cobra falls back to os.Args for nil
		args = []string{}
	}

	rootCmd.SetArgs(args)
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)

	if err := rootCmd.Execute(); err != nil {
		return flags.opts, eris.Wrap(err, "Invalid arguments")
	}

	if flags.help {
		return flags.opts, ErrHelpRequested
	}

	flags.opts.Fresh = !flags.rebuild
	return flags.opts, nil
}

// Usage returns the usage text
func Usage() string {
	return newRootCmd(&parsedFlags{}).UsageString()
}

// Execute runs the tool and exits the process
func Execute() {
	wd, err := os.Getwd()
	if err != nil {
		pkg.PrintError(fmt.Sprintf("Failed to retrieve the current working directory: %s", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], wd, os.Stdout, oneshot.NewShellRunner())
	stop()

	os.Exit(code)
}

func run(ctx context.Context, args []string, wd string, out io.Writer, runner oneshot.Runner) int {
	pkg.Output = out

	opts, err := ParseArguments(args)
	if err != nil {
		if !eris.Is(err, ErrHelpRequested) {
			fmt.Fprintln(out, eris.ToString(err, false))
		}
		fmt.Fprint(out, Usage())
		return 1
	}

	pkg.PrintBanner("One Shot ICU Package System V5.1")

	logger := zerolog.New(NewConsoleWriter(out, wd))
	settings, err := oneshot.LoadSettings(wd, opts.ConfigFile)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load settings")
		return 1
	}

	logger = logger.Level(settings.Level())
	ctx = oneshot.WithLogger(ctx, &logger)

	cfg, err := oneshot.NewBuildConfig(wd, settings, opts)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid build configuration")
		return 1
	}

	pkg.Printf("Locate the temporary directory: %s", cfg.Paths.BuildDir)
	if cfg.Fresh {
		pkg.PrintSubtask("Start new build")
	} else {
		pkg.PrintSubtask("Start rebuild")
	}
	if cfg.KeepIntermediates {
		pkg.PrintSubtask("Debug mode enabled")
	}

	orchestrator := oneshot.NewOrchestrator(cfg, runner)
	orchestrator.OnPhase = func(phase oneshot.Phase) {
		pkg.PrintTask(phase.Desc)
	}

	report, err := orchestrator.Run(ctx)
	if err != nil {
		pkg.PrintError(eris.ToString(err, false))
		return 1
	}

	if report.Failed() {
		pkg.PrintError("Some steps failed, check the messages above")
	}

	pkg.Printf("Output file is under: %s", cfg.Artifacts.Intermediate)
	pkg.PrintBanner("Good Bye")
	return 0
}
