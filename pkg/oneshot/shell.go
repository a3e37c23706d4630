package oneshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Runner executes a shell command line inside dir and waits for it to finish
type Runner interface {
	Run(ctx context.Context, dir, command string) error
}

// ShellRunner runs commands through an embedded POSIX shell. mv, rm, mkdir and cp are
// implemented in-process; everything else is looked up in PATH.
type ShellRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewShellRunner returns a ShellRunner attached to the process' stdout and stderr
func NewShellRunner() *ShellRunner {
	return &ShellRunner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

var defaultExecHandler = interp.DefaultExecHandler(2 * time.Second)

func execHandler(ctx context.Context, args []string) error {
	if len(args) > 0 {
		if impl, ok := posixCommands[args[0]]; ok {
			hc := interp.HandlerCtx(ctx)
			if err := impl(ctx, hc.Dir, args[1:]); err != nil {
				fmt.Fprintln(hc.Stderr, eris.ToString(err, false))
				return interp.NewExitStatus(1)
			}
			return nil
		}
	}

	return defaultExecHandler(ctx, args)
}

var defaultOpenHandler = interp.DefaultOpenHandler()

func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == "/dev/null" {
		path = os.DevNull
	}

	return defaultOpenHandler(ctx, path, flag, perm)
}

// Run parses command and executes it with -e semantics, so the first failing statement ends the run
func (r *ShellRunner) Run(ctx context.Context, dir, command string) error {
	parser := syntax.NewParser()
	script, err := parser.Parse(strings.NewReader(command), command)
	if err != nil {
		return eris.Wrapf(err, "Failed to parse command %s", command)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return eris.Wrapf(err, "Can't run %s in %s", command, dir)
	}

	if !info.IsDir() {
		return eris.Errorf("Can't run %s in %s: not a directory", command, dir)
	}

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.ExecHandler(execHandler),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, r.Stdout, r.Stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return eris.Wrap(err, "Failed to initialize runner")
	}

	log(ctx).Debug().
		Str("path", dir).
		Bool("command", true).
		Msg(command)

	err = runner.Run(ctx, script)
	if err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			return eris.Errorf("%s exited with status %d in %s", command, status, dir)
		}
		return eris.Wrapf(err, "Failed to run %s in %s", command, dir)
	}

	return nil
}
