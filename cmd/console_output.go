package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// ConsoleWriter turns zerolog's JSON events into coloured console lines.
// Paths inside Base are shown relative to it.
type ConsoleWriter struct {
	Out   io.Writer
	Base  string
	Debug bool

	buffer strings.Builder
	lock   sync.Mutex
}

func debugEnabled() bool {
	return os.Getenv("ONESHOT_DEBUG") != ""
}

// NewConsoleWriter returns a ConsoleWriter printing to out with paths relative to base
func NewConsoleWriter(out io.Writer, base string) *ConsoleWriter {
	return &ConsoleWriter{Out: out, Base: base, Debug: debugEnabled()}
}

// Write decodes a single zerolog event and prints it as one coloured entry
func (w *ConsoleWriter) Write(p []byte) (n int, err error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	var evt map[string]interface{}
	d := json.NewDecoder(bytes.NewReader(p))
	d.UseNumber()
	err = d.Decode(&evt)
	if err != nil {
		return n, eris.Wrapf(err, "cannot decode event: %s", p)
	}

	w.buffer.Reset()
	switch evt["level"] {
	case "fatal":
		fallthrough
	case "error":
		w.buffer.WriteString("[red]")
	case "warn":
		w.buffer.WriteString("[yellow]")
	case "debug":
		fallthrough
	case "trace":
		w.buffer.WriteString("[blue]")
	default:
		w.buffer.WriteString("[green]")
	}

	if phase, ok := evt["phase"].(string); ok {
		w.buffer.WriteString(phase + ": ")
	}

	if evt["level"] == "error" {
		w.buffer.WriteString("[Error] ")
	}

	msg, _ := evt["message"].(string)

	if path, ok := evt["path"].(string); ok && w.Base != "" {
		// simplify the path
		relPath, err := filepath.Rel(w.Base, path)
		if err == nil && relPath != ".." && !strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
			msg = strings.ReplaceAll(msg, path, relPath)
		}
	}

	if isCmd, _ := evt["command"].(bool); isCmd {
		msg = "$ " + msg
	}

	w.buffer.WriteString(msg)

	if errorDetails, ok := evt["error"].(string); ok {
		w.buffer.WriteString("\n")
		w.buffer.WriteString(errorDetails)
	}

	if w.Debug {
		w.buffer.WriteString("\n")
		names := make([]string, 0, len(evt))
		for name := range evt {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			w.buffer.WriteString(fmt.Sprintf("  %s: %+v\n", name, evt[name]))
		}
	}

	// colorstring appends the reset code itself, the newline has to come after it
	_, err = colorstring.Fprint(w.Out, strings.TrimSuffix(w.buffer.String(), "\n"))
	if err == nil {
		_, err = fmt.Fprintln(w.Out)
	}
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func init() {
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		return eris.ToString(err, debugEnabled())
	}
}
