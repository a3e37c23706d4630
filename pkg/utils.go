package pkg

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/colorstring"
)

// Output is where all console helpers write to
var Output io.Writer = os.Stdout

const bannerWidth = 46

// printLine colourizes format (not args) and ends the line after colorstring's trailing reset
func printLine(format string, args ...interface{}) {
	colorstring.Fprintf(Output, format, args...)
	fmt.Fprintln(Output)
}

// PrintBanner prints a framed title line
func PrintBanner(lines ...string) {
	rule := strings.Repeat("=", bannerWidth)
	printLine("[bold]%s", rule)
	for _, line := range lines {
		pad := bannerWidth - 12 - len(line)
		if pad < 0 {
			pad = 0
		}
		left := pad / 2
		printLine("[bold]====== %s%s%s ======", strings.Repeat(" ", left), line, strings.Repeat(" ", pad-left))
	}
	printLine("[bold]%s", rule)
}

func PrintTask(msg string) {
	printLine("[blue][bold]==>[default] %s", msg)
}

func PrintSubtask(msg string) {
	printLine("[green][bold]  ->[reset] %s", msg)
}

func PrintError(msg string) {
	printLine("[red][bold]  ->[reset] %s", msg)
}

// Printf is a shorthand for PrintSubtask(fmt.Sprintf(...))
func Printf(format string, args ...interface{}) {
	PrintSubtask(fmt.Sprintf(format, args...))
}
