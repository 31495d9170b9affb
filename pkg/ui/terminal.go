package ui

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔══════════════════════════════════════════════════╗
    ║   ░▒▓  D  Y  S  C  R  A  P  E  R  ▓▒░            ║
    ║   PROFILE VIDEO EXTRACTION UTILITY               ║
    ╚══════════════════════════════════════════════════╝
`

var (
	output       io.Writer = os.Stdout
	colorEnabled atomic.Bool
	quiet        atomic.Bool
)

func init() {
	colorEnabled.Store(os.Getenv("NO_COLOR") == "")
}

// SetOutput redirects all terminal output. nil restores stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	output = w
}

// SetColor turns ANSI colors on or off.
func SetColor(enabled bool) {
	colorEnabled.Store(enabled)
}

// SetQuiet suppresses everything except errors and the final summary.
func SetQuiet(q bool) {
	quiet.Store(q)
}

// IsQuiet reports whether quiet mode is on.
func IsQuiet() bool {
	return quiet.Load()
}

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled.Load() {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	if quiet.Load() {
		return
	}
	fmt.Fprint(output, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(output, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(output, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if quiet.Load() {
		return
	}
	fmt.Fprintln(output, Green(msg))
}

// PrintInfo prints an info message in cyan
func PrintInfo(label string, value string) {
	if quiet.Load() {
		return
	}
	fmt.Fprintf(output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if quiet.Load() {
		return
	}
	if len(args) > 0 {
		fmt.Fprintln(output, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(output, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	if quiet.Load() {
		return
	}
	fmt.Fprintln(output, Magenta(msg))
}

// PrintSummary prints the final status line. It is shown in quiet mode too.
func PrintSummary(line string) {
	fmt.Fprintln(output, line)
}
