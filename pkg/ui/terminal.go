package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ASCIILogo is printed above interactive command output
const ASCIILogo = `
  _       _
 (_) __ _| |__   __ _ _ ____   _____  ___| |_
 | |/ _' | '_ \ / _' | '__\ \ / / _ \/ __| __|
 | | (_| | | | | (_| | |   \ V /  __/\__ \ |_
 |_|\__, |_| |_|\__,_|_|    \_/ \___||___/\__|
    |___/          bulk profile image harvester
`

var (
	out     io.Writer = os.Stdout
	noColor bool
)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// SetNoColor disables ANSI colors for all helpers
func SetNoColor(disabled bool) {
	noColor = disabled
}

// SetOutput redirects the print helpers, mainly for tests
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	out = w
}

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if noColor {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Fprint(out, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(out, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(out, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(out, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(out, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(out, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(out, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(out, Magenta(msg))
}

// Row is one line of a table printed by PrintTable
type Row []string

// PrintTable prints rows as left-aligned columns under a dimmed header
func PrintTable(header Row, rows []Row) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i := 0; i < len(r) && i < len(widths); i++ {
			if len(r[i]) > widths[i] {
				widths[i] = len(r[i])
			}
		}
	}

	format := func(r Row) string {
		cells := make([]string, len(widths))
		for i := range widths {
			var cell string
			if i < len(r) {
				cell = r[i]
			}
			cells[i] = cell + strings.Repeat(" ", widths[i]-len(cell))
		}
		return strings.TrimRight(strings.Join(cells, "  "), " ")
	}

	fmt.Fprintln(out, Dim(format(header)))
	for _, r := range rows {
		fmt.Fprintln(out, format(r))
	}
}
