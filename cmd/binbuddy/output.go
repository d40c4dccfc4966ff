package main

import (
	"fmt"
	"io"
	"os"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// diag receives progress and status lines. Replies go to the command's
// stdout so they can be piped.
var diag io.Writer = os.Stderr

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// outcomeColor picks the color used when a reply is shown with its outcome.
func outcomeColor(outcome string) string {
	switch outcome {
	case "answered", "fallback":
		return colorGreen
	case "warned", "escalated":
		return colorYellow
	case "blocked", "silenced":
		return colorRed
	default:
		return colorCyan
	}
}

func printLine(color, marker, format string, args ...any) {
	fmt.Fprintln(diag, colorize(color, marker+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { printLine(colorGreen, "✓", format, args...) }
func printError(format string, args ...any)   { printLine(colorRed, "✗", format, args...) }
func printWarning(format string, args ...any) { printLine(colorYellow, "⚠", format, args...) }
func printStep(format string, args ...any)    { printLine(colorCyan, "→", format, args...) }

// printStatus writes an indented "label: value" line with labels padded to
// a common width.
func printStatus(label string, format string, args ...any) {
	l := colorize(colorBold, fmt.Sprintf("%-16s", label+":"))
	fmt.Fprintf(diag, "  %s %s\n", l, fmt.Sprintf(format, args...))
}
