package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// statusOut receives status lines; command results go to the command's
// stdout.
var statusOut io.Writer = os.Stderr

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(statusOut, colorize(colorGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(statusOut, colorize(colorRed, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(statusOut, colorize(colorYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

// printField writes an aligned "label: value" line.
func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s %s\n", colorize(colorBold, fmt.Sprintf("%-10s", label+":")), value)
}

// printNumbered writes items as a 1-based numbered list.
func printNumbered(w io.Writer, items []string) {
	for i, it := range items {
		fmt.Fprintf(w, "%s %s\n", colorize(colorCyan, fmt.Sprintf("%d.", i+1)), strings.TrimSpace(it))
	}
}
