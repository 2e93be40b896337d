package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Banner printed at the start of a run
const Banner = `
   ___        _      _    ___ _
  / _ \ _   _(_) ___| | _|  _ (_) ___
 | | | | | | | |/ __| |/ / |_) | |/ __|
 | |_| | |_| | | (__|   <|  __/| | (__
  \__\_\\__,_|_|\___|_|\_\_|   |_|\___|
        CM Cloud photo downloader
`

var (
	accent  = lipgloss.Color("#00AFD7")
	warm    = lipgloss.Color("#FFD75F")
	good    = lipgloss.Color("#5FD75F")
	bad     = lipgloss.Color("#FF5F5F")
	special = lipgloss.Color("#D787FF")
	muted   = lipgloss.Color("#8A8A8A")

	bannerStyle    = lipgloss.NewStyle().Foreground(accent).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(accent).Bold(true)
	valueStyle     = lipgloss.NewStyle().Foreground(warm)
	successStyle   = lipgloss.NewStyle().Foreground(good).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(bad).Bold(true)
	warningStyle   = lipgloss.NewStyle().Foreground(warm)
	highlightStyle = lipgloss.NewStyle().Foreground(special)
	dimStyle       = lipgloss.NewStyle().Foreground(muted)
)

var (
	outMu sync.Mutex
	out   io.Writer = os.Stdout
	quiet bool
)

// SetOutput redirects all terminal output; it returns the previous writer
func SetOutput(w io.Writer) io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	prev := out
	out = w
	return prev
}

// SetQuiet suppresses everything except errors
func SetQuiet(q bool) {
	outMu.Lock()
	defer outMu.Unlock()
	quiet = q
}

func write(always bool, format string, args ...interface{}) {
	outMu.Lock()
	defer outMu.Unlock()
	if quiet && !always {
		return
	}
	fmt.Fprintf(out, format, args...)
}

// Dim renders secondary text
func Dim(s string) string { return dimStyle.Render(s) }

// PrintBanner prints the application banner
func PrintBanner() {
	write(false, "%s\n", bannerStyle.Render(Banner))
}

// PrintError prints an error message, with the cause when one is given
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	write(true, "%s\n", errorStyle.Render(msg))
}

// PrintSuccess prints a success message
func PrintSuccess(msg string) {
	write(false, "%s\n", successStyle.Render(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	write(false, "%s: %s\n", labelStyle.Render(label), valueStyle.Render(value))
}

// PrintWarning prints a warning message
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	write(false, "%s\n", warningStyle.Render(msg))
}

// PrintHighlight prints a highlighted message
func PrintHighlight(msg string) {
	write(false, "%s\n", highlightStyle.Render(msg))
}
