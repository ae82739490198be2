// Package cliout formats command output as human-readable text or JSON.
package cliout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
)

// Format represents the output format.
type Format string

const (
	// FormatDefault is the default human-readable format.
	FormatDefault Format = "default"
	// FormatJSON is JSON format.
	FormatJSON Format = "json"
)

// ANSI color codes.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Cyan         = "\033[36m"
	BrightRed    = "\033[91m"
	BrightGreen  = "\033[92m"
	BrightYellow = "\033[93m"
	BrightBlue   = "\033[94m"
)

// Unicode symbols and their ASCII fallbacks.
const (
	SymbolCheck   = "✓"
	SymbolCross   = "✗"
	SymbolWarning = "⚠"
	SymbolInfo    = "ℹ"
	SymbolDot     = "•"

	ASCIICheck   = "[+]"
	ASCIICross   = "[-]"
	ASCIIWarning = "[!]"
	ASCIIInfo    = "[i]"
	ASCIIDot     = "*"
)

var (
	mu              sync.RWMutex
	globalFormat    = FormatDefault
	noColor         = os.Getenv("NO_COLOR") != ""
	supportsUnicode = detectUnicodeSupport()
)

var out io.Writer = os.Stdout

// SetOutput redirects all output. Passing nil restores os.Stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	out = w
}

// NoColor disables color output.
func NoColor() {
	mu.Lock()
	noColor = true
	mu.Unlock()
}

// ForceColor enables color output.
func ForceColor() {
	mu.Lock()
	noColor = false
	mu.Unlock()
}

// SetFormat sets the global output format.
func SetFormat(format string) error {
	mu.Lock()
	defer mu.Unlock()
	switch format {
	case "default", "":
		globalFormat = FormatDefault
	case "json":
		globalFormat = FormatJSON
	default:
		return fmt.Errorf("invalid output format: %s (valid options: default, json)", format)
	}
	return nil
}

// GetFormat returns the current output format.
func GetFormat() Format {
	mu.RLock()
	defer mu.RUnlock()
	return globalFormat
}

// IsJSON returns true if the output format is JSON.
func IsJSON() bool {
	return GetFormat() == FormatJSON
}

// PrintJSON prints data as indented JSON.
func PrintJSON(data interface{}) error {
	encoder := json.NewEncoder(writer())
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Print outputs data in the configured format: JSON marshals data, the
// default format calls formatter.
func Print(data interface{}, formatter func()) error {
	if IsJSON() {
		return PrintJSON(data)
	}
	formatter()
	return nil
}

// Header prints a bold header with a divider. Suppressed in JSON mode.
func Header(text string) {
	if IsJSON() {
		return
	}
	printf("\n%s\n", paint(Bold, text))
	printf("%s\n", strings.Repeat("=", len(text)))
}

// Success prints a success message with a green checkmark.
func Success(format string, args ...interface{}) {
	line(BrightGreen, icon(SymbolCheck, ASCIICheck), format, args...)
}

// Error prints an error message with a red cross.
func Error(format string, args ...interface{}) {
	line(BrightRed, icon(SymbolCross, ASCIICross), format, args...)
}

// Warning prints a warning message.
func Warning(format string, args ...interface{}) {
	line(BrightYellow, icon(SymbolWarning, ASCIIWarning), format, args...)
}

// Info prints an info message.
func Info(format string, args ...interface{}) {
	line(BrightBlue, icon(SymbolInfo, ASCIIInfo), format, args...)
}

// Bullet prints a bulleted list item.
func Bullet(format string, args ...interface{}) {
	printf("  %s %s\n", icon(SymbolDot, ASCIIDot), fmt.Sprintf(format, args...))
}

// Label prints a label and value pair.
func Label(label, value string) {
	printf("   %s %s\n", paint(Dim, fmt.Sprintf("%-12s", label+":")), value)
}

// Hint prints hints on a single dimmed line.
func Hint(hints ...string) {
	if len(hints) == 0 {
		return
	}
	printf("%s\n", paint(Dim, strings.Join(hints, " "+icon(SymbolDot, ASCIIDot)+" ")))
}

// URL colors a URL.
func URL(url string) string {
	return paint(BrightBlue, url)
}

// TableRow represents a row in a table as a map of column header to value.
type TableRow map[string]string

// Table prints a simple table with the given headers and rows.
func Table(headers []string, rows []TableRow) {
	if len(rows) == 0 {
		return
	}

	widths := make(map[string]int)
	for _, header := range headers {
		widths[header] = len(header)
	}
	for _, row := range rows {
		for _, header := range headers {
			if len(row[header]) > widths[header] {
				widths[header] = len(row[header])
			}
		}
	}

	var b strings.Builder
	b.WriteString("   ")
	for _, header := range headers {
		b.WriteString(paint(Bold, fmt.Sprintf("%-*s", widths[header], header)) + "  ")
	}
	b.WriteString("\n   ")
	for _, header := range headers {
		b.WriteString(strings.Repeat("-", widths[header]) + "  ")
	}
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString("   ")
		for _, header := range headers {
			fmt.Fprintf(&b, "%-*s  ", widths[header], row[header])
		}
		b.WriteString("\n")
	}
	printf("%s", b.String())
}

func line(color, symbol, format string, args ...interface{}) {
	printf("%s %s\n", paint(color, symbol), fmt.Sprintf(format, args...))
}

func paint(color, text string) string {
	mu.RLock()
	disabled := noColor
	mu.RUnlock()
	if disabled {
		return text
	}
	return color + text + Reset
}

func icon(unicode, ascii string) string {
	if supportsUnicode {
		return unicode
	}
	return ascii
}

func writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return out
}

func printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer(), format, args...)
}

// detectUnicodeSupport reports whether the terminal can display symbols.
// Legacy Windows consoles fall back to ASCII.
func detectUnicodeSupport() bool {
	if runtime.GOOS != "windows" {
		return true
	}
	for _, env := range []string{"WT_SESSION", "ConEmuPID", "PSModulePath", "TERM"} {
		if os.Getenv(env) != "" {
			return true
		}
	}
	return os.Getenv("TERM_PROGRAM") == "vscode"
}
