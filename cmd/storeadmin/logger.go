package main

import (
	"fmt"
	"os"
	"strings"
)

// cliLogger writes to stderr. Debug and Info are only shown with --verbose.
type cliLogger struct {
	verbose bool
}

func newCLILogger(verbose bool) cliLogger {
	return cliLogger{verbose: verbose}
}

func (l cliLogger) Debug(format string, args ...any) {
	if l.verbose {
		l.print("DBG", format, args...)
	}
}

func (l cliLogger) Info(format string, args ...any) {
	if l.verbose {
		l.print("INF", format, args...)
	}
}

func (l cliLogger) Warn(format string, args ...any) {
	l.print("WRN", format, args...)
}

func (l cliLogger) Error(format string, args ...any) {
	l.print("ERR", format, args...)
}

func (l cliLogger) print(level, format string, args ...any) {
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	fmt.Fprintf(os.Stderr, "["+level+"] "+format, args...)
}
