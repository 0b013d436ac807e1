// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	fileIndent = 4  // spaces to indent file entries
	nameWidth  = 45 // base width for file paths
)

// 🎯 FileResult represents one processed file for display
type FileResult struct {
	Path         string // file path
	Modified     bool   // whether the file was rewritten
	Failed       bool   // whether processing failed
	Replacements int    // number of replacements made
	Err          string // failure message, when Failed
}

// 📦 Summary represents an end-of-run report
type Summary struct {
	FilesOK      int
	FilesTotal   int
	Replacements int
	Elapsed      time.Duration
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	verbose bool
	mu      sync.Mutex
}

// 🏭 New creates a new logger
func New(console io.Writer, level zerolog.Level, verbose bool) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
		verbose: verbose,
	}
}

// 📝 formatFileResult formats one file line for display
func (l *Logger) formatFileResult(r FileResult) string {
	var symbol rune
	var symbolColor color.Attribute
	switch {
	case r.Failed:
		symbol = '✗'
		symbolColor = color.FgRed
	case r.Modified:
		symbol = '⟳'
		symbolColor = color.FgBlue
	default:
		symbol = '-'
		symbolColor = color.FgYellow
	}

	path := r.Path
	if len(path) > nameWidth {
		path = "…" + path[len(path)-nameWidth+1:]
	}

	var tail string
	switch {
	case r.Failed:
		tail = color.New(color.FgRed).Sprint(r.Err)
	case r.Replacements > 0:
		tail = color.New(color.Faint).Sprintf("(%d replacements)", r.Replacements)
	}

	return fmt.Sprintf("%*s%s %-*s %s",
		fileIndent, "",
		color.New(symbolColor).Sprint(string(symbol)),
		nameWidth, path,
		tail,
	)
}

// 📝 LogFileResult prints one file's outcome
func (l *Logger) LogFileResult(r FileResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Untouched files only show up in verbose runs.
	if !l.verbose && !r.Failed && !r.Modified {
		return
	}

	fmt.Fprintln(l.console, l.formatFileResult(r))

	evt := l.zlog.Debug().Str("path", r.Path).Int("replacements", r.Replacements)
	if r.Failed {
		evt = l.zlog.Error().Str("path", r.Path).Str("error", r.Err)
	}
	evt.Msg("file processed")
}

// 📝 LogSummary prints the end-of-run totals
func (l *Logger) LogSummary(s Summary) {
	l.mu.Lock()
	defer l.mu.Unlock()

	headline := color.New(color.FgGreen, color.Bold).Sprint("Processing complete")
	fmt.Fprintf(l.console, "\n%s\n", headline)
	fmt.Fprintf(l.console, "  Files processed:    %d/%d\n", s.FilesOK, s.FilesTotal)
	fmt.Fprintf(l.console, "  Total replacements: %d\n", s.Replacements)
	fmt.Fprintf(l.console, "  Time taken:         %s\n", s.Elapsed.Round(time.Millisecond))

	l.zlog.Info().
		Int("files_ok", s.FilesOK).
		Int("files_total", s.FilesTotal).
		Int("replacements", s.Replacements).
		Dur("elapsed", s.Elapsed).
		Msg("processing complete")
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}
