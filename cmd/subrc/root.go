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

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/subrc/pkg/config"
	"github.com/walteh/subrc/pkg/finder"
	"github.com/walteh/subrc/pkg/log"
	"github.com/walteh/subrc/pkg/processor"
	"github.com/walteh/subrc/pkg/update"
	"gitlab.com/tozd/go/errors"
)

// rootFlags holds every flag of the root command
type rootFlags struct {
	ruleFile      string
	console       string
	noGlobal      bool
	recursive     bool
	threads       int
	extensions    []string
	excludes      []string
	processHidden bool
	verbose       bool
	debug         bool
	checkUpdate   bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "subrc [files...]",
		Short: "Apply substitution rules to text files",
		Long: `subrc applies the replacement rules from your rule files to the
given files, directories, or glob patterns, skipping protected regions
and binary files.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.ruleFile, "rule-file", "r", "", "rule file path (default: ./"+config.RuleFileName+")")
	cmd.Flags().StringVarP(&flags.console, "console", "C", "", "inline rule statements")
	cmd.Flags().BoolVar(&flags.noGlobal, "no-global", false, "skip the per-user global rule file")
	cmd.Flags().BoolVarP(&flags.recursive, "recursive", "R", false, "descend into subdirectories")
	cmd.Flags().IntVarP(&flags.threads, "threads", "t", 0, "worker count (0 = automatic)")
	cmd.Flags().StringSliceVarP(&flags.extensions, "ext", "e", nil, "only process files with these extensions")
	cmd.Flags().StringSliceVarP(&flags.excludes, "exclude", "x", nil, "exclude files matching these patterns")
	cmd.Flags().BoolVar(&flags.processHidden, "process-hidden", false, "include hidden files and directories")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "also report untouched files")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&flags.checkUpdate, "check-update", false, "check for a newer release and exit")

	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging configures zerolog based on flags
func setupLogging(debug bool) zerolog.Level {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	zl := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).With().Timestamp().Logger().Level(level)
	zerolog.DefaultContextLogger = &zl
	return level
}

func run(cmd *cobra.Command, args []string, flags *rootFlags) error {
	ctx := cmd.Context()
	level := setupLogging(flags.debug)
	logger := log.New(cmd.OutOrStdout(), level, flags.verbose)

	if flags.checkUpdate {
		update.NewChecker().Check(ctx, GetVersionInfo().Version)
		return nil
	}

	if len(args) == 0 {
		return errors.Errorf("no files given, run 'subrc --help' for usage")
	}

	rules, diags, err := config.Load(ctx, config.LoadOptions{
		RuleFile: flags.ruleFile,
		Console:  flags.console,
		NoGlobal: flags.noGlobal,
	})
	if err != nil {
		logger.Errorf("loading rules: %v", err)
		return err
	}
	for _, d := range diags {
		if d.Warning {
			logger.Warning(d.String())
		} else {
			logger.Error(d.String())
		}
	}
	if rules.Empty() {
		logger.Warning("no substitution rules configured, nothing to do")
		return nil
	}

	files, err := finder.Find(ctx, finder.Options{
		Patterns:      args,
		Recursive:     flags.recursive,
		Extensions:    flags.extensions,
		Excludes:      flags.excludes,
		ProcessHidden: flags.processHidden,
		RuleFileName:  config.RuleFileName,
	})
	if err != nil {
		logger.Errorf("finding files: %v", err)
		return err
	}
	if len(files) == 0 {
		logger.Warning("no files matched")
		return nil
	}

	start := time.Now()
	proc, err := processor.New(ctx, processor.Options{
		Rules:   rules.Replacements,
		Regions: rules.Regions,
	})
	if err != nil {
		logger.Errorf("creating processor: %v", err)
		return err
	}
	results := proc.ProcessFiles(ctx, files, flags.threads)
	proc.Close()

	summary := log.Summary{FilesTotal: len(results), Elapsed: time.Since(start)}
	for _, r := range results {
		logger.LogFileResult(log.FileResult{
			Path:         r.Path,
			Modified:     r.OK && r.Replacements > 0,
			Failed:       !r.OK,
			Replacements: r.Replacements,
			Err:          r.Err,
		})
		if r.OK {
			summary.FilesOK++
			summary.Replacements += r.Replacements
		}
	}
	logger.LogSummary(summary)

	if summary.FilesOK != summary.FilesTotal {
		return errors.Errorf("%d of %d files failed", summary.FilesTotal-summary.FilesOK, summary.FilesTotal)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), FormatVersion())
		},
	}
}
