package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// RuleFileName is the default rule file looked up in the working
// directory, and the name of the global rule file inside the user config
// directory.
const RuleFileName = ".subrc"

// consoleSource is the pseudo-path used for --console rules in
// diagnostics.
const consoleSource = "<console>"

// LoadOptions selects the rule sources for one run.
type LoadOptions struct {
	// RuleFile overrides the default project rule file lookup.
	RuleFile string
	// Console holds inline DSL statements passed on the command line.
	Console string
	// NoGlobal skips the per-user global rule file.
	NoGlobal bool
}

// Load aggregates all configured rule sources into one RuleSet, in
// precedence order: global rule file, project rule file (or the explicit
// --rule-file), console rules. Later sources override earlier ones, since
// a later REPLACE for the same pattern wins. Missing optional files are
// skipped; recovered DSL diagnostics are returned alongside the set so
// the CLI can show them without aborting.
func Load(ctx context.Context, opts LoadOptions) (*RuleSet, []Diagnostic, error) {
	logger := zerolog.Ctx(ctx)
	rs := NewRuleSet()
	var allDiags []Diagnostic

	for _, path := range ruleFilePaths(opts) {
		if _, err := os.Stat(path); err != nil {
			logger.Debug().Str("path", path).Msg("rule file not found, skipping")
			continue
		}

		diags, err := LoadFile(ctx, path, rs)
		if err != nil {
			return nil, allDiags, errors.Errorf("loading rule file %s: %w", path, err)
		}
		allDiags = append(allDiags, diags...)
		logger.Debug().Str("path", path).Msg("loaded rule file")
	}

	if opts.Console != "" {
		diags, err := LoadBytes(ctx, consoleSource, []byte(opts.Console), rs)
		if err != nil {
			return nil, allDiags, errors.Errorf("loading console rules: %w", err)
		}
		allDiags = append(allDiags, diags...)
	}

	logger.Debug().
		Int("replacements", len(rs.Replacements)).
		Int("regions", len(rs.Regions)).
		Msg("rule sources loaded")

	return rs, allDiags, nil
}

// ruleFilePaths lists candidate rule files in load order.
func ruleFilePaths(opts LoadOptions) []string {
	var paths []string

	if !opts.NoGlobal {
		if dir, err := os.UserConfigDir(); err == nil {
			paths = append(paths, filepath.Join(dir, "subrc", RuleFileName))
		}
	}

	if opts.RuleFile != "" {
		paths = append(paths, opts.RuleFile)
	} else {
		paths = append(paths, RuleFileName)
	}

	return paths
}
