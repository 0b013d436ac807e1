// Package finder expands the CLI's positional arguments (files,
// directories, glob patterns) into the sorted, deduplicated list of files
// to process.
package finder

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// Options controls file discovery.
type Options struct {
	// Patterns are the positional arguments: literal files, directories,
	// or glob patterns (including **).
	Patterns []string
	// Recursive descends into subdirectories of directory arguments.
	Recursive bool
	// Extensions restricts matches to the given extensions (with or
	// without the leading dot). Empty means no restriction.
	Extensions []string
	// Excludes are doublestar patterns; a file is skipped when any of
	// them matches its slash path or base name.
	Excludes []string
	// ProcessHidden includes dotfiles and files under dot-directories.
	ProcessHidden bool
	// RuleFileName is always excluded from the result so a run never
	// rewrites its own rule files.
	RuleFileName string
}

type filter struct {
	extensions map[string]struct{}
	excludes   []string
	hidden     bool
	ruleFile   string
}

func newFilter(opts Options) *filter {
	f := &filter{
		excludes: opts.Excludes,
		hidden:   opts.ProcessHidden,
		ruleFile: opts.RuleFileName,
	}
	if len(opts.Extensions) > 0 {
		f.extensions = make(map[string]struct{}, len(opts.Extensions))
		for _, ext := range opts.Extensions {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			f.extensions[strings.ToLower(ext)] = struct{}{}
		}
	}
	return f
}

// keep decides whether a regular file belongs in the result set.
func (f *filter) keep(path string) bool {
	base := filepath.Base(path)

	if f.ruleFile != "" && base == f.ruleFile {
		return false
	}
	if !f.hidden && isHiddenPath(path) {
		return false
	}
	if f.extensions != nil {
		if _, ok := f.extensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return false
		}
	}

	slashed := filepath.ToSlash(path)
	for _, pattern := range f.excludes {
		if ok, err := doublestar.Match(pattern, slashed); err == nil && ok {
			return false
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return false
		}
	}

	return true
}

// Find expands every pattern concurrently and returns the union, as
// absolute lexically-normal paths, deduplicated and sorted. Patterns that
// match nothing are logged, not fatal.
func Find(ctx context.Context, opts Options) ([]string, error) {
	f := newFilter(opts)

	var mu sync.Mutex
	unique := make(map[string]struct{})

	g, ctx := errgroup.WithContext(ctx)
	for _, pattern := range opts.Patterns {
		pattern := pattern
		g.Go(func() error {
			matches, err := expandPattern(ctx, pattern, opts.Recursive, f)
			if err != nil {
				return errors.Errorf("expanding %q: %w", pattern, err)
			}

			mu.Lock()
			defer mu.Unlock()
			for _, m := range matches {
				abs, err := filepath.Abs(m)
				if err != nil {
					continue
				}
				unique[filepath.Clean(abs)] = struct{}{}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := make([]string, 0, len(unique))
	for path := range unique {
		files = append(files, path)
	}
	sort.Strings(files)

	return files, nil
}

func expandPattern(ctx context.Context, pattern string, recursive bool, f *filter) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	if info, err := os.Stat(pattern); err == nil {
		if info.IsDir() {
			return findInDir(pattern, recursive, f)
		}
		if f.keep(pattern) {
			return []string{pattern}, nil
		}
		return nil, nil
	}

	if strings.ContainsAny(pattern, "*?[") {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, errors.Errorf("bad glob pattern: %w", err)
		}

		var files []string
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			if f.keep(m) {
				files = append(files, m)
			}
		}
		return files, nil
	}

	logger.Warn().Str("pattern", pattern).Msg("not found")
	return nil, nil
}

func findInDir(dir string, recursive bool, f *filter) ([]string, error) {
	var files []string

	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, errors.Errorf("reading directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !e.Type().IsRegular() {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if f.keep(path) {
				files = append(files, path)
			}
		}
		return files, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}
		if d.IsDir() {
			if path != dir && !f.hidden && isHiddenName(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if f.keep(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking directory: %w", err)
	}

	return files, nil
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// isHiddenPath reports whether any element of path is hidden.
func isHiddenPath(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if isHiddenName(part) {
			return true
		}
	}
	return false
}
