package finder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTree builds a small fixture tree and chdirs into it so relative
// patterns behave like real CLI usage.
func newTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := []string{
		"a.txt",
		"b.md",
		".hidden.txt",
		".subrc",
		"sub/c.txt",
		"sub/d.log",
		"sub/deep/e.txt",
		".git/config.txt",
	}
	for _, f := range files {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	return dir
}

func basenames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

func TestFind(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "literal_file",
			opts: Options{Patterns: []string{"a.txt"}},
			want: []string{"a.txt"},
		},
		{
			name: "directory_non_recursive",
			opts: Options{Patterns: []string{"."}, RuleFileName: ".subrc"},
			want: []string{"a.txt", "b.md"},
		},
		{
			name: "directory_recursive",
			opts: Options{Patterns: []string{"."}, Recursive: true, RuleFileName: ".subrc"},
			want: []string{"a.txt", "b.md", "c.txt", "d.log", "e.txt"},
		},
		{
			name: "extension_filter",
			opts: Options{Patterns: []string{"."}, Recursive: true, Extensions: []string{"txt"}, RuleFileName: ".subrc"},
			want: []string{"a.txt", "c.txt", "e.txt"},
		},
		{
			name: "extension_filter_with_dot",
			opts: Options{Patterns: []string{"."}, Extensions: []string{".md"}},
			want: []string{"b.md"},
		},
		{
			name: "glob",
			opts: Options{Patterns: []string{"*.txt"}},
			want: []string{"a.txt"},
		},
		{
			name: "doublestar_glob",
			opts: Options{Patterns: []string{"**/*.txt"}},
			want: []string{"a.txt", "c.txt", "e.txt"},
		},
		{
			name: "exclude_pattern",
			opts: Options{Patterns: []string{"."}, Recursive: true, Excludes: []string{"**/sub/**"}, RuleFileName: ".subrc"},
			want: []string{"a.txt", "b.md"},
		},
		{
			name: "exclude_basename",
			opts: Options{Patterns: []string{"."}, Recursive: true, Excludes: []string{"*.log"}, RuleFileName: ".subrc"},
			want: []string{"a.txt", "b.md", "c.txt", "e.txt"},
		},
		{
			name: "process_hidden",
			opts: Options{Patterns: []string{"."}, ProcessHidden: true, RuleFileName: ".subrc"},
			want: []string{".hidden.txt", "a.txt", "b.md"},
		},
		{
			name: "rule_file_always_excluded",
			opts: Options{Patterns: []string{".subrc"}, ProcessHidden: true, RuleFileName: ".subrc"},
			want: []string{},
		},
		{
			name: "missing_pattern_not_fatal",
			opts: Options{Patterns: []string{"nope.txt", "a.txt"}},
			want: []string{"a.txt"},
		},
		{
			name: "duplicates_collapse",
			opts: Options{Patterns: []string{"a.txt", "./a.txt", "*.txt"}},
			want: []string{"a.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newTree(t)

			got, err := Find(context.Background(), tt.opts)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, basenames(got), "got %v", got)
		})
	}
}

func TestFind_ResultsSortedAbsolute(t *testing.T) {
	newTree(t)

	got, err := Find(context.Background(), Options{
		Patterns:  []string{"."},
		Recursive: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, got)

	for i, p := range got {
		assert.True(t, filepath.IsAbs(p), "path %q not absolute", p)
		if i > 0 {
			assert.Less(t, got[i-1], p, "results not sorted")
		}
	}
}
