package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/subrc/pkg/page"
)

// The same logical rule file in every supported format must produce the
// same rule set.
func TestLoadBytes_FormatEquivalence(t *testing.T) {
	wantRules := map[string]string{"foo": "bar", "baz": ""}
	wantRegions := []page.Region{{StartMarker: "<<", EndMarker: ">>"}}

	sources := map[string]string{
		"rules.subrc": `
REPLACE(FROM "foo", TO "bar");
REPLACE(FROM "baz", TO "");
PROTECT(START_MARKER "<<", END_MARKER ">>");
`,
		"rules.yaml": `
replace:
  - from: foo
    to: bar
  - from: baz
    to: ""
protect:
  - start_marker: "<<"
    end_marker: ">>"
`,
		"rules.json": `{
  "replace": [
    {"from": "foo", "to": "bar"},
    {"from": "baz", "to": ""}
  ],
  "protect": [
    {"start_marker": "<<", "end_marker": ">>"}
  ]
}`,
		"rules.hcl": `
replace {
  from = "foo"
  to   = "bar"
}

replace {
  from = "baz"
  to   = ""
}

protect {
  start_marker = "<<"
  end_marker   = ">>"
}
`,
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			rs := NewRuleSet()
			diags, err := LoadBytes(context.Background(), name, []byte(src), rs)
			require.NoError(t, err)
			assert.Zero(t, errorCount(diags))
			assert.Equal(t, wantRules, rs.Replacements)
			assert.Equal(t, wantRegions, rs.Regions)
		})
	}
}

func TestLoadBytes_StructuredErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		src  string
	}{
		{name: "yaml_unknown_field", path: "r.yaml", src: "bogus: true\n"},
		{name: "json_unknown_field", path: "r.json", src: `{"bogus": true}`},
		{name: "json_syntax", path: "r.json", src: `{`},
		{name: "hcl_syntax", path: "r.hcl", src: `replace {`},
		{name: "yaml_replace_missing_from", path: "r.yaml", src: "replace:\n  - to: x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := NewRuleSet()
			_, err := LoadBytes(context.Background(), tt.path, []byte(tt.src), rs)
			assert.Error(t, err)
		})
	}
}

func TestLoadBytes_ClearOrdering(t *testing.T) {
	rs := NewRuleSet()
	rs.Replace("old", "stale")

	_, err := LoadBytes(context.Background(), "r.yaml", []byte(`
clear: true
replace:
  - from: new
    to: fresh
`), rs)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"new": "fresh"}, rs.Replacements)
}

func TestLoad_ProjectAndConsole(t *testing.T) {
	dir := t.TempDir()
	ruleFile := filepath.Join(dir, "custom.subrc")
	require.NoError(t, os.WriteFile(ruleFile, []byte(`REPLACE(FROM "a", TO "b");`), 0o644))

	rs, diags, err := Load(context.Background(), LoadOptions{
		RuleFile: ruleFile,
		Console:  `REPLACE(FROM "a", TO "c"); PROTECT(START_MARKER "[", END_MARKER "]");`,
		NoGlobal: true,
	})
	require.NoError(t, err)
	assert.Zero(t, errorCount(diags))

	// Console rules load last, so they win.
	assert.Equal(t, map[string]string{"a": "c"}, rs.Replacements)
	assert.Equal(t, []page.Region{{StartMarker: "[", EndMarker: "]"}}, rs.Regions)
}

func TestLoad_MissingFilesSkipped(t *testing.T) {
	rs, diags, err := Load(context.Background(), LoadOptions{
		RuleFile: filepath.Join(t.TempDir(), "nope.subrc"),
		NoGlobal: true,
	})
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.True(t, rs.Empty())
}

func TestRuleSet(t *testing.T) {
	rs := NewRuleSet()
	assert.True(t, rs.Empty())

	rs.Replace("a", "b")
	rs.Replace("", "ignored")
	assert.Equal(t, map[string]string{"a": "b"}, rs.Replacements)

	assert.True(t, rs.Delete("a"))
	assert.False(t, rs.Delete("a"))

	rs.Protect("[", "]")
	rs.Protect("", "]")
	assert.Len(t, rs.Regions, 1)

	rs.Replace("x", "y")
	rs.Clear()
	assert.Empty(t, rs.Replacements)
	assert.Len(t, rs.Regions, 1)
}
