package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/subrc/pkg/page"
)

func parseInto(t *testing.T, src string) (*RuleSet, []Diagnostic) {
	t.Helper()
	rs := NewRuleSet()
	diags := ParseRules("test.subrc", src, rs)
	return rs, diags
}

func errorCount(diags []Diagnostic) int {
	n := 0
	for _, d := range diags {
		if !d.Warning {
			n++
		}
	}
	return n
}

func TestParseRules_Statements(t *testing.T) {
	tests := []struct {
		name        string
		src         string
		wantRules   map[string]string
		wantRegions []page.Region
	}{
		{
			name:      "replace",
			src:       `REPLACE(FROM "," TO ";");`,
			wantRules: map[string]string{",": ";"},
		},
		{
			name:      "replace_with_comma_separator",
			src:       `REPLACE(FROM "a", TO "b");`,
			wantRules: map[string]string{"a": "b"},
		},
		{
			name:      "lowercase_keywords",
			src:       `replace(from "a", to "b");`,
			wantRules: map[string]string{"a": "b"},
		},
		{
			name:      "del_removes_rule",
			src:       `REPLACE(FROM "a", TO "b"); DEL(FROM "a");`,
			wantRules: map[string]string{},
		},
		{
			name:      "later_replace_wins",
			src:       `REPLACE(FROM "a", TO "b"); REPLACE(FROM "a", TO "c");`,
			wantRules: map[string]string{"a": "c"},
		},
		{
			name:      "clear_drops_rules_keeps_regions",
			src:       `REPLACE(FROM "a", TO "b"); PROTECT(START_MARKER "[", END_MARKER "]"); CLEAR();`,
			wantRules: map[string]string{},
			wantRegions: []page.Region{
				{StartMarker: "[", EndMarker: "]"},
			},
		},
		{
			name:      "protect",
			src:       `PROTECT(START_MARKER "<!--", END_MARKER "-->");`,
			wantRules: map[string]string{},
			wantRegions: []page.Region{
				{StartMarker: "<!--", EndMarker: "-->"},
			},
		},
		{
			name: "line_comments",
			src: `// leading comment
REPLACE(FROM "a", TO "b"); // trailing comment`,
			wantRules: map[string]string{"a": "b"},
		},
		{
			name:      "block_comments",
			src:       `/* before */ REPLACE(FROM "a", /* inline */ TO "b"); /* after */`,
			wantRules: map[string]string{"a": "b"},
		},
		{
			name:      "escaped_quote_in_string",
			src:       `REPLACE(FROM "say \"hi\"", TO "said hi");`,
			wantRules: map[string]string{`say "hi"`: "said hi"},
		},
		{
			name:      "multibyte_values",
			src:       `REPLACE(FROM "，", TO ", ");`,
			wantRules: map[string]string{"，": ", "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, diags := parseInto(t, tt.src)
			assert.Zero(t, errorCount(diags), "diagnostics: %v", diags)
			assert.Equal(t, tt.wantRules, rs.Replacements)
			assert.Equal(t, tt.wantRegions, rs.Regions)
		})
	}
}

func TestParseRules_Recovery(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantRules map[string]string
		wantErrs  int
	}{
		{
			name:      "unknown_command_then_valid",
			src:       `FROBNICATE(FROM "x"); REPLACE(FROM "a", TO "b");`,
			wantRules: map[string]string{"a": "b"},
			wantErrs:  1,
		},
		{
			name:      "missing_argument",
			src:       `REPLACE(FROM "a"); REPLACE(FROM "c", TO "d");`,
			wantRules: map[string]string{"c": "d"},
			wantErrs:  1,
		},
		{
			name:      "missing_paren",
			src:       `REPLACE(FROM "a", TO "b"; REPLACE(FROM "c", TO "d");`,
			wantRules: map[string]string{"c": "d"},
			wantErrs:  1,
		},
		{
			name:      "trailing_comma",
			src:       `REPLACE(FROM "a", TO "b",); REPLACE(FROM "c", TO "d");`,
			wantRules: map[string]string{"c": "d"},
			wantErrs:  1,
		},
		{
			name:      "unknown_key",
			src:       `REPLACE(FROM "a", INTO "b"); REPLACE(FROM "c", TO "d");`,
			wantRules: map[string]string{"c": "d"},
			wantErrs:  2, // unknown key + missing TO
		},
		{
			name:      "stray_token",
			src:       `; REPLACE(FROM "a", TO "b");`,
			wantRules: map[string]string{"a": "b"},
			wantErrs:  1,
		},
		{
			name:      "unexpected_eof",
			src:       `REPLACE(FROM "a", TO "b"`,
			wantRules: map[string]string{},
			wantErrs:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, diags := parseInto(t, tt.src)
			assert.Equal(t, tt.wantErrs, errorCount(diags), "diagnostics: %v", diags)
			assert.Equal(t, tt.wantRules, rs.Replacements)
		})
	}
}

func TestParseRules_Warnings(t *testing.T) {
	t.Run("duplicate_key_keeps_first", func(t *testing.T) {
		rs, diags := parseInto(t, `REPLACE(FROM "a", FROM "x", TO "b");`)
		require.Zero(t, errorCount(diags), "diagnostics: %v", diags)
		require.Len(t, diags, 1)
		assert.True(t, diags[0].Warning)
		assert.Equal(t, map[string]string{"a": "b"}, rs.Replacements)
	})

	t.Run("del_missing_rule_warns", func(t *testing.T) {
		_, diags := parseInto(t, `DEL(FROM "nope");`)
		require.Len(t, diags, 1)
		assert.True(t, diags[0].Warning)
	})
}

func TestParseRules_DiagnosticPosition(t *testing.T) {
	_, diags := parseInto(t, "\n\n  BOGUS(FROM \"x\");")
	require.NotEmpty(t, diags)
	assert.Equal(t, 3, diags[0].Line)
	assert.Contains(t, diags[0].String(), "test.subrc:3:")
}
