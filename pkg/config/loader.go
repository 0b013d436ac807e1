package config

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// LoadFile parses one rule file into rs. The format is determined by the
// file extension:
// - .hcl for HCL
// - .yaml or .yml for YAML
// - .json for JSON
// - anything else (including the default .subrc) for the statement DSL
// DSL diagnostics are returned for the caller to report; the structured
// formats fail atomically on malformed input instead.
func LoadFile(ctx context.Context, path string, rs *RuleSet) ([]Diagnostic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading rule file: %w", err)
	}
	return LoadBytes(ctx, path, data, rs)
}

// LoadBytes is LoadFile for in-memory sources (the --console rule string
// uses the pseudo-path "<console>").
func LoadBytes(ctx context.Context, path string, data []byte, rs *RuleSet) ([]Diagnostic, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return nil, loadHCL(data, path, rs)
	case ".yaml", ".yml":
		return nil, loadYAML(data, rs)
	case ".json":
		return nil, loadJSON(data, rs)
	default:
		diags := ParseRules(path, string(data), rs)
		zerolog.Ctx(ctx).Debug().
			Str("path", path).
			Int("diagnostics", len(diags)).
			Msg("parsed rule file")
		return diags, nil
	}
}

// ruleFileDoc is the structured-format schema shared by YAML and JSON.
// Entries apply in a fixed order: clear, replace, delete, protect.
type ruleFileDoc struct {
	Clear   bool `yaml:"clear" json:"clear,omitempty"`
	Replace []struct {
		From string `yaml:"from" json:"from"`
		To   string `yaml:"to" json:"to"`
	} `yaml:"replace" json:"replace,omitempty"`
	Delete  []string `yaml:"delete" json:"delete,omitempty"`
	Protect []struct {
		StartMarker string `yaml:"start_marker" json:"start_marker"`
		EndMarker   string `yaml:"end_marker" json:"end_marker"`
	} `yaml:"protect" json:"protect,omitempty"`
}

func (d *ruleFileDoc) apply(rs *RuleSet) error {
	if d.Clear {
		rs.Clear()
	}
	for i, r := range d.Replace {
		if r.From == "" {
			return errors.Errorf("replace %d: from is required", i)
		}
		rs.Replace(r.From, r.To)
	}
	for _, from := range d.Delete {
		rs.Delete(from)
	}
	for i, pr := range d.Protect {
		if pr.StartMarker == "" || pr.EndMarker == "" {
			return errors.Errorf("protect %d: start_marker and end_marker are required", i)
		}
		rs.Protect(pr.StartMarker, pr.EndMarker)
	}
	return nil
}

func loadJSON(data []byte, rs *RuleSet) error {
	var doc ruleFileDoc
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return errors.Errorf("parsing JSON: %w", err)
	}
	return doc.apply(rs)
}

func loadYAML(data []byte, rs *RuleSet) error {
	var doc ruleFileDoc
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return errors.Errorf("parsing YAML: %w", err)
	}
	return doc.apply(rs)
}

// hclRuleFile mirrors ruleFileDoc with HCL block syntax:
//
//	replace { from = "x"  to = "y" }
//	protect { start_marker = "a"  end_marker = "b" }
//	delete = ["x"]
type hclRuleFile struct {
	Clear   bool `hcl:"clear,optional"`
	Replace []struct {
		From string `hcl:"from"`
		To   string `hcl:"to"`
	} `hcl:"replace,block"`
	Delete  []string `hcl:"delete,optional"`
	Protect []struct {
		StartMarker string `hcl:"start_marker"`
		EndMarker   string `hcl:"end_marker"`
	} `hcl:"protect,block"`
}

func loadHCL(data []byte, filename string, rs *RuleSet) error {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var doc hclRuleFile
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &doc)
	if diags.HasErrors() {
		return errors.Errorf("decoding HCL: %s", diags.Error())
	}

	if doc.Clear {
		rs.Clear()
	}
	for _, r := range doc.Replace {
		if r.From == "" {
			return errors.New("replace block: from is required")
		}
		rs.Replace(r.From, r.To)
	}
	for _, from := range doc.Delete {
		rs.Delete(from)
	}
	for _, pr := range doc.Protect {
		if pr.StartMarker == "" || pr.EndMarker == "" {
			return errors.New("protect block: start_marker and end_marker are required")
		}
		rs.Protect(pr.StartMarker, pr.EndMarker)
	}
	return nil
}
