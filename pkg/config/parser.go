package config

import (
	"fmt"
	"strings"
)

// Diagnostic is one parse problem, positioned the way compilers report:
// file:line:column. Warnings do not invalidate the statement that raised
// them; errors cause the parser to resynchronize to the next ';' and keep
// going, so one bad statement never aborts a rule file.
type Diagnostic struct {
	File    string
	Line    int
	Column  int
	Msg     string
	Warning bool
}

func (d Diagnostic) String() string {
	sev := "error"
	if d.Warning {
		sev = "warning"
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, sev, d.Msg)
}

// parser consumes the statement DSL with two tokens of lookahead and
// applies each statement to the rule set as it is recognized.
type parser struct {
	file  string
	lex   *lexer
	cur   token
	peek  token
	rules *RuleSet
	diags []Diagnostic
}

// ParseRules parses DSL source and applies its statements to rs. The
// returned diagnostics cover every recovered error and warning; the caller
// decides whether any of them are fatal.
func ParseRules(file, src string, rs *RuleSet) []Diagnostic {
	p := &parser{file: file, lex: newLexer(src), rules: rs}
	p.advance()
	p.advance()
	p.parse()
	return p.diags
}

func (p *parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.next()
}

func (p *parser) expect(typ tokenType) bool {
	if p.cur.typ == typ {
		p.advance()
		return true
	}
	return false
}

func (p *parser) errorf(tok token, format string, args ...any) {
	p.diags = append(p.diags, Diagnostic{
		File:   p.file,
		Line:   tok.line,
		Column: tok.column,
		Msg:    fmt.Sprintf(format, args...),
	})
}

func (p *parser) warnf(tok token, format string, args ...any) {
	p.diags = append(p.diags, Diagnostic{
		File:    p.file,
		Line:    tok.line,
		Column:  tok.column,
		Msg:     fmt.Sprintf(format, args...),
		Warning: true,
	})
}

// resync skips ahead to just past the next ';' so parsing can continue
// with the following statement.
func (p *parser) resync() {
	for p.cur.typ != tokenSemicolon && p.cur.typ != tokenEOF {
		p.advance()
	}
	if p.cur.typ == tokenSemicolon {
		p.advance()
	}
}

func (p *parser) parse() {
	for p.cur.typ != tokenEOF {
		p.parseStatement()
	}
}

func (p *parser) parseStatement() {
	if p.cur.typ != tokenIdent {
		p.errorf(p.cur, "expected statement")
		p.resync()
		return
	}

	keyword := strings.ToUpper(p.cur.value)

	if p.peek.typ != tokenLParen {
		p.errorf(p.peek, "expected '(' after %s (found %q)", keyword, p.peek.value)
		p.resync()
		return
	}

	p.advance() // keyword
	p.advance() // '('

	var ok bool
	switch keyword {
	case "REPLACE":
		ok = p.parseReplace()
	case "DEL":
		ok = p.parseDel()
	case "PROTECT":
		ok = p.parseProtect()
	case "CLEAR":
		ok = p.parseClear()
	default:
		p.errorf(p.cur, "unknown command %q", keyword)
		ok = false
	}

	if !ok {
		p.resync()
	}
}

// parseArgs reads the KEY "value" pairs inside a statement's parentheses.
// Known keys are collected; duplicates warn and keep the first value;
// unknown keys are reported. The closing ')' is left for the caller.
func (p *parser) parseArgs(keys ...string) (map[string]string, bool) {
	kwargs := make(map[string]string, len(keys))
	first := true

	for p.cur.typ != tokenRParen && p.cur.typ != tokenEOF {
		if p.cur.typ == tokenSemicolon {
			p.errorf(p.cur, "unexpected ';', expected ')'")
			return nil, false
		}

		// The comma between arguments is optional: REPLACE(FROM "," TO ";")
		// and REPLACE(FROM ",", TO ";") are both accepted.
		if !first && p.cur.typ == tokenComma {
			p.advance()
			if p.cur.typ == tokenRParen {
				p.errorf(p.cur, "trailing comma is not allowed")
				return nil, false
			}
		}

		if p.cur.typ != tokenIdent {
			p.errorf(p.cur, "expected argument key (got %q)", p.cur.value)
			return nil, false
		}
		key := strings.ToUpper(p.cur.value)
		p.advance()

		if p.cur.typ != tokenString {
			p.errorf(p.cur, "expected string value for key %q (got %q)", key, p.cur.value)
			return nil, false
		}
		value := p.cur.value
		valueTok := p.cur
		p.advance()

		known := false
		for _, k := range keys {
			if k == key {
				known = true
				break
			}
		}

		switch {
		case !known:
			p.errorf(valueTok, "unknown argument key %q", key)
		case hasKey(kwargs, key):
			p.warnf(valueTok, "duplicate key %q ignored", key)
		default:
			kwargs[key] = value
		}

		first = false
	}

	if p.cur.typ == tokenEOF {
		p.errorf(p.cur, "unexpected end of file, expected ')'")
		return nil, false
	}

	return kwargs, true
}

func hasKey(m map[string]string, k string) bool {
	_, ok := m[k]
	return ok
}

// closeStatement consumes the trailing ')' and ';' of stmt.
func (p *parser) closeStatement(stmt string) bool {
	if !p.expect(tokenRParen) {
		p.errorf(p.cur, "expected ')' after %s arguments", stmt)
		return false
	}
	if !p.expect(tokenSemicolon) {
		p.errorf(p.cur, "expected ';' after %s statement", stmt)
		return false
	}
	return true
}

// requireKeys verifies every named argument was supplied.
func (p *parser) requireKeys(stmt string, tok token, kwargs map[string]string, keys ...string) bool {
	for _, k := range keys {
		if !hasKey(kwargs, k) {
			p.errorf(tok, "missing argument %q in %s", k, stmt)
			return false
		}
	}
	return true
}

// REPLACE(FROM "x", TO "y");
func (p *parser) parseReplace() bool {
	start := p.cur
	kwargs, ok := p.parseArgs("FROM", "TO")
	if !ok {
		return false
	}
	if !p.requireKeys("REPLACE", start, kwargs, "FROM", "TO") {
		return false
	}
	if !p.closeStatement("REPLACE") {
		return false
	}

	p.rules.Replace(kwargs["FROM"], kwargs["TO"])
	return true
}

// DEL(FROM "x");
func (p *parser) parseDel() bool {
	start := p.cur
	kwargs, ok := p.parseArgs("FROM")
	if !ok {
		return false
	}
	if !p.requireKeys("DEL", start, kwargs, "FROM") {
		return false
	}
	if !p.closeStatement("DEL") {
		return false
	}

	if !p.rules.Delete(kwargs["FROM"]) {
		p.warnf(start, "no rule found to erase for %q", kwargs["FROM"])
	}
	return true
}

// PROTECT(START_MARKER "a", END_MARKER "b");
func (p *parser) parseProtect() bool {
	start := p.cur
	kwargs, ok := p.parseArgs("START_MARKER", "END_MARKER")
	if !ok {
		return false
	}
	if !p.requireKeys("PROTECT", start, kwargs, "START_MARKER", "END_MARKER") {
		return false
	}
	if !p.closeStatement("PROTECT") {
		return false
	}

	p.rules.Protect(kwargs["START_MARKER"], kwargs["END_MARKER"])
	return true
}

// CLEAR();
func (p *parser) parseClear() bool {
	if !p.closeStatement("CLEAR") {
		return false
	}
	p.rules.Clear()
	return true
}
