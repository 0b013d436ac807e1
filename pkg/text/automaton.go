// Package text implements the exact-substring replacement automaton.
//
// Patterns are assumed to be mutually non-overlapping: no pattern occurs
// inside another, and no two patterns share a prefix relationship that
// matters at match time. Under that assumption the trie walk below never
// needs full Aho-Corasick failure propagation; when the walk dies or a
// terminal is reached, restarting from the root at the next position is
// correct.
package text

import "strings"

// Automaton is an immutable multi-pattern replacer built once from a
// pattern→replacement map. It is safe to share across goroutines after
// Build returns.
type Automaton struct {
	nodes []node
}

// node is one trie state. Nodes live in a flat arena and address each
// other by index, so the whole structure is a couple of slices rather
// than a web of pointers.
type node struct {
	children    map[byte]int32
	replacement string
	patternLen  int // 0 means non-terminal
}

const rootIdx int32 = 0

// NewAutomaton builds an automaton from the given replacement map.
// Empty patterns are skipped. The map is not retained.
func NewAutomaton(rules map[string]string) *Automaton {
	a := &Automaton{}
	a.Build(rules)
	return a
}

// Build resets the automaton and rebuilds the trie from rules.
func (a *Automaton) Build(rules map[string]string) {
	a.nodes = a.nodes[:0]
	a.nodes = append(a.nodes, node{children: make(map[byte]int32)})

	for pat, rep := range rules {
		if pat == "" {
			continue
		}

		cur := rootIdx
		for i := 0; i < len(pat); i++ {
			ch := pat[i]
			next, ok := a.nodes[cur].children[ch]
			if !ok {
				next = int32(len(a.nodes))
				a.nodes = append(a.nodes, node{children: make(map[byte]int32)})
				a.nodes[cur].children[ch] = next
			}
			cur = next
		}
		a.nodes[cur].replacement = rep
		a.nodes[cur].patternLen = len(pat)
	}
}

// Len reports the number of trie states, including the root.
func (a *Automaton) Len() int {
	return len(a.nodes)
}

// Empty reports whether the automaton holds no patterns.
func (a *Automaton) Empty() bool {
	return len(a.nodes) <= 1
}

// Apply performs a single left-to-right pass over text, replacing every
// pattern occurrence. It returns the rewritten text and the number of
// replacements made. When nothing matched the input string is returned
// as-is with no allocation.
//
// At each position the trie is walked forward; the first terminal reached
// wins and the scan resumes after the matched pattern. With non-overlapping
// patterns that terminal is the only possible match at the position. For
// prefix-related patterns ("ab" and "abc") the shorter one shadows the
// longer; that behavior is pinned by TestAutomaton_PrefixShadowing.
func (a *Automaton) Apply(text string) (string, int) {
	if a.Empty() || text == "" {
		return text, 0
	}

	var b strings.Builder
	count := 0

	pos := 0
	copyStart := 0 // start of the pending unmatched run
	copyEnd := 0   // end of the pending unmatched run (exclusive)

	flush := func() {
		if copyEnd > copyStart {
			b.WriteString(text[copyStart:copyEnd])
			copyStart = copyEnd
		}
	}

	for pos < len(text) {
		cur := rootIdx
		matchLen := 0
		replacement := ""

		for i := pos; i < len(text); i++ {
			next, ok := a.nodes[cur].children[text[i]]
			if !ok {
				break
			}
			cur = next

			if a.nodes[cur].patternLen > 0 {
				matchLen = a.nodes[cur].patternLen
				replacement = a.nodes[cur].replacement
				break
			}
		}

		if matchLen > 0 {
			flush()
			b.WriteString(replacement)
			pos += matchLen
			copyStart = pos
			copyEnd = pos
			count++
		} else {
			// Unmatched runs are flushed in batches, not byte by byte.
			copyEnd = pos + 1
			pos++
		}
	}

	if count == 0 {
		return text, 0
	}

	flush()
	return b.String(), count
}
