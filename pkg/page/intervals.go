package page

import (
	"sort"
	"strings"
)

// ScanIntervals walks text once and records every marker-delimited
// protected span. At each position the regions are tried in order and the
// first start marker that matches wins; its paired end marker is searched
// forward, and scanning resumes immediately past it. A start marker whose
// end marker never appears protects everything through end-of-text.
//
// The result is sorted by start offset and non-overlapping. Complexity is
// O(len(text) × len(regions)).
func ScanIntervals(text string, regions []Region) []Interval {
	if len(regions) == 0 || text == "" {
		return nil
	}

	var intervals []Interval

	pos := 0
	for pos < len(text) {
		var matched *Region
		for i := range regions {
			r := &regions[i]
			if r.StartMarker == "" || r.EndMarker == "" {
				continue
			}
			if strings.HasPrefix(text[pos:], r.StartMarker) {
				matched = r
				break
			}
		}

		if matched == nil {
			pos++
			continue
		}

		startPos := pos
		endSearch := startPos + len(matched.StartMarker)
		endBegin := strings.Index(text[endSearch:], matched.EndMarker)

		if endBegin < 0 {
			// Unterminated region: protect through end-of-text.
			intervals = append(intervals, Interval{
				StartFirst: startPos,
				EndLast:    len(text) - 1,
				StartLen:   len(matched.StartMarker),
				EndLen:     len(matched.EndMarker),
			})
			break
		}

		endLast := endSearch + endBegin + len(matched.EndMarker) - 1
		intervals = append(intervals, Interval{
			StartFirst: startPos,
			EndLast:    endLast,
			StartLen:   len(matched.StartMarker),
			EndLen:     len(matched.EndMarker),
		})
		pos = endLast + 1
	}

	// Scan order already yields ascending starts; keep the sort as a
	// guardrail for the paginator's sorted-input requirement.
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].StartFirst < intervals[j].StartFirst
	})

	return intervals
}
