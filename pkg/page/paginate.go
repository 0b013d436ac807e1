package page

import "strings"

const (
	// DefaultSize is the target size of a regular page.
	DefaultSize = 16 * 1024

	// boundaryWindow is how far back from a tentative page end we look
	// for a newline or space to split on.
	boundaryWindow = 100
)

// Paginate tiles fc.Text into an ordered sequence of pages. Protected
// intervals become single protected pages; everything else is cut into
// regular pages of at most pageSize bytes, truncated so they never cross
// into a protected interval and snapped back to a word or line boundary
// when one is close enough. It arms the file's completion latch with the
// page count and pre-sizes the per-page output slots.
//
// Invariants: the pages' [Start,End) ranges partition [0, len(fc.Text))
// in id order with no gap or overlap, and every protected interval is
// fully contained in exactly one protected page.
func Paginate(fc *FileContent, pageSize int) []Page {
	if fc == nil || fc.Text == "" {
		return nil
	}
	if pageSize <= 0 {
		pageSize = DefaultSize
	}

	content := fc.Text
	intervals := fc.Intervals

	var pages []Page
	start := 0
	ivIdx := 0

	for start < len(content) {
		var next *Interval
		if ivIdx < len(intervals) && intervals[ivIdx].StartFirst >= start {
			next = &intervals[ivIdx]
		}

		if next != nil && next.StartFirst == start {
			// The whole protected span is one page.
			end := min(next.SkipTo(), len(content))
			pages = append(pages, Page{
				File:      fc,
				ID:        len(pages),
				Start:     start,
				End:       end,
				Protected: true,
			})
			start = end
			ivIdx++
			continue
		}

		end := min(start+pageSize, len(content))
		if next != nil && end > next.StartFirst {
			end = next.StartFirst
		}

		// Prefer splitting at a newline or space near the cut, as long as
		// the page was not already truncated at a protected boundary.
		if end < len(content) && (next == nil || end < next.StartFirst) {
			end = snapToBoundary(content, start, end)
			if next != nil && end > next.StartFirst {
				end = next.StartFirst
			}
		}

		pages = append(pages, Page{
			File:  fc,
			ID:    len(pages),
			Start: start,
			End:   end,
		})
		start = end
	}

	fc.latch.Reset(len(pages))
	fc.Slots = make([]string, len(pages))

	return pages
}

// snapToBoundary moves end backward to just past the nearest newline
// (preferred) or space within boundaryWindow bytes, without ever moving to
// or before start.
func snapToBoundary(content string, start, end int) int {
	searchStart := max(start, end-boundaryWindow)

	window := content[searchStart : end+1]
	if nl := strings.LastIndexByte(window, '\n'); nl > 0 {
		return searchStart + nl + 1
	}
	if sp := strings.LastIndexByte(window, ' '); sp > 0 {
		return searchStart + sp + 1
	}
	return end
}
