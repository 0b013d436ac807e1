package page

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertTiling checks the structural invariant: pages reconstruct the
// content exactly, in id order, with no gap or overlap.
func assertTiling(t *testing.T, fc *FileContent, pages []Page) {
	t.Helper()

	offset := 0
	var sb strings.Builder
	for i, p := range pages {
		require.Equal(t, i, p.ID)
		require.Equal(t, offset, p.Start, "page %d leaves a gap or overlaps", i)
		require.Less(t, p.Start, p.End, "page %d is empty", i)
		sb.WriteString(p.Text())
		offset = p.End
	}
	require.Equal(t, fc.Text, sb.String())
}

func TestPaginate_TilesContent(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		regions  []Region
		pageSize int
	}{
		{name: "empty", text: "", pageSize: 8},
		{name: "single_small_page", text: "hello world", pageSize: 64},
		{name: "many_pages_no_boundary", text: strings.Repeat("x", 100), pageSize: 16},
		{name: "newline_boundaries", text: strings.Repeat("line one\nline two\n", 40), pageSize: 64},
		{name: "space_boundaries", text: strings.Repeat("word ", 200), pageSize: 64},
		{name: "protected_in_middle", text: "aaaa[keep this]bbbb", regions: []Region{{StartMarker: "[", EndMarker: "]"}}, pageSize: 8},
		{name: "protected_at_start", text: "[keep]tail", regions: []Region{{StartMarker: "[", EndMarker: "]"}}, pageSize: 4},
		{name: "protected_at_end", text: "head[keep]", regions: []Region{{StartMarker: "[", EndMarker: "]"}}, pageSize: 4},
		{name: "adjacent_protected", text: "[a][b][c]", regions: []Region{{StartMarker: "[", EndMarker: "]"}}, pageSize: 4},
		{name: "unterminated_protected", text: "head[no end here", regions: []Region{{StartMarker: "[", EndMarker: "]"}}, pageSize: 4},
		{name: "big_protected_span", text: "x[" + strings.Repeat("p", 500) + "]y", regions: []Region{{StartMarker: "[", EndMarker: "]"}}, pageSize: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := NewFileContent("test.txt", tt.text)
			fc.Intervals = ScanIntervals(tt.text, tt.regions)
			pages := Paginate(fc, tt.pageSize)

			if tt.text == "" {
				assert.Empty(t, pages)
				return
			}

			assertTiling(t, fc, pages)
			assert.Equal(t, len(pages), fc.Pending())
			assert.Len(t, fc.Slots, len(pages))

			// No page straddles a protected interval, and each interval is
			// fully contained in exactly one protected page.
			for _, iv := range fc.Intervals {
				owners := 0
				for _, p := range pages {
					if p.Start <= iv.StartFirst && iv.EndLast < p.End {
						require.True(t, p.Protected)
						owners++
						continue
					}
					straddles := p.Start <= iv.EndLast && iv.StartFirst < p.End
					require.False(t, straddles && !p.Protected,
						"regular page [%d,%d) straddles interval [%d,%d]",
						p.Start, p.End, iv.StartFirst, iv.EndLast)
				}
				assert.Equal(t, 1, owners, "interval [%d,%d] owners", iv.StartFirst, iv.EndLast)
			}
		})
	}
}

func TestPaginate_SnapsToNewline(t *testing.T) {
	// A newline sits a few bytes before the 16-byte cut; the page should
	// end right after it.
	text := "0123456789ab\ncdefghijklmnopqrstuvwx"
	fc := NewFileContent("t", text)
	pages := Paginate(fc, 16)

	require.GreaterOrEqual(t, len(pages), 2)
	assert.Equal(t, "0123456789ab\n", pages[0].Text())
}

func TestPaginate_ProtectedPageMarked(t *testing.T) {
	text := "aa[bb]cc"
	fc := NewFileContent("t", text)
	fc.Intervals = ScanIntervals(text, []Region{{StartMarker: "[", EndMarker: "]"}})
	pages := Paginate(fc, DefaultSize)

	require.Len(t, pages, 3)
	assert.False(t, pages[0].Protected)
	assert.Equal(t, "aa", pages[0].Text())
	assert.True(t, pages[1].Protected)
	assert.Equal(t, "[bb]", pages[1].Text())
	assert.False(t, pages[2].Protected)
	assert.Equal(t, "cc", pages[2].Text())
}

func TestLatch_ExactlyOneWinner(t *testing.T) {
	const units = 64

	var l Latch
	l.Reset(units)

	winners := make(chan struct{}, units)
	done := make(chan struct{})
	for i := 0; i < units; i++ {
		go func() {
			if l.Done() {
				winners <- struct{}{}
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < units; i++ {
		<-done
	}

	assert.Len(t, winners, 1)
	assert.Equal(t, 0, l.Pending())
}

func TestFileContent_Counters(t *testing.T) {
	fc := NewFileContent("t", "abc")
	fc.AddReplacements(3)
	fc.AddReplacements(2)
	assert.Equal(t, 5, fc.Replacements())

	assert.False(t, fc.Failed())
	fc.MarkFailed()
	assert.True(t, fc.Failed())
}
