// Package page splits a file's text into independently processable units
// that never slice through a protected span.
package page

import "sync/atomic"

// Region is a pair of textual markers delimiting spans that are exempt
// from substitution.
type Region struct {
	StartMarker string
	EndMarker   string
}

// Interval is one marker-delimited protected span inside a file, expressed
// in byte offsets over the whole file text.
type Interval struct {
	StartFirst int // offset of the first byte of the start marker
	EndLast    int // offset of the last byte of the end marker (inclusive)
	StartLen   int
	EndLen     int
}

// SkipTo returns the offset right after the end marker.
func (iv Interval) SkipTo() int {
	return iv.EndLast + 1
}

// Contains reports whether pos lies inside the interval.
func (iv Interval) Contains(pos int) bool {
	return iv.StartFirst <= pos && pos <= iv.EndLast
}

// FileContent is the shared per-file state. Its text is read-only during
// processing; Slots is written disjointly (one index per page task) and
// must only be read after the completion latch has tripped.
type FileContent struct {
	Path      string
	Text      string
	Intervals []Interval

	// Slots holds each page's processed text, indexed by page id.
	Slots []string

	latch        Latch
	replacements atomic.Int64
	failed       atomic.Bool
}

// NewFileContent wraps decoded file text for processing. Intervals and the
// latch are populated by ScanIntervals and Paginate.
func NewFileContent(path, text string) *FileContent {
	return &FileContent{Path: path, Text: text}
}

// AddReplacements accumulates a page's replacement count into the file total.
func (fc *FileContent) AddReplacements(n int) {
	fc.replacements.Add(int64(n))
}

// Replacements returns the file's total replacement count so far.
func (fc *FileContent) Replacements() int {
	return int(fc.replacements.Load())
}

// MarkFailed records that at least one page of this file failed.
func (fc *FileContent) MarkFailed() {
	fc.failed.Store(true)
}

// Failed reports whether any page of this file failed.
func (fc *FileContent) Failed() bool {
	return fc.failed.Load()
}

// PageDone decrements the pending-page latch. It returns true for exactly
// one caller: the one that completed the file's last page. Only that caller
// may enqueue the file's writeback.
func (fc *FileContent) PageDone() bool {
	return fc.latch.Done()
}

// Pending returns the number of pages still outstanding.
func (fc *FileContent) Pending() int {
	return fc.latch.Pending()
}

// Page is a contiguous slice of a file's text assigned as one unit of
// replacement work. Pages partition [0, len(text)) with no gap or overlap.
type Page struct {
	File      *FileContent
	ID        int
	Start     int // byte offset, inclusive
	End       int // byte offset, exclusive
	Protected bool
}

// Text returns the page's slice of the file text.
func (p Page) Text() string {
	return p.File.Text[p.Start:p.End]
}

// Result is the outcome of processing one page.
type Result struct {
	PageID       int
	Replacements int
	OK           bool
	Err          string
}

// Latch is a one-shot completion counter. It is set to the number of
// outstanding units and decremented once per completed unit; exactly one
// decrement observes the transition to zero. The atomic add doubles as the
// release/acquire fence ordering the units' slot writes before whatever the
// winning caller does next.
type Latch struct {
	n atomic.Int64
}

// Reset arms the latch with n outstanding units.
func (l *Latch) Reset(n int) {
	l.n.Store(int64(n))
}

// Done records one completed unit and reports whether this call tripped the
// latch. The fetch-and-add keeps the check race-free: a separate load and
// compare could let two callers both observe zero.
func (l *Latch) Done() bool {
	return l.n.Add(-1) == 0
}

// Pending returns the current outstanding count.
func (l *Latch) Pending() int {
	return int(l.n.Load())
}
