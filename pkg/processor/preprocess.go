package processor

import (
	"bytes"
	"os"

	"github.com/walteh/subrc/pkg/page"
	"gitlab.com/tozd/go/errors"
)

// binarySniffLen is how many leading bytes are sampled for NUL density.
const binarySniffLen = 1024

// preprocess loads a file, rejects binaries, scans protected intervals and
// paginates the content. Runs on a pool worker.
func (p *Processor) preprocess(path string) (*page.FileContent, []page.Page, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Errorf("reading file: %w", err)
	}

	if isBinary(raw) {
		return nil, nil, errors.Errorf("refusing to process %s: binary content detected", path)
	}

	fc := page.NewFileContent(path, string(raw))
	fc.Intervals = page.ScanIntervals(fc.Text, p.regions)
	pages := page.Paginate(fc, p.pageSize)

	return fc, pages, nil
}

// isBinary samples the first KiB and reports true when at least 1% of the
// sampled bytes are NUL.
func isBinary(data []byte) bool {
	sample := data
	if len(sample) > binarySniffLen {
		sample = sample[:binarySniffLen]
	}
	if len(sample) == 0 {
		return false
	}

	nulls := bytes.Count(sample, []byte{0})
	return nulls*100 >= len(sample)
}
