// Package processor orchestrates the substitution pipeline: load a file,
// scan its protected intervals, paginate it, fan the pages out to the
// worker pool, and hand completed files to the writeback coordinator
// exactly once.
package processor

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/subrc/pkg/page"
	"github.com/walteh/subrc/pkg/pool"
	"github.com/walteh/subrc/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// ProcessingResult is the per-file outcome returned to the caller.
type ProcessingResult struct {
	Path         string
	OK           bool
	Replacements int
	Err          string
}

// Options configures a Processor.
type Options struct {
	// Rules maps pattern → replacement, exact case-sensitive substrings.
	Rules map[string]string
	// Regions lists the protected marker pairs, in match-priority order.
	Regions []page.Region
	// PageSize overrides page.DefaultSize when > 0. Tests use small pages.
	PageSize int
}

// Processor applies one immutable rule snapshot to many files. Create with
// New, release with Close.
type Processor struct {
	automaton *text.Automaton
	regions   []page.Region
	pageSize  int

	pool *pool.Pool
	wb   *writebackCoordinator
}

// New builds the automaton snapshot, starts the pool with a single worker
// (ProcessFiles scales it up) and the background writeback coordinator.
func New(ctx context.Context, opts Options) (*Processor, error) {
	if opts.Rules == nil {
		return nil, errors.New("replacement rules are required")
	}

	p := &Processor{
		automaton: text.NewAutomaton(opts.Rules),
		regions:   opts.Regions,
		pageSize:  opts.PageSize,
		pool:      pool.New(1),
	}
	p.wb = newWritebackCoordinator(ctx, p.pool)

	return p, nil
}

// Close drains the writeback queue, then shuts the pool down. Safe to call
// more than once. Results handed out by ProcessFiles are only durable on
// disk after Close (or after the coordinator drained naturally).
func (p *Processor) Close() {
	p.wb.close()
	p.pool.Shutdown()
}

// preprocessed carries a load outcome through the pool callback. Load
// errors travel inside the value because a failed task skips its
// continuation, and the driver needs the continuation to run for every
// file to balance the pending count.
type preprocessed struct {
	fc    *page.FileContent
	pages []page.Page
	err   error
}

// ProcessFiles runs the whole pipeline over paths and returns one result
// per input path, in input order. maxWorkers == 0 picks a size from the
// file count and CPU count. Files whose replacement count is zero are
// never rewritten on disk.
func (p *Processor) ProcessFiles(ctx context.Context, paths []string, maxWorkers int) []ProcessingResult {
	if len(paths) == 0 {
		return nil
	}

	logger := zerolog.Ctx(ctx)

	workers := resolveWorkers(maxWorkers, len(paths))
	p.pool.Scaling(workers)
	logger.Debug().Int("workers", workers).Int("files", len(paths)).Msg("processing files")

	contents := make([]*page.FileContent, len(paths))
	pageResults := make([][]page.Result, len(paths))
	loadErrs := make([]error, len(paths))

	// pending counts one unit per file until preprocess lands, then one
	// per page. The file's own unit is traded for the first page, so the
	// count never touches zero before the last page of the last file.
	var pending sync.WaitGroup

	for i, path := range paths {
		i, path := i, path
		pending.Add(1)

		err := pool.SubmitFunc(p.pool, func() (preprocessed, error) {
			fc, pages, err := p.preprocess(path)
			return preprocessed{fc: fc, pages: pages, err: err}, nil
		}, func(pre preprocessed) {
			if pre.err != nil {
				loadErrs[i] = pre.err
				pending.Done()
				return
			}
			contents[i] = pre.fc
			if len(pre.pages) == 0 {
				// Empty file: nothing to process, nothing to write.
				pending.Done()
				return
			}

			pageResults[i] = make([]page.Result, len(pre.pages))
			pending.Add(len(pre.pages) - 1)

			for j, pg := range pre.pages {
				j, pg := j, pg
				if err := p.pool.Run(func() {
					pageResults[i][j] = p.processPage(pg)
					p.finishPage(pg)
					pending.Done()
				}); err != nil {
					// Pool shut down mid-run; account for the page so the
					// driver can still return.
					pageResults[i][j] = page.Result{
						PageID: pg.ID,
						Err:    err.Error(),
					}
					pg.File.MarkFailed()
					p.finishPage(pg)
					pending.Done()
				}
			}
		})
		if err != nil {
			loadErrs[i] = err
			pending.Done()
		}
	}

	pending.Wait()

	return p.collect(paths, contents, pageResults, loadErrs)
}

// processPage rewrites one page into its output slot. Protected pages are
// copied verbatim. Panics are caught per page and recorded on the result.
func (p *Processor) processPage(pg page.Page) (res page.Result) {
	res = page.Result{PageID: pg.ID, OK: true}

	defer func() {
		if r := recover(); r != nil {
			res.OK = false
			res.Err = fmt.Sprintf("page processing panic: %v", r)
			pg.File.MarkFailed()
		}
	}()

	content := pg.Text()
	if pg.Protected {
		pg.File.Slots[pg.ID] = content
		return res
	}

	rewritten, n := p.automaton.Apply(content)
	pg.File.Slots[pg.ID] = rewritten
	pg.File.AddReplacements(n)
	res.Replacements = n

	return res
}

// finishPage trips the file's completion latch. The single caller that
// observes the last page enqueues the writeback; failed files are skipped
// so a partial rewrite never reaches disk.
func (p *Processor) finishPage(pg page.Page) {
	if !pg.File.PageDone() {
		return
	}
	if pg.File.Failed() {
		return
	}
	p.wb.notify(pg.File, pg.File.Replacements())
}

// collect assembles per-file results from the stored page outcomes. A file
// fails if it did not load or if any page failed; the first page error is
// reported, and the replacement total still reflects pages that succeeded.
func (p *Processor) collect(paths []string, contents []*page.FileContent, pageResults [][]page.Result, loadErrs []error) []ProcessingResult {
	results := make([]ProcessingResult, len(paths))

	for i, path := range paths {
		results[i].Path = path

		if contents[i] == nil {
			results[i].OK = false
			if loadErrs[i] != nil {
				results[i].Err = loadErrs[i].Error()
			} else {
				results[i].Err = "failed to load file content"
			}
			continue
		}

		results[i].OK = true
		for _, pr := range pageResults[i] {
			if !pr.OK {
				if results[i].OK {
					results[i].OK = false
					results[i].Err = fmt.Sprintf("page %d: %s", pr.PageID, pr.Err)
				}
				continue
			}
			results[i].Replacements += pr.Replacements
		}
	}

	return results
}

// resolveWorkers turns the caller's thread-count hint into a pool size.
func resolveWorkers(hint, numFiles int) int {
	cpus := runtime.NumCPU()
	if cpus < 1 {
		cpus = 1
	}

	if hint <= 0 {
		return max(1, min(numFiles*2, cpus))
	}
	return max(1, min(hint, cpus))
}
