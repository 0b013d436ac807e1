package processor

import (
	"bufio"
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/subrc/pkg/page"
	"github.com/walteh/subrc/pkg/pool"
)

// writebackNotification pairs a fully processed file with its total
// replacement count. Enqueued exactly once per file.
type writebackNotification struct {
	fc           *page.FileContent
	replacements int
}

// writebackCoordinator is the background consumer that persists completed
// files. When the pool has idle workers it hands batches of writes off to
// them; otherwise it writes on its own goroutine as backpressure.
type writebackCoordinator struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue []writebackNotification
	stop  bool

	pool   *pool.Pool
	logger zerolog.Logger
	done   chan struct{}
}

func newWritebackCoordinator(ctx context.Context, p *pool.Pool) *writebackCoordinator {
	w := &writebackCoordinator{
		pool:   p,
		logger: *zerolog.Ctx(ctx),
		done:   make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// notify enqueues one completed file. Called by the page task that tripped
// the file's completion latch.
func (w *writebackCoordinator) notify(fc *page.FileContent, replacements int) {
	w.mu.Lock()
	w.queue = append(w.queue, writebackNotification{fc: fc, replacements: replacements})
	w.mu.Unlock()
	w.cond.Signal()
}

// close drains the remaining queue entries, then stops the goroutine. The
// in-flight writes it delegated to the pool are awaited by the pool's own
// shutdown. Idempotent.
func (w *writebackCoordinator) close() {
	w.mu.Lock()
	if w.stop {
		w.mu.Unlock()
		return
	}
	w.stop = true
	w.mu.Unlock()

	w.cond.Broadcast()
	<-w.done
}

func (w *writebackCoordinator) run() {
	defer close(w.done)

	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.stop {
			w.cond.Wait()
		}
		if len(w.queue) == 0 && w.stop {
			w.mu.Unlock()
			return
		}

		if idle := w.pool.Idle(); idle > 0 {
			// Spare capacity: drain up to idle entries onto the pool so a
			// slow disk does not serialize behind this goroutine.
			n := min(idle, len(w.queue))
			batch := make([]writebackNotification, n)
			copy(batch, w.queue[:n])
			w.queue = w.queue[n:]
			w.mu.Unlock()

			for _, nt := range batch {
				nt := nt
				if err := w.pool.Run(func() { w.write(nt) }); err != nil {
					w.write(nt)
				}
			}
			continue
		}

		nt := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		w.write(nt)
	}
}

// write persists one file, concatenating its page slots in id order.
// Untouched files are never reopened, so their bytes and mtime stay
// intact. Failures are logged and not retried.
func (w *writebackCoordinator) write(nt writebackNotification) {
	if nt.replacements == 0 {
		w.logger.Debug().Str("path", nt.fc.Path).Msg("no replacements, skipping writeback")
		return
	}

	f, err := os.OpenFile(nt.fc.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		w.logger.Error().Err(err).Str("path", nt.fc.Path).Msg("opening file for writeback")
		return
	}

	buf := bufio.NewWriter(f)
	for _, slot := range nt.fc.Slots {
		if _, err := buf.WriteString(slot); err != nil {
			w.logger.Error().Err(err).Str("path", nt.fc.Path).Msg("writing page")
			_ = f.Close()
			return
		}
	}

	if err := buf.Flush(); err != nil {
		w.logger.Error().Err(err).Str("path", nt.fc.Path).Msg("flushing writeback")
		_ = f.Close()
		return
	}
	if err := f.Close(); err != nil {
		w.logger.Error().Err(err).Str("path", nt.fc.Path).Msg("closing file")
		return
	}

	w.logger.Debug().
		Str("path", nt.fc.Path).
		Int("replacements", nt.replacements).
		Msg("wrote file")
}
