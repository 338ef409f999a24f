package run

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/alanlang/touchstone/internal/stage"
)

const progressIntervalMs = 500

// progressReporter prints periodic stage progress lines to stderr while a
// long batch runs, so a harness invoking hundreds of cases does not look
// hung. Disabled it is a pass-through.
type progressReporter struct {
	enabled  bool
	interval time.Duration
	w        io.Writer

	mu        sync.Mutex
	stageName string
	processed int
	errors    int
}

func newProgressReporter(enabled bool, w io.Writer) *progressReporter {
	return &progressReporter{
		enabled:  enabled,
		interval: progressIntervalMs * time.Millisecond,
		w:        w,
	}
}

func (p *progressReporter) runStage(ctx context.Context, name string, in stage.Envelope, deps stage.Deps) (stage.Envelope, error) {
	if p == nil || !p.enabled {
		return stage.Run(ctx, name, in, deps)
	}

	p.setSnapshot(name, len(in.Records), len(in.Errors))
	p.emit()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				p.emit()
			case <-done:
				return
			}
		}
	}()

	out, err := stage.Run(ctx, name, in, deps)
	close(done)
	if err == nil {
		p.setSnapshot(name, len(out.Records), len(out.Errors))
		p.emit()
	}
	return out, err
}

func (p *progressReporter) setSnapshot(stageName string, processed, errs int) {
	p.mu.Lock()
	p.stageName = stageName
	p.processed = processed
	p.errors = errs
	p.mu.Unlock()
}

func (p *progressReporter) emit() {
	if p == nil || !p.enabled || p.w == nil {
		return
	}
	p.mu.Lock()
	_, _ = fmt.Fprintf(p.w, "progress stage=%s records=%d errors=%d\n", p.stageName, p.processed, p.errors)
	p.mu.Unlock()
}
