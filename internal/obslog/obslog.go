// Package obslog provides structured logging built on log/slog, plus a
// bounded per-run ring buffer (§4.4 O2) so the ingestion framework can
// capture every log line an adapter emits and flush it into the run
// record at completion.
package obslog

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// ringState is the mutable backing store a RingBuffer's Handle/Flush
// operate on. slog.Handler.WithAttrs/WithGroup must return a handler that
// shares this state with the original — a value-copied RingBuffer would
// silently detach the clone logger.With(...) hands back to callers from
// the one Framework.Run later flushes.
type ringState struct {
	mu        sync.Mutex
	maxLines  int
	lines     []string
	truncated bool
}

func (s *ringState) append(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lines) >= s.maxLines {
		s.lines = s.lines[1:]
		s.truncated = true
	}
	s.lines = append(s.lines, line)
}

func (s *ringState) flush() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	if s.truncated {
		b.WriteString("... [log truncated, oldest lines dropped] ...\n")
	}
	for _, l := range s.lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}

// RingBuffer is an slog.Handler that retains at most maxLines lines,
// dropping the oldest and recording a truncation sentinel once the bound
// is exceeded.
type RingBuffer struct {
	state *ringState
	next  slog.Handler
}

const defaultMaxLines = 5000

// NewRingBuffer creates a ring buffer bounded at maxLines (0 uses the
// framework default of 5000). next, if non-nil, also receives every
// record (useful for mirroring to stderr during development).
func NewRingBuffer(maxLines int, next slog.Handler) *RingBuffer {
	if maxLines <= 0 {
		maxLines = defaultMaxLines
	}
	return &RingBuffer{state: &ringState{maxLines: maxLines}, next: next}
}

func (r *RingBuffer) Enabled(ctx context.Context, level slog.Level) bool { return true }

func (r *RingBuffer) Handle(ctx context.Context, rec slog.Record) error {
	var b strings.Builder
	b.WriteString(rec.Level.String())
	b.WriteString(" ")
	b.WriteString(rec.Message)
	rec.Attrs(func(a slog.Attr) bool {
		b.WriteString(" ")
		b.WriteString(a.Key)
		b.WriteString("=")
		b.WriteString(a.Value.String())
		return true
	})

	r.state.append(b.String())

	if r.next != nil {
		return r.next.Handle(ctx, rec)
	}
	return nil
}

func (r *RingBuffer) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := r.next
	if next != nil {
		next = next.WithAttrs(attrs)
	}
	return &RingBuffer{state: r.state, next: next}
}

func (r *RingBuffer) WithGroup(name string) slog.Handler {
	next := r.next
	if next != nil {
		next = next.WithGroup(name)
	}
	return &RingBuffer{state: r.state, next: next}
}

// Flush renders the captured lines as a single text block, with a leading
// truncation sentinel if the bound was ever exceeded.
func (r *RingBuffer) Flush() string {
	return r.state.flush()
}

// New builds a *slog.Logger over the given ring buffer with contextual
// fields (source, run_id) attached, mirroring the original's
// get_context_logger(name, **fields).
func New(rb *RingBuffer, source, runID string) *slog.Logger {
	return slog.New(rb).With("source", source, "run_id", runID)
}
