// Package audit records who did what to which document. Recording never fails
// the operation being audited; sink errors are logged and dropped.
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type actorKey struct{}

// WithActor attaches the authenticated operator uid to ctx.
func WithActor(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, actorKey{}, uid)
}

// ActorFrom returns the operator uid, or "system" for background work.
func ActorFrom(ctx context.Context) string {
	if uid, ok := ctx.Value(actorKey{}).(string); ok && uid != "" {
		return uid
	}
	return "system"
}

type Entry struct {
	ID     int64          `json:"id,omitempty"`
	Actor  string         `json:"actor"`
	Action string         `json:"action"`
	Target string         `json:"target"`
	Detail map[string]any `json:"detail,omitempty"`
	At     time.Time      `json:"at"`
}

type Sink interface {
	Write(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

type Recorder struct {
	sink   Sink
	feed   *Feed
	logger *zap.Logger
	now    func() time.Time
}

func NewRecorder(sink Sink, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{sink: sink, logger: logger, now: time.Now}
}

// WithFeed makes the recorder publish every entry to f after writing it.
func (r *Recorder) WithFeed(f *Feed) *Recorder {
	r.feed = f
	return r
}

// Record writes an entry for action on target. A nil Recorder is a no-op.
func (r *Recorder) Record(ctx context.Context, action, target string, detail map[string]any) {
	if r == nil {
		return
	}
	e := Entry{
		Actor:  ActorFrom(ctx),
		Action: action,
		Target: target,
		Detail: detail,
		At:     r.now().UTC(),
	}
	// the audited request may already be past its deadline
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := r.sink.Write(ctx, e); err != nil {
		r.logger.Error("audit write failed",
			zap.String("action", action),
			zap.String("target", target),
			zap.Error(err),
		)
	}
	if r.feed != nil {
		r.feed.Publish(e)
	}
}

func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return r.sink.Recent(ctx, limit)
}

// LogSink writes entries to the logger and keeps the latest ones in memory.
type LogSink struct {
	logger *zap.Logger
	mu     sync.Mutex
	ring   []Entry
	size   int
	seq    int64
}

func NewLogSink(logger *zap.Logger, keep int) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keep <= 0 {
		keep = 500
	}
	return &LogSink{logger: logger, size: keep}
}

func (s *LogSink) Write(_ context.Context, e Entry) error {
	s.mu.Lock()
	s.seq++
	e.ID = s.seq
	s.ring = append(s.ring, e)
	if len(s.ring) > s.size {
		s.ring = s.ring[len(s.ring)-s.size:]
	}
	s.mu.Unlock()

	s.logger.Info("audit",
		zap.String("actor", e.Actor),
		zap.String("action", e.Action),
		zap.String("target", e.Target),
		zap.Any("detail", e.Detail),
	)
	return nil
}

// Recent returns the newest entries first.
func (s *LogSink) Recent(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, min(limit, len(s.ring)))
	for i := len(s.ring) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.ring[i])
	}
	return out, nil
}
