package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"mlcshim/internal/sse"
	"mlcshim/pkg/types"
)

// Bridge runs one CLI child per chat request and streams its answer.
type Bridge struct {
	cfg       Config
	slots     chan struct{}
	inflight  atomic.Int64
	publisher EventPublisher
	log       zerolog.Logger
	startTime time.Time
}

// New constructs a Bridge. Events are dropped and logging is disabled until
// SetEventPublisher and SetLogger are called.
func New(cfg Config) *Bridge {
	cfg = cfg.withDefaults()
	b := &Bridge{
		cfg:       cfg,
		publisher: noopPublisher{},
		log:       zerolog.Nop(),
		startTime: time.Now(),
	}
	if cfg.MaxConcurrent > 0 {
		b.slots = make(chan struct{}, cfg.MaxConcurrent)
	}
	return b
}

// SetEventPublisher installs an EventPublisher; nil restores the no-op publisher.
func (b *Bridge) SetEventPublisher(p EventPublisher) {
	if p == nil {
		b.publisher = noopPublisher{}
		return
	}
	b.publisher = p
}

// SetLogger sets the logger used for per-child diagnostics.
func (b *Bridge) SetLogger(l zerolog.Logger) { b.log = l }

// Config returns the bridge's settings.
func (b *Bridge) Config() Config { return b.cfg }

// ListModels returns the single configured model.
func (b *Bridge) ListModels() []types.ModelInfo {
	return []types.ModelInfo{{ID: b.cfg.ModelName, Object: "model"}}
}

// Inflight returns the number of running children.
func (b *Bridge) Inflight() int { return int(b.inflight.Load()) }

// Status returns a snapshot for GET /status.
func (b *Bridge) Status() types.StatusResponse {
	now := time.Now()
	return types.StatusResponse{
		Model:          b.cfg.ModelName,
		CLIPath:        b.cfg.CLIPath,
		Device:         b.cfg.Device,
		TimeoutSeconds: int(b.cfg.Timeout / time.Second),
		Inflight:       b.Inflight(),
		MaxConcurrent:  b.cfg.MaxConcurrent,
		Checks:         b.Preflight(),
		UptimeSeconds:  int64(now.Sub(b.startTime) / time.Second),
		ServerTimeUnix: now.Unix(),
	}
}

// StreamChat sanitizes prompt, runs the CLI with it and writes SSE frames to w,
// calling flush after each frame. The stream ends with [DONE] on success, with
// a single error frame on timeout or spawn failure, and with nothing when ctx
// is canceled. The child is always killed and reaped before StreamChat returns.
func (b *Bridge) StreamChat(ctx context.Context, prompt string, w io.Writer, flush func()) error {
	enc := sse.NewEncoder(w, flush, b.cfg.ModelName)
	clean := SanitizePrompt(prompt)

	child, err := Spawn(ctx, SpawnSpec{
		Path:    b.cfg.CLIPath,
		Args:    BuildArgs(b.cfg, clean),
		Timeout: b.cfg.Timeout,
	})
	if err != nil {
		streamsTotal.WithLabelValues(outcomeSpawnError).Inc()
		b.publisher.Publish(Event{Name: EventSpawnError, Fields: map[string]any{"error": err.Error()}})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if werr := enc.Error(err.Error()); werr != nil {
			return errors.Join(err, werr)
		}
		return err
	}

	pid := child.PID()
	b.inflight.Add(1)
	inflightChildren.Inc()
	childrenStarted.Inc()
	b.publisher.Publish(Event{Name: EventSpawnStart, PID: pid, Fields: map[string]any{"prompt_len": len(clean)}})
	b.log.Debug().Int("pid", pid).Int("prompt_len", len(clean)).Msg("cli started")

	defer func() {
		waitErr := child.Close()
		b.inflight.Add(-1)
		inflightChildren.Dec()
		childDuration.Observe(child.Elapsed().Seconds())
		fields := map[string]any{"exit_code": child.ExitCode(), "elapsed_ms": child.Elapsed().Milliseconds()}
		if waitErr != nil {
			fields["wait_error"] = waitErr.Error()
		}
		b.publisher.Publish(Event{Name: EventChildExit, PID: pid, Fields: fields})
	}()

	err = b.pump(ctx, child, enc)
	switch {
	case err == nil:
		streamsTotal.WithLabelValues(outcomeDone).Inc()
	case IsTimeout(err):
		streamsTotal.WithLabelValues(outcomeTimeout).Inc()
		b.publisher.Publish(Event{Name: EventTimeout, PID: pid, Fields: map[string]any{"timeout_s": int(b.cfg.Timeout / time.Second)}})
	default:
		streamsTotal.WithLabelValues(outcomeAborted).Inc()
		b.publisher.Publish(Event{Name: EventAborted, PID: pid, Fields: map[string]any{"error": err.Error()}})
	}
	return err
}

// pump reads the child's output, segments it and writes token frames.
func (b *Bridge) pump(ctx context.Context, child *Child, enc *sse.Encoder) error {
	seg := NewSegmenter()
	buf := make([]byte, b.cfg.ChunkSize)
	p := &pacer{delay: b.cfg.Pace, child: child}

	for {
		n, rerr := child.Read(buf)
		if n > 0 {
			if child.Expired() {
				return b.timeout(child, enc)
			}
			b.log.Trace().Int("pid", child.PID()).Str("phase", seg.Phase().String()).Int("bytes", n).Msg("cli output")
			for _, tok := range seg.Feed(string(buf[:n])) {
				if err := b.emit(ctx, p, child, enc, tok); err != nil {
					return err
				}
			}
		}
		if rerr == nil {
			continue
		}
		if child.TimedOut() {
			return b.timeout(child, enc)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !errors.Is(rerr, io.EOF) {
			return fmt.Errorf("read cli output: %w", rerr)
		}
		break
	}
	for _, tok := range seg.Flush() {
		if err := b.emit(ctx, p, child, enc, tok); err != nil {
			return err
		}
	}
	return enc.Done()
}

func (b *Bridge) emit(ctx context.Context, p *pacer, child *Child, enc *sse.Encoder, tok string) error {
	if !p.wait() {
		if child.TimedOut() {
			return b.timeout(child, enc)
		}
		return ctx.Err()
	}
	if err := enc.Token(tok); err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}
	tokensEmitted.Inc()
	return nil
}

func (b *Bridge) timeout(child *Child, enc *sse.Encoder) error {
	child.Kill()
	terr := child.TimeoutError()
	if err := enc.Error(terr.Error()); err != nil {
		return errors.Join(terr, err)
	}
	return terr
}

// pacer sleeps between successive tokens; the first token is not delayed.
type pacer struct {
	delay time.Duration
	child *Child
	sent  bool
}

// wait returns false when the child ended while waiting.
func (p *pacer) wait() bool {
	if !p.sent || p.delay <= 0 {
		p.sent = true
		select {
		case <-p.child.Done():
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(p.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-p.child.Done():
		return false
	}
}
