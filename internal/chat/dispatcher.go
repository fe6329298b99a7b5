// Package chat connects a dialog to the streaming API for a tick-driven UI.
//
// Dispatch starts a background request for one turn; the UI polls Drain on
// every frame. The presence of an in-flight queue is the only "is chatting"
// state: at most one turn runs at a time, and the dialog is only touched
// from the UI goroutine.
package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/yukin371/seekchat/internal/adapters/deepseek"
	"github.com/yukin371/seekchat/internal/core"
	"github.com/yukin371/seekchat/internal/session"
	"github.com/yukin371/seekchat/pkg/logger"
)

// DefaultQueueSize is the default capacity of the per-turn delta queue.
const DefaultQueueSize = 64

// saveTimeout bounds a single background save.
const saveTimeout = 10 * time.Second

// Streamer opens a streaming completion for a dialog snapshot.
type Streamer interface {
	StreamChat(ctx context.Context, messages []deepseek.Message) (*deepseek.Stream, error)
}

// Recorder persists a dialog after each finished turn.
type Recorder interface {
	SaveSession(ctx context.Context, sess *session.Session) error
}

// Dispatcher implements core.ChatBridge on top of a Streamer.
type Dispatcher struct {
	streamer  Streamer
	recorder  Recorder
	dialog    *session.Session
	queueSize int
	log       *logger.Logger

	queue   *queue
	cancel  context.CancelFunc
	reply   strings.Builder
	lastErr error

	saves sync.WaitGroup
}

var (
	_ core.ChatBridge  = (*Dispatcher)(nil)
	_ core.SessionInfo = (*Dispatcher)(nil)
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder saves the dialog after every finished turn.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithQueueSize sets the per-turn queue capacity.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// NewDispatcher creates a Dispatcher for dialog.
func NewDispatcher(streamer Streamer, dialog *session.Session, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		streamer:  streamer,
		dialog:    dialog,
		queueSize: DefaultQueueSize,
		log:       logger.Default().With("chat"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch appends prompt as a user message and starts streaming the reply.
func (d *Dispatcher) Dispatch(p core.SendPrompt) bool {
	if d.queue != nil {
		return false
	}
	prompt := strings.TrimSpace(string(p))
	if prompt == "" {
		return false
	}

	d.dialog.Append(deepseek.UserMessage(prompt))
	messages := d.dialog.Messages()

	ctx, cancel := context.WithCancel(context.Background())
	q := newQueue(d.queueSize)

	d.queue = q
	d.cancel = cancel
	d.reply.Reset()
	d.lastErr = nil

	d.log.Debug("dispatch turn with %d messages", len(messages))
	go d.run(ctx, q, messages)
	return true
}

// Drain returns all deltas that arrived since the last call. It never blocks.
func (d *Dispatcher) Drain() []core.ReceivedDelta {
	if d.queue == nil {
		return nil
	}

	deltas, closed := d.queue.drain()
	finished := false
	for _, delta := range deltas {
		d.reply.WriteString(delta.Content)
		if delta.Finished {
			finished = true
			if delta.Err != nil {
				d.lastErr = delta.Err
			}
		}
	}
	if closed && !finished {
		deltas = append(deltas, core.ReceivedDelta{Finished: true})
		finished = true
	}
	if finished {
		d.finishTurn()
	}
	return deltas
}

// Chatting reports whether a turn is in flight.
func (d *Dispatcher) Chatting() bool {
	return d.queue != nil
}

// LastError returns the error of the most recent turn, nil if it succeeded.
func (d *Dispatcher) LastError() error {
	return d.lastErr
}

// Session returns the dialog.
func (d *Dispatcher) Session() *session.Session {
	return d.dialog
}

// SessionID returns the dialog ID.
func (d *Dispatcher) SessionID() string {
	return d.dialog.ID
}

// Model returns the dialog model.
func (d *Dispatcher) Model() string {
	return string(d.dialog.Model)
}

// Close abandons any in-flight turn and waits for pending saves.
func (d *Dispatcher) Close() {
	if d.queue != nil {
		d.queue.drop()
		d.cancel()
		d.queue = nil
		d.cancel = nil
		d.log.Debug("in-flight turn dropped")
	}
	d.saves.Wait()
}

func (d *Dispatcher) finishTurn() {
	d.cancel()
	d.queue = nil
	d.cancel = nil

	if reply := d.reply.String(); reply != "" {
		d.dialog.Append(deepseek.AssistantMessage(reply))
	}
	d.reply.Reset()

	if d.lastErr != nil {
		d.log.Warn("turn failed: %v", d.lastErr)
	}
	d.record()
}

func (d *Dispatcher) record() {
	if d.recorder == nil {
		return
	}
	snapshot := d.dialog.Clone()
	d.saves.Add(1)
	go func() {
		defer d.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := d.recorder.SaveSession(ctx, snapshot); err != nil {
			d.log.Warn("failed to save session %s: %v", snapshot.ID, err)
		}
	}()
}

// run is the producer side of one turn.
func (d *Dispatcher) run(ctx context.Context, q *queue, messages []deepseek.Message) {
	defer q.close()

	stream, err := d.streamer.StreamChat(ctx, messages)
	if err != nil {
		q.push(core.ReceivedDelta{Finished: true, Err: err})
		return
	}
	defer stream.Close()

	for {
		sd, err := stream.Next()
		if errors.Is(err, io.EOF) {
			// 流结束但没有带 finish_reason 的增量
			q.push(core.ReceivedDelta{Finished: true})
			return
		}
		if err != nil {
			q.push(core.ReceivedDelta{Finished: true, Err: err})
			return
		}
		if sd.Delta.Role != nil && *sd.Delta.Role == deepseek.RoleTool {
			q.push(core.ReceivedDelta{Finished: true, Err: &deepseek.ProtocolError{Reason: "unexpected tool role in streamed delta"}})
			return
		}

		if !q.push(core.ReceivedDelta{Content: sd.Delta.Content, Finished: sd.Finished()}) {
			return
		}
		if sd.Finished() {
			return
		}
	}
}
