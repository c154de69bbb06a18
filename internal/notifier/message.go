package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/julianstephens/brewlog/internal/logger"
)

// Kind classifies a toast
type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
	KindInfo    Kind = "info"
)

// Message is one human-readable toast
type Message struct {
	Kind Kind      `json:"kind"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

func Success(text string) Message { return Message{Kind: KindSuccess, Text: text, At: time.Now()} }
func Failure(text string) Message { return Message{Kind: KindFailure, Text: text, At: time.Now()} }
func Info(text string) Message    { return Message{Kind: KindInfo, Text: text, At: time.Now()} }

// Sender delivers toasts. Delivery is best effort; callers log and move on.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes toasts to the application log
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	if msg.Kind == KindFailure {
		logger.Warn(msg.Text, "toast", msg.Kind)
	} else {
		logger.Info(msg.Text, "toast", msg.Kind)
	}
	return nil
}

// Fallback tries each sender in order and stops at the first that delivers
type Fallback []Sender

func (f Fallback) Send(ctx context.Context, msg Message) error {
	var lastErr error
	for _, s := range f {
		if err := s.Send(ctx, msg); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// Fanout delivers to every sender and returns the first error
type Fanout []Sender

func (f Fanout) Send(ctx context.Context, msg Message) error {
	var firstErr error
	for _, s := range f {
		if err := s.Send(ctx, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Buffer keeps the most recent toasts for display
type Buffer struct {
	mu   sync.Mutex
	max  int
	msgs []Message
}

func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = 1
	}
	return &Buffer{max: max}
}

func (b *Buffer) Send(_ context.Context, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
	if len(b.msgs) > b.max {
		b.msgs = b.msgs[len(b.msgs)-b.max:]
	}
	return nil
}

// Messages returns buffered toasts, oldest first
func (b *Buffer) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.msgs...)
}

// Last returns the newest toast
func (b *Buffer) Last() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.msgs) == 0 {
		return Message{}, false
	}
	return b.msgs[len(b.msgs)-1], true
}
