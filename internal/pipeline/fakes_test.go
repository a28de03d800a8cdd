package pipeline

import (
	"context"
	"io"
	"sync"

	"github.com/segmentio/kafka-go"
)

// fakeReader hands out queued payloads, then returns err (io.EOF by default).
type fakeReader struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
	closed   bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	if len(r.payloads) == 0 {
		if r.err != nil {
			return kafka.Message{}, r.err
		}
		return kafka.Message{}, io.EOF
	}
	next := r.payloads[0]
	r.payloads = r.payloads[1:]
	return kafka.Message{Value: next}, nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]kafka.Message, len(w.messages))
	copy(out, w.messages)
	return out
}
