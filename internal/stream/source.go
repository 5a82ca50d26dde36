package stream

import (
	"context"
	"errors"
	"sync"
)

// ErrSourceConsumed marks a programming error: something tried to iterate a
// one-shot upstream source twice, which would structurally guarantee
// duplicate emission.
var ErrSourceConsumed = errors.New("token source already consumed")

// TokenSource is the narrow upstream contract: Next blocks for the next
// chunk and returns io.EOF once the source is exhausted. Delivery is
// ordered, but the concatenation of chunks is not guaranteed monotonic.
type TokenSource interface {
	Next(ctx context.Context) (string, error)
}

type sourceState int

const (
	sourceNotStarted sourceState = iota
	sourceConsumed
)

// OnceSource wraps a one-shot TokenSource and fails fast on re-acquisition.
type OnceSource struct {
	mu    sync.Mutex
	state sourceState
	src   TokenSource
}

func NewOnceSource(src TokenSource) *OnceSource {
	return &OnceSource{src: src}
}

// Acquire hands out the underlying source exactly once.
func (o *OnceSource) Acquire() (TokenSource, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == sourceConsumed {
		return nil, ErrSourceConsumed
	}
	o.state = sourceConsumed
	return o.src, nil
}
