package stream

import (
	"context"
	"errors"
	"io"
	"testing"
)

type sliceSource struct {
	chunks []string
	i      int
}

func (s *sliceSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.i >= len(s.chunks) {
		return "", io.EOF
	}
	c := s.chunks[s.i]
	s.i++
	return c, nil
}

func TestOnceSourceSinglePass(t *testing.T) {
	once := NewOnceSource(&sliceSource{chunks: []string{"a", "b"}})

	src, err := once.Acquire()
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx := context.Background()
	var got []string
	for {
		c, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		got = append(got, c)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("chunks = %q", got)
	}

	if _, err := once.Acquire(); !errors.Is(err, ErrSourceConsumed) {
		t.Fatalf("second acquire = %v, want ErrSourceConsumed", err)
	}
}

func TestOnceSourceRejectsBeforeIteration(t *testing.T) {
	once := NewOnceSource(&sliceSource{})
	if _, err := once.Acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := once.Acquire(); !errors.Is(err, ErrSourceConsumed) {
		t.Fatalf("re-acquire before iteration = %v, want ErrSourceConsumed", err)
	}
}
