package llm

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

const (
	scannerBufferSize  = 64 * 1024
	maxScannerLineSize = 2 * 1024 * 1024
)

// sseSource pulls content tokens out of an upstream SSE body. It implements
// stream.TokenSource; exhaustion and [DONE] both surface as io.EOF.
type sseSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	done    bool
}

func newSSESource(r io.Reader, closer io.Closer) *sseSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, scannerBufferSize), maxScannerLineSize)
	return &sseSource{scanner: scanner, closer: closer}
}

func (s *sseSource) Next(ctx context.Context) (string, error) {
	if s.done {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			s.finish()
			return "", err
		}
		res := parseContentLine(s.scanner.Bytes())
		if !res.parsed {
			continue
		}
		if res.errMsg != "" {
			s.finish()
			return "", fmt.Errorf("upstream: %s", res.errMsg)
		}
		if res.stop {
			s.finish()
			if res.text != "" {
				return res.text, nil
			}
			return "", io.EOF
		}
		if res.text == "" {
			continue
		}
		return res.text, nil
	}
	err := s.scanner.Err()
	s.finish()
	if err != nil {
		return "", fmt.Errorf("read upstream stream: %w", err)
	}
	return "", io.EOF
}

func (s *sseSource) finish() {
	if !s.done {
		s.done = true
		if s.closer != nil {
			_ = s.closer.Close()
		}
	}
}
