package stream

import (
	"errors"
	"fmt"
)

// ErrDuplicateDelta is returned by FatalPolicy when a delta that was already
// emitted for the stream shows up again. Seeing it means the normalizer's own
// guards failed; it is a bug, not an operational condition.
var ErrDuplicateDelta = errors.New("duplicate delta emitted")

// DuplicatePolicy is the second, independent duplicate guard a delta passes
// through after the normalizer's own hash set. Production suppresses;
// diagnostic configurations fail hard.
type DuplicatePolicy interface {
	Check(delta string, seq int) error
}

// NewPolicy selects the policy for a stream. strict is diagnostic-only.
func NewPolicy(strict bool) DuplicatePolicy {
	if strict {
		return NewFatalPolicy()
	}
	return SuppressPolicy{}
}

// SuppressPolicy is the production policy: it never objects, the normalizer's
// hash set has already dropped exact duplicates.
type SuppressPolicy struct{}

func (SuppressPolicy) Check(string, int) error { return nil }

// FatalPolicy keeps its own per-stream seen-set and returns a hard error on
// any repeat, terminating the stream. One instance per stream.
type FatalPolicy struct {
	seen map[string]int
}

func NewFatalPolicy() *FatalPolicy {
	return &FatalPolicy{seen: make(map[string]int)}
}

func (p *FatalPolicy) Check(delta string, seq int) error {
	if delta == "" {
		return nil
	}
	h := shortHash(delta)
	if first, ok := p.seen[h]; ok {
		return fmt.Errorf("%w: seq %d repeats seq %d (hash %s)", ErrDuplicateDelta, seq, first, h)
	}
	p.seen[h] = seq
	return nil
}
