package stream

import (
	"errors"
	"testing"
)

func TestSuppressPolicyNeverObjects(t *testing.T) {
	p := SuppressPolicy{}
	if err := p.Check("<p>x</p>", 1); err != nil {
		t.Fatalf("suppress policy returned %v", err)
	}
	if err := p.Check("<p>x</p>", 2); err != nil {
		t.Fatalf("suppress policy returned %v on repeat", err)
	}
}

func TestFatalPolicyRejectsRepeat(t *testing.T) {
	p := NewFatalPolicy()
	if err := p.Check("<p>x</p>", 1); err != nil {
		t.Fatalf("first delta rejected: %v", err)
	}
	if err := p.Check("<p>y</p>", 2); err != nil {
		t.Fatalf("distinct delta rejected: %v", err)
	}
	err := p.Check("<p>x</p>", 3)
	if !errors.Is(err, ErrDuplicateDelta) {
		t.Fatalf("repeat not rejected: %v", err)
	}
}

func TestFatalPolicyIgnoresEmptyDelta(t *testing.T) {
	p := NewFatalPolicy()
	if err := p.Check("", 1); err != nil {
		t.Fatalf("empty delta rejected: %v", err)
	}
	if err := p.Check("", 2); err != nil {
		t.Fatalf("repeated empty delta rejected: %v", err)
	}
}

func TestNewPolicySelection(t *testing.T) {
	if _, ok := NewPolicy(false).(SuppressPolicy); !ok {
		t.Fatalf("non-strict config should suppress")
	}
	if _, ok := NewPolicy(true).(*FatalPolicy); !ok {
		t.Fatalf("strict config should be fatal")
	}
}
