package stream

import "testing"

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	r.Start("s1")

	snap, ok := r.Snapshot("s1")
	if !ok || snap.StreamID != "s1" || snap.StartedAt.IsZero() {
		t.Fatalf("snapshot after start = %+v (ok=%v)", snap, ok)
	}

	r.update("s1", func(s *StreamStats) {
		s.Seq = 4
		s.EmittedBytes = 120
		s.Suppressed = 2
	})
	snap, _ = r.Snapshot("s1")
	if snap.Seq != 4 || snap.EmittedBytes != 120 || snap.Suppressed != 2 {
		t.Fatalf("counters not updated: %+v", snap)
	}

	final, ok := r.Remove("s1")
	if !ok || final.Seq != 4 {
		t.Fatalf("remove = %+v (ok=%v)", final, ok)
	}
	if _, ok := r.Snapshot("s1"); ok {
		t.Fatalf("snapshot succeeded after remove")
	}
}

func TestRegistryUnknownStream(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Snapshot("nope"); ok {
		t.Fatalf("snapshot of unknown stream succeeded")
	}
	if _, ok := r.Remove("nope"); ok {
		t.Fatalf("remove of unknown stream succeeded")
	}
	// Updates to unknown streams are dropped, not panics.
	r.update("nope", func(s *StreamStats) { s.Seq = 1 })
}
