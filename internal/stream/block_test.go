package stream

import (
	"testing"
	"time"
)

func TestBlockBufferFlushesOnSentenceEnd(t *testing.T) {
	b := NewBlockBuffer(2 * time.Second)

	if out := b.AddChunk("De zelfstandigenaftrek wordt"); len(out) != 0 {
		t.Fatalf("incomplete text flushed: %q", out)
	}
	out := b.AddChunk(" dit jaar verlaagd.")
	if len(out) != 1 {
		t.Fatalf("expected one block, got %q", out)
	}
	if out[0] != "<p>De zelfstandigenaftrek wordt dit jaar verlaagd.</p>" {
		t.Fatalf("block = %q", out[0])
	}
}

func TestBlockBufferFlushesHeadingLine(t *testing.T) {
	b := NewBlockBuffer(2 * time.Second)
	out := b.AddChunk("## Zelfstandigenaftrek")
	if len(out) != 1 || out[0] != "<h2>Zelfstandigenaftrek</h2>" {
		t.Fatalf("heading block = %q", out)
	}
}

func TestBlockBufferSplitsOnBlankLines(t *testing.T) {
	b := NewBlockBuffer(2 * time.Second)

	out := b.AddChunk("Eerste alinea.\n\nTweede alinea.\n\nDerde in aanbouw zonder")
	if len(out) != 2 {
		t.Fatalf("expected two completed blocks, got %q", out)
	}
	if out[0] != "<p>Eerste alinea.</p>" || out[1] != "<p>Tweede alinea.</p>" {
		t.Fatalf("blocks = %q", out)
	}

	fin := b.Finalize()
	if len(fin) != 1 || fin[0] != "<p>Derde in aanbouw zonder</p>" {
		t.Fatalf("finalize = %q", fin)
	}
}

func TestBlockBufferTimedFlush(t *testing.T) {
	cur := time.Unix(0, 0)
	b := NewBlockBuffer(2*time.Second, WithClock(func() time.Time { return cur }))

	stuck := "De regeling is vorig jaar aangepast. De drempel is daarbij verhoogd. Wat dat betekent voor uw situatie hangt af van de hoogte"
	if out := b.AddChunk(stuck); len(out) != 0 {
		t.Fatalf("mid-word text flushed immediately: %q", out)
	}

	// After a quiet period the buffered text goes out on the next chunk.
	cur = cur.Add(3 * time.Second)
	out := b.AddChunk(" van uw winst.")
	if len(out) != 2 {
		t.Fatalf("expected stale block plus new sentence, got %q", out)
	}
	if out[0] != "<p>"+stuck+"</p>" {
		t.Fatalf("stale block = %q", out[0])
	}
	if out[1] != "<p>van uw winst.</p>" {
		t.Fatalf("trailing block = %q", out[1])
	}
}

func TestBlockBufferTimedFlushSkipsTrivialText(t *testing.T) {
	cur := time.Unix(0, 0)
	b := NewBlockBuffer(2*time.Second, WithClock(func() time.Time { return cur }))

	b.AddChunk("korte tekst zonder structuur")
	cur = cur.Add(10 * time.Second)
	if out := b.AddChunk(" en nog wat"); len(out) != 0 {
		t.Fatalf("trivial buffer flushed on timeout: %q", out)
	}
}

func TestBlockBufferFinalizeEmpty(t *testing.T) {
	b := NewBlockBuffer(2 * time.Second)
	if out := b.Finalize(); len(out) != 0 {
		t.Fatalf("finalize on empty buffer = %q", out)
	}
}
