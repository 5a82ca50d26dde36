package server

import (
	"errors"
	"strings"
	"testing"
)

func TestStreamDeliversUnseenSuffixesOnly(t *testing.T) {
	// The upstream restates its full output each time; the client must see
	// every word exactly once.
	app := testApp(&scriptedUpstream{chunks: []string{
		"Start",
		"Start middle",
		"Start middle end.",
	}})

	rec := postAdvice(t, app, "/v1/advice/stream", "test-key")
	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	frames := decodeFrames(t, rec.Body.String())
	if len(frames) != 4 {
		t.Fatalf("frames = %d, want 3 deltas plus terminal: %+v", len(frames), frames)
	}

	var acc string
	for i, f := range frames[:3] {
		if f.Done {
			t.Fatalf("frame %d marked done early", i)
		}
		if f.Seq != i+1 {
			t.Fatalf("frame %d seq = %d", i, f.Seq)
		}
		if f.Content == "" {
			t.Fatalf("frame %d has no content", i)
		}
		acc += f.Content
	}
	if acc != "Start middle end." {
		t.Fatalf("accumulated content = %q", acc)
	}

	last := frames[3]
	if !last.Done || last.Content != "" || last.Error != "" {
		t.Fatalf("terminal frame = %+v", last)
	}
	if last.Seq != 4 {
		t.Fatalf("terminal seq = %d, want 4", last.Seq)
	}
}

func TestStreamSharedStreamID(t *testing.T) {
	app := testApp(&scriptedUpstream{chunks: []string{"### Overzicht", "\n\nKorte toelichting"}})
	rec := postAdvice(t, app, "/v1/advice/stream", "test-key")

	frames := decodeFrames(t, rec.Body.String())
	if len(frames) < 2 {
		t.Fatalf("too few frames: %+v", frames)
	}
	id := frames[0].StreamID
	if id == "" {
		t.Fatalf("missing stream id")
	}
	for i, f := range frames {
		if f.StreamID != id {
			t.Fatalf("frame %d has stream id %q, want %q", i, f.StreamID, id)
		}
	}
}

func TestStreamReplayedChunksProduceNoDuplicates(t *testing.T) {
	app := testApp(&scriptedUpstream{chunks: []string{
		"<h3>Inleiding</h3><p>Eerste.</p>",
		"<h3>Inleiding</h3><p>Eerste.</p><p>Tweede.</p>",
		"<h3>Inleiding</h3><p>Eerste.</p><p>Tweede.</p>",
	}})

	rec := postAdvice(t, app, "/v1/advice/stream", "test-key")
	frames := decodeFrames(t, rec.Body.String())

	var acc string
	for _, f := range frames {
		acc += f.Content
	}
	if strings.Count(acc, "Eerste.") != 1 || strings.Count(acc, "Tweede.") != 1 {
		t.Fatalf("duplicated content on the wire: %q", acc)
	}
	if !frames[len(frames)-1].Done {
		t.Fatalf("missing terminal frame: %+v", frames)
	}
}

func TestStreamMidstreamFailureEndsWithErrorFrame(t *testing.T) {
	app := testApp(&scriptedUpstream{
		chunks:    []string{"Hallo wereld."},
		failAfter: errors.New("upstream reset"),
	})

	rec := postAdvice(t, app, "/v1/advice/stream", "test-key")
	frames := decodeFrames(t, rec.Body.String())
	if len(frames) != 2 {
		t.Fatalf("frames = %+v", frames)
	}
	if frames[0].Content != "Hallo wereld." {
		t.Fatalf("delta = %q", frames[0].Content)
	}

	last := frames[1]
	if !last.Done || last.Error != userSafeError {
		t.Fatalf("terminal frame = %+v", last)
	}
	if strings.Contains(last.Error, "reset") {
		t.Fatalf("raw upstream error leaked to client: %q", last.Error)
	}
}

func TestBlocksDeliversCompleteBlocks(t *testing.T) {
	app := testApp(&scriptedUpstream{chunks: []string{
		"Eerste alinea.\n\nTweede",
		" alinea.",
	}})

	rec := postAdvice(t, app, "/v1/advice/blocks", "test-key")
	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	frames := decodeFrames(t, rec.Body.String())
	if len(frames) != 3 {
		t.Fatalf("frames = %+v", frames)
	}
	if frames[0].Content != "<p>Eerste alinea.</p>" {
		t.Fatalf("first block = %q", frames[0].Content)
	}
	if frames[1].Content != "<p>Tweede alinea.</p>" {
		t.Fatalf("second block = %q", frames[1].Content)
	}
	if !frames[2].Done || frames[2].Seq != 3 {
		t.Fatalf("terminal frame = %+v", frames[2])
	}
}
