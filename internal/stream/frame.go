package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Frame is one SSE payload. Non-terminal frames carry exactly one delta,
// never accumulated text; the terminal frame omits content and sets done.
type Frame struct {
	Content  string `json:"content,omitempty"`
	Done     bool   `json:"done"`
	Seq      int    `json:"seq"`
	StreamID string `json:"stream_id"`
	AccLen   int    `json:"acc_len"`
	RawLen   int    `json:"raw_len"`
	Error    string `json:"error,omitempty"`
}

// DeltaFrame builds the wire frame for one delta.
func DeltaFrame(streamID string, d Delta) Frame {
	return Frame{Content: d.Content, Seq: d.Seq, StreamID: streamID, AccLen: d.AccLen, RawLen: d.RawLen}
}

// Encode serializes a frame as a single SSE data line.
func Encode(f Frame) ([]byte, error) {
	payload, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}
	out := make([]byte, 0, len(payload)+8)
	out = append(out, "data: "...)
	out = append(out, payload...)
	out = append(out, "\n\n"...)
	return out, nil
}

// FrameWriter serializes frames onto an HTTP response, flushing after each
// one so the client sees deltas as they happen.
type FrameWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func NewFrameWriter(w io.Writer, flusher http.Flusher) *FrameWriter {
	return &FrameWriter{w: w, flusher: flusher}
}

func (fw *FrameWriter) Write(f Frame) error {
	line, err := Encode(f)
	if err != nil {
		return err
	}
	if _, err := fw.w.Write(line); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if fw.flusher != nil {
		fw.flusher.Flush()
	}
	return nil
}
