package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"fiscstream/internal/config"
	"fiscstream/internal/stream"
	"fiscstream/internal/util"
)

// userSafeError is what clients see on any mid-stream failure. Raw upstream
// errors stay in the logs.
const userSafeError = "de verbinding met de adviesdienst is onderbroken, probeer het opnieuw"

type adviceRequest struct {
	Question string `json:"question"`
}

// handleStream drives the delta-safe path: every chunk re-normalizes the full
// buffer and only the unseen HTML suffix goes over the wire.
func (a *App) handleStream(w http.ResponseWriter, r *http.Request) {
	question, ok := a.readQuestion(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		util.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	ctx := r.Context()
	src, err := a.upstream.Stream(ctx, question)
	if err != nil {
		config.Logger.Error("upstream stream open failed", "error", err)
		util.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream unavailable"})
		return
	}
	tokens, err := stream.NewOnceSource(src).Acquire()
	if err != nil {
		config.Logger.Error("token source double acquisition", "error", err)
		util.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	streamID := uuid.NewString()
	norm := stream.NewNormalizer(streamID,
		stream.WithPolicy(stream.NewPolicy(a.cfg.StrictDuplicates)),
		stream.WithRegistry(a.stats),
		stream.WithSecondStartPrefix(a.cfg.SecondStartPrefix),
	)

	a.stats.Start(streamID)
	defer func() {
		if final, ok := a.stats.Remove(streamID); ok {
			config.Logger.Info("stream closed",
				"stream_id", streamID, "seq", final.Seq,
				"emitted_bytes", final.EmittedBytes, "raw_bytes", final.RawBytes,
				"suppressed", final.Suppressed, "duplicates", final.Duplicates)
		}
	}()

	fw := startSSE(w, flusher)
	for {
		chunk, err := tokens.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				config.Logger.Info("client disconnected", "stream_id", streamID)
				return
			}
			config.Logger.Error("upstream failed mid-stream", "stream_id", streamID, "error", err)
			_ = fw.Write(stream.Frame{Done: true, Seq: norm.Seq() + 1, StreamID: streamID,
				AccLen: norm.AccLen(), RawLen: norm.RawLen(), Error: userSafeError})
			return
		}

		delta, emit, err := norm.Push(chunk)
		if err != nil {
			// Strict duplicate policy tripped: diagnostic configurations
			// want the stream dead, not the duplicate delivered.
			config.Logger.Error("duplicate invariant violated", "stream_id", streamID, "error", err)
			_ = fw.Write(stream.Frame{Done: true, Seq: norm.Seq() + 1, StreamID: streamID,
				AccLen: norm.AccLen(), RawLen: norm.RawLen(), Error: userSafeError})
			return
		}
		if !emit {
			continue
		}
		if err := fw.Write(stream.DeltaFrame(streamID, delta)); err != nil {
			config.Logger.Info("client write failed", "stream_id", streamID, "error", err)
			return
		}
	}

	delta, emit, err := norm.Finalize()
	if err != nil {
		config.Logger.Error("duplicate invariant violated", "stream_id", streamID, "error", err)
		_ = fw.Write(stream.Frame{Done: true, Seq: norm.Seq() + 1, StreamID: streamID,
			AccLen: norm.AccLen(), RawLen: norm.RawLen(), Error: userSafeError})
		return
	}
	if emit {
		if err := fw.Write(stream.DeltaFrame(streamID, delta)); err != nil {
			config.Logger.Info("client write failed", "stream_id", streamID, "error", err)
			return
		}
	}
	_ = fw.Write(stream.Frame{Done: true, Seq: norm.Seq() + 1, StreamID: streamID,
		AccLen: norm.AccLen(), RawLen: norm.RawLen()})
}

// handleBlocks drives the simple block-wise path: complete semantic units are
// formatted and sent as they close, without the replay machinery.
func (a *App) handleBlocks(w http.ResponseWriter, r *http.Request) {
	question, ok := a.readQuestion(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		util.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	ctx := r.Context()
	src, err := a.upstream.Stream(ctx, question)
	if err != nil {
		config.Logger.Error("upstream stream open failed", "error", err)
		util.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream unavailable"})
		return
	}
	tokens, err := stream.NewOnceSource(src).Acquire()
	if err != nil {
		config.Logger.Error("token source double acquisition", "error", err)
		util.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	streamID := uuid.NewString()
	blocks := stream.NewBlockBuffer(a.cfg.FlushTimeout)
	fw := startSSE(w, flusher)

	seq, accLen, rawLen := 0, 0, 0
	send := func(html string) error {
		seq++
		accLen += len(html)
		return fw.Write(stream.Frame{Content: html, Seq: seq, StreamID: streamID, AccLen: accLen, RawLen: rawLen})
	}

	for {
		chunk, err := tokens.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				config.Logger.Info("client disconnected", "stream_id", streamID)
				return
			}
			config.Logger.Error("upstream failed mid-stream", "stream_id", streamID, "error", err)
			_ = fw.Write(stream.Frame{Done: true, Seq: seq + 1, StreamID: streamID,
				AccLen: accLen, RawLen: rawLen, Error: userSafeError})
			return
		}
		rawLen += len(chunk)
		for _, html := range blocks.AddChunk(chunk) {
			if err := send(html); err != nil {
				config.Logger.Info("client write failed", "stream_id", streamID, "error", err)
				return
			}
		}
	}
	for _, html := range blocks.Finalize() {
		if err := send(html); err != nil {
			config.Logger.Info("client write failed", "stream_id", streamID, "error", err)
			return
		}
	}
	_ = fw.Write(stream.Frame{Done: true, Seq: seq + 1, StreamID: streamID, AccLen: accLen, RawLen: rawLen})
}

func (a *App) readQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req adviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return "", false
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		util.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return "", false
	}
	return question, true
}

func startSSE(w http.ResponseWriter, flusher http.Flusher) *stream.FrameWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return stream.NewFrameWriter(w, flusher)
}
