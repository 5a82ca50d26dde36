package stream

import (
	"sync"
	"time"
)

// StreamStats are the per-stream counters exposed for diagnostics.
type StreamStats struct {
	StreamID     string    `json:"stream_id"`
	StartedAt    time.Time `json:"started_at"`
	Seq          int       `json:"seq"`
	EmittedBytes int       `json:"emitted_bytes"`
	RawBytes     int       `json:"raw_bytes"`
	Suppressed   int       `json:"suppressed"`
	Duplicates   int       `json:"duplicates"`
}

// Registry holds stats for all live streams behind one mutex. Entries are
// created at stream start and removed when the stream ends; nothing here
// participates in delta computation.
type Registry struct {
	mu      sync.Mutex
	streams map[string]*StreamStats
}

func NewRegistry() *Registry {
	return &Registry{streams: make(map[string]*StreamStats)}
}

// Start registers a stream.
func (r *Registry) Start(streamID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streams[streamID] = &StreamStats{StreamID: streamID, StartedAt: time.Now()}
}

// Snapshot returns a copy of the stats for a live stream.
func (r *Registry) Snapshot(streamID string) (StreamStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[streamID]
	if !ok {
		return StreamStats{}, false
	}
	return *s, true
}

// Remove drops a stream's entry and returns its final stats.
func (r *Registry) Remove(streamID string) (StreamStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[streamID]
	if !ok {
		return StreamStats{}, false
	}
	delete(r.streams, streamID)
	return *s, true
}

func (r *Registry) update(streamID string, fn func(*StreamStats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.streams[streamID]; ok {
		fn(s)
	}
}
