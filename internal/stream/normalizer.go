// Package stream turns a noisy upstream token sequence into an ordered,
// duplicate-free sequence of HTML deltas ready for SSE delivery. The upstream
// contract is weak: chunks arrive in order, but the source may resend full or
// partial snapshots of earlier content after restarts. Everything here is
// biased toward suppression — a lost frame is recovered by the next chunk, a
// duplicated sentence on screen is not.
package stream

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"fiscstream/internal/config"
	"fiscstream/internal/markdown"
)

const (
	// Candidate-level recovery windows.
	overlapWindow      = 200
	safetyPrefixLen    = 300
	defaultStartPrefix = 160

	// Raw-level replay detection.
	rawOverlapWindow = 256
	minRawOverlap    = 12
	restartHeadLen   = 32
)

// Delta is one unit of not-yet-seen HTML produced by a normalization step.
type Delta struct {
	Content string
	Seq     int
	AccLen  int
	RawLen  int
}

// Normalizer owns the full state of one stream: the raw buffer, the HTML
// already emitted, and the hashes of every delta sent. It must only ever be
// driven by the single goroutine serving that stream.
type Normalizer struct {
	streamID    string
	convert     func(string) string
	policy      DuplicatePolicy
	registry    *Registry
	startPrefix int

	raw     string
	emitted string
	seen    map[string]struct{}
	seq     int
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithConvert overrides the markdown converter (tests).
func WithConvert(fn func(string) string) Option {
	return func(n *Normalizer) { n.convert = fn }
}

// WithPolicy sets the duplicate policy; the default suppresses silently.
func WithPolicy(p DuplicatePolicy) Option {
	return func(n *Normalizer) { n.policy = p }
}

// WithRegistry attaches a stats registry the normalizer reports into.
func WithRegistry(r *Registry) Option {
	return func(n *Normalizer) { n.registry = r }
}

// WithSecondStartPrefix sets the normalized prefix length compared by the
// second-start detector.
func WithSecondStartPrefix(chars int) Option {
	return func(n *Normalizer) {
		if chars > 0 {
			n.startPrefix = chars
		}
	}
}

// NewNormalizer creates the state for one stream.
func NewNormalizer(streamID string, opts ...Option) *Normalizer {
	n := &Normalizer{
		streamID:    streamID,
		convert:     markdown.Convert,
		policy:      SuppressPolicy{},
		startPrefix: defaultStartPrefix,
		seen:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Push ingests one upstream chunk, re-normalizes the whole buffer and returns
// the unseen HTML suffix, if any. The error is non-nil only under the fatal
// duplicate policy.
func (n *Normalizer) Push(chunk string) (Delta, bool, error) {
	n.ingest(strings.TrimRight(chunk, "\r"))
	return n.step()
}

// Finalize completes the document (the trailing paragraph group is closed)
// and returns a last delta if that produced renderable content. Call once,
// after the source is exhausted.
func (n *Normalizer) Finalize() (Delta, bool, error) {
	if strings.TrimSpace(n.raw) == "" {
		return Delta{}, false, nil
	}
	if !strings.HasSuffix(n.raw, "\n\n") {
		n.raw = strings.TrimRight(n.raw, "\n") + "\n\n"
	}
	return n.step()
}

// Seq returns the sequence number of the last emitted delta.
func (n *Normalizer) Seq() int { return n.seq }

// AccLen returns the length of the HTML delivered so far.
func (n *Normalizer) AccLen() int { return len(n.emitted) }

// RawLen returns the length of the accumulated raw buffer.
func (n *Normalizer) RawLen() int { return len(n.raw) }

// ingest reconciles an incoming chunk with the raw buffer. Plain tokens are
// appended; chunks that restate the buffer (cumulative snapshots, replays,
// overlapping tails, restarts) are folded in without duplicating text.
func (n *Normalizer) ingest(chunk string) {
	switch {
	case chunk == "":
	case n.raw == "":
		n.raw = chunk
	case chunk == n.raw:
		// Exact snapshot replay.
	case strings.HasPrefix(chunk, n.raw):
		// Cumulative snapshot: the chunk restates everything plus a tail.
		n.raw = chunk
	case strings.HasPrefix(n.raw, chunk):
		// Stale shorter snapshot; the buffer already has more.
	default:
		if k := suffixPrefixOverlap(tail(n.raw, rawOverlapWindow), chunk); k >= minRawOverlap {
			n.raw += chunk[k:]
		} else if n.looksLikeRestart(chunk) {
			// Restarted generation. Adopt the new snapshot; the diff below
			// decides what, if anything, is safe to emit.
			config.Logger.Warn("upstream restart detected",
				"stream_id", n.streamID, "raw_len", len(n.raw), "chunk_len", len(chunk))
			n.raw = chunk
		} else {
			n.raw += chunk
		}
	}
}

func (n *Normalizer) looksLikeRestart(chunk string) bool {
	nr := normalizeForCompare(n.raw)
	nc := normalizeForCompare(chunk)
	if len(nr) < restartHeadLen || len(nc) < restartHeadLen {
		return false
	}
	return nr[:restartHeadLen] == nc[:restartHeadLen]
}

func (n *Normalizer) step() (Delta, bool, error) {
	candidate := n.convert(n.raw)

	// Shrink guard: a candidate shorter than what the client already has is
	// transient noise from a replayed snapshot, never a reason to rewind.
	if len(candidate) < len(n.emitted) {
		config.Logger.Warn("candidate shrank, ignoring pass",
			"stream_id", n.streamID, "candidate_len", len(candidate), "emitted_len", len(n.emitted))
		n.record(func(s *StreamStats) { s.Suppressed++ })
		return Delta{}, false, nil
	}

	delta, ok := n.diff(candidate)
	if !ok {
		n.record(func(s *StreamStats) { s.Suppressed++ })
		return Delta{}, false, nil
	}
	if !renderable(delta) {
		return Delta{}, false, nil
	}

	h := shortHash(delta)
	if _, dup := n.seen[h]; dup {
		config.Logger.Warn("exact duplicate delta discarded",
			"stream_id", n.streamID, "seq", n.seq, "hash", h)
		n.record(func(s *StreamStats) { s.Duplicates++ })
		return Delta{}, false, nil
	}
	if err := n.policy.Check(delta, n.seq+1); err != nil {
		return Delta{}, false, err
	}

	n.emitted += delta
	n.seen[h] = struct{}{}
	n.seq++
	n.record(func(s *StreamStats) {
		s.Seq = n.seq
		s.EmittedBytes = len(n.emitted)
		s.RawBytes = len(n.raw)
	})
	config.Logger.Debug("delta emitted",
		"stream_id", n.streamID, "seq", n.seq, "hash", h,
		"delta_len", len(delta), "acc_len", len(n.emitted), "raw_len", len(n.raw))
	return Delta{Content: delta, Seq: n.seq, AccLen: len(n.emitted), RawLen: len(n.raw)}, true, nil
}

// diff computes the unseen suffix of candidate relative to the emitted view.
func (n *Normalizer) diff(candidate string) (string, bool) {
	if n.emitted == "" {
		return candidate, candidate != ""
	}

	// Expected case: the candidate strictly extends what was sent.
	if strings.HasPrefix(candidate, n.emitted) {
		return candidate[len(n.emitted):], true
	}

	// Divergence. If the emitted view survives verbatim somewhere inside the
	// candidate, everything after its last occurrence is new.
	if i := strings.LastIndex(candidate, n.emitted); i >= 0 {
		return candidate[i+len(n.emitted):], true
	}

	// Second start: the candidate opens like the content already shown.
	// Emitting anything would risk repeating it, so drop the whole pass.
	ne := normalizeForCompare(n.emitted)
	nc := normalizeForCompare(candidate)
	k := n.startPrefix
	if k > len(ne) {
		k = len(ne)
	}
	if k > len(nc) {
		k = len(nc)
	}
	if k > 0 && ne[:k] == nc[:k] {
		config.Logger.Warn("second start suppressed",
			"stream_id", n.streamID, "seq", n.seq, "prefix_len", k)
		return "", false
	}

	// Best effort: trim the largest tail/head overlap within a bounded
	// window and treat the remainder as the delta.
	k = suffixPrefixOverlap(tail(n.emitted, overlapWindow), head(candidate, overlapWindow))
	delta := candidate[k:]
	if delta == "" {
		return "", false
	}

	// Safety net: if the trimmed delta still opens like the emitted view,
	// the overlap search missed a replay. Suppress.
	pe := ne
	if len(pe) > safetyPrefixLen {
		pe = pe[:safetyPrefixLen]
	}
	if pe != "" && strings.HasPrefix(normalizeForCompare(delta), pe) {
		config.Logger.Warn("overlap-trimmed delta still replays emitted view, suppressed",
			"stream_id", n.streamID, "seq", n.seq)
		return "", false
	}
	return delta, true
}

func (n *Normalizer) record(fn func(*StreamStats)) {
	if n.registry != nil {
		n.registry.update(n.streamID, fn)
	}
}

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// normalizeForCompare reduces HTML to a canonical text form: tags stripped,
// lower-cased, whitespace collapsed.
func normalizeForCompare(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = strings.ToLower(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// renderable reports whether a delta carries anything beyond tags and
// whitespace.
func renderable(delta string) bool {
	return strings.TrimSpace(tagRe.ReplaceAllString(delta, "")) != ""
}

// shortHash is the digest recorded per emitted delta.
func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

// suffixPrefixOverlap returns the largest k such that the last k bytes of s
// equal the first k bytes of t.
func suffixPrefixOverlap(s, t string) int {
	limit := len(s)
	if len(t) < limit {
		limit = len(t)
	}
	for k := limit; k > 0; k-- {
		if s[len(s)-k:] == t[:k] {
			return k
		}
	}
	return 0
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
