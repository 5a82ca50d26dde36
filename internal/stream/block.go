package stream

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"fiscstream/internal/markdown"
)

const (
	blockMinLen       = 80
	staleMinLen       = 100
	staleStrongLen    = 150
	staleMinSentences = 2
)

var (
	headingLineRe = regexp.MustCompile(`^#{1,3}[ \t]+\S.*$`)
	listLineRe    = regexp.MustCompile(`(?m)^[ \t]*(?:-[ \t]+|\d+\.[ \t]+)\S`)
	blockMarkerRe = regexp.MustCompile(`(?m)^[ \t]*(?:#{1,3}[ \t]+|-[ \t]+|\d+\.[ \t]+)`)
)

// BlockBuffer accumulates raw chunks until a semantic unit (paragraph,
// heading, list, ...) looks complete, then hands it to the formatter. Token
// granularity upstream is unpredictable, so a quiet-period fallback flushes
// non-trivial text rather than stall visible output.
type BlockBuffer struct {
	convert    func(string) string
	flushAfter time.Duration
	now        func() time.Time

	pending string
	lastAdd time.Time
}

// BlockOption configures a BlockBuffer.
type BlockOption func(*BlockBuffer)

// WithBlockConvert overrides the block formatter (tests).
func WithBlockConvert(fn func(string) string) BlockOption {
	return func(b *BlockBuffer) { b.convert = fn }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) BlockOption {
	return func(b *BlockBuffer) { b.now = now }
}

// NewBlockBuffer creates a buffer that force-flushes after flushAfter of
// upstream silence.
func NewBlockBuffer(flushAfter time.Duration, opts ...BlockOption) *BlockBuffer {
	b := &BlockBuffer{
		convert:    markdown.ConvertBlock,
		flushAfter: flushAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddChunk appends text and returns zero or more formatted blocks that
// became complete.
func (b *BlockBuffer) AddChunk(text string) []string {
	now := b.now()
	var out []string

	if b.pending != "" && now.Sub(b.lastAdd) > b.flushAfter && b.staleFlushable() {
		out = b.appendBlock(out, b.pending)
		b.pending = ""
	}

	b.pending += text
	b.lastAdd = now

	// Everything before the last blank line is complete by definition.
	if i := strings.LastIndex(b.pending, "\n\n"); i >= 0 {
		done := b.pending[:i]
		b.pending = b.pending[i+2:]
		for _, seg := range strings.Split(done, "\n\n") {
			out = b.appendBlock(out, seg)
		}
	}

	if b.complete(b.pending) {
		out = b.appendBlock(out, b.pending)
		b.pending = ""
	}
	return out
}

// Finalize flushes whatever remains. Call exactly once at stream end.
func (b *BlockBuffer) Finalize() []string {
	out := b.appendBlock(nil, b.pending)
	b.pending = ""
	return out
}

func (b *BlockBuffer) appendBlock(out []string, seg string) []string {
	if strings.TrimSpace(seg) == "" {
		return out
	}
	if html := b.convert(seg); html != "" {
		out = append(out, html)
	}
	return out
}

// complete applies the heuristics for a self-contained unit.
func (b *BlockBuffer) complete(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	if strings.ContainsAny(string(t[len(t)-1]), ".!?:;") {
		return true
	}
	if !strings.Contains(t, "\n") && headingLineRe.MatchString(t) {
		return true
	}
	if listLineRe.MatchString(t) {
		return true
	}
	if len(t) >= blockMinLen && !endsMidWord(s) {
		return true
	}
	return strings.Contains(s, "\n\n")
}

// staleFlushable gates the timed flush: the buffer must be non-trivial and
// show some structure before silence alone justifies pushing it out.
func (b *BlockBuffer) staleFlushable() bool {
	t := strings.TrimSpace(b.pending)
	if len(t) <= staleMinLen {
		return false
	}
	if len(t) >= staleStrongLen {
		return true
	}
	if strings.Count(t, ".")+strings.Count(t, "!")+strings.Count(t, "?") >= staleMinSentences {
		return true
	}
	return blockMarkerRe.MatchString(t)
}

func endsMidWord(s string) bool {
	runes := []rune(s)
	if len(runes) == 0 {
		return false
	}
	last := runes[len(runes)-1]
	return unicode.IsLetter(last) || unicode.IsDigit(last)
}
