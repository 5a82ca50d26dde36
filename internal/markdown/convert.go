// Package markdown converts the constrained markdown dialect emitted by the
// advice model into HTML. It is deliberately not a CommonMark renderer: the
// rule set is small, ordered, and tolerant of half-finished constructs so the
// same function can be run over a still-growing buffer.
package markdown

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Rules are compiled once and applied in fixed priority order. Earlier rules
// must not produce text that later rules would re-match.
var (
	headingRe    = regexp.MustCompile(`(?m)^(#{1,3})[ \t]+(.*\S)[ \t]*$`)
	fencedRe     = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\n(.*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")
	boldRe       = regexp.MustCompile(`\*\*([^\s*](?:[^*\n]*[^\s*])?)\*\*`)
	italicRe     = regexp.MustCompile(`\*([^\s*](?:[^*\n]*[^\s*])?)\*`)
	bulletRe     = regexp.MustCompile(`^[ \t]*-[ \t]+(.+)$`)
	numberedRe   = regexp.MustCompile(`^[ \t]*\d+\.[ \t]+(.+)$`)

	calcRe = regexp.MustCompile(`\d[\d.,]*[ \t]*[-+x×*/:][ \t]*\d[\d.,]*[ \t]*%?[ \t]*=[ \t]*€?[ \t]*\d[\d.,]*%?`)

	// One alternation so a single pass handles article, statute and decree
	// references without re-matching inside an inserted <cite>.
	citationRe = regexp.MustCompile(`\b[Aa]rtikel[ \t]+\d+[a-z]?(?:,?[ \t]+lid[ \t]+\d+)?(?:[ \t]+(?:van[ \t]+de[ \t]+)?Wet[ \t]+[A-Za-z]+(?:[ \t]+\d{4})?)?` +
		`|\bWet[ \t]+(?:op[ \t]+de[ \t]+[a-z]+[ \t]+)?[A-Z]{2,}(?:[ \t]+\d{4})?` +
		`|\bBesluit[ \t]+[a-z]+(?:[ \t]+\d{4})?`)

	acronymRe = regexp.MustCompile(`\b(BTW|VPB|ZVW|AOW|MKB|KOR|DGA|IB)\b`)

	orphanTrailRe = regexp.MustCompile("[ \t]*(?:\\*\\*|\\*|`|#{1,6})[ \t]*$")
)

// acronymTitles expands domain acronyms into tooltip text.
var acronymTitles = map[string]string{
	"BTW": "belasting over de toegevoegde waarde",
	"VPB": "vennootschapsbelasting",
	"ZVW": "Zorgverzekeringswet",
	"AOW": "Algemene Ouderdomswet",
	"MKB": "midden- en kleinbedrijf",
	"KOR": "kleineondernemersregeling",
	"DGA": "directeur-grootaandeelhouder",
	"IB":  "inkomstenbelasting",
}

// Convert renders markdown to HTML. Empty or whitespace-only input yields the
// empty string. Convert never fails: a panic anywhere in the pipeline falls
// back to escaped text in a paragraph, so the output is always valid HTML.
//
// The trailing paragraph group (text after the last blank line) is left
// unwrapped: from the converter's point of view it may still be streaming in.
// Callers that know their input is a complete block should terminate it with
// a blank line first (see ConvertBlock).
func Convert(md string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = "<p>" + html.EscapeString(strings.TrimSpace(md)) + "</p>"
		}
	}()

	if strings.TrimSpace(md) == "" {
		return ""
	}

	s := md
	s = convertHeadings(s)
	s = convertFencedCode(s)
	s = convertInlineCode(s)
	s = boldRe.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicRe.ReplaceAllString(s, "<em>$1</em>")
	s = convertLists(s)
	s = convertCalculations(s)
	s = wrapParagraphs(s)
	s = markCitations(s)
	s = wrapAcronyms(s)
	s = orphanTrailRe.ReplaceAllString(s, "")
	return s
}

// ConvertBlock renders a block the caller has already judged complete, so the
// final paragraph is wrapped as well.
func ConvertBlock(md string) string {
	return strings.TrimSpace(Convert(strings.TrimRight(md, "\n") + "\n\n"))
}

func convertHeadings(s string) string {
	return headingRe.ReplaceAllStringFunc(s, func(line string) string {
		m := headingRe.FindStringSubmatch(line)
		level := len(m[1])
		return fmt.Sprintf("<h%d>%s</h%d>", level, m[2], level)
	})
}

func convertFencedCode(s string) string {
	return fencedRe.ReplaceAllStringFunc(s, func(block string) string {
		m := fencedRe.FindStringSubmatch(block)
		return "<pre><code>" + html.EscapeString(strings.TrimRight(m[1], "\n")) + "</code></pre>"
	})
}

func convertInlineCode(s string) string {
	return inlineCodeRe.ReplaceAllStringFunc(s, func(span string) string {
		m := inlineCodeRe.FindStringSubmatch(span)
		return "<code>" + html.EscapeString(m[1]) + "</code>"
	})
}

// convertLists turns contiguous runs of "- " or "N. " lines into a single
// <ul> or <ol>. Non-contiguous items start a new list.
func convertLists(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	var items []string
	var ordered bool

	flush := func() {
		if len(items) == 0 {
			return
		}
		tag := "ul"
		if ordered {
			tag = "ol"
		}
		var b strings.Builder
		b.WriteString("<" + tag + ">")
		for _, it := range items {
			b.WriteString("<li>" + it + "</li>")
		}
		b.WriteString("</" + tag + ">")
		out = append(out, b.String())
		items = nil
	}

	for _, line := range lines {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			if len(items) > 0 && ordered {
				flush()
			}
			ordered = false
			items = append(items, m[1])
			continue
		}
		if m := numberedRe.FindStringSubmatch(line); m != nil {
			if len(items) > 0 && !ordered {
				flush()
			}
			ordered = true
			items = append(items, m[1])
			continue
		}
		flush()
		out = append(out, line)
	}
	flush()
	return strings.Join(out, "\n")
}

func convertCalculations(s string) string {
	return replaceOutsideTags(s, func(text string) string {
		return calcRe.ReplaceAllString(text, `<span class="calculation">$0</span>`)
	})
}

// wrapParagraphs wraps every blank-line-terminated group in <p>. The final
// group is left alone: while streaming, it is not yet known to be complete.
// Groups that already start with an HTML tag are skipped.
func wrapParagraphs(s string) string {
	groups := strings.Split(s, "\n\n")
	for i, g := range groups {
		if i == len(groups)-1 {
			continue
		}
		t := strings.TrimSpace(g)
		if t == "" || strings.HasPrefix(t, "<") {
			groups[i] = t
			continue
		}
		groups[i] = "<p>" + t + "</p>"
	}
	return strings.Join(groups, "\n\n")
}

func markCitations(s string) string {
	return replaceOutsideTags(s, func(text string) string {
		return citationRe.ReplaceAllString(text, `<cite class="citation">$0</cite>`)
	})
}

func wrapAcronyms(s string) string {
	return replaceOutsideTags(s, func(text string) string {
		return acronymRe.ReplaceAllStringFunc(text, func(ac string) string {
			return `<abbr title="` + acronymTitles[ac] + `">` + ac + `</abbr>`
		})
	})
}

// replaceOutsideTags applies fn to the text between HTML tags, leaving tag
// bodies (and their attributes) untouched.
func replaceOutsideTags(s string, fn func(string) string) string {
	var b strings.Builder
	for len(s) > 0 {
		i := strings.IndexByte(s, '<')
		if i < 0 {
			b.WriteString(fn(s))
			break
		}
		b.WriteString(fn(s[:i]))
		j := strings.IndexByte(s[i:], '>')
		if j < 0 {
			b.WriteString(s[i:])
			break
		}
		b.WriteString(s[i : i+j+1])
		s = s[i+j+1:]
	}
	return b.String()
}
