// Package annotate extracts the inline annotations of a note: the task
// priority marker, an optional due date and the tag tokens.
package annotate

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/tagvault/pkg/core"
)

// Annotation is the structured result of parsing a note's text.
type Annotation struct {
	Priority core.Priority // PriorityNone when no marker was found
	DueDate  string        // YYYY-MM-DD, empty when absent
	Text     string        // text with the marker excised, trimmed
	Tags     []string      // tag tokens of Text, in order
}

// Parse extracts annotations relative to the current time.
func Parse(text string) (Annotation, error) {
	return ParseAt(text, time.Now())
}

// ParseAt extracts annotations from text. Relative due dates (today,
// tomorrow, week) resolve against now.
//
// Only the first priority marker is considered: a run of one to three '!'
// at the start of the text or right after whitespace, not followed by
// another '!'. A due date literal may follow the run directly ("!!today")
// or after whitespace ("!! today"); in the latter form it must end at a
// word boundary.
func ParseAt(text string, now time.Time) (Annotation, error) {
	if !utf8.ValidString(text) {
		return Annotation{}, fmt.Errorf("%w: invalid utf-8", core.ErrParse)
	}

	m, ok := findMarker(text, now)
	if !ok {
		cleaned := strings.TrimSpace(text)
		return Annotation{Text: cleaned, Tags: ExtractTags(cleaned)}, nil
	}

	cleaned := strings.TrimSpace(excise(text, m.start, m.end))
	return Annotation{
		Priority: m.priority,
		DueDate:  m.dueDate,
		Text:     cleaned,
		Tags:     ExtractTags(cleaned),
	}, nil
}

// marker is a located priority run plus its optional date literal.
// text[start:end] is the span to excise.
type marker struct {
	start, end int
	priority   core.Priority
	dueDate    string
}

// findMarker scans for the first qualifying exclamation run.
func findMarker(text string, now time.Time) (marker, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '!' {
			continue
		}
		if i > 0 && !isSpaceBefore(text, i) {
			continue
		}

		n := 0
		for i+n < len(text) && text[i+n] == '!' {
			n++
		}
		if n > 3 {
			// Not a marker; skip the whole run.
			i += n - 1
			continue
		}

		m := marker{start: i, end: i + n, priority: priorityOf(n)}
		if due, width, ok := matchDueDate(text[m.end:], now, false); ok {
			m.dueDate = due
			m.end += width
		} else if gap := leadingSpace(text[m.end:]); gap > 0 {
			if due, width, ok := matchDueDate(text[m.end+gap:], now, true); ok {
				m.dueDate = due
				m.end += gap + width
			}
		}
		return m, true
	}
	return marker{}, false
}

func priorityOf(n int) core.Priority {
	switch n {
	case 1:
		return core.PriorityLow
	case 2:
		return core.PriorityMid
	default:
		return core.PriorityHigh
	}
}

// dateWords are matched before numeric forms; numeric forms are tried
// longest first so "2025-01-02" is never read as "20".
var dateWords = []struct {
	word string
	days int
}{
	{"today", 0},
	{"tomorrow", 1},
	{"week", 7},
}

// matchDueDate reads a due date literal at the start of s. It returns the
// resolved date and the number of bytes consumed.
func matchDueDate(s string, now time.Time, needBoundary bool) (string, int, bool) {
	bounded := func(width int) bool {
		if !needBoundary || width == len(s) {
			return true
		}
		r, _ := utf8.DecodeRuneInString(s[width:])
		return unicode.IsSpace(r)
	}

	for _, w := range dateWords {
		if strings.HasPrefix(s, w.word) && bounded(len(w.word)) {
			return now.AddDate(0, 0, w.days).Format(core.DateLayout), len(w.word), true
		}
	}

	switch {
	case hasShape(s, "dddd-dd-dd") && bounded(10):
		if d, ok := calendarDate(s[:10]); ok {
			return d, 10, true
		}
	case hasShape(s, "dd-dd-dd") && bounded(8):
		if d, ok := calendarDate("20" + s[:8]); ok {
			return d, 8, true
		}
	case hasShape(s, "dd-dd") && bounded(5):
		if d, ok := calendarDate(fmt.Sprintf("%04d-%s", now.Year(), s[:5])); ok {
			return d, 5, true
		}
	}
	return "", 0, false
}

// hasShape reports whether s starts with the pattern, where 'd' stands for
// an ASCII digit and any other byte must match literally.
func hasShape(s, pattern string) bool {
	if len(s) < len(pattern) {
		return false
	}
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == 'd' {
			if s[i] < '0' || s[i] > '9' {
				return false
			}
		} else if s[i] != pattern[i] {
			return false
		}
	}
	return true
}

// calendarDate validates a YYYY-MM-DD string as a real date.
func calendarDate(s string) (string, bool) {
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		return "", false
	}
	return t.Format(core.DateLayout), true
}

// excise removes text[start:end]. When the span sat between two whitespace
// runs, the whitespace following it is dropped so the separator is not doubled.
func excise(text string, start, end int) string {
	before := text[:start]
	after := text[end:]
	if (start == 0 || isSpaceBefore(text, start)) && leadingSpace(after) > 0 {
		_, size := utf8.DecodeRuneInString(after)
		after = after[size:]
	}
	return before + after
}

func isSpaceBefore(text string, i int) bool {
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return unicode.IsSpace(r)
}

// leadingSpace returns the byte width of the whitespace prefix of s.
func leadingSpace(s string) int {
	width := 0
	for width < len(s) {
		r, size := utf8.DecodeRuneInString(s[width:])
		if !unicode.IsSpace(r) {
			break
		}
		width += size
	}
	return width
}
