package annotate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aretw0/tagvault/pkg/core"
)

// sigils maps each tag category to its leading character.
var sigils = map[core.Category]byte{
	core.CategoryProjects: '#',
	core.CategoryPersons:  '@',
	core.CategoryEvents:   '>',
	core.CategoryGeneric:  '+',
}

// IsTagToken reports whether word starts with a recognized sigil.
func IsTagToken(word string) bool {
	return word != "" && strings.ContainsRune("#@>+", rune(word[0]))
}

// ExtractTags returns every whitespace-delimited word of text that starts
// with a sigil, verbatim and in order. Repeated tokens are kept.
func ExtractTags(text string) []string {
	tags := []string{}
	for _, word := range strings.Fields(text) {
		if IsTagToken(word) {
			tags = append(tags, word)
		}
	}
	return tags
}

// Categorize derives the category of a tag token from its sigil.
func Categorize(token string) (core.Category, error) {
	if token == "" {
		return "", fmt.Errorf("%w: empty tag", core.ErrInvalidTagFormat)
	}
	switch token[0] {
	case '#':
		return core.CategoryProjects, nil
	case '@':
		return core.CategoryPersons, nil
	case '>':
		return core.CategoryEvents, nil
	case '+':
		return core.CategoryGeneric, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrInvalidTagFormat, token)
}

// Sigil returns the leading character of tags in category.
func Sigil(category core.Category) (string, bool) {
	s, ok := sigils[category]
	if !ok {
		return "", false
	}
	return string(s), true
}

// ValidateToken checks that token is a single tag word.
func ValidateToken(token string) error {
	if _, err := Categorize(token); err != nil {
		return err
	}
	if len(token) == 1 || strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q", core.ErrInvalidTagFormat, token)
	}
	return nil
}

// ReplaceTag substitutes every whole-word occurrence of old in text with
// repl, keeping the surrounding whitespace intact. Words that merely contain
// old ("#old2", "x#old") are left alone.
func ReplaceTag(text, old, repl string) string {
	var b strings.Builder
	b.Grow(len(text))

	flush := func(word string) {
		if word == old {
			b.WriteString(repl)
		} else {
			b.WriteString(word)
		}
	}

	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				flush(text[start:i])
				start = -1
			}
			b.WriteRune(r)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		flush(text[start:])
	}
	return b.String()
}
