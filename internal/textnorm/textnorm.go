// Package textnorm turns raw extracted text into the single normalized string
// every analysis stage reads from.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"atscheck/internal/types"
)

// Normalize cleans the concatenated text of a raw document.
func Normalize(raw types.RawDocument) string {
	return String(raw.Text())
}

// String normalizes s. It never fails and is idempotent:
// String(String(s)) == String(s).
//
// Steps, in order:
//  1. line endings become \n, invisible format characters are dropped
//  2. NFKC folding (ligatures, full-width forms, NBSP and other exotic spaces)
//  3. runs of horizontal whitespace collapse to one space, lines are trimmed
//  4. three or more consecutive newlines collapse to two
//  5. leading and trailing whitespace is trimmed
func String(s string) string {
	if s == "" {
		return ""
	}

	s = stripInvisible(s)
	s = norm.NFKC.String(s)
	s = collapseSpaces(s)

	lines := strings.Split(s, "\n")
	var b strings.Builder
	b.Grow(len(s))
	blank := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			blank++
			continue
		}
		if b.Len() > 0 {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteByte('\n')
			}
		}
		blank = 0
		b.WriteString(line)
	}
	return b.String()
}

// stripInvisible unifies line breaks and removes control and zero-width
// characters. It runs before NFKC so removing a character can never create a
// new composable sequence on a later pass.
func stripInvisible(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\t':
			return r
		case '\r', '\v', '\f', '\u0085', '\u2028', '\u2029':
			return '\n'
		case '\u00ad', '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if r != '\n' && unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// Lines splits normalized text into lines, dropping empty ones.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	raw := strings.Split(text, "\n")
	lines := raw[:0]
	for _, l := range raw {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
