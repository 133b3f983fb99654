package entities

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"atscheck/internal/sections"
	"atscheck/internal/types"
)

const (
	nameScanLines    = 16
	maxNameRunes     = 50
	minNameWords     = 2
	maxNameWords     = 4
	minCapitalWords  = 2
	sentenceEndChars = ".!?;"
)

// Lowercase name particles that do not break the capitalisation rule.
var nameParticles = map[string]bool{
	"de": true, "da": true, "del": true, "della": true, "di": true, "du": true, "dos": true,
	"van": true, "von": true, "der": true, "den": true, "la": true, "le": true, "y": true,
	"bin": true, "binti": true, "al": true, "el": true, "ibn": true,
}

// Lines containing these words are document titles or job titles.
var nonNameWords = map[string]bool{
	"resume": true, "r\u00e9sum\u00e9": true, "cv": true, "curriculum": true, "vitae": true,
	"engineer": true, "developer": true, "manager": true, "analyst": true, "designer": true,
	"consultant": true, "scientist": true, "intern": true, "student": true, "architect": true,
	"specialist": true, "director": true, "officer": true, "administrator": true,
	"technician": true, "lead": true, "senior": true, "junior": true, "contact": true,
	"page": true, "university": true, "college": true, "inc": true, "ltd": true, "llc": true,
}

// ExtractName returns the first line near the top of the document that looks
// like a personal name, or nil. Lines holding contact values, section headers
// and sentences are skipped.
func ExtractName(text string, contacts types.Contacts) *string {
	scanned := 0
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if scanned == nameScanLines {
			break
		}
		scanned++

		if isContactLine(line, contacts) || sections.IsHeader(line) {
			continue
		}
		if name, ok := nameFromLine(line); ok {
			return &name
		}
	}
	return nil
}

func isContactLine(line string, c types.Contacts) bool {
	lower := strings.ToLower(line)
	if strings.ContainsAny(line, "@/") || strings.Contains(lower, "www.") || strings.Contains(lower, "http") {
		return true
	}
	for _, group := range [][]string{c.Emails, c.Phones, c.LinkedIn, c.GitHub, c.Portfolio} {
		for _, v := range group {
			if strings.Contains(line, v) {
				return true
			}
		}
	}
	return false
}

func nameFromLine(line string) (string, bool) {
	if utf8.RuneCountInString(line) > maxNameRunes || strings.ContainsAny(line, ":|,") {
		return "", false
	}
	if strings.ContainsAny(line[len(line)-1:], sentenceEndChars) {
		return "", false
	}
	if strings.IndexFunc(line, unicode.IsDigit) >= 0 {
		return "", false
	}

	words := strings.Fields(line)
	if len(words) < minNameWords || len(words) > maxNameWords {
		return "", false
	}

	capitals := 0
	for _, w := range words {
		lower := strings.ToLower(strings.Trim(w, ".'-"))
		if nonNameWords[lower] {
			return "", false
		}
		if !isNameWord(w) {
			return "", false
		}
		if nameParticles[lower] {
			continue
		}
		first, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(first) {
			return "", false
		}
		capitals++
	}
	if capitals < minCapitalWords {
		return "", false
	}
	return strings.Join(words, " "), true
}

// isNameWord accepts letters plus the joiners found in real names
// ("O'Neil", "Smith-Jones") and initials ("J.").
func isNameWord(w string) bool {
	letters := 0
	for _, r := range w {
		switch {
		case unicode.IsLetter(r):
			letters++
		case r == '\'' || r == '-' || r == '.' || r == '\u2019':
		default:
			return false
		}
	}
	return letters > 0
}
