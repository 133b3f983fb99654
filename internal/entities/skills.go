package entities

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxSkillTokenRunes = 45
	maxSkillTokenWords = 4
	tokenTrim          = " \t-*.\u2013\u2014"
)

// A vocabulary term matches only when it is not glued to other word
// characters. "+" and "#" count as word characters so "C++" and "C#" are
// never read as a prefix of something longer.
const termBoundary = `[^\pL\pN+#]`

var (
	skillSeparators = regexp.MustCompile(`[\x{2022}\x{00B7}\x{25CF}\x{25AA}|,;()\n]+`)
	categoryPrefix  = regexp.MustCompile(`^[\pL][\pL &/+-]{1,30}:\s*`)

	vocabularyPatterns = compileVocabulary(vocabulary)
)

func compileVocabulary(terms []term) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(terms))
	for i, t := range terms {
		flags := "(?i)"
		if t.caseSensitive {
			flags = ""
		}
		out[i] = regexp.MustCompile(flags + `(?:^|` + termBoundary + `)(` + regexp.QuoteMeta(t.name) + `)(?:` + termBoundary + `|$)`)
	}
	return out
}

type skillHit struct {
	start, end int
	value      string
}

// ExtractSkills returns skills in order of first occurrence, deduplicated
// case-insensitively with the first-seen casing kept. Vocabulary terms are
// matched across the whole text; when a Skills section was located, its
// separated tokens are included as well. The list is not capped.
func ExtractSkills(text string, skillsSection *string) []string {
	hits := vocabularyHits(text)
	if skillsSection != nil && *skillsSection != "" {
		if base := strings.Index(text, *skillsSection); base >= 0 {
			hits = append(hits, sectionTokens(*skillsSection, base)...)
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].start != hits[j].start {
			return hits[i].start < hits[j].start
		}
		return hits[i].end > hits[j].end
	})

	skills := newOrderedSet()
	coveredUntil := -1
	for _, h := range hits {
		// "React" inside an already taken "React Native" is the same mention.
		if h.end <= coveredUntil {
			continue
		}
		coveredUntil = max(coveredUntil, h.end)
		skills.add(skillKey(h.value), h.value)
	}
	return skills.items
}

func vocabularyHits(text string) []skillHit {
	var hits []skillHit
	for _, re := range vocabularyPatterns {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		hits = append(hits, skillHit{start: loc[2], end: loc[3], value: text[loc[2]:loc[3]]})
	}
	return hits
}

// sectionTokens splits a Skills section into list items, dropping category
// prefixes such as "Languages:". Offsets are relative to the full text.
func sectionTokens(section string, base int) []skillHit {
	var hits []skillHit
	pos := 0
	emit := func(start, end int) {
		tok := section[start:end]
		if p := categoryPrefix.FindString(tok); p != "" {
			start += len(p)
			tok = tok[len(p):]
		}
		trimmedLeft := strings.TrimLeft(tok, tokenTrim)
		start += len(tok) - len(trimmedLeft)
		tok = strings.TrimRight(trimmedLeft, tokenTrim)
		if !isSkillToken(tok) {
			return
		}
		hits = append(hits, skillHit{start: base + start, end: base + start + len(tok), value: tok})
	}
	for _, sep := range skillSeparators.FindAllStringIndex(section, -1) {
		emit(pos, sep[0])
		pos = sep[1]
	}
	emit(pos, len(section))
	return hits
}

func isSkillToken(tok string) bool {
	n := utf8.RuneCountInString(tok)
	if n == 0 || n > maxSkillTokenRunes {
		return false
	}
	if len(strings.Fields(tok)) > maxSkillTokenWords {
		return false
	}
	return strings.IndexFunc(tok, unicode.IsLetter) >= 0
}

func skillKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
