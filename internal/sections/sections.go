// Package sections locates header-delimited sections of a resume.
package sections

import (
	"strings"
	"unicode/utf8"

	"atscheck/internal/types"
)

// Kind identifies a recognised section.
type Kind int

const (
	KindNone Kind = iota
	KindAbout
	KindExperience
	KindProjects
	KindEducation
	KindSkills
	KindCertifications
	KindLanguages
)

var kindNames = map[Kind]string{
	KindNone:           "none",
	KindAbout:          "about",
	KindExperience:     "experience",
	KindProjects:       "projects",
	KindEducation:      "education",
	KindSkills:         "skills",
	KindCertifications: "certifications",
	KindLanguages:      "languages",
}

func (k Kind) String() string { return kindNames[k] }

// maxHeaderRunes bounds header lines; anything longer is content.
const maxHeaderRunes = 44

var aliases = map[Kind][]string{
	KindAbout: {
		"summary", "profile", "about", "about me", "professional summary", "career summary",
		"objective", "career objective", "professional profile", "personal statement",
	},
	KindExperience: {
		"experience", "work experience", "employment", "employment history", "professional experience",
		"work history", "career history", "internship", "internships", "relevant experience",
	},
	KindProjects: {
		"projects", "personal projects", "selected projects", "academic projects", "key projects",
	},
	KindEducation: {
		"education", "academics", "academic background", "qualifications", "education and training",
		"academic qualifications",
	},
	KindSkills: {
		"skills", "technical skills", "core skills", "key skills", "competencies", "core competencies",
		"tools", "technologies", "tech stack", "skills and tools",
	},
	KindCertifications: {
		"certifications", "certificates", "licenses", "licenses and certifications", "training", "courses",
	},
	KindLanguages: {
		"languages", "language", "spoken languages",
	},
}

var headerIndex = func() map[string]Kind {
	idx := make(map[string]Kind)
	for kind, names := range aliases {
		for _, n := range names {
			idx[n] = kind
		}
	}
	return idx
}()

// Inline lists such as "Skills: Go, Python" open a section on the same line.
// Only unambiguous list headers qualify, so "Tools: Jira" inside a job entry
// stays content.
var inlineAliases = map[string]bool{
	"skills":           true,
	"technical skills": true,
	"core skills":      true,
	"key skills":       true,
	"certifications":   true,
	"languages":        true,
}

// MatchHeader reports whether line is a section header. rest is any content
// that followed an inline "Header: value" form.
func MatchHeader(line string) (kind Kind, rest string, ok bool) {
	if k, ok := lookup(line); ok {
		return k, "", true
	}
	head, tail, found := strings.Cut(line, ":")
	if !found || !inlineAliases[canonical(head)] {
		return KindNone, "", false
	}
	return headerIndex[canonical(head)], strings.TrimSpace(tail), true
}

// IsHeader reports whether line is a section header.
func IsHeader(line string) bool {
	_, _, ok := MatchHeader(line)
	return ok
}

func lookup(line string) (Kind, bool) {
	key := canonical(line)
	if key == "" || utf8.RuneCountInString(key) > maxHeaderRunes {
		return KindNone, false
	}
	k, ok := headerIndex[key]
	return k, ok
}

// canonical lowercases a candidate header and strips decoration such as
// "== SKILLS ==", "Experience:" or "• Education".
func canonical(line string) string {
	s := strings.ToLower(strings.TrimSpace(line))
	s = strings.Trim(s, " :-*#=_|\u2022\u00b7\u2013\u2014")
	s = strings.ReplaceAll(s, "&", "and")
	return strings.Join(strings.Fields(s), " ")
}

type scanState int

const (
	stateOutside   scanState = iota // before the first header
	stateCapturing                  // inside the first occurrence of a section
	stateSkipping                   // inside a repeated header; content is dropped
)

// Locate scans text line by line. A section runs from its header to the next
// recognised header of any kind or the end of the document. When a section
// header repeats, the first occurrence wins and later content is ignored.
// Sections whose header never appears stay nil; a header with no content
// yields a pointer to the empty string.
func Locate(text string) types.Sections {
	var (
		out     types.Sections
		state   = stateOutside
		current = KindNone
		buf     []string
		seen    = make(map[Kind]bool)
	)

	flush := func() {
		if state == stateCapturing {
			body := strings.TrimSpace(strings.Join(buf, "\n"))
			assign(&out, current, &body)
		}
		buf = nil
	}

	for line := range strings.SplitSeq(text, "\n") {
		kind, rest, isHeader := MatchHeader(line)
		if isHeader && rest != "" && (seen[kind] || inSkills(state, current)) {
			isHeader = false
		}
		switch {
		case isHeader:
			flush()
			current = kind
			if seen[kind] {
				state = stateSkipping
				continue
			}
			seen[kind] = true
			state = stateCapturing
			if rest != "" {
				buf = append(buf, rest)
			}
		case state == stateCapturing:
			buf = append(buf, line)
		}
	}
	flush()
	return out
}

// inSkills reports whether the scan is capturing the skills section, where
// "Languages: Go, Rust" is a category line and not an inline header.
func inSkills(state scanState, current Kind) bool {
	return state == stateCapturing && current == KindSkills
}

func assign(s *types.Sections, kind Kind, body *string) {
	switch kind {
	case KindAbout:
		s.About = body
	case KindExperience:
		s.Experience = body
	case KindProjects:
		s.Projects = body
	case KindEducation:
		s.Education = body
	case KindSkills:
		s.Skills = body
	case KindCertifications:
		s.Certifications = body
	case KindLanguages:
		s.Languages = body
	}
}
