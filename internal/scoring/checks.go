package scoring

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"atscheck/internal/types"
)

// Check keys, also used by the suggestion generator.
const (
	KeyLayout     = "layout"
	KeyContact    = "contact"
	KeySections   = "sections"
	KeySkills     = "skills"
	KeyLength     = "length"
	KeyBullets    = "bullets"
	KeyImpact     = "impact"
	KeyRepetition = "repetition"
	KeyFormatting = "formatting"
)

// Failure modes.
const (
	FailScanned         = "scanned"
	FailColumns         = "columns"
	FailScannedColumns  = "scanned_columns"
	FailNoContacts      = "no_contacts"
	FailNoEmail         = "no_email"
	FailNoPhoneOrLink   = "no_phone_or_link"
	FailMissingSections = "missing_sections"
	FailNoSkills        = "no_skills"
	FailFewSkills       = "few_skills"
	FailSkillsStuffed   = "skills_stuffed"
	FailTooShort        = "too_short"
	FailTooLong         = "too_long"
	FailNoBullets       = "no_bullets"
	FailFewBullets      = "few_bullets"
	FailNoMetrics       = "no_metrics"
	FailFewMetrics      = "few_metrics"
	FailRepetition      = "repetition"
	FailNoise           = "noise"
)

var (
	metricPattern = regexp.MustCompile(`(?i)` +
		`[$\x{20AC}\x{00A3}]\s?\d[\d,.]*\s?[kmb]?\b` +
		`|\b\d[\d,.]*\s?(?:%|percent\b|x\b|k\b|\+)` +
		`|\b\d[\d,.]*\s+(?:users|customers|clients|people|engineers|members|hours|days|weeks|ms|seconds|requests|transactions|countries|million|billion|thousand)\b`)
	contentWord = regexp.MustCompile(`\pL{4,}`)
)

// Frequent words that say nothing about repetition of content.
var stopWords = map[string]bool{
	"with": true, "that": true, "this": true, "from": true, "have": true, "were": true,
	"their": true, "which": true, "about": true, "into": true, "over": true, "using": true,
	"also": true, "such": true, "other": true, "than": true, "then": true, "they": true,
	"team": true, "work": true, "years": true, "year": true, "present": true,
}

func checkLayout(in Input) types.CheckResult {
	s := in.Signals
	score := 100
	switch {
	case s.LikelyScannedPDF && s.PossibleColumns:
		return types.CheckResult{
			Score:   score - ScannedPenalty - ColumnsPenalty,
			Note:    fmt.Sprintf("Only %.0f characters per page and a multi-column layout; ATS parsers will struggle.", s.AvgCharsPerPage),
			Failure: FailScannedColumns,
		}
	case s.LikelyScannedPDF:
		return types.CheckResult{
			Score:   score - ScannedPenalty,
			Note:    fmt.Sprintf("Only %.0f characters per page; this looks like a scanned image.", s.AvgCharsPerPage),
			Failure: FailScanned,
		}
	case s.PossibleColumns:
		return types.CheckResult{
			Score:   score - ColumnsPenalty,
			Note:    "Layout looks multi-column; parsers may read it out of order.",
			Failure: FailColumns,
		}
	}
	return types.CheckResult{Score: score, Note: "Text layer is readable and single-column."}
}

func checkContact(in Input) types.CheckResult {
	c := in.Profile.Contacts
	hasEmail := len(c.Emails) > 0
	hasOther := len(c.Phones) > 0 || c.HasLink()

	found := contactChannels(c)
	switch {
	case hasEmail && hasOther:
		return types.CheckResult{Score: ContactFull, Note: "Found: " + strings.Join(found, ", ") + "."}
	case hasEmail:
		return types.CheckResult{
			Score:   ContactEmailOnly,
			Note:    "Only an email was found; add a phone number or profile link.",
			Failure: FailNoPhoneOrLink,
		}
	case hasOther:
		return types.CheckResult{
			Score:   ContactNoEmail,
			Note:    "No email found. Found: " + strings.Join(found, ", ") + ".",
			Failure: FailNoEmail,
		}
	}
	return types.CheckResult{Score: ContactNone, Note: "No contact details found.", Failure: FailNoContacts}
}

func contactChannels(c types.Contacts) []string {
	var found []string
	if len(c.Emails) > 0 {
		found = append(found, "email")
	}
	if len(c.Phones) > 0 {
		found = append(found, "phone")
	}
	if len(c.LinkedIn) > 0 {
		found = append(found, "LinkedIn")
	}
	if len(c.GitHub) > 0 {
		found = append(found, "GitHub")
	}
	return found
}

func checkSections(in Input) types.CheckResult {
	sec := in.Sections
	experience := fuller(sec.Experience, sec.Projects)
	parts := []struct {
		label string
		body  *string
	}{
		{"Summary", sec.About},
		{"Experience/Projects", experience},
		{"Education", sec.Education},
		{"Skills", sec.Skills},
	}

	credit := 0.0
	var missing, empty []string
	for _, p := range parts {
		switch {
		case p.body == nil:
			missing = append(missing, p.label)
		case strings.TrimSpace(*p.body) == "":
			empty = append(empty, p.label)
			credit += EmptySectionCredit
		default:
			credit++
		}
	}

	score := int(math.Round(credit / float64(len(parts)) * 100))
	res := types.CheckResult{Score: score}
	var notes []string
	if len(missing) > 0 {
		notes = append(notes, "Missing: "+strings.Join(missing, ", "))
	}
	if len(empty) > 0 {
		notes = append(notes, "Empty: "+strings.Join(empty, ", "))
	}
	if len(notes) == 0 {
		res.Note = "All core sections found."
		return res
	}
	res.Note = strings.Join(notes, ". ") + "."
	res.Failure = FailMissingSections
	res.FailureArgs = append(missing, empty...)
	return res
}

// fuller picks whichever section carries more: content beats an empty
// header, an empty header beats a missing one.
func fuller(a, b *string) *string {
	if presence(b) > presence(a) {
		return b
	}
	return a
}

func presence(s *string) int {
	switch {
	case s == nil:
		return 0
	case strings.TrimSpace(*s) == "":
		return 1
	default:
		return 2
	}
}

func checkSkills(in Input) types.CheckResult {
	n := len(in.Profile.Skills)
	switch {
	case n == 0:
		return types.CheckResult{Score: 0, Note: "No recognisable skills or tools found.", Failure: FailNoSkills}
	case n > MaxSkills:
		return types.CheckResult{
			Score:   SkillsStuffed,
			Note:    fmt.Sprintf("%d skills listed; long keyword lists can read as stuffing.", n),
			Failure: FailSkillsStuffed,
		}
	case n >= TargetSkills:
		return types.CheckResult{Score: 100, Note: fmt.Sprintf("%d skills recognised.", n)}
	}
	score := SkillsFloor + (100-SkillsFloor)*n/TargetSkills
	res := types.CheckResult{Score: score, Note: fmt.Sprintf("%d skills recognised; aim for at least %d.", n, TargetSkills)}
	if StatusFor(score) != types.StatusGood {
		res.Failure = FailFewSkills
	}
	return res
}

func checkLength(in Input) types.CheckResult {
	words, pages := in.Signals.WordCount, in.Signals.Pages
	switch {
	case words < MinWordsSparse:
		return types.CheckResult{
			Score:   LengthSparse,
			Note:    fmt.Sprintf("%d words; the resume looks incomplete.", words),
			Failure: FailTooShort,
		}
	case words < MinWords:
		return types.CheckResult{
			Score:   LengthShort,
			Note:    fmt.Sprintf("%d words; most resumes need at least %d.", words, MinWords),
			Failure: FailTooShort,
		}
	case pages > MaxPages || words > MaxWords:
		return types.CheckResult{
			Score:   LengthLong,
			Note:    fmt.Sprintf("%d words over %d pages; keep it to one or two pages.", words, pages),
			Failure: FailTooLong,
		}
	}
	return types.CheckResult{Score: 100, Note: fmt.Sprintf("%d words over %d page(s).", words, pages)}
}

func checkBullets(in Input) types.CheckResult {
	n := in.Signals.BulletCount
	switch {
	case n == 0:
		return types.CheckResult{Score: BulletsNone, Note: "No bullet points found.", Failure: FailNoBullets}
	case n < MinBullets:
		return types.CheckResult{Score: BulletsFew, Note: fmt.Sprintf("Only %d bullet point(s).", n), Failure: FailFewBullets}
	}
	return types.CheckResult{Score: 100, Note: fmt.Sprintf("%d bullet points.", n)}
}

// CountMetrics counts quantified results: percentages, currency, multipliers
// and numbers followed by a unit such as "users" or "hours". Bare years do not
// count.
func CountMetrics(text string) int {
	return len(metricPattern.FindAllStringIndex(text, -1))
}

func checkImpact(in Input) types.CheckResult {
	n := CountMetrics(in.Text)
	switch {
	case n == 0:
		return types.CheckResult{Score: ImpactNone, Note: "No measurable results found.", Failure: FailNoMetrics}
	case n < ImpactMetrics:
		return types.CheckResult{Score: ImpactFew, Note: fmt.Sprintf("%d measurable result(s) found.", n), Failure: FailFewMetrics}
	}
	return types.CheckResult{Score: 100, Note: fmt.Sprintf("%d measurable results found.", n)}
}

// TopWord returns the most frequent content word of four or more letters.
// Ties go to the alphabetically first word.
func TopWord(text string) (string, int) {
	counts := make(map[string]int)
	for _, w := range contentWord.FindAllString(text, -1) {
		w = strings.ToLower(w)
		if !stopWords[w] {
			counts[w]++
		}
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) == 0 {
		return "", 0
	}
	return words[0], counts[words[0]]
}

func checkRepetition(in Input) types.CheckResult {
	word, n := TopWord(in.Text)
	if n >= RepetitionMax {
		return types.CheckResult{
			Score:       RepetitionHigh,
			Note:        fmt.Sprintf("%q appears %d times.", word, n),
			Failure:     FailRepetition,
			FailureArgs: []string{word},
		}
	}
	return types.CheckResult{Score: RepetitionOK, Note: "No heavily repeated words."}
}

func checkFormatting(in Input) types.CheckResult {
	caps, symbols := 0, 0
	for _, w := range strings.Fields(in.Text) {
		if isShouting(w) {
			caps++
		}
	}
	for _, r := range in.Text {
		if unicode.In(r, unicode.So, unicode.Co) || r == unicode.ReplacementChar {
			symbols++
		}
	}
	if caps > MaxCapsWords || symbols > MaxSymbolRunes {
		return types.CheckResult{
			Score:   FormattingNoisy,
			Note:    fmt.Sprintf("%d all-caps words and %d icon or symbol characters.", caps, symbols),
			Failure: FailNoise,
		}
	}
	return types.CheckResult{Score: FormattingClean, Note: "Formatting looks clean."}
}

// isShouting reports an all-caps word of four or more letters.
func isShouting(w string) bool {
	letters := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 4
}
