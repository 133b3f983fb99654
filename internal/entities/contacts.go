// Package entities recognises contact channels, the candidate name and skills
// in normalized resume text. Every matcher is independent and treats "no
// match" as an empty result.
package entities

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"atscheck/internal/types"
)

const (
	minPhoneDigits     = 9
	maxPhoneDigits     = 15
	maxBareDigits      = 10 // longer unformatted runs read as identifiers
	minPortfolioLength = 10
)

var (
	emailPattern     = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	phonePattern     = regexp.MustCompile(`(?:(?:\+|00)\d{1,3}[\s.-]?)?(?:\(?\d{2,4}\)?[\s.-]?)?\d{3,4}[\s.-]?\d{3,4}\b`)
	linkedInPattern  = regexp.MustCompile(`(?i)(?:https?://)?(?:[a-z]{2,3}\.)?linkedin\.com/[A-Za-z0-9_/%.-]+`)
	gitHubPattern    = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?github\.com/[A-Za-z0-9_%.-]+`)
	portfolioPattern = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>()"',;|]+`)
	yearGroup        = regexp.MustCompile(`^(?:19|20)\d{2}$`)
	digitGroups      = regexp.MustCompile(`\d+`)
)

// orderedSet keeps first-seen values keyed by a comparison form.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: []string{}}
}

func (s *orderedSet) add(key, value string) {
	if key == "" {
		return
	}
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.items = append(s.items, value)
}

// ExtractContacts runs every contact matcher over text.
func ExtractContacts(text string) types.Contacts {
	return types.Contacts{
		Emails:    MatchEmails(text),
		Phones:    MatchPhones(text),
		LinkedIn:  MatchLinkedIn(text),
		GitHub:    MatchGitHub(text),
		Portfolio: MatchPortfolio(text),
	}
}

// MatchEmails returns email addresses, deduplicated case-insensitively.
func MatchEmails(text string) []string {
	set := newOrderedSet()
	for _, m := range emailPattern.FindAllString(text, -1) {
		set.add(strings.ToLower(m), m)
	}
	return set.items
}

// MatchPhones returns phone numbers with 9 to 15 digits. Emails and URLs are
// masked first so their digits cannot form numbers. Runs made only of years
// ("2019 2020 2021") and bare digit runs longer than ten digits are rejected.
func MatchPhones(text string) []string {
	masked := mask(text, emailPattern, portfolioPattern, linkedInPattern, gitHubPattern)
	set := newOrderedSet()
	for _, loc := range phonePattern.FindAllStringIndex(masked, -1) {
		if loc[0] > 0 {
			prev, _ := utf8.DecodeLastRuneInString(masked[:loc[0]])
			if unicode.IsLetter(prev) || unicode.IsDigit(prev) {
				continue
			}
		}
		m := strings.TrimSpace(text[loc[0]:loc[1]])
		digits := onlyDigits(m)
		if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits || onlyYears(m) {
			continue
		}
		if m == digits && len(digits) > maxBareDigits {
			continue
		}
		set.add(strings.TrimPrefix(digits, "00"), m)
	}
	return set.items
}

// MatchLinkedIn returns LinkedIn profile URLs in their surface form.
func MatchLinkedIn(text string) []string {
	return matchProfiles(linkedInPattern, text)
}

// MatchGitHub returns GitHub profile URLs in their surface form.
func MatchGitHub(text string) []string {
	return matchProfiles(gitHubPattern, text)
}

// MatchPortfolio returns other web links, excluding LinkedIn and GitHub.
func MatchPortfolio(text string) []string {
	set := newOrderedSet()
	for _, m := range portfolioPattern.FindAllString(text, -1) {
		m = strings.TrimRight(m, ".")
		lower := strings.ToLower(m)
		if strings.Contains(lower, "linkedin.com") || strings.Contains(lower, "github.com") ||
			strings.Contains(m, "@") || len(m) < minPortfolioLength {
			continue
		}
		set.add(linkKey(m), m)
	}
	return set.items
}

func matchProfiles(re *regexp.Regexp, text string) []string {
	set := newOrderedSet()
	for _, m := range re.FindAllString(text, -1) {
		m = strings.TrimRight(m, ".")
		set.add(linkKey(m), m)
	}
	return set.items
}

// linkKey is the comparison form of a URL: lowercase, no scheme, no www,
// no trailing slash.
func linkKey(u string) string {
	k := strings.ToLower(u)
	k = strings.TrimPrefix(k, "https://")
	k = strings.TrimPrefix(k, "http://")
	k = strings.TrimPrefix(k, "www.")
	return strings.TrimRight(k, "/.")
}

func mask(text string, patterns ...*regexp.Regexp) string {
	b := []byte(text)
	for _, re := range patterns {
		for _, loc := range re.FindAllIndex(b, -1) {
			for i := loc[0]; i < loc[1]; i++ {
				b[i] = ' '
			}
		}
	}
	return string(b)
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func onlyYears(s string) bool {
	groups := digitGroups.FindAllString(s, -1)
	for _, g := range groups {
		if !yearGroup.MatchString(g) {
			return false
		}
	}
	return len(groups) > 0
}
