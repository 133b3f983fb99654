// Package suggestions turns weak checks into actionable advice.
package suggestions

import (
	"fmt"
	"strings"

	"atscheck/internal/scoring"
	"atscheck/internal/types"
)

// advice maps a failure mode to its suggestion. Templates with a verb take
// the check's failure arguments joined by ", ".
var advice = map[string]string{
	scoring.FailScanned:         "Export your resume as a text-based PDF (not a scanned image). If needed, run OCR before uploading.",
	scoring.FailColumns:         "Switch to a single-column layout; ATS parsers often read columns and sidebars out of order.",
	scoring.FailScannedColumns:  "Export a text-based, single-column PDF; scanned pages and multi-column layouts are hard for ATS parsers to read.",
	scoring.FailNoContacts:      "Add your email, phone number and LinkedIn/GitHub link near the top in plain text.",
	scoring.FailNoEmail:         "Add a professional email near the top in plain text.",
	scoring.FailNoPhoneOrLink:   "Add a phone number (with country code) or a LinkedIn/GitHub link in plain text.",
	scoring.FailMissingSections: "Add clearly labelled sections for: %s.",
	scoring.FailNoSkills:        "Add a clear 'Skills' section with keywords (tools, languages, platforms).",
	scoring.FailFewSkills:       "List more of the specific tools and technologies you use; ATS keyword matching rewards them.",
	scoring.FailSkillsStuffed:   "Trim the skills list to the tools you actually use; very long keyword lists look like stuffing.",
	scoring.FailTooShort:        "Add more relevant bullets, projects, tools, and responsibilities.",
	scoring.FailTooLong:         "Aim for 1-2 pages and prioritize relevant content.",
	scoring.FailNoBullets:       "Use bullet points for achievements so each one is parsed as a separate item.",
	scoring.FailFewBullets:      "Break long paragraphs into bullet points that start with an action verb.",
	scoring.FailNoMetrics:       "Add measurable results: %, time saved, users, revenue, speed, KPIs.",
	scoring.FailFewMetrics:      "Add measurable results: %, time saved, users, revenue, speed, KPIs.",
	scoring.FailRepetition:      "Reduce repeated words (%q); vary action verbs and rewrite duplicated phrases.",
	scoring.FailNoise:           "Avoid too many icons/symbols; keep headings consistent and readable.",
}

// templated lists the failure modes whose advice embeds the failure arguments.
var templated = map[string]bool{
	scoring.FailMissingSections: true,
	scoring.FailRepetition:      true,
}

// Suggest emits one suggestion per check below the good tier, in check order,
// deduplicated case-insensitively. An empty result means nothing to improve.
func Suggest(checks []types.CheckResult) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, c := range checks {
		if c.Status == types.StatusGood || c.Failure == "" {
			continue
		}
		text, ok := advice[c.Failure]
		if !ok {
			continue
		}
		if templated[c.Failure] {
			text = fmt.Sprintf(text, strings.Join(c.FailureArgs, ", "))
		}
		key := strings.ToLower(text)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, text)
	}
	return out
}
