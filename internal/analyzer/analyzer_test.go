package analyzer

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atscheck/internal/errors"
	"atscheck/internal/types"
)

const strongResume = `Jane Doe
jane.doe@example.com | +1 415 555 0134 | linkedin.com/in/janedoe
Summary
Backend engineer with eight years of experience designing reliable distributed systems, mentoring engineers and shipping customer-facing APIs for fintech and logistics companies. Comfortable owning services from the first design review through on-call support in production. Enjoys writing clear documentation and pairing with product teams.
Experience
Senior Backend Engineer, Acme Payments, Jan 2020 - Present
- Led the migration of the payment ledger to Go microservices, cutting settlement latency by 45% for 3 million customers.
- Designed an event pipeline on Kafka and PostgreSQL that processes 12,000 transactions per second with zero data loss.
- Introduced Terraform modules and automated release pipelines, reducing release time from two days to 40 minutes.
Backend Engineer, Northwind Logistics, Jun 2016 - Dec 2019
- Built route planning services in Python and Redis that saved $1.2M in annual fuel costs.
- Containerised legacy services with Docker and Kubernetes, improving deployment frequency 5x.
- Mentored four junior developers and ran weekly architecture reviews for the platform group.
Education
BSc Computer Science, University of Washington, 2012 - 2016
Graduated with honours; thesis on consistent hashing for distributed caches and replicated storage engines.
Skills
Go, Python, PostgreSQL, Kafka, Docker, Kubernetes, Terraform, Redis
`

const compactResume = `Jane Doe
jane.doe@example.com | +1 415 555 0134
Summary
Backend engineer building reliable payment APIs and data pipelines.
Experience
Senior Engineer, Acme Payments, Jan 2020 - Present
- Cut settlement latency by 45% for 3 million customers.
- Automated releases with Terraform, saving 20 hours per week.
Education
BSc Computer Science, University of Washington, 2016
Skills
Go, Python, PostgreSQL, Kafka, Docker, Kubernetes, Terraform, Redis
`

func document(pages int, texts ...string) types.RawDocument {
	doc := types.RawDocument{Pages: pages, Extractor: "pdf-rows", HighFidelityAvailable: true}
	for i, t := range texts {
		doc.Blocks = append(doc.Blocks, types.TextBlock{Page: i + 1, Text: t})
	}
	return doc
}

func TestAnalyze_StrongResume(t *testing.T) {
	resp, err := New(Options{}).Analyze(document(1, strongResume))
	require.NoError(t, err)

	d := resp.Dashboard
	assert.True(t, d.ATSFriendly, "checks: %+v", d.Checks)
	assert.Zero(t, d.Issues)
	assert.GreaterOrEqual(t, d.Score, 70)
	assert.Len(t, d.Checks, 9)
	assert.False(t, d.Signals.LikelyScannedPDF)
	assert.False(t, d.Signals.PossibleColumns)
	assert.Equal(t, "pdf-rows", d.Signals.Extractor)
	assert.True(t, d.Signals.HighFidelityAvailable)
	assert.Equal(t, 6, d.Signals.BulletCount)

	s := resp.Structured
	require.NotNil(t, s.Name)
	assert.Equal(t, "Jane Doe", *s.Name)
	assert.Equal(t, []string{"jane.doe@example.com"}, s.Contacts.Emails)
	assert.NotEmpty(t, s.Contacts.Phones)
	assert.NotEmpty(t, s.Contacts.LinkedIn)
	for _, sec := range []*string{s.About, s.Experience, s.Education} {
		require.NotNil(t, sec)
		assert.NotEmpty(t, *sec)
	}
	assert.Nil(t, s.Projects)
	assert.Nil(t, s.Certifications)
	assert.Subset(t, s.Skills, []string{"Go", "Python", "PostgreSQL", "Kafka", "Docker", "Kubernetes", "Terraform", "Redis"})
	assert.True(t, strings.HasPrefix(s.RawPreview, "Jane Doe"))
}

func TestAnalyze_CompactResumeIsATSFriendly(t *testing.T) {
	resp, err := New(Options{}).Analyze(document(1, compactResume))
	require.NoError(t, err)

	d := resp.Dashboard
	require.Less(t, d.Signals.WordCount, 80)
	assert.False(t, d.Signals.LikelyScannedPDF)
	assert.True(t, d.ATSFriendly, "checks: %+v", d.Checks)
	assert.Zero(t, d.Issues)
	for _, c := range d.Checks {
		assert.NotEqual(t, types.StatusBad, c.Status, c.Label)
	}
	assert.Equal(t, types.StatusWarn, d.Checks[4].Status, "short resumes are flagged, not failed")
}

func TestAnalyze_SkillCategoriesStayInSkills(t *testing.T) {
	text := strings.Replace(compactResume,
		"Go, Python, PostgreSQL, Kafka, Docker, Kubernetes, Terraform, Redis",
		"Languages: Go, Python, Elm\nDatabases: PostgreSQL, Redis\nTools: Docker, Kubernetes, Terraform, Kafka", 1)

	resp, err := New(Options{}).Analyze(document(1, text))
	require.NoError(t, err)

	s := resp.Structured
	assert.Nil(t, s.Languages)
	require.NotNil(t, s.Skills)
	assert.Subset(t, s.Skills, []string{"Go", "Python", "Elm", "PostgreSQL", "Redis", "Docker", "Kubernetes", "Terraform", "Kafka"})
	assert.Equal(t, types.StatusGood, resp.Dashboard.Checks[3].Status)
}

func TestAnalyze_NoPages(t *testing.T) {
	_, err := New(Options{}).Analyze(types.RawDocument{Extractor: "pdf-rows"})
	require.Error(t, err)
	assert.True(t, errors.IsEmptyDocument(err))
}

func TestAnalyze_NoText(t *testing.T) {
	_, err := New(Options{}).Analyze(document(2, "  \n\t", ""))
	require.Error(t, err)
	assert.True(t, errors.IsEmptyDocument(err))
}

func TestAnalyze_LowDensityIsScanned(t *testing.T) {
	resp, err := New(Options{}).Analyze(document(2, "Jane Doe\njane@example.com", "Skills\nGo, Docker"))
	require.NoError(t, err)

	d := resp.Dashboard
	assert.True(t, d.Signals.LikelyScannedPDF)
	assert.False(t, d.ATSFriendly)
	assert.Positive(t, d.Issues)
	require.NotEmpty(t, d.Checks)
	assert.Equal(t, types.StatusBad, d.Checks[0].Status)
	assert.NotEmpty(t, d.Suggestions)
}

func TestAnalyze_ColumnHint(t *testing.T) {
	doc := document(1, strongResume)
	doc.ColumnHint = true

	resp, err := New(Options{}).Analyze(doc)
	require.NoError(t, err)
	assert.True(t, resp.Dashboard.Signals.PossibleColumns)
	assert.Equal(t, types.StatusWarn, resp.Dashboard.Checks[0].Status)
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := New(Options{})
	first, err := a.Analyze(document(1, strongResume))
	require.NoError(t, err)
	second, err := a.Analyze(document(1, strongResume))
	require.NoError(t, err)

	assert.Equal(t, first, second)

	b1, err := json.Marshal(first)
	require.NoError(t, err)
	b2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestAnalyze_JSONShape(t *testing.T) {
	resp, err := New(Options{}).Analyze(document(1, "Jane Doe\nSome words about nothing in particular."))
	require.NoError(t, err)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &top))
	assert.Len(t, top, 2)
	assert.Contains(t, top, "dashboard")
	assert.Contains(t, top, "structured")

	var structured map[string]any
	require.NoError(t, json.Unmarshal(top["structured"], &structured))
	assert.Nil(t, structured["experience"])
	assert.Contains(t, structured, "experience")
	assert.Equal(t, []any{}, structured["skills"])

	contacts := structured["contacts"].(map[string]any)
	assert.Equal(t, []any{}, contacts["emails"])

	var dashboard map[string]any
	require.NoError(t, json.Unmarshal(top["dashboard"], &dashboard))
	for _, key := range []string{"score", "issues", "grade", "ats_friendly", "checks", "suggestions", "signals"} {
		assert.Contains(t, dashboard, key)
	}
	checks := dashboard["checks"].([]any)
	assert.Equal(t, []string{"label", "note", "score", "status"}, keys(checks[0].(map[string]any)))
}

func TestAnalyze_PreviewTruncates(t *testing.T) {
	resp, err := New(Options{PreviewChars: 8}).Analyze(document(1, strongResume))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", resp.Structured.RawPreview)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", preview("abc", 5))
	assert.Equal(t, "ab", preview("abc", 2))
	assert.Equal(t, "\u00e9t\u00e9", preview("\u00e9t\u00e9 long", 3))
	assert.Equal(t, "", preview("abc", 0))
}

func TestAssemble_NonNilLists(t *testing.T) {
	resp := Assemble(types.Dashboard{}, types.StructuredProfile{})
	assert.NotNil(t, resp.Dashboard.Checks)
	assert.NotNil(t, resp.Dashboard.Suggestions)
	assert.NotNil(t, resp.Structured.Skills)
	assert.NotNil(t, resp.Structured.Contacts.GitHub)
	assert.NotNil(t, resp.Structured.Contacts.Portfolio)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func BenchmarkAnalyze(b *testing.B) {
	a := New(Options{})
	doc := document(1, strongResume)
	for b.Loop() {
		if _, err := a.Analyze(doc); err != nil {
			b.Fatal(err)
		}
	}
}
