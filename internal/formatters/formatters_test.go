package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atscheck/internal/types"
)

func sampleResponse() *types.AnalysisResponse {
	name := "Jane Doe"
	experience := "Senior Engineer, Acme"
	return &types.AnalysisResponse{
		Dashboard: types.Dashboard{
			Score:       78,
			Issues:      1,
			Grade:       "C",
			ATSFriendly: false,
			Checks: []types.CheckResult{
				{Label: "Text extractability", Note: "Text extracted cleanly.", Score: 100, Status: types.StatusGood},
				{Label: "Contact info", Note: "Add a phone | email.", Score: 40, Status: types.StatusBad},
			},
			Suggestions: []string{"Add a phone number."},
			Signals: types.ExtractionSignals{
				Pages: 1, WordCount: 320, CharCount: 2100, AvgCharsPerPage: 2100,
				BulletCount: 6, DateMentions: 4, Extractor: "pdf-rows",
			},
		},
		Structured: types.StructuredProfile{
			Name:       &name,
			Contacts:   types.Contacts{Emails: []string{"jane@example.com"}, Phones: []string{}, LinkedIn: []string{}, GitHub: []string{}, Portfolio: []string{}},
			Skills:     []string{"go", "kafka"},
			Experience: &experience,
		},
	}
}

func TestRegistry_SupportedFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "markdown", "text"}, NewFormatterRegistry().GetSupportedFormats())
}

func TestRegistry_JSONKeepsTwoMembers(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleResponse(), "json")
	require.NoError(t, err)

	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &top))
	assert.Len(t, top, 2)
	assert.Contains(t, top, "dashboard")
	assert.Contains(t, top, "structured")
}

func TestRegistry_Text(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleResponse(), "text")
	require.NoError(t, err)

	assert.Contains(t, out, "Score: 78/100 (grade C)")
	assert.Contains(t, out, "ATS friendly: no")
	assert.Contains(t, out, "[bad ] Contact info")
	assert.Contains(t, out, "1. Add a phone number.")
	assert.Contains(t, out, "Name: Jane Doe")
	assert.Contains(t, out, "Skills: go, kafka")
	assert.Contains(t, out, "Sections: experience")
	assert.NotContains(t, out, "Phones:")
}

func TestRegistry_Markdown(t *testing.T) {
	resp := *sampleResponse()
	out, err := GlobalRegistry.Format(resp, "markdown")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# ATS Compatibility Report"))
	assert.Contains(t, out, "| Contact info | bad | 40 | Add a phone \\| email. |")
	assert.Contains(t, out, "- **Name:** Jane Doe")
	assert.Contains(t, out, "- Extractor: `pdf-rows`")
}

func TestRegistry_FileReports(t *testing.T) {
	reports := []types.FileReport{
		{File: "a.pdf", Response: sampleResponse()},
		{File: "b.txt", Error: &types.ErrorInfo{Code: "UNSUPPORTED_FORMAT", Detail: "Upload a PDF or DOCX file."}},
	}

	out, err := GlobalRegistry.Format(reports, "text")
	require.NoError(t, err)
	assert.Contains(t, out, "# a.pdf #")
	assert.Contains(t, out, "Score: 78/100")
	assert.Contains(t, out, "ERROR UNSUPPORTED_FORMAT: Upload a PDF or DOCX file.")

	out, err = GlobalRegistry.Format(reports, "json")
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 2)
	assert.Contains(t, decoded[0], "response")
	assert.NotContains(t, decoded[0], "error")
	assert.Contains(t, decoded[1], "error")
}

func TestRegistry_UnknownFormat(t *testing.T) {
	_, err := GlobalRegistry.Format(sampleResponse(), "xml")
	assert.ErrorContains(t, err, "no formatter found")
}

func TestAnalysisTextFormatter_WrongType(t *testing.T) {
	_, err := (&AnalysisTextFormatter{}).Format("nope")
	assert.Error(t, err)
	_, err = (&AnalysisTextFormatter{}).Format((*types.AnalysisResponse)(nil))
	assert.Error(t, err)
}

func TestFoundSections_None(t *testing.T) {
	assert.Equal(t, []string{"-"}, foundSections(types.StructuredProfile{}))
}
