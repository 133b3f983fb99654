// Package analyzer runs the resume analysis pipeline over an extracted
// document and assembles the response payload.
package analyzer

import (
	"unicode/utf8"

	"atscheck/internal/config"
	"atscheck/internal/entities"
	"atscheck/internal/errors"
	"atscheck/internal/scoring"
	"atscheck/internal/sections"
	"atscheck/internal/signals"
	"atscheck/internal/suggestions"
	"atscheck/internal/textnorm"
	"atscheck/internal/types"
)

// Options tunes the analyzer.
type Options struct {
	// PreviewChars bounds raw_preview, in characters. Zero uses the default.
	PreviewChars int
}

// Analyzer is stateless apart from its options and safe for concurrent use.
type Analyzer struct {
	previewChars int
}

// New creates an analyzer.
func New(opts Options) *Analyzer {
	if opts.PreviewChars <= 0 {
		opts.PreviewChars = config.DefaultPreviewChars
	}
	return &Analyzer{previewChars: opts.PreviewChars}
}

// Analyze turns a raw document into a scored dashboard and a structured
// profile. A document with no pages, or whose text normalizes to nothing,
// fails with EMPTY_DOCUMENT; nothing else in the pipeline fails.
func (a *Analyzer) Analyze(raw types.RawDocument) (*types.AnalysisResponse, error) {
	if raw.Pages <= 0 {
		return nil, errors.NewEmptyDocumentError(raw.Pages)
	}
	text := textnorm.Normalize(raw)
	if text == "" {
		return nil, errors.NewEmptyDocumentError(raw.Pages).
			WithContext("extractor", raw.Extractor)
	}

	sig := signals.Collect(raw, text)
	secs := sections.Locate(text)
	contacts := entities.ExtractContacts(text)

	profile := types.StructuredProfile{
		Name:           entities.ExtractName(text, contacts),
		Contacts:       contacts,
		About:          secs.About,
		Skills:         entities.ExtractSkills(text, secs.Skills),
		Experience:     secs.Experience,
		Projects:       secs.Projects,
		Education:      secs.Education,
		Certifications: secs.Certifications,
		Languages:      secs.Languages,
		RawPreview:     preview(text, a.previewChars),
	}

	dashboard := scoring.Score(scoring.Input{
		Text:     text,
		Signals:  sig,
		Profile:  profile,
		Sections: secs,
	})
	dashboard.Suggestions = suggestions.Suggest(dashboard.Checks)
	dashboard.Signals = sig

	return Assemble(dashboard, profile), nil
}

// Assemble builds the two-member response. List fields are never nil so
// they serialize as [] rather than null.
func Assemble(dashboard types.Dashboard, profile types.StructuredProfile) *types.AnalysisResponse {
	if dashboard.Checks == nil {
		dashboard.Checks = []types.CheckResult{}
	}
	if dashboard.Suggestions == nil {
		dashboard.Suggestions = []string{}
	}
	profile.Skills = nonNil(profile.Skills)
	profile.Contacts.Emails = nonNil(profile.Contacts.Emails)
	profile.Contacts.Phones = nonNil(profile.Contacts.Phones)
	profile.Contacts.LinkedIn = nonNil(profile.Contacts.LinkedIn)
	profile.Contacts.GitHub = nonNil(profile.Contacts.GitHub)
	profile.Contacts.Portfolio = nonNil(profile.Contacts.Portfolio)

	return &types.AnalysisResponse{
		Dashboard:  dashboard,
		Structured: profile,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// preview returns the first n runes of text.
func preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}
