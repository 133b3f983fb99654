package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"atscheck/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "AnalysisResponse", &AnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", "AnalysisResponse", &AnalysisMarkdownFormatter{})
	registry.RegisterFormatter("text", "FileReports", &ReportsFormatter{single: &AnalysisTextFormatter{}, heading: textHeading})
	registry.RegisterFormatter("markdown", "FileReports", &ReportsFormatter{single: &AnalysisMarkdownFormatter{}, heading: markdownHeading})

	return registry
}

// GlobalRegistry is the registry used by the CLI.
var GlobalRegistry = NewFormatterRegistry()

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisResponse, *types.AnalysisResponse:
		return "AnalysisResponse"
	case []types.FileReport:
		return "FileReports"
	default:
		return "any"
	}
}

func asResponse(data any) (*types.AnalysisResponse, error) {
	switch v := data.(type) {
	case types.AnalysisResponse:
		return &v, nil
	case *types.AnalysisResponse:
		if v == nil {
			return nil, fmt.Errorf("nil AnalysisResponse")
		}
		return v, nil
	}
	return nil, fmt.Errorf("expected AnalysisResponse, got %T", data)
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// AnalysisTextFormatter renders one analysis as plain text
type AnalysisTextFormatter struct{}

func (f *AnalysisTextFormatter) Format(data any) (string, error) {
	resp, err := asResponse(data)
	if err != nil {
		return "", err
	}
	d, p := resp.Dashboard, resp.Structured

	var out strings.Builder

	out.WriteString("=== ATS COMPATIBILITY ===\n")
	fmt.Fprintf(&out, "Score: %d/100 (grade %s)\n", d.Score, d.Grade)
	fmt.Fprintf(&out, "ATS friendly: %s\n", yesNo(d.ATSFriendly))
	fmt.Fprintf(&out, "Issues: %d\n\n", d.Issues)

	out.WriteString("=== CHECKS ===\n")
	for _, c := range d.Checks {
		fmt.Fprintf(&out, "[%-4s] %-24s %3d  %s\n", c.Status, c.Label, c.Score, c.Note)
	}
	out.WriteString("\n")

	if len(d.Suggestions) > 0 {
		out.WriteString("=== SUGGESTIONS ===\n")
		for i, s := range d.Suggestions {
			fmt.Fprintf(&out, "%d. %s\n", i+1, s)
		}
		out.WriteString("\n")
	}

	s := d.Signals
	out.WriteString("=== EXTRACTION ===\n")
	fmt.Fprintf(&out, "Pages: %d  Words: %d  Characters: %d  Avg chars/page: %.0f\n",
		s.Pages, s.WordCount, s.CharCount, s.AvgCharsPerPage)
	fmt.Fprintf(&out, "Bullets: %d  Dates: %d\n", s.BulletCount, s.DateMentions)
	fmt.Fprintf(&out, "Extractor: %s  Likely scanned: %s  Possible columns: %s\n\n",
		s.Extractor, yesNo(s.LikelyScannedPDF), yesNo(s.PossibleColumns))

	out.WriteString("=== PROFILE ===\n")
	fmt.Fprintf(&out, "Name: %s\n", orDash(p.Name))
	writeTextList(&out, "Emails", p.Contacts.Emails)
	writeTextList(&out, "Phones", p.Contacts.Phones)
	writeTextList(&out, "LinkedIn", p.Contacts.LinkedIn)
	writeTextList(&out, "GitHub", p.Contacts.GitHub)
	writeTextList(&out, "Portfolio", p.Contacts.Portfolio)
	writeTextList(&out, "Skills", p.Skills)
	fmt.Fprintf(&out, "Sections: %s", strings.Join(foundSections(p), ", "))

	return out.String(), nil
}

func (f *AnalysisTextFormatter) SupportedType() string {
	return "AnalysisResponse"
}

// AnalysisMarkdownFormatter renders one analysis as markdown
type AnalysisMarkdownFormatter struct{}

func (f *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	resp, err := asResponse(data)
	if err != nil {
		return "", err
	}
	d, p := resp.Dashboard, resp.Structured

	var out strings.Builder

	out.WriteString("# ATS Compatibility Report\n\n")
	fmt.Fprintf(&out, "**Score:** %d/100 (grade %s)  \n", d.Score, d.Grade)
	fmt.Fprintf(&out, "**ATS friendly:** %s  \n", yesNo(d.ATSFriendly))
	fmt.Fprintf(&out, "**Issues:** %d\n\n", d.Issues)

	out.WriteString("## Checks\n\n")
	out.WriteString("| Check | Status | Score | Note |\n")
	out.WriteString("|---|---|---|---|\n")
	for _, c := range d.Checks {
		fmt.Fprintf(&out, "| %s | %s | %d | %s |\n", c.Label, c.Status, c.Score, escapeCell(c.Note))
	}
	out.WriteString("\n")

	if len(d.Suggestions) > 0 {
		out.WriteString("## Suggestions\n\n")
		for _, s := range d.Suggestions {
			fmt.Fprintf(&out, "- %s\n", s)
		}
		out.WriteString("\n")
	}

	s := d.Signals
	out.WriteString("## Extraction\n\n")
	fmt.Fprintf(&out, "- Pages: %d\n- Words: %d\n- Characters: %d\n- Bullets: %d\n- Date mentions: %d\n",
		s.Pages, s.WordCount, s.CharCount, s.BulletCount, s.DateMentions)
	fmt.Fprintf(&out, "- Extractor: `%s`\n- Likely scanned: %s\n- Possible columns: %s\n\n",
		s.Extractor, yesNo(s.LikelyScannedPDF), yesNo(s.PossibleColumns))

	out.WriteString("## Profile\n\n")
	fmt.Fprintf(&out, "- **Name:** %s\n", orDash(p.Name))
	writeMarkdownList(&out, "Emails", p.Contacts.Emails)
	writeMarkdownList(&out, "Phones", p.Contacts.Phones)
	writeMarkdownList(&out, "LinkedIn", p.Contacts.LinkedIn)
	writeMarkdownList(&out, "GitHub", p.Contacts.GitHub)
	writeMarkdownList(&out, "Portfolio", p.Contacts.Portfolio)
	writeMarkdownList(&out, "Skills", p.Skills)
	fmt.Fprintf(&out, "- **Sections:** %s", strings.Join(foundSections(p), ", "))

	return out.String(), nil
}

func (f *AnalysisMarkdownFormatter) SupportedType() string {
	return "AnalysisResponse"
}

// ReportsFormatter renders a multi-file run by delegating each success to
// the single-analysis formatter.
type ReportsFormatter struct {
	single  Formatter
	heading func(string) string
}

func (f *ReportsFormatter) Format(data any) (string, error) {
	reports, ok := data.([]types.FileReport)
	if !ok {
		return "", fmt.Errorf("expected []FileReport, got %T", data)
	}

	parts := make([]string, 0, len(reports))
	for _, r := range reports {
		var body string
		switch {
		case r.Error != nil:
			body = fmt.Sprintf("ERROR %s: %s", r.Error.Code, r.Error.Detail)
		case r.Response != nil:
			var err error
			if body, err = f.single.Format(r.Response); err != nil {
				return "", err
			}
		}
		parts = append(parts, f.heading(r.File)+body)
	}
	return strings.Join(parts, "\n\n"), nil
}

func (f *ReportsFormatter) SupportedType() string {
	return "FileReports"
}

func textHeading(file string) string {
	line := strings.Repeat("#", len(file)+4)
	return line + "\n# " + file + " #\n" + line + "\n\n"
}

func markdownHeading(file string) string {
	return "<!-- " + file + " -->\n\n"
}

func foundSections(p types.StructuredProfile) []string {
	found := []string{}
	for _, s := range []struct {
		name string
		body *string
	}{
		{"about", p.About},
		{"experience", p.Experience},
		{"projects", p.Projects},
		{"education", p.Education},
		{"certifications", p.Certifications},
		{"languages", p.Languages},
	} {
		if s.body != nil {
			found = append(found, s.name)
		}
	}
	if len(found) == 0 {
		return []string{"-"}
	}
	return found
}

func writeTextList(out *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "%s: %s\n", label, strings.Join(items, ", "))
}

func writeMarkdownList(out *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "- **%s:** %s\n", label, strings.Join(items, ", "))
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
