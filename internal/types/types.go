package types

// TextBlock is one page (PDF) or the whole body (DOCX) of extracted text.
type TextBlock struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// RawDocument is what the document extractor hands to the analysis engine.
// The engine treats it as read-only.
type RawDocument struct {
	Filename              string      `json:"filename,omitempty"`
	Blocks                []TextBlock `json:"blocks"`
	Pages                 int         `json:"pages"`
	Extractor             string      `json:"extractor"`
	HighFidelityAvailable bool        `json:"highFidelityAvailable"`
	// ColumnHint is set when the extractor saw side-by-side text runs.
	ColumnHint bool `json:"columnHint"`
}

// Text joins all blocks in order, one newline between blocks.
func (d RawDocument) Text() string {
	switch len(d.Blocks) {
	case 0:
		return ""
	case 1:
		return d.Blocks[0].Text
	}
	n := len(d.Blocks) - 1
	for _, b := range d.Blocks {
		n += len(b.Text)
	}
	buf := make([]byte, 0, n)
	for i, b := range d.Blocks {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, b.Text...)
	}
	return string(buf)
}

// ExtractionSignals are document-level structural metrics.
type ExtractionSignals struct {
	Pages                 int     `json:"pages"`
	WordCount             int     `json:"word_count"`
	CharCount             int     `json:"char_count"`
	AvgCharsPerPage       float64 `json:"avg_chars_per_page"`
	LikelyScannedPDF      bool    `json:"likely_scanned_pdf"`
	PossibleColumns       bool    `json:"possible_columns"`
	BulletCount           int     `json:"bullet_count"`
	DateMentions          int     `json:"date_mentions"`
	Extractor             string  `json:"extractor"`
	HighFidelityAvailable bool    `json:"high_fidelity_extractor_available"`
}

// Contacts holds contact channels in first-seen order, without duplicates.
type Contacts struct {
	Emails    []string `json:"emails"`
	Phones    []string `json:"phones"`
	LinkedIn  []string `json:"linkedin"`
	GitHub    []string `json:"github"`
	Portfolio []string `json:"portfolio"`
}

// HasLink reports whether a LinkedIn or GitHub profile was found.
func (c Contacts) HasLink() bool {
	return len(c.LinkedIn) > 0 || len(c.GitHub) > 0
}

// Sections holds the located section bodies. A nil pointer means the header
// never appeared; a pointer to "" means the header appeared with no content.
type Sections struct {
	About          *string
	Experience     *string
	Projects       *string
	Education      *string
	Skills         *string
	Certifications *string
	Languages      *string
}

// StructuredProfile is the candidate information recognised in the text.
type StructuredProfile struct {
	Name           *string  `json:"name"`
	Contacts       Contacts `json:"contacts"`
	About          *string  `json:"about"`
	Skills         []string `json:"skills"`
	Experience     *string  `json:"experience"`
	Projects       *string  `json:"projects"`
	Education      *string  `json:"education"`
	Certifications *string  `json:"certifications"`
	Languages      *string  `json:"languages"`
	RawPreview     string   `json:"raw_preview"`
}

// CheckStatus is the tier of a check result.
type CheckStatus string

const (
	StatusGood CheckStatus = "good"
	StatusWarn CheckStatus = "warn"
	StatusBad  CheckStatus = "bad"
)

// CheckResult is the outcome of one scoring rule.
type CheckResult struct {
	Key    string      `json:"-"`
	Label  string      `json:"label"`
	Note   string      `json:"note"`
	Score  int         `json:"score"`
	Status CheckStatus `json:"status"`
	// Failure names the failure mode the suggestion generator turns into
	// advice. Empty when the check passed.
	Failure     string   `json:"-"`
	FailureArgs []string `json:"-"`
}

// Dashboard is the scored summary of one analysis.
type Dashboard struct {
	Score       int               `json:"score"`
	Issues      int               `json:"issues"`
	Grade       string            `json:"grade"`
	ATSFriendly bool              `json:"ats_friendly"`
	Checks      []CheckResult     `json:"checks"`
	Suggestions []string          `json:"suggestions"`
	Signals     ExtractionSignals `json:"signals"`
}

// AnalysisResponse is the complete result returned to callers.
type AnalysisResponse struct {
	Dashboard  Dashboard         `json:"dashboard"`
	Structured StructuredProfile `json:"structured"`
}
