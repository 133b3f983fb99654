// Package signals derives document-level structural metrics from a raw
// extraction and its normalized text.
package signals

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"atscheck/internal/textnorm"
	"atscheck/internal/types"
)

const (
	// ScannedDensityThreshold is the average number of characters per page
	// below which a document is assumed to be an image-only scan.
	ScannedDensityThreshold = 250.0

	// Column detection on raw lines: share of lines with a wide internal gap.
	minGapLines      = 8
	gapLineRatio     = 0.25
	wideGap          = "    "
	minShortLines    = 30
	shortLineRunes   = 30
	shortLineRatio   = 0.6
	fractionDecimals = 1
)

var (
	bulletLine = regexp.MustCompile(`^(?:[\x{2022}\x{25CF}\x{25AA}\x{25E6}\x{2023}\x{25A0}\x{25C6}\x{27A2}\x{25BA}\x{00B7}\x{2013}\x{2014}\x{2043}\x{2219}]\s*|[-*+]\s+|\(?\d{1,2}[.)]\s+)`)

	datePattern = regexp.MustCompile(
		`(?i:\b(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?,?\s*(?:(?:19|20)\d{2}|'\d{2})\b)` +
			`|\b(?:0?[1-9]|1[0-2])[/.-](?:19|20)\d{2}\b` +
			`|\b(?:19|20)\d{2}\b` +
			`|(?i:\bpresent\b)`)

	gapBetweenText = regexp.MustCompile(`\S` + wideGap + `+\S`)
)

// Collect computes the extraction signals. pages == 0 never divides by zero:
// ratios are 0 and the document is treated as scanned.
func Collect(raw types.RawDocument, normalized string) types.ExtractionSignals {
	s := types.ExtractionSignals{
		Pages:                 raw.Pages,
		WordCount:             len(strings.Fields(normalized)),
		CharCount:             utf8.RuneCountInString(normalized),
		Extractor:             raw.Extractor,
		HighFidelityAvailable: raw.HighFidelityAvailable,
	}

	lines := textnorm.Lines(normalized)
	s.BulletCount = CountBullets(lines)
	s.DateMentions = CountDates(normalized)

	if raw.Pages <= 0 {
		s.LikelyScannedPDF = true
		return s
	}

	s.AvgCharsPerPage = round(float64(s.CharCount) / float64(raw.Pages))
	s.LikelyScannedPDF = s.AvgCharsPerPage < ScannedDensityThreshold
	s.PossibleColumns = raw.ColumnHint || hasColumnGaps(raw.Text()) || mostlyShortLines(lines)
	return s
}

// CountBullets counts lines that open with a bullet glyph or list marker.
func CountBullets(lines []string) int {
	n := 0
	for _, l := range lines {
		if bulletLine.MatchString(l) {
			n++
		}
	}
	return n
}

// CountDates counts month-year pairs, numeric month/year, bare years and "Present".
// A month followed by a year counts once.
func CountDates(text string) int {
	return len(datePattern.FindAllStringIndex(text, -1))
}

// hasColumnGaps looks at the raw, un-normalized text, where side-by-side
// columns show up as wide runs of spaces inside a line.
func hasColumnGaps(raw string) bool {
	total, gapped := 0, 0
	for line := range strings.SplitSeq(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		total++
		if gapBetweenText.MatchString(line) {
			gapped++
		}
	}
	return gapped >= minGapLines && float64(gapped)/float64(total) >= gapLineRatio
}

// mostlyShortLines flags long documents made almost entirely of fragments,
// the usual shape of a sidebar read column by column.
func mostlyShortLines(lines []string) bool {
	if len(lines) < minShortLines {
		return false
	}
	short := 0
	for _, l := range lines {
		if utf8.RuneCountInString(l) <= shortLineRunes {
			short++
		}
	}
	return float64(short)/float64(len(lines)) >= shortLineRatio
}

func round(v float64) float64 {
	p := math.Pow10(fractionDecimals)
	return math.Round(v*p) / p
}
