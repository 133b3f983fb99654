package extractor

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/sony/gobreaker/v2"

	"atscheck/internal/config"
	"atscheck/internal/errors"
	"atscheck/internal/types"
)

// Extractor names reported in the extraction signals.
const (
	ExtractorPDFRows  = "pdf-rows"
	ExtractorPDFPlain = "pdf-plain"
)

const (
	// columnGapPoints is the horizontal gap, in PDF points, that separates
	// two columns rather than two words.
	columnGapPoints = 72.0
	// columnRightRunes is the minimum text after a wide gap for the row to
	// count towards the column hint.
	columnRightRunes = 20
	columnMinRows    = 5
	columnMinRatio   = 0.30
	// wordGapFactor scales the font size into the gap that inserts a space.
	wordGapFactor = 0.15
	// glyphWidthFactor estimates glyph width when the PDF omits it.
	glyphWidthFactor = 0.5
)

var pdfMagic = []byte("%PDF-")

// rowsResult is what the layout-aware path produces.
type rowsResult struct {
	blocks     []types.TextBlock
	columnHint bool
}

func (r rowsResult) chars() int {
	n := 0
	for _, b := range r.blocks {
		n += utf8.RuneCountInString(strings.TrimSpace(b.Text))
	}
	return n
}

// PDFExtractor reads text-based PDFs. The row-ordered path keeps horizontal
// layout and runs behind a circuit breaker; the plain path is the fallback.
type PDFExtractor struct {
	maxPages        int
	minPrimaryChars int
	highFidelity    bool
	breaker         *gobreaker.CircuitBreaker[rowsResult]
	logger          *errors.Logger
}

// NewPDFExtractor creates the PDF format from extractor settings.
func NewPDFExtractor(cfg config.ExtractorConfig, logger *errors.Logger) *PDFExtractor {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	p := &PDFExtractor{
		maxPages:        cfg.MaxPages,
		minPrimaryChars: cfg.MinPrimaryChars,
		highFidelity:    cfg.HighFidelity,
		logger:          logger,
	}
	if p.maxPages <= 0 {
		p.maxPages = config.DefaultMaxPages
	}
	if cfg.HighFidelity && cfg.CircuitBreaker.Enabled {
		p.breaker = newBreaker("pdf-rows", cfg.CircuitBreaker, logger)
	}
	return p
}

func newBreaker(name string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *gobreaker.CircuitBreaker[rowsResult] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Extractor circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())
		},
	}
	return gobreaker.NewCircuitBreaker[rowsResult](settings)
}

func (p *PDFExtractor) Name() string         { return "pdf" }
func (p *PDFExtractor) Extensions() []string { return []string{".pdf"} }
func (p *PDFExtractor) Priority() int        { return 100 }

// Sniff accepts a %PDF- header anywhere in the first kilobyte.
func (p *PDFExtractor) Sniff(data []byte) bool {
	head := data[:min(len(data), 1024)]
	return bytes.Contains(head, pdfMagic)
}

// HighFidelityAvailable reports whether the row-ordered path would be tried.
func (p *PDFExtractor) HighFidelityAvailable() bool {
	if !p.highFidelity {
		return false
	}
	return p.breaker == nil || p.breaker.State() != gobreaker.StateOpen
}

// BreakerStats mirrors the breaker state for the stats endpoint.
func (p *PDFExtractor) BreakerStats() map[string]any {
	if p.breaker == nil {
		return map[string]any{
			"enabled":       false,
			"high_fidelity": p.highFidelity,
		}
	}
	counts := p.breaker.Counts()
	return map[string]any{
		"enabled":       true,
		"high_fidelity": p.highFidelity,
		"name":          p.breaker.Name(),
		"state":         p.breaker.State().String(),
		"requests":      counts.Requests,
		"failures":      counts.TotalFailures,
		"successes":     counts.TotalSuccesses,
	}
}

// IsHealthy reports whether the breaker is closed.
func (p *PDFExtractor) IsHealthy() bool {
	return p.breaker == nil || p.breaker.State() == gobreaker.StateClosed
}

// Extract reads up to maxPages pages. Pages reports the document's full
// page count.
func (p *PDFExtractor) Extract(ctx context.Context, data []byte) (types.RawDocument, error) {
	reader, err := openPDF(data)
	if err != nil {
		if stderrors.Is(err, pdf.ErrInvalidPassword) {
			return types.RawDocument{}, errors.NewExtractionFailure("document is password-protected", err)
		}
		return types.RawDocument{}, errors.NewExtractionFailure("document is corrupt or not a PDF", err)
	}

	total := reader.NumPage()
	if total <= 0 {
		return types.RawDocument{}, errors.NewExtractionFailure("document has no pages", nil)
	}
	limit := min(total, p.maxPages)

	var primary rowsResult
	var primaryErr error
	tried := p.HighFidelityAvailable()
	if tried {
		primary, primaryErr = p.runRows(ctx, reader, limit)
		if primaryErr == nil && primary.chars() >= p.minPrimaryChars {
			return p.document(primary.blocks, total, ExtractorPDFRows, primary.columnHint), nil
		}
		if primaryErr != nil {
			p.logger.Warn("Row-ordered PDF extraction failed, using plain text", "error", primaryErr.Error())
		}
	}
	havePrimary := tried && primaryErr == nil

	plain, plainErr := plainText(ctx, reader, limit)
	if err := ctx.Err(); err != nil {
		return types.RawDocument{}, err
	}
	switch {
	case plainErr != nil && !havePrimary:
		return types.RawDocument{}, errors.NewExtractionFailure("unable to read document text", plainErr)
	case plainErr != nil || (havePrimary && primary.chars() > plain.chars()):
		return p.document(primary.blocks, total, ExtractorPDFRows, primary.columnHint), nil
	default:
		return p.document(plain.blocks, total, ExtractorPDFPlain, havePrimary && primary.columnHint), nil
	}
}

func (p *PDFExtractor) document(blocks []types.TextBlock, pages int, extractor string, columns bool) types.RawDocument {
	return types.RawDocument{
		Blocks:     blocks,
		Pages:      pages,
		Extractor:  extractor,
		ColumnHint: columns,
	}
}

func (p *PDFExtractor) runRows(ctx context.Context, reader *pdf.Reader, limit int) (rowsResult, error) {
	if p.breaker == nil {
		return rowText(ctx, reader, limit)
	}
	return p.breaker.Execute(func() (rowsResult, error) {
		return rowText(ctx, reader, limit)
	})
}

func openPDF(data []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader, err = nil, fmt.Errorf("pdf parser panic: %v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func plainText(ctx context.Context, reader *pdf.Reader, limit int) (res rowsResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf plain text panic: %v", r)
		}
	}()

	var lastErr error
	read := 0
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			lastErr = err
			continue
		}
		read++
		res.blocks = append(res.blocks, types.TextBlock{Page: i, Text: text})
	}
	if read == 0 && lastErr != nil {
		return res, lastErr
	}
	return res, nil
}

func rowText(ctx context.Context, reader *pdf.Reader, limit int) (res rowsResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf row text panic: %v", r)
		}
	}()

	rowsSeen, wideRows := 0, 0
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return res, fmt.Errorf("page %d: %w", i, err)
		}
		sort.SliceStable(rows, func(a, b int) bool {
			return rows[a].Position > rows[b].Position
		})

		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			line, wide := joinRow(row.Content)
			if strings.TrimSpace(line) == "" {
				continue
			}
			rowsSeen++
			if wide {
				wideRows++
			}
			lines = append(lines, line)
		}
		res.blocks = append(res.blocks, types.TextBlock{Page: i, Text: strings.Join(lines, "\n")})
	}

	res.columnHint = wideRows >= columnMinRows &&
		float64(wideRows) >= columnMinRatio*float64(rowsSeen)
	return res, nil
}

// joinRow rebuilds one visual row from positioned text runs. A gap wider
// than columnGapPoints becomes a run of spaces, and the row counts as a
// column row when enough text follows it.
func joinRow(texts pdf.Texts) (string, bool) {
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].X < sorted[b].X })

	var sb strings.Builder
	wideAt := -1
	prevEnd := 0.0
	endsInSpace := true
	for _, t := range sorted {
		if t.S == "" {
			continue
		}
		if sb.Len() > 0 {
			gap := t.X - prevEnd
			switch {
			case gap >= columnGapPoints:
				sb.WriteString("    ")
				if wideAt < 0 {
					wideAt = sb.Len()
				}
			case gap > t.FontSize*wordGapFactor && !endsInSpace && !strings.HasPrefix(t.S, " "):
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(t.S)
		endsInSpace = strings.HasSuffix(t.S, " ")

		width := t.W
		if width <= 0 {
			width = float64(utf8.RuneCountInString(t.S)) * t.FontSize * glyphWidthFactor
		}
		prevEnd = t.X + width
	}

	line := sb.String()
	if wideAt < 0 {
		return line, false
	}
	right := strings.TrimSpace(line[wideAt:])
	return line, utf8.RuneCountInString(right) >= columnRightRunes
}
