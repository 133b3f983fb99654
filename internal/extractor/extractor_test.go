package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atscheck/internal/config"
	"atscheck/internal/errors"
)

// pdfLine is one line of text placed at an absolute position.
type pdfLine struct {
	x, y float64
	text string
}

// buildPDF writes a minimal text PDF with one Helvetica font and one content
// stream per page. Offsets in the xref table are computed as objects are
// written.
func buildPDF(t *testing.T, pages ...[]pdfLine) []byte {
	t.Helper()

	widths := strings.TrimSpace(strings.Repeat("500 ", 95))
	var objects []string
	add := func(body string) int {
		objects = append(objects, body)
		return len(objects)
	}

	add("") // catalog, filled below
	add("") // page tree, filled below
	font := add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding " +
		"/FirstChar 32 /LastChar 126 /Widths [" + widths + "] >>")

	var kids []string
	for _, lines := range pages {
		var content strings.Builder
		for _, l := range lines {
			fmt.Fprintf(&content, "BT /F1 12 Tf %.0f %.0f Td (%s) Tj ET\n", l.x, l.y, l.text)
		}
		stream := content.String()
		c := add(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream))
		p := add(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", font, c))
		kids = append(kids, fmt.Sprintf("%d 0 R", p))
	}
	objects[0] = "<< /Type /Catalog /Pages 2 0 R >>"
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

type docxPart struct {
	name, body string
}

func buildDOCX(t *testing.T, parts ...docxPart) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: zip.Store})
		require.NoError(t, err)
		_, err = w.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func documentXML(body string) docxPart {
	return docxPart{
		name: docxBodyPart,
		body: `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`,
	}
}

func appXML(pages int) docxPart {
	return docxPart{
		name: docxAppPart,
		body: fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>`+
			`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">`+
			`<Pages>%d</Pages><Words>120</Words></Properties>`, pages),
	}
}

func testConfig() config.ExtractorConfig {
	cfg := config.DefaultExtractorConfig()
	cfg.CircuitBreaker = config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      3,
		FailureThreshold: 0.6,
	}
	return cfg
}

func resumeLines() []pdfLine {
	return []pdfLine{
		{72, 740, "Jane Doe"},
		{72, 724, "jane.doe@example.com  +1 555 010 7788"},
		{72, 700, "Experience"},
		{72, 684, "Senior Backend Engineer at Acme Corp, 2019 - Present"},
		{72, 668, "Built payment services in Go and PostgreSQL for 2 million users"},
		{72, 652, "Reduced infrastructure costs by 30 percent with Kubernetes autoscaling"},
		{72, 628, "Education"},
		{72, 612, "BSc Computer Science, State University, 2015 - 2019"},
	}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	ex := New(testConfig(), nil)
	for _, name := range []string{"resume.txt", "resume.doc", "photo.png", "resume"} {
		_, err := ex.Extract(context.Background(), name, bytes.Repeat([]byte("x"), 400))
		assert.True(t, errors.IsUnsupportedFormat(err), name)
	}
}

func TestExtract_TooSmall(t *testing.T) {
	ex := New(testConfig(), nil)
	_, err := ex.Extract(context.Background(), "resume.pdf", []byte("%PDF-1.4"))
	require.Error(t, err)
	assert.True(t, errors.IsExtractionFailure(err))
}

func TestExtract_ContentMismatch(t *testing.T) {
	ex := New(testConfig(), nil)
	data := buildDOCX(t, documentXML(`<w:p><w:r><w:t>Hello</w:t></w:r></w:p>`))
	data = append(data, bytes.Repeat([]byte{0}, MinDocumentBytes)...)

	_, err := ex.Extract(context.Background(), "resume.pdf", data)
	require.Error(t, err)
	assert.True(t, errors.IsExtractionFailure(err))
}

func TestExtract_CorruptPDF(t *testing.T) {
	ex := New(testConfig(), nil)
	data := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("garbage "), 80)...)

	_, err := ex.Extract(context.Background(), "resume.pdf", data)
	require.Error(t, err)
	assert.True(t, errors.IsExtractionFailure(err))
}

func TestExtract_TextPDF(t *testing.T) {
	ex := New(testConfig(), nil)
	doc, err := ex.Extract(context.Background(), "Resume.PDF", buildPDF(t, resumeLines()))
	require.NoError(t, err)

	assert.Equal(t, "Resume.PDF", doc.Filename)
	assert.Equal(t, 1, doc.Pages)
	assert.Contains(t, []string{ExtractorPDFRows, ExtractorPDFPlain}, doc.Extractor)
	assert.True(t, doc.HighFidelityAvailable)
	text := doc.Text()
	assert.Contains(t, text, "Jane Doe")
	assert.Contains(t, text, "Experience")
}

func TestExtract_PlainWhenHighFidelityDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.HighFidelity = false
	ex := New(cfg, nil)

	doc, err := ex.Extract(context.Background(), "resume.pdf", buildPDF(t, resumeLines()))
	require.NoError(t, err)
	assert.Equal(t, ExtractorPDFPlain, doc.Extractor)
	assert.False(t, doc.HighFidelityAvailable)
	assert.Contains(t, doc.Text(), "Education")
}

func TestExtract_PDFWithoutText(t *testing.T) {
	ex := New(testConfig(), nil)
	doc, err := ex.Extract(context.Background(), "scan.pdf", buildPDF(t, nil, nil))
	require.NoError(t, err)

	assert.Equal(t, 2, doc.Pages)
	assert.Empty(t, strings.TrimSpace(doc.Text()))
}

func TestExtract_PageLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPages = 1
	ex := New(cfg, nil)

	doc, err := ex.Extract(context.Background(), "resume.pdf", buildPDF(t,
		[]pdfLine{{72, 700, "First page text"}},
		[]pdfLine{{72, 700, "Second page text"}},
	))
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Pages, "page count covers the whole document")
	assert.NotContains(t, doc.Text(), "Second page")
}

func TestExtract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := New(testConfig(), nil)
	_, err := ex.Extract(ctx, "resume.pdf", buildPDF(t, resumeLines()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract_DOCX(t *testing.T) {
	body := `<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Skills</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Go</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve">Docker </w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Line one</w:t><w:br/><w:t>Line two</w:t></w:r></w:p>` +
		`<w:tbl><w:tr>` +
		`<w:tc><w:p><w:r><w:t>Acme Corp</w:t></w:r></w:p></w:tc>` +
		`<w:tc><w:p><w:r><w:t>2019 - 2023</w:t></w:r></w:p></w:tc>` +
		`</w:tr></w:tbl>` +
		`<w:p><w:r><w:delText>deleted</w:delText></w:r></w:p>`

	ex := New(testConfig(), nil)
	doc, err := ex.Extract(context.Background(), "cv.docx", buildDOCX(t, documentXML(body), appXML(2)))
	require.NoError(t, err)

	assert.Equal(t, ExtractorDOCX, doc.Extractor)
	assert.Equal(t, 2, doc.Pages)
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t,
		"Jane Doe\nSkills\nGo\tDocker \nLine one\nLine two\nAcme Corp | 2019 - 2023\n",
		doc.Blocks[0].Text)
}

func TestExtract_DOCXTextBoxKeepsAnchorParagraph(t *testing.T) {
	body := `<w:p>` +
		`<w:r><w:t xml:space="preserve">Jane Doe </w:t></w:r>` +
		`<w:r><w:pict><v:shape xmlns:v="urn:schemas-microsoft-com:vml"><v:textbox><w:txbxContent>` +
		`<w:p><w:r><w:t>jane@example.com</w:t></w:r></w:p>` +
		`</w:txbxContent></v:textbox></v:shape></w:pict></w:r>` +
		`<w:r><w:t>Backend Engineer</w:t></w:r>` +
		`</w:p>` +
		`<w:p><w:r><w:t>` + strings.Repeat("word ", 20) + `</w:t></w:r></w:p>`

	ex := New(testConfig(), nil)
	doc, err := ex.Extract(context.Background(), "cv.docx", buildDOCX(t, documentXML(body)))
	require.NoError(t, err)

	lines := strings.Split(doc.Blocks[0].Text, "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, "jane@example.com", lines[0])
	assert.Equal(t, "Jane Doe Backend Engineer", lines[1])
}

func TestExtract_DOCXDefaultsToOnePage(t *testing.T) {
	ex := New(testConfig(), nil)
	body := `<w:p><w:r><w:t>` + strings.Repeat("word ", 60) + `</w:t></w:r></w:p>`

	doc, err := ex.Extract(context.Background(), "cv.docx", buildDOCX(t, documentXML(body)))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Pages)
}

func TestExtract_DOCXSniffedWithoutExtension(t *testing.T) {
	ex := New(testConfig(), nil)
	body := `<w:p><w:r><w:t>` + strings.Repeat("word ", 60) + `</w:t></w:r></w:p>`

	doc, err := ex.Extract(context.Background(), "upload", buildDOCX(t, documentXML(body)))
	require.NoError(t, err)
	assert.Equal(t, ExtractorDOCX, doc.Extractor)
}

func TestExtract_DOCXMissingBody(t *testing.T) {
	ex := New(testConfig(), nil)
	data := buildDOCX(t, docxPart{name: "word/styles.xml", body: strings.Repeat("<a/>", 80)})

	_, err := ex.Extract(context.Background(), "cv.docx", data)
	require.Error(t, err)
	assert.True(t, errors.IsExtractionFailure(err))
}

func TestExtract_DOCXMalformedXML(t *testing.T) {
	ex := New(testConfig(), nil)
	data := buildDOCX(t, docxPart{name: docxBodyPart, body: "<w:document><w:body>" + strings.Repeat("<w:p>", 60)})

	_, err := ex.Extract(context.Background(), "cv.docx", data)
	require.Error(t, err)
	assert.True(t, errors.IsExtractionFailure(err))
}

func TestJoinRow(t *testing.T) {
	t.Run("word gaps become spaces", func(t *testing.T) {
		line, wide := joinRow(pdf.Texts{
			{FontSize: 12, X: 72, W: 30, S: "Jane"},
			{FontSize: 12, X: 106, W: 24, S: "Doe"},
		})
		assert.Equal(t, "Jane Doe", line)
		assert.False(t, wide)
	})

	t.Run("adjacent glyphs stay joined", func(t *testing.T) {
		line, _ := joinRow(pdf.Texts{
			{FontSize: 12, X: 72, W: 6, S: "G"},
			{FontSize: 12, X: 78, W: 6, S: "o"},
		})
		assert.Equal(t, "Go", line)
	})

	t.Run("out of order runs are sorted by x", func(t *testing.T) {
		line, _ := joinRow(pdf.Texts{
			{FontSize: 12, X: 106, W: 24, S: "Doe"},
			{FontSize: 12, X: 72, W: 30, S: "Jane"},
		})
		assert.Equal(t, "Jane Doe", line)
	})

	t.Run("wide gap with long right side is a column row", func(t *testing.T) {
		line, wide := joinRow(pdf.Texts{
			{FontSize: 12, X: 72, W: 40, S: "Skills"},
			{FontSize: 12, X: 320, W: 200, S: "Senior engineer at Acme Corp"},
		})
		assert.Equal(t, "Skills    Senior engineer at Acme Corp", line)
		assert.True(t, wide)
	})

	t.Run("wide gap with short right side is not", func(t *testing.T) {
		_, wide := joinRow(pdf.Texts{
			{FontSize: 12, X: 72, W: 80, S: "Acme Corp"},
			{FontSize: 12, X: 480, W: 40, S: "2021"},
		})
		assert.False(t, wide)
	})

	t.Run("missing widths are estimated", func(t *testing.T) {
		line, _ := joinRow(pdf.Texts{
			{FontSize: 10, X: 72, S: "abc"},
			{FontSize: 10, X: 87, S: "def"},
		})
		assert.Equal(t, "abcdef", line)
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	low := NewDOCXExtractor(config.DefaultExtractorConfig())
	high := NewPDFExtractor(config.DefaultExtractorConfig(), nil)
	r.Register(low)
	r.Register(high)

	assert.Equal(t, []string{".docx", ".pdf"}, r.Extensions())
	assert.Same(t, high, r.ForExtension(".PDF"))
	assert.Same(t, low, r.ForExtension(".docx"))
	assert.Nil(t, r.ForExtension(".txt"))
	assert.Same(t, high, r.ForContent([]byte("%PDF-1.5 ...")))
	assert.Nil(t, r.ForContent([]byte("plain text")))
}

func TestPDFExtractor_BreakerStats(t *testing.T) {
	p := NewPDFExtractor(testConfig(), nil)
	stats := p.BreakerStats()
	assert.Equal(t, true, stats["enabled"])
	assert.Equal(t, "closed", stats["state"])
	assert.True(t, p.IsHealthy())
	assert.True(t, p.HighFidelityAvailable())

	cfg := testConfig()
	cfg.CircuitBreaker.Enabled = false
	p = NewPDFExtractor(cfg, nil)
	assert.Equal(t, false, p.BreakerStats()["enabled"])
	assert.True(t, p.HighFidelityAvailable())

	cfg.HighFidelity = false
	assert.False(t, NewPDFExtractor(cfg, nil).HighFidelityAvailable())
}
