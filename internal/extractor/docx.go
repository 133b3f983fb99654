package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"atscheck/internal/config"
	"atscheck/internal/errors"
	"atscheck/internal/types"
)

// ExtractorDOCX is the extractor name reported for Word documents.
const ExtractorDOCX = "docx-xml"

const (
	docxBodyPart  = "word/document.xml"
	docxAppPart   = "docProps/app.xml"
	cellSeparator = " | "
)

var zipMagic = []byte("PK\x03\x04")

// DOCXExtractor reads the main document part of an Office Open XML file.
type DOCXExtractor struct {
	maxXMLBytes int64
}

// NewDOCXExtractor creates the DOCX format.
func NewDOCXExtractor(cfg config.ExtractorConfig) *DOCXExtractor {
	limit := cfg.MaxXMLBytes
	if limit <= 0 {
		limit = config.DefaultMaxXMLBytes
	}
	return &DOCXExtractor{maxXMLBytes: limit}
}

func (d *DOCXExtractor) Name() string         { return "docx" }
func (d *DOCXExtractor) Extensions() []string { return []string{".docx"} }
func (d *DOCXExtractor) Priority() int        { return 90 }

func (d *DOCXExtractor) Sniff(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// Extract returns the body text as a single block. Pages come from the
// document properties when Word recorded them.
func (d *DOCXExtractor) Extract(ctx context.Context, data []byte) (types.RawDocument, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return types.RawDocument{}, errors.NewExtractionFailure("document is corrupt or not a DOCX archive", err)
	}

	var body, app *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case docxBodyPart:
			body = f
		case docxAppPart:
			app = f
		}
	}
	if body == nil {
		return types.RawDocument{}, errors.NewExtractionFailure("archive has no "+docxBodyPart, nil)
	}
	if err := ctx.Err(); err != nil {
		return types.RawDocument{}, err
	}

	text, err := d.readBody(body)
	if err != nil {
		return types.RawDocument{}, errors.NewExtractionFailure("unable to read document body", err)
	}

	return types.RawDocument{
		Blocks:    []types.TextBlock{{Page: 1, Text: text}},
		Pages:     d.readPages(app),
		Extractor: ExtractorDOCX,
	}, nil
}

func (d *DOCXExtractor) open(f *zip.File) (io.ReadCloser, io.Reader, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, nil, err
	}
	return rc, io.LimitReader(rc, d.maxXMLBytes), nil
}

// readBody walks the WordprocessingML tokens. Paragraphs become lines, tabs
// and breaks keep their whitespace, and table rows are joined cell by cell.
// A paragraph nested in a text box becomes its own line ahead of the
// paragraph that anchors it.
func (d *DOCXExtractor) readBody(f *zip.File) (string, error) {
	rc, r, err := d.open(f)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var (
		lines     []string
		para      strings.Builder
		outer     []string // text of enclosing paragraphs, innermost last
		paraDepth int
		cellParas []string
		cells     []string
		inText    bool
		cellDepth int
	)

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", f.Name, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if paraDepth > 0 {
					outer = append(outer, para.String())
				}
				paraDepth++
				para.Reset()
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			case "tr":
				if cellDepth == 0 {
					cells = cells[:0]
				}
			case "tc":
				cellDepth++
				if cellDepth == 1 {
					cellParas = cellParas[:0]
				}
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := para.String()
				para.Reset()
				paraDepth = max(paraDepth-1, 0)
				if paraDepth > 0 && len(outer) > 0 {
					para.WriteString(outer[len(outer)-1])
					outer = outer[:len(outer)-1]
				}
				if cellDepth > 0 {
					if s := strings.TrimSpace(text); s != "" {
						cellParas = append(cellParas, s)
					}
					continue
				}
				lines = append(lines, text)
			case "tc":
				if cellDepth == 1 {
					if cell := strings.Join(cellParas, " "); cell != "" {
						cells = append(cells, cell)
					}
				}
				cellDepth = max(cellDepth-1, 0)
			case "tr":
				if cellDepth == 0 && len(cells) > 0 {
					lines = append(lines, strings.Join(cells, cellSeparator))
				}
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

type appProperties struct {
	Pages int `xml:"Pages"`
}

// readPages defaults to one page when the property is absent or unreadable.
func (d *DOCXExtractor) readPages(f *zip.File) int {
	if f == nil {
		return 1
	}
	rc, r, err := d.open(f)
	if err != nil {
		return 1
	}
	defer rc.Close()

	var props appProperties
	if err := xml.NewDecoder(r).Decode(&props); err != nil || props.Pages <= 0 {
		return 1
	}
	return props.Pages
}
