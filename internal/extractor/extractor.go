// Package extractor turns uploaded PDF and DOCX bytes into a RawDocument for
// the analysis engine.
package extractor

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"atscheck/internal/config"
	"atscheck/internal/errors"
	"atscheck/internal/types"
)

// MinDocumentBytes is the smallest payload worth handing to a parser.
const MinDocumentBytes = 200

// Format extracts text from one document format.
type Format interface {
	Name() string
	Extensions() []string
	// Sniff reports whether the payload looks like this format.
	Sniff(data []byte) bool
	// Priority orders formats that claim the same extension, highest first.
	Priority() int
	Extract(ctx context.Context, data []byte) (types.RawDocument, error)
}

// Registry selects a Format by extension, falling back to content sniffing.
type Registry struct {
	mu      sync.RWMutex
	formats []Format
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{formats: make([]Format, 0)}
}

// Register adds a format.
func (r *Registry) Register(f Format) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.formats = append(r.formats, f)
	sort.SliceStable(r.formats, func(i, j int) bool {
		return r.formats[i].Priority() > r.formats[j].Priority()
	})
}

// ForExtension returns the highest priority format registered for ext.
func (r *Registry) ForExtension(ext string) Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext = strings.ToLower(ext)
	for _, f := range r.formats {
		for _, e := range f.Extensions() {
			if e == ext {
				return f
			}
		}
	}
	return nil
}

// ForContent returns the first format whose sniffer accepts data.
func (r *Registry) ForContent(data []byte) Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.formats {
		if f.Sniff(data) {
			return f
		}
	}
	return nil
}

// Extensions lists every registered extension, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var exts []string
	for _, f := range r.formats {
		exts = append(exts, f.Extensions()...)
	}
	sort.Strings(exts)
	return exts
}

// Extractor is the document extractor used by the CLI and the HTTP server.
type Extractor struct {
	registry *Registry
	pdf      *PDFExtractor
	logger   *errors.Logger
}

// New builds an extractor with the PDF and DOCX formats registered.
func New(cfg config.ExtractorConfig, logger *errors.Logger) *Extractor {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	pdf := NewPDFExtractor(cfg, logger)
	registry := NewRegistry()
	registry.Register(pdf)
	registry.Register(NewDOCXExtractor(cfg))

	return &Extractor{registry: registry, pdf: pdf, logger: logger}
}

// Extract picks a format for the file and runs it. Failures are reported as
// UNSUPPORTED_FORMAT or EXTRACTION_FAILED application errors.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (types.RawDocument, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	format := e.registry.ForExtension(ext)
	if format == nil && ext == "" {
		format = e.registry.ForContent(data)
	}
	if format == nil {
		return types.RawDocument{}, errors.NewUnsupportedFormatError(filename)
	}
	if len(data) < MinDocumentBytes {
		return types.RawDocument{}, errors.NewExtractionFailure("file is empty or truncated", nil).
			WithContext("size", len(data))
	}
	if !format.Sniff(data) {
		return types.RawDocument{}, errors.NewExtractionFailure("content does not match the file extension", nil).
			WithContext("format", format.Name())
	}

	doc, err := format.Extract(ctx, data)
	if err != nil {
		return types.RawDocument{}, err
	}
	doc.Filename = filename
	doc.HighFidelityAvailable = e.pdf.HighFidelityAvailable()

	e.logger.Debug("Document extracted",
		"format", format.Name(),
		"extractor", doc.Extractor,
		"pages", doc.Pages,
		"blocks", len(doc.Blocks))
	return doc, nil
}

// SupportedExtensions lists the accepted file extensions.
func (e *Extractor) SupportedExtensions() []string {
	return e.registry.Extensions()
}

// HighFidelityAvailable reports whether the layout-aware PDF path is enabled
// and its breaker is not open.
func (e *Extractor) HighFidelityAvailable() bool {
	return e.pdf.HighFidelityAvailable()
}

// Healthy reports whether the PDF breaker is closed. A half-open or open
// breaker still serves requests through the plain-text path.
func (e *Extractor) Healthy() bool {
	return e.pdf.IsHealthy()
}

// Stats returns breaker statistics for health endpoints.
func (e *Extractor) Stats() map[string]any {
	return e.pdf.BreakerStats()
}
