package analyzer

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"atscheck/internal/errors"
	"atscheck/internal/types"
)

const tracerName = "atscheck/analyzer"

// DocumentExtractor produces a RawDocument from uploaded bytes.
type DocumentExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (types.RawDocument, error)
}

// Report summarizes one analysis for metrics.
type Report struct {
	Extension   string
	Bytes       int
	Extractor   string
	Pages       int
	Score       int
	Grade       string
	Issues      int
	ATSFriendly bool
	Scanned     bool
	Columns     bool
	Duration    time.Duration
	// ErrorCode is empty on success.
	ErrorCode string
}

// Observer receives one report per analysis.
type Observer interface {
	ObserveAnalysis(ctx context.Context, r Report)
}

// Service couples the extractor and the analyzer for the CLI and the server.
type Service struct {
	extractor DocumentExtractor
	analyzer  *Analyzer
	logger    *errors.Logger
	observer  Observer
	timeout   time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithObserver reports every analysis to o.
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) { s.observer = o }
}

// WithTimeout bounds a single analysis, extraction included.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = d }
}

// NewService creates a service.
func NewService(extractor DocumentExtractor, analyzer *Analyzer, logger *errors.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	s := &Service{extractor: extractor, analyzer: analyzer, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeFile extracts and analyzes one uploaded document. Errors are
// UNSUPPORTED_FORMAT, EXTRACTION_FAILED or EMPTY_DOCUMENT application errors,
// or the context's error when the caller went away.
func (s *Service) AnalyzeFile(ctx context.Context, filename string, data []byte) (*types.AnalysisResponse, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ctx, span := otel.Tracer(tracerName).Start(ctx, "analyzer.AnalyzeFile",
		trace.WithAttributes(
			attribute.String("document.extension", ext),
			attribute.Int("document.bytes", len(data)),
		))
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	report := Report{Extension: ext, Bytes: len(data)}

	resp, err := s.run(ctx, filename, data, &report)
	report.Duration = time.Since(start)

	logger := errors.FromContext(ctx, s.logger)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			err = errors.NewExtractionFailure("analysis timed out", err)
		}
		report.ErrorCode = errorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, report.ErrorCode)
		logger.LogError(err, "Analysis failed",
			"file", filepath.Base(filename),
			"duration_ms", report.Duration.Milliseconds())
	} else {
		span.SetAttributes(
			attribute.String("document.extractor", report.Extractor),
			attribute.Int("document.pages", report.Pages),
			attribute.Int("analysis.score", report.Score),
			attribute.Bool("analysis.ats_friendly", report.ATSFriendly),
		)
		logger.Info("Analysis completed",
			"file", filepath.Base(filename),
			"extractor", report.Extractor,
			"pages", report.Pages,
			"score", report.Score,
			"grade", report.Grade,
			"issues", report.Issues,
			"duration_ms", report.Duration.Milliseconds())
	}

	if s.observer != nil {
		s.observer.ObserveAnalysis(ctx, report)
	}
	return resp, err
}

func (s *Service) run(ctx context.Context, filename string, data []byte, report *Report) (*types.AnalysisResponse, error) {
	raw, err := s.extract(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	report.Extractor = raw.Extractor
	report.Pages = raw.Pages

	resp, err := s.analyzer.Analyze(raw)
	if err != nil {
		return nil, err
	}
	d := resp.Dashboard
	report.Score = d.Score
	report.Grade = d.Grade
	report.Issues = d.Issues
	report.ATSFriendly = d.ATSFriendly
	report.Scanned = d.Signals.LikelyScannedPDF
	report.Columns = d.Signals.PossibleColumns
	return resp, nil
}

func (s *Service) extract(ctx context.Context, filename string, data []byte) (types.RawDocument, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "extractor.Extract")
	defer span.End()

	raw, err := s.extractor.Extract(ctx, filename, data)
	if err != nil {
		span.RecordError(err)
		return raw, err
	}
	span.SetAttributes(
		attribute.String("document.extractor", raw.Extractor),
		attribute.Bool("document.high_fidelity", raw.HighFidelityAvailable),
	)
	return raw, nil
}

func errorCode(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Code
	}
	if stderrors.Is(err, context.Canceled) {
		return "CANCELED"
	}
	return errors.ErrCodeInternal
}
