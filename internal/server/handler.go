package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"atscheck/internal/errors"
	"atscheck/internal/utils"
)

const (
	// FormField is the multipart field holding the document.
	FormField = "file"

	multipartOverhead = 64 << 10
	multipartMemory   = 8 << 20
)

// analyzeHandler accepts one multipart upload and returns the analysis
// response, or an ErrorResponse mapped from the failure kind.
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	filename, data, err := s.readUpload(r)
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("document.extension", utils.GetFileExtension(filename)),
		attribute.Int("document.bytes", len(data)),
	)

	resp, err := s.analyzer.AnalyzeFile(r.Context(), filename, data)
	if err != nil {
		writeAppError(w, r, s.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// readUpload pulls the document out of the multipart body.
func (s *Server) readUpload(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			return "", nil, fileTooLarge(s.MaxFileSize)
		}
		return "", nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Send the document as multipart/form-data in the \"file\" field.", err)
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.Logger.Warn("Failed to remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile(FormField)
	if err != nil {
		return "", nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Send the document as multipart/form-data in the \"file\" field.", err)
	}
	defer closeQuietly(file)

	if s.MaxFileSize > 0 && header.Size > s.MaxFileSize {
		return "", nil, fileTooLarge(s.MaxFileSize)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		if isTooLarge(err) {
			return "", nil, fileTooLarge(s.MaxFileSize)
		}
		return "", nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "The upload could not be read.", err)
	}
	return filepath.Base(header.Filename), data, nil
}

func closeQuietly(f multipart.File) {
	_ = f.Close()
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return stderrors.As(err, &maxErr) || stderrors.Is(err, multipart.ErrMessageTooLarge)
}

func fileTooLarge(limit int64) *errors.AppError {
	return errors.NewValidationError(errors.ErrCodeFileTooLarge,
		fmt.Sprintf("The file exceeds the %s upload limit.", utils.FormatFileSize(limit)), nil).
		WithContext("limit_bytes", limit)
}

// schemaHandler serves the JSON schema of the analysis response.
func (s *Server) schemaHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	_, _ = w.Write(responseSchema)
}

// statusFor maps an error to its HTTP status and public body.
func statusFor(err error) (int, ErrorResponse) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		if stderrors.Is(err, context.Canceled) {
			return statusClientClosed, ErrorResponse{Error: "CANCELED", Detail: "The request was canceled."}
		}
		return http.StatusInternalServerError, internalError
	}

	switch appErr.Code {
	case errors.ErrCodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType, ErrorResponse{Error: appErr.Code, Detail: appErr.Message}
	case errors.ErrCodeExtractionFailed, errors.ErrCodeEmptyDocument:
		return http.StatusUnprocessableEntity, ErrorResponse{Error: appErr.Code, Detail: appErr.Message}
	case errors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge, ErrorResponse{Error: appErr.Code, Detail: appErr.Message}
	}
	if appErr.Type == errors.ErrorTypeValidation {
		return http.StatusBadRequest, ErrorResponse{Error: appErr.Code, Detail: appErr.Message}
	}
	return http.StatusInternalServerError, internalError
}

// statusClientClosed is the de facto status for a client that went away.
const statusClientClosed = 499

var internalError = ErrorResponse{Error: errors.ErrCodeInternal, Detail: errors.MsgInternal}

func writeAppError(w http.ResponseWriter, r *http.Request, fallback *errors.Logger, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		requestLogger(r.Context(), fallback).LogError(err, "Request failed",
			"endpoint", r.URL.Path, "status", status)
	}
	writeErrorResponse(w, status, body.Error, body.Detail)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, ErrorResponse{Error: code, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encode error has nowhere to go.
	_ = json.NewEncoder(w).Encode(v)
}
