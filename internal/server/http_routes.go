package server

import (
	"context"
	_ "embed"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"atscheck/internal/errors"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

//go:embed schema/analysis_response.json
var responseSchema []byte

// Handler builds the routed handler: request id, CORS, then the route, all
// inside otelhttp. Only the analyze route is rate limited and size limited.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/analyze",
		s.rateLimitMiddleware(s.requestSizeLimitMiddleware(http.HandlerFunc(s.analyzeHandler))))
	mux.HandleFunc("GET /api/schema", s.schemaHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	var h http.Handler = mux
	h = s.corsMiddleware(h)
	h = s.requestIDMiddleware(h)
	return s.om.HTTPMiddleware()(h)
}

// requestIDMiddleware accepts a caller-supplied id or mints a UUID, echoes it
// in the response and attaches a request-scoped logger to the context.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("request.id", id))

		ctx := errors.IntoContext(r.Context(), s.Logger.With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(ctx context.Context, fallback *errors.Logger) *errors.Logger {
	return errors.FromContext(ctx, fallback)
}

// corsMiddleware answers preflight requests and decorates responses for
// allowed origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	cors := s.AppConfig.Server.CORS
	if !cors.Enabled {
		return next
	}
	methods := strings.Join(cors.AllowedMethods, ", ")
	headers := strings.Join(cors.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cors.MaxAge)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed, wildcard := originAllowed(cors.AllowedOrigins, origin)
		if origin != "" && allowed {
			h := w.Header()
			if wildcard {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Expose-Headers", RequestIDHeader)
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if allowed {
				h := w.Header()
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func originAllowed(allowed []string, origin string) (ok, wildcard bool) {
	for _, o := range allowed {
		if o == "*" {
			return true, true
		}
		if strings.EqualFold(o, origin) {
			return true, false
		}
	}
	return false, false
}

// requestSizeLimitMiddleware caps the request body. The multipart envelope
// gets a little room on top of the file size limit.
func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.MaxFileSize > 0 {
			if r.ContentLength > s.MaxFileSize+multipartOverhead {
				writeAppError(w, r, s.Logger, fileTooLarge(s.MaxFileSize))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxFileSize+multipartOverhead)
		}
		next.ServeHTTP(w, r)
	})
}
