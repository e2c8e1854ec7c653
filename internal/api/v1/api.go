// Package v1 implements the JSON HTTP API over the acquisition pipeline and library.
package v1

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/vmunix/vidvault/internal/acquire"
	"github.com/vmunix/vidvault/internal/extractor"
	"github.com/vmunix/vidvault/internal/library"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Config holds API server configuration.
type Config struct {
	// CacheTTL is how long analyzed documents are kept for reuse at save time.
	CacheTTL time.Duration
}

// Server is the v1 API server.
type Server struct {
	deps     ServerDeps
	cfg      Config
	validate *validator.Validate
	log      *slog.Logger
}

// New creates a new v1 API server.
func New(deps ServerDeps, cfg Config, logger *slog.Logger) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &Server{
		deps:     deps,
		cfg:      cfg,
		validate: newValidator(),
		log:      logger.With("component", "api"),
	}, nil
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Pipeline
	mux.HandleFunc("POST /videopage_analyze", s.analyze)
	mux.HandleFunc("POST /videopage_metadata", s.probe)
	mux.HandleFunc("POST /videopage_download", s.download)
	mux.HandleFunc("POST /videopage_save", s.save)

	// Library
	mux.HandleFunc("GET /videopage_list", s.list)
	mux.HandleFunc("GET /videopage_file/{id}", s.entryFile)
	mux.HandleFunc("GET /video_library/{filename}", s.libraryFile)

	// History
	mux.HandleFunc("GET /videopage_history", s.requireHistory(s.listHistory))
}

// Handler returns the routed API wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return LogRequests(mux, s.log)
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// writeFailure maps a pipeline error to its status and writes it.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.log.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, code, msg)
}

// classify returns the HTTP status, error code and message for err.
func classify(err error) (int, string, string) {
	var extErr *extractor.ExtractionError
	if errors.As(err, &extErr) {
		msg := extErr.Kind.Message()
		switch extErr.Kind {
		case extractor.KindRateLimited:
			return http.StatusTooManyRequests, "RATE_LIMITED", msg
		case extractor.KindAgeRestricted:
			return http.StatusForbidden, "AGE_RESTRICTED", msg
		case extractor.KindUnavailable:
			return http.StatusNotFound, "UNAVAILABLE", msg
		case extractor.KindScheduledLive:
			return http.StatusConflict, "SCHEDULED_LIVE", msg
		default:
			return http.StatusBadRequest, "EXTRACTION_FAILED", strings.TrimSpace(msg + " " + extErr.Diagnostic)
		}
	}

	switch {
	case errors.Is(err, extractor.ErrTimeout):
		return http.StatusRequestTimeout, "TIMEOUT", err.Error()
	case errors.Is(err, acquire.ErrInvalidRequest), errors.Is(err, library.ErrInvalidQuery):
		return http.StatusBadRequest, "INVALID_REQUEST", err.Error()
	case errors.Is(err, acquire.ErrArtifactNotFound):
		return http.StatusInternalServerError, "ARTIFACT_NOT_FOUND", err.Error()
	case errors.Is(err, library.ErrNotFound), errors.Is(err, library.ErrSourceNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, library.ErrPathTraversal):
		return http.StatusBadRequest, "INVALID_PATH", err.Error()
	case errors.Is(err, library.ErrIO):
		return http.StatusInternalServerError, "LIBRARY_IO", err.Error()
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "CANCELED", err.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL", err.Error()
	}
}

// decode reads a JSON body into v and validates its struct tags. On failure it
// writes the 400 response and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", validationMessage(err))
		return false
	}
	return true
}

// newValidator reports fields by their JSON names and knows "notblank".
func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "notblank":
			msgs = append(msgs, fe.Field()+" is required")
		default:
			msgs = append(msgs, fe.Field()+" is invalid ("+fe.Tag()+")")
		}
	}
	return strings.Join(msgs, "; ")
}

// queryInt extracts an optional integer from query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

// queryString extracts an optional string from query string.
func queryString(r *http.Request, name string) *string {
	val := r.URL.Query().Get(name)
	if val == "" {
		return nil
	}
	return &val
}
