package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"nano2zit/internal/convert"
	"nano2zit/internal/hints"
	"nano2zit/internal/llm"
	"nano2zit/internal/prompt"
)

const maxBodyBytes = 1 << 20

type converter interface {
	Convert(ctx context.Context, req convert.Request) (convert.Result, error)
	Inspect(inputJSON string) (hints.Bundle, error)
	Catalog() *prompt.Catalog
}

type server struct {
	conv           converter
	runtime        llm.Runtime
	requestTimeout time.Duration
	logger         *slog.Logger
}

type apiError struct {
	Error               string   `json:"error"`
	ValidPromptVersions []string `json:"valid_prompt_versions,omitempty"`
	Preview             *string  `json:"preview,omitempty"`
	Provider            string   `json:"provider,omitempty"`
	Model               string   `json:"model,omitempty"`
}

type convertRequest struct {
	InputJSON     string `json:"input_json"`
	PromptVersion string `json:"prompt_version"`
}

type statusResponse struct {
	OK                   bool             `json:"ok"`
	Provider             string           `json:"provider"`
	Model                string           `json:"model"`
	DefaultPromptProfile string           `json:"default_prompt_profile"`
	PromptProfiles       []prompt.Profile `json:"prompt_profiles"`
}

func (s *server) routes(static http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/convert", s.handleConvert)
	mux.HandleFunc("/api/hints", s.handleHints)
	mux.Handle("/", static)
	return withLogging(mux, s.logger)
}

func (s *server) handleConvert(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet:
		catalog := s.conv.Catalog()
		writeJSON(w, http.StatusOK, statusResponse{
			OK:                   true,
			Provider:             s.runtime.Provider,
			Model:                s.runtime.Model,
			DefaultPromptProfile: catalog.DefaultID(),
			PromptProfiles:       catalog.List(),
		})
		return
	case http.MethodPost:
	default:
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	var req convertRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	res, err := s.conv.Convert(ctx, convert.Request{
		InputJSON: req.InputJSON,
		Profile:   req.PromptVersion,
	})
	if err != nil {
		s.writeConvertError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleHints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	var req convertRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	bundle, err := s.conv.Inspect(req.InputJSON)
	if err != nil {
		s.writeConvertError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (s *server) writeConvertError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		bad         *convert.BadRequestError
		unknown     *convert.UnknownProfileError
		unparseable *convert.UnparseableError
	)
	switch {
	case errors.As(err, &bad):
		writeJSON(w, http.StatusBadRequest, apiError{Error: bad.Message})
	case errors.As(err, &unknown):
		writeJSON(w, http.StatusBadRequest, apiError{
			Error:               "Unknown prompt_version: " + unknown.Profile,
			ValidPromptVersions: unknown.Valid,
		})
	case errors.As(err, &unparseable):
		preview := unparseable.Preview
		writeJSON(w, http.StatusUnprocessableEntity, apiError{
			Error:    unparseable.Error(),
			Preview:  &preview,
			Provider: unparseable.Provider,
			Model:    unparseable.Model,
		})
	default:
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("convert failed", "request_id", requestID(r), "err", err)
		}
		writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.New("invalid JSON request body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type ctxKey struct{}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("http",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"dur_ms", time.Since(start).Milliseconds(),
		)
	})
}
