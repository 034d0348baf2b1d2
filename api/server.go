// Package api provides the HTTP surface of marketbrief: JSON analysis, PDF
// download and report email endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/marketbrief/internal/app"
	"github.com/seenimoa/marketbrief/internal/config"
	"github.com/seenimoa/marketbrief/internal/datasource"
	"github.com/seenimoa/marketbrief/internal/dispatch"
	"github.com/seenimoa/marketbrief/internal/report"
	"github.com/seenimoa/marketbrief/pkg/models"
	"github.com/seenimoa/marketbrief/pkg/utils"
)

// Messages returned to clients. Internal error text is never exposed.
const (
	msgNoData       = "no market data available for the requested tickers"
	msgRenderFailed = "failed to render report"
	msgReportFailed = "report generation failed"
	msgInvalidBody  = "invalid request body"
)

// Pipeline is the report pipeline the handlers drive.
type Pipeline interface {
	Assemble(ctx context.Context, tickers []string) (*models.ReportResult, error)
	Generate(ctx context.Context, tickers []string) (*app.Report, error)
	EmailReport(ctx context.Context, tickers, to []string) (bool, error)
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	pipeline Pipeline
	logger   arbor.ILogger
	version  string
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, pipeline Pipeline, logger arbor.ILogger, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		logger:   logger,
		version:  version,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.cfg.API.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.cfg.API.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.API.RequestTimeout))
	}

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/analyze", s.handleAnalyze)

		r.Get("/report.pdf", s.handleReportPDF)
		r.Post("/report.pdf", s.handleReportPDF)

		r.Post("/report/email", s.handleReportEmail)

		r.Get("/config", s.handleGetConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)
	})

	return r
}

// requestLogger logs one line per request through arbor.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("elapsed_ms", time.Since(start).Milliseconds()).
			Msg("HTTP request")
	})
}

// ============================================================
// Request / Response Types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ReportRequest is the body accepted by the report endpoints. Tickers may be
// a comma-separated string or a JSON array. Recipients are not accepted:
// report email only goes to the configured email.to list.
type ReportRequest struct {
	Tickers stringList `json:"tickers"`
}

// EmailResponse is returned by POST /api/v1/report/email.
type EmailResponse struct {
	Success bool `json:"success"`
}

// stringList decodes either "A, B" or ["A", "B"].
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = splitList(s)
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err != nil {
		return fmt.Errorf("expected string or array of strings: %w", err)
	}
	*l = splitList(strings.Join(arr, ","))
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":  "ok",
			"version": s.version,
			"time":    utils.DisplayTime(time.Now()),
		},
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	result, err := s.pipeline.Assemble(r.Context(), utils.NormalizeTickers(req.Tickers))
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: result})
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	rep, err := s.pipeline.Generate(r.Context(), utils.NormalizeTickers(req.Tickers))
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}

	if err := dispatch.WritePDF(w, rep.PDF, rep.Filename); err != nil {
		s.logger.Warn().Err(err).Msg("PDF response write failed")
	}
}

func (s *Server) handleReportEmail(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	ok, err := s.pipeline.EmailReport(r.Context(), utils.NormalizeTickers(req.Tickers), nil)
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, EmailResponse{Success: ok})
}

// writePipelineError maps a pipeline failure to a fixed client message.
func (s *Server) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	msg := msgReportFailed
	switch {
	case errors.Is(err, datasource.ErrNoDataAvailable):
		msg = msgNoData
	case errors.Is(err, report.ErrRender):
		msg = msgRenderFailed
	}

	s.logger.Error().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Err(err).
		Msg(msg)
	writeError(w, http.StatusInternalServerError, msg)
}

// parseReportRequest reads tickers from the query string, a JSON body or a
// form body, in that order of precedence for non-empty values.
func parseReportRequest(r *http.Request) (ReportRequest, error) {
	var req ReportRequest

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if r.Method == http.MethodPost && ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, err
		}
	} else if r.Method == http.MethodPost && (ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data") {
		if ct == "multipart/form-data" {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				return req, err
			}
		} else if err := r.ParseForm(); err != nil {
			return req, err
		}
		req.Tickers = splitList(r.PostForm.Get("tickers"))
	}

	if q := r.URL.Query().Get("tickers"); q != "" {
		req.Tickers = splitList(q)
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
