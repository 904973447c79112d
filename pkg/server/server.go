// Package server exposes the ingestion and reasoning workflows over a small
// JSON HTTP surface. Handlers validate, run the workflow, and translate
// outcomes: 400 for malformed requests, 504 for upstream inference timeouts,
// 500 for executor failures, 200 otherwise.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/callwise/callwise/pkg/llm"
	"github.com/callwise/callwise/pkg/pipeline/ingest"
	"github.com/callwise/callwise/pkg/pipeline/reason"
	"github.com/callwise/callwise/pkg/workflow"
)

// Ingester runs one ingestion workflow for an artifact reference.
type Ingester interface {
	Ingest(ctx context.Context, ref string, opts ...workflow.ContextOption) (ingest.Transcript, error)
}

// Asker runs one reasoning workflow for a request.
type Asker interface {
	Ask(ctx context.Context, request string, opts ...workflow.ContextOption) (reason.Investigation, error)
}

// Server routes HTTP requests to the two workflows.
type Server struct {
	ingester Ingester
	asker    Asker
	logger   *slog.Logger
}

// New constructs a Server. A nil logger falls back to slog.Default.
func New(ingester Ingester, asker Asker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ingester: ingester, asker: asker, logger: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/ingest", s.handleIngest)
	mux.HandleFunc("POST /v1/ask", s.handleAsk)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

type ingestRequest struct {
	Ref string `json:"ref"`
}

type ingestResponse struct {
	RequestID  string            `json:"request_id"`
	DocumentID int64             `json:"document_id,omitempty"`
	Status     map[string]string `json:"status"`
	Summary    string            `json:"summary,omitempty"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	RequestID           string `json:"request_id"`
	FinalAnswer         string `json:"final_answer,omitempty"`
	ClarificationNeeded string `json:"clarification_needed,omitempty"`
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	logger := s.logger.With("request_id", reqID, "path", r.URL.Path)

	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, reqID, "invalid request body: "+err.Error())
		return
	}
	if req.Ref == "" {
		writeError(w, http.StatusBadRequest, reqID, "ref is required")
		return
	}

	start := time.Now()
	t, err := s.ingester.Ingest(r.Context(), req.Ref,
		workflow.WithLogger(logger), workflow.WithRunID(reqID))
	if err != nil {
		logger.Error("ingestion run failed", "ref", req.Ref, "error", err)
		writeError(w, statusFor(err), reqID, "ingestion failed")
		return
	}

	logger.Info("ingestion completed",
		"ref", req.Ref,
		"document_id", t.DocumentID,
		"duration_ms", time.Since(start).Milliseconds())

	writeJSON(w, http.StatusOK, ingestResponse{
		RequestID:  reqID,
		DocumentID: t.DocumentID,
		Status:     t.Status,
		Summary:    t.Summary,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	logger := s.logger.With("request_id", reqID, "path", r.URL.Path)

	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, reqID, "invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, reqID, "question is required")
		return
	}

	start := time.Now()
	inv, err := s.asker.Ask(r.Context(), req.Question,
		workflow.WithLogger(logger), workflow.WithRunID(reqID))
	if err != nil {
		logger.Error("reasoning run failed", "error", err)
		writeError(w, statusFor(err), reqID, "investigation failed")
		return
	}

	logger.Info("reasoning completed",
		"replans", inv.Replans,
		"duration_ms", time.Since(start).Milliseconds())

	writeJSON(w, http.StatusOK, askResponse{
		RequestID:           reqID,
		FinalAnswer:         inv.FinalAnswer,
		ClarificationNeeded: inv.Clarification,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps a workflow error to an HTTP status. Upstream inference
// timeouts surface as gateway timeouts; everything else is internal.
func statusFor(err error) int {
	if llm.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reqID, msg string) {
	writeJSON(w, status, errorResponse{RequestID: reqID, Error: msg})
}
