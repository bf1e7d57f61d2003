// Package chat exposes the turn-submission endpoint of the interview flow,
// as plain JSON or as an SSE stage stream.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"promptsmith/pkg/core/agent"
	"promptsmith/pkg/core/interview"
	"promptsmith/pkg/core/llm"
	"promptsmith/pkg/core/store"
)

// SessionRepo is the persistence surface the handler needs.
type SessionRepo interface {
	GetForOwner(ctx context.Context, id, ownerID string) (*interview.Session, error)
	Create(ctx context.Context, s *interview.Session) error
	Update(ctx context.Context, s *interview.Session) error
}

// Handler serves the chat turn endpoint.
type Handler struct {
	manager *agent.Manager
	repo    SessionRepo
	config  interview.Config
}

// NewHandler creates a new chat handler.
func NewHandler(mgr *agent.Manager, repo SessionRepo, cfg interview.Config) *Handler {
	return &Handler{manager: mgr, repo: repo, config: cfg}
}

// TurnRequest is the submission body of one exchange.
type TurnRequest struct {
	SessionID    string                      `json:"sessionId,omitempty"`
	Message      string                      `json:"message,omitempty"`
	Answers      map[string]interview.Answer `json:"answers,omitempty"`
	ModelID      string                      `json:"modelId,omitempty"`
	OutputFormat string                      `json:"outputFormat,omitempty"`
	TraceID      string                      `json:"traceId,omitempty"`
}

// TurnResponse wraps the orchestration result with the session identity.
type TurnResponse struct {
	SessionID string `json:"sessionId"`
	TraceID   string `json:"traceId"`
	interview.TurnResult
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandleTurn processes POST /api/chat/turn.
func (h *Handler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", fmt.Sprintf("failed to parse request body: %v", err))
		return
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}
	w.Header().Set("X-Trace-Id", traceID)

	ownerID := r.Header.Get("X-User-Id")
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "NO_SESSION", "missing user identity")
		return
	}

	if wantsStream(r) {
		h.handleStream(w, r, &req, ownerID, traceID)
		return
	}

	result, err := h.runTurn(r.Context(), &req, ownerID, nil)
	if err != nil {
		status, code := classifyError(err)
		writeError(w, status, code, err.Error())
		return
	}
	result.TraceID = traceID

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleStream runs the same turn while pushing trace/stage/result/error
// events over SSE. The stream is feedback only; the outcome is identical to
// the JSON path.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request, req *TurnRequest, ownerID, traceID string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", "streaming not supported")
		return
	}

	sendEvent := func(event string, payload interface{}) {
		data, _ := json.Marshal(payload)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	sendEvent("trace", map[string]string{"traceId": traceID})
	notify := func(stage string) {
		sendEvent("stage", map[string]string{"stage": stage, "at": time.Now().Format(time.RFC3339)})
	}

	notify("start")
	result, err := h.runTurn(r.Context(), req, ownerID, notify)
	if err != nil {
		status, code := classifyError(err)
		sendEvent("error", apiError{Code: code, Message: fmt.Sprintf("(%d) %s", status, err.Error())})
		return
	}
	result.TraceID = traceID
	sendEvent("result", result)
}

// runTurn loads (or creates) the session, processes the exchange, and
// persists the session only after the turn fully succeeded.
func (h *Handler) runTurn(ctx context.Context, req *TurnRequest, ownerID string, notify func(string)) (*TurnResponse, error) {
	emit := func(stage string) {
		if notify != nil {
			notify(stage)
		}
	}

	emit("load_session")
	var s *interview.Session
	created := false
	if req.SessionID == "" {
		s = &interview.Session{
			ID:        uuid.NewString(),
			OwnerID:   ownerID,
			CreatedAt: time.Now(),
		}
		created = true
	} else {
		var err error
		s, err = h.repo.GetForOwner(ctx, req.SessionID, ownerID)
		if err != nil {
			return nil, err
		}
	}

	modelID := req.ModelID
	if modelID == "" {
		modelID = s.ModelID
	}
	provider, opts, err := h.manager.Resolve(modelID)
	if err != nil {
		return nil, fmt.Errorf("MODEL_RESOLUTION: %w", err)
	}

	client := llm.NewClient(provider)
	client.Timeout = h.config.Timeout
	client.Attempts = h.config.Retries
	client.DefaultOptions = opts
	client.OnRetry = func(int) { emit("llm_retry") }

	orch := &interview.Orchestrator{
		Caller:     client,
		Config:     h.config,
		ModelLabel: modelID,
		Notify:     notify,
	}

	result, err := orch.ProcessTurn(ctx, s, interview.TurnInput{
		Message:      req.Message,
		Answers:      req.Answers,
		ModelID:      modelID,
		OutputFormat: req.OutputFormat,
	})
	if err != nil {
		return nil, err
	}

	emit("persist")
	if created {
		err = h.repo.Create(ctx, s)
	} else {
		err = h.repo.Update(ctx, s)
	}
	if err != nil {
		return nil, err
	}

	return &TurnResponse{SessionID: s.ID, TurnResult: *result}, nil
}

func wantsStream(r *http.Request) bool {
	if r.URL.Query().Get("stream") == "1" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// classifyError maps error classes onto HTTP statuses.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, interview.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND"
	case llm.IsTimeout(err):
		return http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT"
	case errors.Is(err, interview.ErrModelContract):
		return http.StatusInternalServerError, "MODEL_CONTRACT_VIOLATION"
	case strings.Contains(err.Error(), "MODEL_RESOLUTION"):
		return http.StatusBadRequest, "UNKNOWN_MODEL"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiError{Code: code, Message: message})
}
