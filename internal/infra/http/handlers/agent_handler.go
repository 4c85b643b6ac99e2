package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type AgentRegistrar interface {
	Execute(ctx context.Context, input usecase.RegisterAgentInput) (*usecase.RegisterAgentOutput, error)
}

type AgentHandler struct {
	RegisterAgentUC AgentRegistrar
	Logger          zerolog.Logger
}

func NewAgentHandler(uc AgentRegistrar, logger zerolog.Logger) *AgentHandler {
	return &AgentHandler{RegisterAgentUC: uc, Logger: logger}
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Register handles POST /agents.
func (h *AgentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input usecase.RegisterAgentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON: " + err.Error(), Code: usecase.CodeValidation})
		return
	}

	output, err := h.RegisterAgentUC.Execute(r.Context(), input)
	if err != nil {
		h.writeErrorResponse(w, err)
		return
	}

	h.Logger.Info().Str("agent_id", output.ID).Msg("agent registered")
	writeJSON(w, http.StatusCreated, output)
}

func (h *AgentHandler) writeErrorResponse(w http.ResponseWriter, err error) {
	code := usecase.ErrorCode(err)

	status := http.StatusInternalServerError
	switch code {
	case usecase.CodeValidation:
		status = http.StatusBadRequest
	case usecase.CodeConflict:
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.Logger.Error().Err(err).Msg("agent registration failed")
		writeJSON(w, status, ErrorResponse{Error: "internal server error", Code: code})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
