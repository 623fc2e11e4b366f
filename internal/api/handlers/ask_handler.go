package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/costnav/healthcare-cost-navigator/internal/domain/entities"
)

// maxQuestionLength bounds the accepted question size.
const maxQuestionLength = 1000

// AskPipeline defines the handler dependency for natural-language questions.
type AskPipeline interface {
	Ask(ctx context.Context, question string) (*entities.AskResult, error)
	ExamplePrompts() []string
}

// AskHandler handles natural-language question requests
type AskHandler struct {
	pipeline AskPipeline
}

// NewAskHandler creates a new ask handler
func NewAskHandler(pipeline AskPipeline) *AskHandler {
	return &AskHandler{pipeline: pipeline}
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask handles POST /ask
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "request body must be JSON with a question field")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		respondWithError(w, http.StatusBadRequest, "question is required")
		return
	}
	if len(question) > maxQuestionLength {
		respondWithError(w, http.StatusBadRequest, "question is too long")
		return
	}

	result, err := h.pipeline.Ask(r.Context(), question)
	if err != nil {
		respondWithAppError(w, err, "failed to process question")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// Examples handles GET /ask/examples
func (h *AskHandler) Examples(w http.ResponseWriter, r *http.Request) {
	examples := h.pipeline.ExamplePrompts()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"examples": examples,
		"count":    len(examples),
	})
}
