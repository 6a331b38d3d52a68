package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/rdf"
	"github.com/Harshitk-cp/credence/internal/service"
	"github.com/google/uuid"
)

const maxGraphBytes = 4 << 20

type ContextHandler struct {
	svc *service.ResolutionService
}

func NewContextHandler(svc *service.ResolutionService) *ContextHandler {
	return &ContextHandler{svc: svc}
}

type contextSummary struct {
	ID         uuid.UUID        `json:"id"`
	Subject    domain.Subject   `json:"subject"`
	ContextID  domain.ContextID `json:"context_id"`
	Role       domain.Role      `json:"role,omitempty"`
	Statements int              `json:"statements"`
	FetchedAt  time.Time        `json:"fetched_at"`
}

func summarize(c *domain.StoredContext) contextSummary {
	return contextSummary{
		ID:         c.ID,
		Subject:    c.Subject,
		ContextID:  c.ContextID,
		Role:       c.Role,
		Statements: c.Graph.Len(),
		FetchedAt:  c.FetchedAt,
	}
}

// PutLocal stores the request body as the subject's local context.
func (h *ContextHandler) PutLocal(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxGraphBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "graph too large")
		return
	}

	g, err := rdf.Parse(r.Header.Get("Content-Type"), body)
	if err != nil {
		if errors.Is(err, rdf.ErrUnsupportedMediaType) {
			writeError(w, http.StatusUnsupportedMediaType, "supported media types: "+strings.Join(rdf.MediaTypes(), ", "))
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.svc.AssertLocal(r.Context(), subject, g)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store context")
		return
	}

	writeJSON(w, http.StatusCreated, summarize(c))
}

func (h *ContextHandler) List(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.svc.Contexts(r.Context(), subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list contexts")
		return
	}

	out := make([]contextSummary, len(list))
	for i := range list {
		out[i] = summarize(&list[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"contexts": out})
}

func (h *ContextHandler) Delete(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.svc.Forget(r.Context(), subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete contexts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
