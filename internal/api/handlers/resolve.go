package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/rdf"
	"github.com/Harshitk-cp/credence/internal/service"
)

const maxBatchSubjects = 100

// Response headers describing a resolution.
const (
	HeaderPolicy   = "X-Credence-Policy"
	HeaderCredible = "X-Credence-Credible"
)

type ResolveHandler struct {
	svc *service.ResolutionService
}

func NewResolveHandler(svc *service.ResolutionService) *ResolveHandler {
	return &ResolveHandler{svc: svc}
}

// Resolve returns the subject's credible graph in the negotiated format.
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	refresh, err := boolParam(r, "refresh")
	if err != nil {
		writeError(w, http.StatusBadRequest, "refresh must be a boolean")
		return
	}

	format, ok := rdf.Negotiate(r.Header.Get("Accept"))
	if !ok {
		writeError(w, http.StatusNotAcceptable, "acceptable media types: "+strings.Join(rdf.MediaTypes(), ", "))
		return
	}

	res, err := h.svc.Resolve(r.Context(), service.ResolveRequest{
		Subject: subject,
		Policy:  r.URL.Query().Get("policy"),
		Refresh: refresh,
	})
	if err != nil {
		writeResolveError(w, err)
		return
	}

	body, err := format.Encode(res.Graph)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode graph")
		return
	}

	credible := make([]string, len(res.Credible))
	for i, id := range res.Credible {
		credible[i] = id.String()
	}

	w.Header().Set("Content-Type", format.MediaType)
	w.Header().Set("Vary", "Accept")
	w.Header().Set(HeaderPolicy, res.Policy)
	w.Header().Set(HeaderCredible, strings.Join(credible, " "))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type batchRequest struct {
	Subjects []string `json:"subjects"`
	Policy   string   `json:"policy"`
	Refresh  bool     `json:"refresh"`
}

type batchEntry struct {
	Subject    string              `json:"subject"`
	Resolution *service.Resolution `json:"resolution,omitempty"`
	Status     int                 `json:"status"`
	Error      string              `json:"error,omitempty"`
}

type batchResponse struct {
	Results []batchEntry `json:"results"`
}

// Batch resolves several subjects and reports a summary for each.
func (h *ResolveHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Subjects) == 0 {
		writeError(w, http.StatusBadRequest, "subjects is required")
		return
	}
	if len(req.Subjects) > maxBatchSubjects {
		writeError(w, http.StatusBadRequest, "too many subjects (max "+strconv.Itoa(maxBatchSubjects)+")")
		return
	}

	subjects := make([]domain.Subject, len(req.Subjects))
	for i, raw := range req.Subjects {
		s, err := domain.ParseSubject(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		subjects[i] = s
	}

	results, err := h.svc.ResolveMany(r.Context(), subjects, req.Policy, req.Refresh)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	resp := batchResponse{Results: make([]batchEntry, len(results))}
	for i, res := range results {
		entry := batchEntry{Subject: res.Subject.String(), Resolution: res.Resolution, Status: http.StatusOK}
		if res.Err != nil {
			entry.Status = errorStatus(res.Err)
			entry.Error = res.Err.Error()
		}
		resp.Results[i] = entry
	}
	writeJSON(w, http.StatusOK, resp)
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
