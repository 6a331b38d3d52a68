package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/registry"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type unknownNameResponse struct {
	Error string   `json:"error"`
	Valid []string `json:"valid"`
}

// writeResolveError maps resolution errors onto HTTP statuses.
func writeResolveError(w http.ResponseWriter, err error) {
	var unknown *registry.UnknownNameError
	if errors.As(err, &unknown) {
		writeJSON(w, http.StatusBadRequest, unknownNameResponse{Error: unknown.Error(), Valid: unknown.Valid})
		return
	}

	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, "failed to resolve subject")
		return
	}
	writeError(w, status, err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrUnknownName), errors.Is(err, domain.ErrInvalidSubject):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotCredible):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNoCredibleResults):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func subjectParam(r *http.Request) (domain.Subject, error) {
	return domain.ParseSubject(r.URL.Query().Get("subject"))
}
