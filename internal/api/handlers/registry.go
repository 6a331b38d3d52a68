package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/credence/internal/service"
)

// RegistryHandler lists the names a request may use.
type RegistryHandler struct {
	svc *service.ResolutionService
}

func NewRegistryHandler(svc *service.ResolutionService) *RegistryHandler {
	return &RegistryHandler{svc: svc}
}

func (h *RegistryHandler) Investigators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"investigators": h.svc.Investigators()})
}

func (h *RegistryHandler) Policies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"policies": h.svc.Policies(),
		"default":  h.svc.DefaultPolicy(),
	})
}
