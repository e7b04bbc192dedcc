package rest

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

type PreferenceHandler struct {
	responder
	service ports.PreferenceService
}

func NewPreferenceHandler(service ports.PreferenceService, logger *zap.Logger) *PreferenceHandler {
	return &PreferenceHandler{
		responder: responder{logger: logger},
		service:   service,
	}
}

func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, PreferencesResponse{
		Units: toUnitsResponse(h.service.EffectiveUnits(r.Context())),
	})
}

// Update handles PUT /preferences. The new units apply to the next sync.
func (h *PreferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var request UpdatePreferencesRequest
	if !h.decodeJSON(w, r, &request) {
		return
	}

	units, err := domain.ParseUnits(request.Units)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := h.service.SetUnits(r.Context(), units); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.Get(w, r)
}
