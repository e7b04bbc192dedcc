package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

// LocationHandler serves CRUD for tracked locations.
type LocationHandler struct {
	responder
	service ports.LocationService
}

func NewLocationHandler(service ports.LocationService, logger *zap.Logger) *LocationHandler {
	return &LocationHandler{
		responder: responder{logger: logger},
		service:   service,
	}
}

// Create handles POST /locations.
//
// Response codes:
//   - 201: Created location
//   - 400: Malformed body or failed validation (INVALID_INPUT)
//   - 409: City already tracked (DUPLICATE)
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input ports.CreateLocationInput
	if !h.decodeJSON(w, r, &input) {
		return
	}

	location, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, toLocationResponse(*location))
}

// List handles GET /locations. Favorites come first.
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := h.service.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	response := make([]LocationResponse, 0, len(locations))
	for _, l := range locations {
		response = append(response, toLocationResponse(l))
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	location, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, toLocationResponse(*location))
}

// Update handles PATCH /locations/{id}; only name and favorite are editable.
func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input ports.UpdateLocationInput
	if !h.decodeJSON(w, r, &input) {
		return
	}

	location, err := h.service.Update(r.Context(), mux.Vars(r)["id"], input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, toLocationResponse(*location))
}

// Delete handles DELETE /locations/{id} and removes the location's history with it.
func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
