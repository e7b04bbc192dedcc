package rest

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

const defaultHistorySize = 20

// WeatherHandler exposes synchronization, stored weather and city search.
type WeatherHandler struct {
	responder
	service ports.SyncService
}

func NewWeatherHandler(service ports.SyncService, logger *zap.Logger) *WeatherHandler {
	return &WeatherHandler{
		responder: responder{logger: logger},
		service:   service,
	}
}

// SyncLocation handles POST /locations/{id}/sync.
//
// A failed sync still answers with the result body; the status reflects its error kind.
func (h *WeatherHandler) SyncLocation(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SyncOne(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = statusFor(&domain.WeatherError{Kind: result.ErrorKind, Code: result.ErrorCode})
	}

	h.respondWithJSON(w, status, toSyncResultResponse(result))
}

// SyncAll handles POST /sync. Individual failures are reported inside the batch.
func (h *WeatherHandler) SyncAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.SyncAll(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, toSyncBatchResponse(results))
}

// GetLatest handles GET /locations/{id}/weather.
func (h *WeatherHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.GetLatestWeather(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, toSnapshotResponse(*snapshot))
}

// GetHistory handles GET /locations/{id}/weather/history?page=&size=.
func (h *WeatherHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	size, err := queryInt(r, "size", defaultHistorySize)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	snapshots, total, err := h.service.GetHistory(r.Context(), mux.Vars(r)["id"], page, size)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	response := HistoryResponse{
		Items: make([]SnapshotResponse, 0, len(snapshots)),
		Page:  page,
		Size:  size,
		Total: total,
	}

	for _, s := range snapshots {
		response.Items = append(response.Items, toSnapshotResponse(s))
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// SearchCities handles GET /cities/search?q=.
func (h *WeatherHandler) SearchCities(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.respondWithError(w, http.StatusBadRequest, "MISSING_PARAMETERS", "The 'q' query parameter is required")
		return
	}

	results, err := h.service.SearchCities(r.Context(), query)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	response := make([]CityResponse, 0, len(results))
	for _, g := range results {
		response = append(response, toCityResponse(g))
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.InvalidInput("query parameter '"+name+"' must be an integer", err)
	}

	return value, nil
}
