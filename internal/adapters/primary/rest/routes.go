package rest

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Handlers groups every API handler for registration.
type Handlers struct {
	Locations   *LocationHandler
	Weather     *WeatherHandler
	Preferences *PreferenceHandler
}

// RegisterRoutes mounts the API on router, which is normally the /api/v1 subrouter.
func RegisterRoutes(router *mux.Router, h Handlers) {
	router.HandleFunc("/locations", h.Locations.Create).Methods(http.MethodPost)
	router.HandleFunc("/locations", h.Locations.List).Methods(http.MethodGet)
	router.HandleFunc("/locations/{id}", h.Locations.Get).Methods(http.MethodGet)
	router.HandleFunc("/locations/{id}", h.Locations.Update).Methods(http.MethodPatch)
	router.HandleFunc("/locations/{id}", h.Locations.Delete).Methods(http.MethodDelete)

	router.HandleFunc("/locations/{id}/sync", h.Weather.SyncLocation).Methods(http.MethodPost)
	router.HandleFunc("/locations/{id}/weather", h.Weather.GetLatest).Methods(http.MethodGet)
	router.HandleFunc("/locations/{id}/weather/history", h.Weather.GetHistory).Methods(http.MethodGet)
	router.HandleFunc("/sync", h.Weather.SyncAll).Methods(http.MethodPost)
	router.HandleFunc("/cities/search", h.Weather.SearchCities).Methods(http.MethodGet)

	router.HandleFunc("/preferences", h.Preferences.Get).Methods(http.MethodGet)
	router.HandleFunc("/preferences", h.Preferences.Update).Methods(http.MethodPut)
}
