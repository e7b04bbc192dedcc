// Package testutil provides an in-process stand-in for the Open-Meteo APIs.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

// City is a geocoding entry served by FakeOpenMeteo.
type City struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Admin1      string  `json:"admin1,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
}

// FakeOpenMeteo serves /v1/forecast and /v1/search from a single httptest server.
// The current temperature and response status can be changed between requests.
type FakeOpenMeteo struct {
	Server *httptest.Server

	mu             sync.Mutex
	temperature    float64
	status         int
	forecastCalls  int
	searchCalls    int
	lastForecastQS map[string]string
	cities         []City
}

// NewFakeOpenMeteo starts the server. Callers must Close it.
func NewFakeOpenMeteo() *FakeOpenMeteo {
	f := &FakeOpenMeteo{
		temperature: 28.5,
		status:      http.StatusOK,
		cities: []City{
			{Name: "Victoria Falls", Latitude: -17.9243, Longitude: 25.8572, Country: "Zimbabwe", CountryCode: "ZW", Admin1: "Matabeleland North", Timezone: "Africa/Harare"},
			{Name: "Harare", Latitude: -17.8277, Longitude: 31.0534, Country: "Zimbabwe", CountryCode: "ZW", Admin1: "Harare", Timezone: "Africa/Harare"},
		},
	}

	router := mux.NewRouter()
	router.HandleFunc("/v1/forecast", f.forecast).Methods(http.MethodGet)
	router.HandleFunc("/v1/search", f.search).Methods(http.MethodGet)

	f.Server = httptest.NewServer(router)

	return f
}

func (f *FakeOpenMeteo) URL() string {
	return f.Server.URL
}

func (f *FakeOpenMeteo) Close() {
	f.Server.Close()
}

// SetTemperature changes the current temperature of subsequent forecasts.
func (f *FakeOpenMeteo) SetTemperature(t float64) {
	f.mu.Lock()
	f.temperature = t
	f.mu.Unlock()
}

// SetStatus makes every endpoint answer with status; http.StatusOK restores normal responses.
func (f *FakeOpenMeteo) SetStatus(status int) {
	f.mu.Lock()
	f.status = status
	f.mu.Unlock()
}

func (f *FakeOpenMeteo) ForecastCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.forecastCalls
}

func (f *FakeOpenMeteo) SearchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.searchCalls
}

// LastForecastParam returns a query parameter of the most recent forecast request.
func (f *FakeOpenMeteo) LastForecastParam(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.lastForecastQS[name]
}

func (f *FakeOpenMeteo) forecast(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.forecastCalls++
	status := f.status
	temperature := f.temperature

	f.lastForecastQS = make(map[string]string)
	for key := range r.URL.Query() {
		f.lastForecastQS[key] = r.URL.Query().Get(key)
	}
	f.mu.Unlock()

	if status != http.StatusOK {
		http.Error(w, `{"error":true,"reason":"unavailable"}`, status)
		return
	}

	writeJSON(w, map[string]interface{}{
		"latitude":  -17.92,
		"longitude": 25.86,
		"timezone":  "Africa/Harare",
		"current": map[string]interface{}{
			"time":                 "2024-10-14T12:00",
			"temperature_2m":       temperature,
			"relative_humidity_2m": 34,
			"apparent_temperature": temperature - 1,
			"precipitation":        0.0,
			"weather_code":         2,
			"wind_speed_10m":       11.5,
		},
		"hourly": map[string]interface{}{
			"time":           []string{"2024-10-14T00:00", "2024-10-14T01:00"},
			"temperature_2m": []interface{}{21.3, nil},
			"weather_code":   []interface{}{0, 1},
		},
		"daily": map[string]interface{}{
			"time":               []string{"2024-10-14"},
			"weather_code":       []interface{}{2},
			"temperature_2m_max": []interface{}{33.1},
			"temperature_2m_min": []interface{}{17.4},
		},
	})
}

func (f *FakeOpenMeteo) search(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.searchCalls++
	status := f.status
	cities := f.cities
	f.mu.Unlock()

	if status != http.StatusOK {
		http.Error(w, `{"error":true,"reason":"unavailable"}`, status)
		return
	}

	name := strings.ToLower(r.URL.Query().Get("name"))
	matches := make([]City, 0, len(cities))

	for _, c := range cities {
		if strings.HasPrefix(strings.ToLower(c.Name), name) {
			matches = append(matches, c)
		}
	}

	if len(matches) == 0 {
		// Open-Meteo omits "results" when nothing matches
		writeJSON(w, map[string]interface{}{"generationtime_ms": 0.5})
		return
	}

	writeJSON(w, map[string]interface{}{"results": matches})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
