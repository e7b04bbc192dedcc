package rest

import (
	"time"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
)

// LocationResponse is the JSON shape of a tracked location.
type LocationResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Country     string     `json:"country"`
	CountryCode string     `json:"countryCode,omitempty"`
	Admin1      string     `json:"admin1,omitempty"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Favorite    bool       `json:"favorite"`
	SyncStatus  string     `json:"syncStatus"`
	LastSyncAt  *time.Time `json:"lastSyncAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// UnitsResponse names the unit of each measured quantity in a snapshot.
type UnitsResponse struct {
	System        string `json:"system"`
	Temperature   string `json:"temperature"`
	WindSpeed     string `json:"windSpeed"`
	Precipitation string `json:"precipitation"`
}

type CurrentResponse struct {
	Temperature         *float64 `json:"temperature"`
	ApparentTemperature *float64 `json:"apparentTemperature"`
	Humidity            *int     `json:"humidity"`
	Precipitation       *float64 `json:"precipitation"`
	WindSpeed           *float64 `json:"windSpeed"`
	WeatherCode         *int     `json:"weatherCode"`
	Description         string   `json:"description"`
}

type HourlyResponse struct {
	Time        string   `json:"time"`
	Temperature *float64 `json:"temperature"`
	WeatherCode *int     `json:"weatherCode"`
	Description string   `json:"description"`
}

type DailyResponse struct {
	Date           string   `json:"date"`
	TemperatureMax *float64 `json:"temperatureMax"`
	TemperatureMin *float64 `json:"temperatureMin"`
	WeatherCode    *int     `json:"weatherCode"`
	Description    string   `json:"description"`
}

// SnapshotResponse carries every stored value of a snapshot unchanged.
type SnapshotResponse struct {
	ID                  string           `json:"id"`
	LocationID          string           `json:"locationId"`
	FetchedAt           time.Time        `json:"fetchedAt"`
	Timezone            string           `json:"timezone,omitempty"`
	Units               UnitsResponse    `json:"units"`
	Current             *CurrentResponse `json:"current"`
	Hourly              []HourlyResponse `json:"hourly"`
	Daily               []DailyResponse  `json:"daily"`
	ConflictDetected    bool             `json:"conflictDetected"`
	ConflictDescription string           `json:"conflictDescription,omitempty"`
}

type HistoryResponse struct {
	Items []SnapshotResponse `json:"items"`
	Page  int                `json:"page"`
	Size  int                `json:"size"`
	Total int                `json:"total"`
}

type SyncResultResponse struct {
	LocationID          string    `json:"locationId"`
	LocationName        string    `json:"locationName"`
	Success             bool      `json:"success"`
	Message             string    `json:"message"`
	SyncedAt            time.Time `json:"syncedAt"`
	SnapshotID          string    `json:"snapshotId,omitempty"`
	ConflictDetected    bool      `json:"conflictDetected"`
	ConflictDescription string    `json:"conflictDescription,omitempty"`
	ErrorKind           string    `json:"errorKind,omitempty"`
	ErrorCode           string    `json:"errorCode,omitempty"`
}

type SyncBatchResponse struct {
	Total     int                  `json:"total"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Conflicts int                  `json:"conflicts"`
	Results   []SyncResultResponse `json:"results"`
}

type CityResponse struct {
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode,omitempty"`
	Admin1      string  `json:"admin1,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone,omitempty"`
}

type PreferencesResponse struct {
	Units UnitsResponse `json:"units"`
}

type UpdatePreferencesRequest struct {
	Units string `json:"units"`
}

func toLocationResponse(l domain.TrackedLocation) LocationResponse {
	return LocationResponse{
		ID:          l.ID,
		Name:        l.Name,
		Country:     l.Country,
		CountryCode: l.CountryCode,
		Admin1:      l.Admin1,
		Latitude:    l.Coordinates.Latitude,
		Longitude:   l.Coordinates.Longitude,
		Favorite:    l.Favorite,
		SyncStatus:  string(l.SyncStatus),
		LastSyncAt:  l.LastSyncAt,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func toUnitsResponse(u domain.Units) UnitsResponse {
	return UnitsResponse{
		System:        string(u),
		Temperature:   u.TemperatureUnit(),
		WindSpeed:     u.WindSpeedUnit(),
		Precipitation: u.PrecipitationUnit(),
	}
}

func toSnapshotResponse(s domain.WeatherSnapshot) SnapshotResponse {
	response := SnapshotResponse{
		ID:                  s.ID,
		LocationID:          s.LocationID,
		FetchedAt:           s.FetchedAt,
		Timezone:            s.Timezone,
		Units:               toUnitsResponse(s.Units),
		Hourly:              make([]HourlyResponse, 0, len(s.Hourly)),
		Daily:               make([]DailyResponse, 0, len(s.Daily)),
		ConflictDetected:    s.ConflictDetected,
		ConflictDescription: s.ConflictDescription,
	}

	if c := s.Current; c != nil {
		response.Current = &CurrentResponse{
			Temperature:         c.Temperature,
			ApparentTemperature: c.ApparentTemperature,
			Humidity:            c.Humidity,
			Precipitation:       c.Precipitation,
			WindSpeed:           c.WindSpeed,
			WeatherCode:         c.WeatherCode,
			Description:         c.Description,
		}
	}

	for _, h := range s.Hourly {
		response.Hourly = append(response.Hourly, HourlyResponse{
			Time:        h.Time,
			Temperature: h.Temperature,
			WeatherCode: h.WeatherCode,
			Description: h.Description,
		})
	}

	for _, d := range s.Daily {
		response.Daily = append(response.Daily, DailyResponse{
			Date:           d.Date,
			TemperatureMax: d.TemperatureMax,
			TemperatureMin: d.TemperatureMin,
			WeatherCode:    d.WeatherCode,
			Description:    d.Description,
		})
	}

	return response
}

func toSyncResultResponse(r domain.SyncResult) SyncResultResponse {
	return SyncResultResponse{
		LocationID:          r.LocationID,
		LocationName:        r.LocationName,
		Success:             r.Success,
		Message:             r.Message,
		SyncedAt:            r.SyncedAt,
		SnapshotID:          r.SnapshotID,
		ConflictDetected:    r.ConflictDetected,
		ConflictDescription: r.ConflictDescription,
		ErrorKind:           string(r.ErrorKind),
		ErrorCode:           r.ErrorCode,
	}
}

func toSyncBatchResponse(results []domain.SyncResult) SyncBatchResponse {
	response := SyncBatchResponse{
		Total:   len(results),
		Results: make([]SyncResultResponse, 0, len(results)),
	}

	for _, r := range results {
		if r.Success {
			response.Succeeded++
		} else {
			response.Failed++
		}

		if r.ConflictDetected {
			response.Conflicts++
		}

		response.Results = append(response.Results, toSyncResultResponse(r))
	}

	return response
}

func toCityResponse(g domain.GeocodingResult) CityResponse {
	return CityResponse{
		Name:        g.Name,
		Country:     g.Country,
		CountryCode: g.CountryCode,
		Admin1:      g.Admin1,
		Latitude:    g.Latitude,
		Longitude:   g.Longitude,
		Timezone:    g.Timezone,
	}
}
