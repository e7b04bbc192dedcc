// Package domain contains the core business entities and domain logic for the weather tracker.
// This package defines the fundamental types and business rules that are independent
// of external frameworks and infrastructure concerns.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Units selects the measurement system used when fetching and presenting weather.
type Units string

const (
	// Metric reports temperatures in Celsius, wind in km/h and precipitation in millimetres
	Metric Units = "metric"

	// Imperial reports temperatures in Fahrenheit, wind in mph and precipitation in inches
	Imperial Units = "imperial"
)

// ParseUnits converts a user supplied value into Units.
// Matching is case-insensitive; anything other than metric or imperial is rejected.
func ParseUnits(value string) (Units, error) {
	switch Units(strings.ToLower(strings.TrimSpace(value))) {
	case Metric:
		return Metric, nil
	case Imperial:
		return Imperial, nil
	default:
		return "", InvalidInput(fmt.Sprintf("unsupported units %q, expected metric or imperial", value), nil)
	}
}

// TemperatureUnit returns the provider parameter for temperatures.
func (u Units) TemperatureUnit() string {
	if u == Metric {
		return "celsius"
	}

	return "fahrenheit"
}

// WindSpeedUnit returns the provider parameter for wind speed.
func (u Units) WindSpeedUnit() string {
	if u == Metric {
		return "kmh"
	}

	return "mph"
}

// PrecipitationUnit returns the provider parameter for precipitation.
func (u Units) PrecipitationUnit() string {
	if u == Metric {
		return "mm"
	}

	return "inch"
}

// Coordinates represent a geographic location using latitude and longitude.
// This follows the standard geographic coordinate system used worldwide.
type Coordinates struct {
	// Latitude specifies the north-south position (-90 to 90 degrees)
	Latitude float64 `json:"latitude" bson:"latitude" validate:"gte=-90,lte=90"`

	// Longitude specifies the east-west position (-180 to 180 degrees)
	Longitude float64 `json:"longitude" bson:"longitude" validate:"gte=-180,lte=180"`
}

// Validate checks if the coordinates are within valid geographic bounds.
// Latitude must be between -90 and 90 degrees (south to north poles).
// Longitude must be between -180 and 180 degrees (international date line).
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %f", c.Latitude)
	}

	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %f", c.Longitude)
	}

	return nil
}

// CurrentConditions holds the observed conditions at fetch time.
// Every numeric field is optional; a nil value means the provider omitted it.
type CurrentConditions struct {
	Temperature         *float64 `json:"temperature,omitempty" bson:"temperature,omitempty"`
	ApparentTemperature *float64 `json:"apparentTemperature,omitempty" bson:"apparent_temperature,omitempty"`
	Humidity            *int     `json:"humidity,omitempty" bson:"humidity,omitempty"`
	Precipitation       *float64 `json:"precipitation,omitempty" bson:"precipitation,omitempty"`
	WeatherCode         *int     `json:"weatherCode,omitempty" bson:"weather_code,omitempty"`
	Description         string   `json:"description" bson:"description"`
	WindSpeed           *float64 `json:"windSpeed,omitempty" bson:"wind_speed,omitempty"`
}

// HourlyPoint is a single entry of the hourly forecast.
// Time is kept in the provider's local ISO-8601 representation.
type HourlyPoint struct {
	Time        string   `json:"time" bson:"time"`
	Temperature *float64 `json:"temperature,omitempty" bson:"temperature,omitempty"`
	WeatherCode *int     `json:"weatherCode,omitempty" bson:"weather_code,omitempty"`
	Description string   `json:"description" bson:"description"`
}

// DailyPoint is a single entry of the daily forecast.
type DailyPoint struct {
	Date           string   `json:"date" bson:"date"`
	TemperatureMax *float64 `json:"temperatureMax,omitempty" bson:"temperature_max,omitempty"`
	TemperatureMin *float64 `json:"temperatureMin,omitempty" bson:"temperature_min,omitempty"`
	WeatherCode    *int     `json:"weatherCode,omitempty" bson:"weather_code,omitempty"`
	Description    string   `json:"description" bson:"description"`
}

// WeatherSnapshot is an immutable record of one successful provider fetch for a location.
// Every sync produces a new snapshot; existing snapshots are never rewritten.
type WeatherSnapshot struct {
	// ID uniquely identifies this snapshot
	ID string `json:"id" bson:"_id"`

	// LocationID references the tracked location by id
	LocationID string `json:"locationId" bson:"location_id"`

	Current *CurrentConditions `json:"current,omitempty" bson:"current,omitempty"`
	Hourly  []HourlyPoint      `json:"hourly" bson:"hourly"`
	Daily   []DailyPoint       `json:"daily" bson:"daily"`

	// Units is the measurement system all numeric values are expressed in
	Units Units `json:"units" bson:"units"`

	// Timezone is the IANA zone reported by the provider for the coordinates
	Timezone string `json:"timezone" bson:"timezone"`

	// FetchedAt records when the provider data was retrieved
	FetchedAt time.Time `json:"fetchedAt" bson:"fetched_at"`

	ConflictDetected    bool   `json:"conflictDetected" bson:"conflict_detected"`
	ConflictDescription string `json:"conflictDescription,omitempty" bson:"conflict_description,omitempty"`
}

// CurrentTemperature returns the current temperature if the snapshot carries one.
func (s *WeatherSnapshot) CurrentTemperature() (float64, bool) {
	if s == nil || s.Current == nil || s.Current.Temperature == nil {
		return 0, false
	}

	return *s.Current.Temperature, true
}

// GeocodingResult is a candidate city returned by a provider search.
type GeocodingResult struct {
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode,omitempty"`
	Admin1      string  `json:"admin1,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone,omitempty"`
}
