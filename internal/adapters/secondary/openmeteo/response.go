package openmeteo

import (
	"math"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
)

// forecastResponse mirrors /v1/forecast. Pointers keep JSON nulls distinguishable from zero.
type forecastResponse struct {
	Timezone string        `json:"timezone"`
	Current  *currentBlock `json:"current"`
	Hourly   *hourlySeries `json:"hourly"`
	Daily    *dailySeries  `json:"daily"`
}

type currentBlock struct {
	Time                string   `json:"time"`
	Temperature         *float64 `json:"temperature_2m"`
	RelativeHumidity    *float64 `json:"relative_humidity_2m"`
	ApparentTemperature *float64 `json:"apparent_temperature"`
	Precipitation       *float64 `json:"precipitation"`
	WeatherCode         *float64 `json:"weather_code"`
	WindSpeed           *float64 `json:"wind_speed_10m"`
}

type hourlySeries struct {
	Time        []string   `json:"time"`
	Temperature []*float64 `json:"temperature_2m"`
	WeatherCode []*float64 `json:"weather_code"`
}

type dailySeries struct {
	Time           []string   `json:"time"`
	WeatherCode    []*float64 `json:"weather_code"`
	TemperatureMax []*float64 `json:"temperature_2m_max"`
	TemperatureMin []*float64 `json:"temperature_2m_min"`
}

type geocodingResponse struct {
	Results []geocodingEntry `json:"results"`
}

type geocodingEntry struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Admin1      string  `json:"admin1"`
	Timezone    string  `json:"timezone"`
}

func (r *forecastResponse) toSnapshot(units domain.Units) *domain.WeatherSnapshot {
	snapshot := &domain.WeatherSnapshot{
		Units:    units,
		Timezone: r.Timezone,
		Hourly:   []domain.HourlyPoint{},
		Daily:    []domain.DailyPoint{},
	}

	if r.Current != nil {
		code := toInt(r.Current.WeatherCode)

		snapshot.Current = &domain.CurrentConditions{
			Temperature:         r.Current.Temperature,
			ApparentTemperature: r.Current.ApparentTemperature,
			Humidity:            toInt(r.Current.RelativeHumidity),
			Precipitation:       r.Current.Precipitation,
			WeatherCode:         code,
			Description:         domain.DescribeWeatherCode(code),
			WindSpeed:           r.Current.WindSpeed,
		}
	}

	if r.Hourly != nil {
		for i, t := range r.Hourly.Time {
			code := toInt(at(r.Hourly.WeatherCode, i))

			snapshot.Hourly = append(snapshot.Hourly, domain.HourlyPoint{
				Time:        t,
				Temperature: at(r.Hourly.Temperature, i),
				WeatherCode: code,
				Description: domain.DescribeWeatherCode(code),
			})
		}
	}

	if r.Daily != nil {
		for i, d := range r.Daily.Time {
			code := toInt(at(r.Daily.WeatherCode, i))

			snapshot.Daily = append(snapshot.Daily, domain.DailyPoint{
				Date:           d,
				TemperatureMax: at(r.Daily.TemperatureMax, i),
				TemperatureMin: at(r.Daily.TemperatureMin, i),
				WeatherCode:    code,
				Description:    domain.DescribeWeatherCode(code),
			})
		}
	}

	return snapshot
}

// at reads a parallel array defensively; arrays shorter than time yield nil.
func at(values []*float64, i int) *float64 {
	if i < 0 || i >= len(values) {
		return nil
	}

	return values[i]
}

func toInt(value *float64) *int {
	if value == nil {
		return nil
	}

	n := int(math.Round(*value))

	return &n
}
