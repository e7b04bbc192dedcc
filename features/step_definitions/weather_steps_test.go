package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/app"
	"github.com/sean-rowe/weather-tracker/internal/config"
	"github.com/sean-rowe/weather-tracker/internal/testutil"
)

type testContext struct {
	provider  *testutil.FakeOpenMeteo
	app       *app.App
	server    *httptest.Server
	status    int
	body      []byte
	locations map[string]string
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{".."},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &testContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.locations = make(map[string]string)
		return ctx, nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		tc.shutdown()
		return ctx, nil
	})

	ctx.Step(`^the weather tracker is running$`, tc.theWeatherTrackerIsRunning)
	ctx.Step(`^the weather provider is unavailable$`, tc.theWeatherProviderIsUnavailable)
	ctx.Step(`^the provider reports a temperature of ([\-\d.]+)$`, tc.theProviderReportsATemperatureOf)

	ctx.Step(`^I add the location "([^"]*)" in "([^"]*)" at ([\-\d.]+), ([\-\d.]+)$`, tc.iAddTheLocation)
	ctx.Step(`^I have added the location "([^"]*)" in "([^"]*)"$`, tc.iHaveAddedTheLocation)
	ctx.Step(`^I mark "([^"]*)" as a favorite$`, tc.iMarkAsAFavorite)
	ctx.Step(`^I list the locations$`, tc.iListTheLocations)
	ctx.Step(`^I delete "([^"]*)"$`, tc.iDelete)
	ctx.Step(`^I sync "([^"]*)"$`, tc.iSync)
	ctx.Step(`^I sync all locations$`, tc.iSyncAllLocations)
	ctx.Step(`^I set the unit preference to "([^"]*)"$`, tc.iSetTheUnitPreferenceTo)
	ctx.Step(`^I search for "([^"]*)"$`, tc.iSearchFor)

	ctx.Step(`^the response status should be (\d+)$`, tc.theResponseStatusShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, tc.theErrorCodeShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, tc.theResponseFieldShouldBeString)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, tc.theResponseFieldShouldBeBool)
	ctx.Step(`^the response field "([^"]*)" should be (\d+)$`, tc.theResponseFieldShouldBeNumber)
	ctx.Step(`^the locations should be listed as "([^"]*)"$`, tc.theLocationsShouldBeListedAs)
	ctx.Step(`^the latest temperature of "([^"]*)" should be ([\-\d.]+)$`, tc.theLatestTemperatureShouldBe)
	ctx.Step(`^"([^"]*)" should have sync status "([^"]*)"$`, tc.shouldHaveSyncStatus)
	ctx.Step(`^"([^"]*)" should have (\d+) snapshots$`, tc.shouldHaveSnapshots)
	ctx.Step(`^the weather history of "([^"]*)" should not be found$`, tc.theWeatherHistoryShouldNotBeFound)
	ctx.Step(`^the provider should have been asked for "([^"]*)"$`, tc.theProviderShouldHaveBeenAskedFor)
	ctx.Step(`^the search should return "([^"]*)"$`, tc.theSearchShouldReturn)
}

func (tc *testContext) theWeatherTrackerIsRunning() error {
	tc.provider = testutil.NewFakeOpenMeteo()

	cfg := config.Default()
	cfg.Observability.Enabled = false
	cfg.Provider.ForecastBaseURL = tc.provider.URL()
	cfg.Provider.GeocodingBaseURL = tc.provider.URL()
	cfg.Provider.RequestsPerSecond = 0
	cfg.Sync.SchedulerEnabled = false
	cfg.RateLimit.Requests = 0

	tc.app = app.NewWithConfig(cfg, zap.NewNop())
	if err := tc.app.Build(context.Background()); err != nil {
		return err
	}

	tc.server = httptest.NewServer(tc.app.Handler())

	return nil
}

func (tc *testContext) shutdown() {
	if tc.server != nil {
		tc.server.Close()
		tc.server = nil
	}

	if tc.app != nil {
		tc.app.Stop()
		tc.app = nil
	}

	if tc.provider != nil {
		tc.provider.Close()
		tc.provider = nil
	}
}

func (tc *testContext) do(method, path string, payload interface{}) error {
	var body io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, tc.server.URL+"/api/v1"+path, body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.status = resp.StatusCode
	tc.body, err = io.ReadAll(resp.Body)

	return err
}

func (tc *testContext) object() (map[string]interface{}, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(tc.body, &obj); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %s", tc.body)
	}

	return obj, nil
}

func (tc *testContext) idOf(name string) (string, error) {
	id, ok := tc.locations[name]
	if !ok {
		return "", fmt.Errorf("location %q was never added", name)
	}

	return id, nil
}

func (tc *testContext) theWeatherProviderIsUnavailable() error {
	tc.provider.SetStatus(http.StatusServiceUnavailable)
	return nil
}

func (tc *testContext) theProviderReportsATemperatureOf(temperature float64) error {
	tc.provider.SetTemperature(temperature)
	return nil
}

func (tc *testContext) iAddTheLocation(name, country string, lat, lon float64) error {
	if err := tc.do(http.MethodPost, "/locations", map[string]interface{}{
		"name":      name,
		"country":   country,
		"latitude":  lat,
		"longitude": lon,
	}); err != nil {
		return err
	}

	if tc.status == http.StatusCreated {
		obj, err := tc.object()
		if err != nil {
			return err
		}

		tc.locations[name] = obj["id"].(string)
	}

	return nil
}

func (tc *testContext) iHaveAddedTheLocation(name, country string) error {
	if err := tc.iAddTheLocation(name, country, -17.9243, 25.8572); err != nil {
		return err
	}

	return tc.theResponseStatusShouldBe(http.StatusCreated)
}

func (tc *testContext) iMarkAsAFavorite(name string) error {
	id, err := tc.idOf(name)
	if err != nil {
		return err
	}

	if err := tc.do(http.MethodPatch, "/locations/"+id, map[string]bool{"favorite": true}); err != nil {
		return err
	}

	return tc.theResponseStatusShouldBe(http.StatusOK)
}

func (tc *testContext) iListTheLocations() error {
	return tc.do(http.MethodGet, "/locations", nil)
}

func (tc *testContext) iDelete(name string) error {
	id, err := tc.idOf(name)
	if err != nil {
		return err
	}

	return tc.do(http.MethodDelete, "/locations/"+id, nil)
}

func (tc *testContext) iSync(name string) error {
	id, err := tc.idOf(name)
	if err != nil {
		return err
	}

	return tc.do(http.MethodPost, "/locations/"+id+"/sync", nil)
}

func (tc *testContext) iSyncAllLocations() error {
	return tc.do(http.MethodPost, "/sync", nil)
}

func (tc *testContext) iSetTheUnitPreferenceTo(units string) error {
	if err := tc.do(http.MethodPut, "/preferences", map[string]string{"units": units}); err != nil {
		return err
	}

	return tc.theResponseStatusShouldBe(http.StatusOK)
}

func (tc *testContext) iSearchFor(query string) error {
	return tc.do(http.MethodGet, "/cities/search?q="+url.QueryEscape(query), nil)
}

func (tc *testContext) theResponseStatusShouldBe(expected int) error {
	if tc.status != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, tc.status, tc.body)
	}

	return nil
}

func (tc *testContext) theErrorCodeShouldBe(code string) error {
	return tc.theResponseFieldShouldBeString("error", code)
}

func (tc *testContext) theResponseFieldShouldBeString(field, expected string) error {
	obj, err := tc.object()
	if err != nil {
		return err
	}

	if actual, _ := obj[field].(string); actual != expected {
		return fmt.Errorf("expected %s to be %q, got %v", field, expected, obj[field])
	}

	return nil
}

func (tc *testContext) theResponseFieldShouldBeBool(field, expected string) error {
	obj, err := tc.object()
	if err != nil {
		return err
	}

	if actual, ok := obj[field].(bool); !ok || actual != (expected == "true") {
		return fmt.Errorf("expected %s to be %s, got %v", field, expected, obj[field])
	}

	return nil
}

func (tc *testContext) theResponseFieldShouldBeNumber(field string, expected int) error {
	obj, err := tc.object()
	if err != nil {
		return err
	}

	if actual, ok := obj[field].(float64); !ok || int(actual) != expected {
		return fmt.Errorf("expected %s to be %d, got %v", field, expected, obj[field])
	}

	return nil
}

func (tc *testContext) theLocationsShouldBeListedAs(expected string) error {
	var locations []struct {
		Name string `json:"name"`
	}

	if err := json.Unmarshal(tc.body, &locations); err != nil {
		return err
	}

	names := make([]string, 0, len(locations))
	for _, l := range locations {
		names = append(names, l.Name)
	}

	if actual := strings.Join(names, ", "); actual != expected {
		return fmt.Errorf("expected %q, got %q", expected, actual)
	}

	return nil
}

func (tc *testContext) theLatestTemperatureShouldBe(name string, expected float64) error {
	id, err := tc.idOf(name)
	if err != nil {
		return err
	}

	if err := tc.do(http.MethodGet, "/locations/"+id+"/weather", nil); err != nil {
		return err
	}

	if err := tc.theResponseStatusShouldBe(http.StatusOK); err != nil {
		return err
	}

	var snapshot struct {
		Current struct {
			Temperature *float64 `json:"temperature"`
		} `json:"current"`
	}

	if err := json.Unmarshal(tc.body, &snapshot); err != nil {
		return err
	}

	if snapshot.Current.Temperature == nil || math.Abs(*snapshot.Current.Temperature-expected) > 1e-9 {
		return fmt.Errorf("expected temperature %.1f, got %v", expected, snapshot.Current.Temperature)
	}

	return nil
}

func (tc *testContext) shouldHaveSyncStatus(name, expected string) error {
	id, err := tc.idOf(name)
	if err != nil {
		return err
	}

	if err := tc.do(http.MethodGet, "/locations/"+id, nil); err != nil {
		return err
	}

	return tc.theResponseFieldShouldBeString("syncStatus", expected)
}

func (tc *testContext) shouldHaveSnapshots(name string, expected int) error {
	id, err := tc.idOf(name)
	if err != nil {
		return err
	}

	if err := tc.do(http.MethodGet, "/locations/"+id+"/weather/history", nil); err != nil {
		return err
	}

	return tc.theResponseFieldShouldBeNumber("total", expected)
}

func (tc *testContext) theWeatherHistoryShouldNotBeFound(name string) error {
	id, err := tc.idOf(name)
	if err != nil {
		return err
	}

	if err := tc.do(http.MethodGet, "/locations/"+id+"/weather/history", nil); err != nil {
		return err
	}

	return tc.theResponseStatusShouldBe(http.StatusNotFound)
}

func (tc *testContext) theProviderShouldHaveBeenAskedFor(unit string) error {
	if actual := tc.provider.LastForecastParam("temperature_unit"); actual != unit {
		return fmt.Errorf("expected temperature_unit %q, got %q", unit, actual)
	}

	return nil
}

func (tc *testContext) theSearchShouldReturn(expected string) error {
	var cities []struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	}

	if err := json.Unmarshal(tc.body, &cities); err != nil {
		return err
	}

	for _, c := range cities {
		if c.Name+", "+c.Country == expected {
			return nil
		}
	}

	return fmt.Errorf("%q not found in %s", expected, tc.body)
}
