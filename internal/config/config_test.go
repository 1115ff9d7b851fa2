package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
schedule: "*/30 * * * *"
timeout: 10s
max_concurrency: 2
metrics_addr: ":9090"
email:
  from: "forecast@localhost.dev"
  to: "you@localhost.dev"
  resend_api_key: "re_test123"
sources:
  - name: WeatherUnlocked
    url: "http://api.weatherunlocked.com/api/current/49.19,16.60"
    decoder: weatherunlocked
  - name: OpenWeather
    url: "http://api.openweathermap.org/data/2.5/weather?q=Brno&units=metric"
    decoder: openweather
    timeout: 3s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Schedule != "*/30 * * * *" {
		t.Errorf("expected schedule '*/30 * * * *', got %q", cfg.Schedule)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %s", cfg.Timeout)
	}
	if cfg.MaxConcurrency != 2 {
		t.Errorf("expected max_concurrency 2, got %d", cfg.MaxConcurrency)
	}
	if cfg.Email == nil || cfg.Email.ResendAPIKey != "re_test123" {
		t.Errorf("expected resend api key 're_test123', got %+v", cfg.Email)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(cfg.Sources))
	}
	if cfg.Sources[1].Timeout != 3*time.Second {
		t.Errorf("expected per-source timeout 3s, got %s", cfg.Sources[1].Timeout)
	}

	sources, err := cfg.BuildSources()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sources[0].Name != "WeatherUnlocked" || sources[0].Decoder == nil {
		t.Errorf("unexpected first source %+v", sources[0])
	}
	if sources[1].Endpoint != "http://api.openweathermap.org/data/2.5/weather?q=Brno&units=metric" {
		t.Errorf("unexpected endpoint %q", sources[1].Endpoint)
	}
}

func TestLoadWithoutOptionalSections(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: Yahoo
    url: "https://query.yahooapis.com/v1/public/yql"
    decoder: yahoo
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Email != nil {
		t.Errorf("expected no email config, got %+v", cfg.Email)
	}
	if cfg.Timeout != 0 {
		t.Errorf("expected no default timeout, got %s", cfg.Timeout)
	}
}

func TestLoadEnvExpansion(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: OpenWeather
    url: "http://api.openweathermap.org/data/2.5/weather?q=${FORECAST_TEST_CITY:-Brno}&APPID=${TEST_FORECAST_KEY}"
    decoder: openweather
`)
	t.Setenv("TEST_FORECAST_KEY", "secret-123")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "http://api.openweathermap.org/data/2.5/weather?q=Brno&APPID=secret-123"
	if cfg.Sources[0].URL != want {
		t.Errorf("expected url %q, got %q", want, cfg.Sources[0].URL)
	}
}

func TestLoadRejectsUnresolvedPlaceholders(t *testing.T) {
	path := writeConfig(t, `
email:
  from: "forecast@localhost.dev"
  to: "you@localhost.dev"
  resend_api_key: "${FORECAST_TEST_UNSET_RESEND_KEY}"
sources:
  - name: OpenWeather
    url: "http://api.openweathermap.org/data/2.5/weather?q=Brno&APPID=${FORECAST_TEST_UNSET_KEY}"
    decoder: openweather
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for unset variables")
	}
	for _, field := range []string{"Config.Email.ResendAPIKey", "Config.Sources[0].URL"} {
		if !strings.Contains(err.Error(), field+": unresolved") {
			t.Errorf("expected %s to be reported, got %v", field, err)
		}
	}
}

func TestLoadRejectsUnknownDecoder(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: Accu
    url: "http://dataservice.accuweather.com/currentconditions/v1/1234"
    decoder: accuweather
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), `unknown decoder "accuweather"`) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadRejectsDuplicateNames(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: OpenWeather
    url: "http://api.openweathermap.org/a"
    decoder: openweather
  - name: OpenWeather
    url: "http://api.openweathermap.org/b"
    decoder: openweather
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "must be unique") {
		t.Errorf("expected uniqueness error, got %v", err)
	}
}

func TestLoadRejectsBadSchedule(t *testing.T) {
	path := writeConfig(t, `
schedule: "every morning"
sources: []
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "invalid cron expression") {
		t.Errorf("expected cron error, got %v", err)
	}
}

func TestLoadRejectsIncompleteEmail(t *testing.T) {
	path := writeConfig(t, `
email:
  from: "not-an-address"
sources: []
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for incomplete email section")
	}
}

func TestIncrementEdition(t *testing.T) {
	path := writeConfig(t, `schedule: "0 7 * * *"
edition: 4
email:
  from: "forecast@localhost.dev"
  to: "you@localhost.dev"
  resend_api_key: "${RESEND_API_KEY}"
sources: []
`)

	if err := IncrementEdition(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "edition: 5") {
		t.Errorf("expected edition 5, got:\n%s", data)
	}
	if !strings.Contains(string(data), "${RESEND_API_KEY}") {
		t.Errorf("expected placeholder to survive, got:\n%s", data)
	}
}

func TestIncrementEditionAddsField(t *testing.T) {
	path := writeConfig(t, "sources: []\n")

	if err := IncrementEdition(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Edition != 1 {
		t.Errorf("expected edition 1, got %d", cfg.Edition)
	}
}
