// Package decoder turns raw provider payloads into forecasts.
package decoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrNoData is returned when a payload is well-formed but carries no forecast.
var ErrNoData = errors.New("no data available")

// Forecast is the provider-independent decoded result.
type Forecast struct {
	Location    string
	Description string
	TempC       *float64
	HumidityPct *float64
}

// Decoder is the capability a source uses to interpret its payload.
type Decoder interface {
	Decode(body string) (Forecast, error)
}

// Func adapts a plain function to Decoder.
type Func func(body string) (Forecast, error)

func (f Func) Decode(body string) (Forecast, error) { return f(body) }

// DecodeError reports a payload that could not be parsed.
type DecodeError struct {
	Provider string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s response: %v", e.Provider, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func unmarshal(provider, body string, v any) error {
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return &DecodeError{Provider: provider, Err: err}
	}
	return nil
}

var registry = map[string]Decoder{
	"openweather":     OpenWeather{},
	"weatherunlocked": WeatherUnlocked{},
	"yahoo":           Yahoo{},
	"openmeteo":       OpenMeteo{},
}

// Lookup returns the built-in decoder registered under name.
func Lookup(name string) (Decoder, bool) {
	d, ok := registry[name]
	return d, ok
}

// Names lists the built-in decoder names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ptr(v float64) *float64 { return &v }
