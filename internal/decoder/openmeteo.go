package decoder

type openMeteoResponse struct {
	Current *struct {
		Temperature *float64 `json:"temperature_2m"`
		Humidity    *float64 `json:"relative_humidity_2m"`
		WeatherCode *int     `json:"weather_code"`
	} `json:"current"`
	Hourly struct {
		Time        []string  `json:"time"`
		Temperature []float64 `json:"temperature_2m"`
		Humidity    []float64 `json:"relative_humidity_2m"`
		WeatherCode []int     `json:"weather_code"`
	} `json:"hourly"`
}

// OpenMeteo decodes api.open-meteo.com/v1/forecast responses. The current
// block is preferred; without it the midday hourly sample is used.
type OpenMeteo struct{}

func (OpenMeteo) Decode(body string) (Forecast, error) {
	var resp openMeteoResponse
	if err := unmarshal("Open-Meteo", body, &resp); err != nil {
		return Forecast{}, err
	}

	if c := resp.Current; c != nil && (c.Temperature != nil || c.WeatherCode != nil) {
		f := Forecast{TempC: c.Temperature, HumidityPct: c.Humidity}
		if c.WeatherCode != nil {
			f.Description = weatherDescription(*c.WeatherCode)
		}
		return f, nil
	}

	if len(resp.Hourly.Temperature) == 0 && len(resp.Hourly.WeatherCode) == 0 {
		return Forecast{}, ErrNoData
	}

	// hourly data starts at 00:00, index 12 = 12:00
	middayIdx := 12
	for i, t := range resp.Hourly.Time {
		if len(t) >= 13 && t[11:13] == "12" {
			middayIdx = i
			break
		}
	}

	var f Forecast
	if middayIdx < len(resp.Hourly.Temperature) {
		f.TempC = ptr(resp.Hourly.Temperature[middayIdx])
	}
	if middayIdx < len(resp.Hourly.Humidity) {
		f.HumidityPct = ptr(resp.Hourly.Humidity[middayIdx])
	}
	if middayIdx < len(resp.Hourly.WeatherCode) {
		f.Description = weatherDescription(resp.Hourly.WeatherCode[middayIdx])
	}
	return f, nil
}

// weatherDescription maps WMO weather interpretation codes.
func weatherDescription(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code <= 3:
		return "Partly cloudy"
	case code <= 48:
		return "Foggy"
	case code <= 57:
		return "Drizzle"
	case code <= 67:
		return "Rain"
	case code <= 77:
		return "Snow"
	case code <= 82:
		return "Rain showers"
	case code <= 86:
		return "Snow showers"
	case code <= 99:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}
