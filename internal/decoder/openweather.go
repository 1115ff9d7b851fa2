package decoder

type openWeatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main *struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
}

// OpenWeather decodes api.openweathermap.org/data/2.5/weather responses
// requested with units=metric.
type OpenWeather struct{}

func (OpenWeather) Decode(body string) (Forecast, error) {
	var resp openWeatherResponse
	if err := unmarshal("OpenWeather", body, &resp); err != nil {
		return Forecast{}, err
	}
	if resp.Main == nil && len(resp.Weather) == 0 {
		return Forecast{}, ErrNoData
	}

	f := Forecast{Location: resp.Name}
	if len(resp.Weather) > 0 {
		f.Description = resp.Weather[0].Description
	}
	if resp.Main != nil {
		f.TempC = ptr(resp.Main.Temp)
		f.HumidityPct = ptr(resp.Main.Humidity)
	}
	return f, nil
}
