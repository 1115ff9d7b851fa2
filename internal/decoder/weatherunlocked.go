package decoder

type weatherUnlockedResponse struct {
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	WxDesc   string   `json:"wx_desc"`
	WxCode   int      `json:"wx_code"`
	TempC    *float64 `json:"temp_c"`
	HumidPct *float64 `json:"humid_pct"`
}

// WeatherUnlocked decodes api.weatherunlocked.com/api/current responses.
type WeatherUnlocked struct{}

func (WeatherUnlocked) Decode(body string) (Forecast, error) {
	var resp weatherUnlockedResponse
	if err := unmarshal("WeatherUnlocked", body, &resp); err != nil {
		return Forecast{}, err
	}
	if resp.WxDesc == "" && resp.TempC == nil && resp.HumidPct == nil {
		return Forecast{}, ErrNoData
	}
	return Forecast{
		Description: resp.WxDesc,
		TempC:       resp.TempC,
		HumidityPct: resp.HumidPct,
	}, nil
}
