package decoder

type yahooResponse struct {
	Query *struct {
		Count   int `json:"count"`
		Results *struct {
			Channel *struct {
				Item *struct {
					Condition *struct {
						Text string `json:"text"`
					} `json:"condition"`
				} `json:"item"`
			} `json:"channel"`
		} `json:"results"`
	} `json:"query"`
}

// Yahoo decodes YQL weather.forecast responses selecting item.condition.text.
// A query without results is reported as ErrNoData.
type Yahoo struct{}

func (Yahoo) Decode(body string) (Forecast, error) {
	var resp yahooResponse
	if err := unmarshal("Yahoo", body, &resp); err != nil {
		return Forecast{}, err
	}
	q := resp.Query
	if q == nil || q.Results == nil || q.Results.Channel == nil ||
		q.Results.Channel.Item == nil || q.Results.Channel.Item.Condition == nil {
		return Forecast{}, ErrNoData
	}
	return Forecast{Description: q.Results.Channel.Item.Condition.Text}, nil
}
