package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HolidayLookup resolves the public holidays of a calendar year.
type HolidayLookup interface {
	Holidays(ctx context.Context, year int) ([]time.Time, error)
}

const nagerBaseURL = "https://date.nager.at"

// NagerClient fetches public holidays from the Nager.Date API for one
// configured country.
type NagerClient struct {
	BaseURL string
	Country string
	HTTP    *http.Client
}

func NewNagerClient(country string) *NagerClient {
	return &NagerClient{
		BaseURL: nagerBaseURL,
		Country: country,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *NagerClient) Holidays(ctx context.Context, year int) ([]time.Time, error) {
	url := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", c.BaseURL, year, c.Country)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("holiday lookup for %d returned status %d", year, resp.StatusCode)
	}

	var payload []struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	days := make([]time.Time, 0, len(payload))
	for _, h := range payload {
		d, err := time.Parse("2006-01-02", h.Date)
		if err != nil {
			return nil, fmt.Errorf("holiday lookup for %d: bad date %q: %w", year, h.Date, err)
		}
		days = append(days, d)
	}
	return days, nil
}
