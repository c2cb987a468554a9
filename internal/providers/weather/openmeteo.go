// Package weather reads current conditions from Open-Meteo.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/pkg/retry"
)

const (
	cacheTTL = 10 * time.Minute

	minNormalTemp = -5.0
	maxNormalTemp = 32.0
)

var _ core.WeatherProvider = (*OpenMeteo)(nil)

type OpenMeteo struct {
	cfg     config.WeatherConfig
	client  *http.Client
	retrier *retry.Retrier
	now     func() time.Time

	mu       sync.Mutex
	cached   *core.Weather
	cachedAt time.Time
}

func NewOpenMeteo(cfg config.WeatherConfig) *OpenMeteo {
	return &OpenMeteo{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		retrier: retry.NewRetrier(&retry.Config{
			MaxRetries:    2,
			BackoffFactor: 2,
			InitialDelay:  300 * time.Millisecond,
			MaxDelay:      3 * time.Second,
			Jitter:        50 * time.Millisecond,
		}),
		now: time.Now,
	}
}

type forecastResponse struct {
	Current struct {
		Temperature   float64 `json:"temperature_2m"`
		Precipitation float64 `json:"precipitation"`
		WeatherCode   int     `json:"weather_code"`
	} `json:"current"`
}

// Current returns the conditions at the configured coordinates. Answers are
// cached for ten minutes.
func (o *OpenMeteo) Current(ctx context.Context) (*core.Weather, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cached != nil && o.now().Sub(o.cachedAt) < cacheTTL {
		w := *o.cached
		return &w, nil
	}

	var resp forecastResponse
	if err := o.retrier.Do(ctx, func() error { return o.fetch(ctx, &resp) }); err != nil {
		return nil, fmt.Errorf("open-meteo: %w", err)
	}

	w := &core.Weather{
		Condition:     Condition(resp.Current.WeatherCode),
		TemperatureC:  resp.Current.Temperature,
		Precipitation: resp.Current.Precipitation,
	}
	w.Anomalous = Anomalous(resp.Current.WeatherCode, resp.Current.Temperature)

	o.cached = w
	o.cachedAt = o.now()
	cp := *w
	return &cp, nil
}

func (o *OpenMeteo) fetch(ctx context.Context, out *forecastResponse) error {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(o.cfg.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(o.cfg.Longitude, 'f', 4, 64))
	q.Set("current", "temperature_2m,precipitation,weather_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.BaseURL+"/v1/forecast?"+q.Encode(), nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", core.UserAgent)

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
		if resp.StatusCode < http.StatusInternalServerError {
			return retry.Permanent(err)
		}
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return retry.Permanent(fmt.Errorf("decode: %w", err))
	}
	return nil
}

// Anomalous reports weather worth mentioning: rain, snow, storms or
// temperatures outside the comfortable range.
func Anomalous(code int, tempC float64) bool {
	if tempC < minNormalTemp || tempC > maxNormalTemp {
		return true
	}
	switch {
	case code == 56 || code == 57: // freezing drizzle
		return true
	case code >= 61:
		return true
	}
	return false
}

// Condition names a WMO weather code.
func Condition(code int) string {
	switch {
	case code == 0:
		return "clear"
	case code <= 3:
		return "cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "showers"
	case code == 85 || code == 86:
		return "snow showers"
	case code >= 95:
		return "thunderstorm"
	}
	return "unknown"
}
