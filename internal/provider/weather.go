package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const openWeatherBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// openWeatherResponse - ответ OpenWeather current weather API (только нужные поля)
type openWeatherResponse struct {
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility float64 `json:"visibility"`
}

// OpenWeatherProvider - провайдер погодного риска через OpenWeather API.
// Без API-ключа или при сбое запроса деградирует до симулированной оценки.
type OpenWeatherProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
	now        func() time.Time
}

// NewOpenWeatherProvider создает провайдер погодного риска
func NewOpenWeatherProvider(apiKey string, timeout time.Duration, logger *logrus.Logger) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		apiKey:  apiKey,
		baseURL: openWeatherBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Risk возвращает погодный риск [0,1] для координаты
func (p *OpenWeatherProvider) Risk(ctx context.Context, lat, lon float64) (float64, error) {
	if p.apiKey == "" {
		return p.simulatedRisk(lat, lon), nil
	}

	reqURL := fmt.Sprintf("%s?lat=%s&lon=%s&appid=%s",
		p.baseURL,
		url.QueryEscape(fmt.Sprintf("%f", lat)),
		url.QueryEscape(fmt.Sprintf("%f", lon)),
		url.QueryEscape(p.apiKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return p.simulatedRisk(lat, lon), nil
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.WithError(err).Warn("Weather API request failed, falling back to simulated risk")
		return p.simulatedRisk(lat, lon), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Warnf("Weather API returned status %d, falling back to simulated risk", resp.StatusCode)
		return p.simulatedRisk(lat, lon), nil
	}

	var data openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		p.logger.WithError(err).Warn("Failed to decode weather API response, falling back to simulated risk")
		return p.simulatedRisk(lat, lon), nil
	}

	return riskFromWeather(&data), nil
}

// riskFromWeather вычисляет погодный риск из данных API (аддитивно, с ограничением 1.0)
func riskFromWeather(data *openWeatherResponse) float64 {
	risk := 0.0

	if len(data.Weather) > 0 {
		switch data.Weather[0].Main {
		case "Thunderstorm", "Tornado":
			risk += 0.8
		case "Rain", "Snow", "Fog":
			risk += 0.4
		case "Clouds":
			risk += 0.1
		}
	}

	switch {
	case data.Wind.Speed > 15:
		risk += 0.3
	case data.Wind.Speed > 10:
		risk += 0.1
	}

	visibility := data.Visibility
	if visibility == 0 {
		visibility = 10000
	}
	switch {
	case visibility < 1000:
		risk += 0.4
	case visibility < 5000:
		risk += 0.2
	}

	// Температура приходит в кельвинах
	celsius := data.Main.Temp - 273.15
	if data.Main.Temp == 0 {
		celsius = 0
	}
	switch {
	case celsius > 40 || celsius < -10:
		risk += 0.3
	case celsius > 35 || celsius < 0:
		risk += 0.1
	}

	return math.Min(risk, 1.0)
}

// simulatedRisk - симулированный погодный риск по координате и времени суток
func (p *OpenWeatherProvider) simulatedRisk(lat, _ float64) float64 {
	hour := p.now().Hour()
	baseRisk := math.Sin(lat*0.1)*0.3 + 0.2
	timeMultiplier := 1.0
	if hour >= 14 && hour <= 18 {
		// Послеполуденные грозы
		timeMultiplier = 1.5
	}
	return math.Min(math.Max(baseRisk*timeMultiplier, 0), 1.0)
}
