package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/pkg/geo"
	"github.com/sirupsen/logrus"
)

// Веса компонент комбинированного риска: криминальный и политический весомее погодного
const (
	riskWeightWeather   = 0.2
	riskWeightCrime     = 0.4
	riskWeightPolitical = 0.4
)

// TTL кешей по измерениям риска
const (
	weatherCacheTTL   = 30 * time.Minute
	crimeCacheTTL     = 60 * time.Minute
	politicalCacheTTL = 2 * time.Hour
)

// RiskProvider определяет контракт провайдера риска по координате
type RiskProvider interface {
	Risk(ctx context.Context, lat, lon float64) (float64, error)
}

type riskCacheEntry struct {
	risk      float64
	timestamp time.Time
}

// riskCache - потокобезопасный TTL-кеш одного измерения риска
type riskCache struct {
	mu      sync.RWMutex
	entries map[string]riskCacheEntry
	ttl     time.Duration
}

func newRiskCache(ttl time.Duration) *riskCache {
	return &riskCache{
		entries: make(map[string]riskCacheEntry),
		ttl:     ttl,
	}
}

func (c *riskCache) get(key string, now time.Time) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || now.Sub(entry.timestamp) >= c.ttl {
		return 0, false
	}
	return entry.risk, true
}

func (c *riskCache) set(key string, risk float64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = riskCacheEntry{risk: risk, timestamp: now}
}

// RiskService - оракул риска местности: комбинирует погодный, криминальный и
// политический риск для координаты с независимыми TTL-кешами по измерениям.
// Сбой любого провайдера деградирует до консервативного снимка по умолчанию -
// оракул никогда не блокирует конвейер.
type RiskService struct {
	weather   RiskProvider
	crime     RiskProvider
	political RiskProvider
	logger    *logrus.Logger

	weatherCache   *riskCache
	crimeCache     *riskCache
	politicalCache *riskCache

	now func() time.Time
}

// NewRiskService создает оракул риска
func NewRiskService(weather, crime, political RiskProvider, logger *logrus.Logger) *RiskService {
	return &RiskService{
		weather:        weather,
		crime:          crime,
		political:      political,
		logger:         logger,
		weatherCache:   newRiskCache(weatherCacheTTL),
		crimeCache:     newRiskCache(crimeCacheTTL),
		politicalCache: newRiskCache(politicalCacheTTL),
		now:            time.Now,
	}
}

// Assess возвращает комбинированный снимок риска для координаты
func (s *RiskService) Assess(ctx context.Context, lat, lon float64) (*models.RiskSnapshot, error) {
	if err := geo.ValidateCoordinate(lat, lon); err != nil {
		return nil, fmt.Errorf("risk assessment: %w", err)
	}

	type dimension struct {
		provider RiskProvider
		cache    *riskCache
		name     string
	}
	dims := []dimension{
		{s.weather, s.weatherCache, "weather"},
		{s.crime, s.crimeCache, "crime"},
		{s.political, s.politicalCache, "political"},
	}

	key := fmt.Sprintf("%.2f,%.2f", lat, lon)
	now := s.now()

	risks := make([]float64, len(dims))
	errs := make([]error, len(dims))

	var wg sync.WaitGroup
	for i, d := range dims {
		if cached, ok := d.cache.get(key, now); ok {
			risks[i] = cached
			continue
		}
		wg.Add(1)
		go func(i int, d dimension) {
			defer wg.Done()
			risk, err := d.provider.Risk(ctx, lat, lon)
			if err != nil {
				errs[i] = err
				return
			}
			d.cache.set(key, risk, now)
			risks[i] = risk
		}(i, d)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			s.logger.WithError(err).WithField("dimension", dims[i].name).
				Warn("Risk provider failed, using default snapshot")
			return s.defaultSnapshot(), nil
		}
	}

	weather, crime, political := risks[0], risks[1], risks[2]
	overall := weather*riskWeightWeather + crime*riskWeightCrime + political*riskWeightPolitical

	return &models.RiskSnapshot{
		Weather:   weather,
		Crime:     crime,
		Political: political,
		Overall:   overall,
		Level:     classifyOverallRisk(overall),
		Timestamp: now,
	}, nil
}

// Forecast возвращает прогноз риска с шагом 6 часов до горизонта horizonHours.
// Множитель времени суток применяется только к погодному и криминальному риску;
// политический риск от времени суток не зависит.
func (s *RiskService) Forecast(ctx context.Context, lat, lon float64, horizonHours int) ([]models.RiskForecastEntry, error) {
	base, err := s.Assess(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	now := s.now()
	forecast := make([]models.RiskForecastEntry, 0, horizonHours/6+1)

	for i := 0; i < horizonHours; i += 6 {
		futureTime := now.Add(time.Duration(i) * time.Hour)
		mult := timeOfDayMultiplier(futureTime.Hour())

		weather := math.Min(base.Weather*mult, 1.0)
		crime := math.Min(base.Crime*mult, 1.0)
		overall := weather*riskWeightWeather + crime*riskWeightCrime + base.Political*riskWeightPolitical

		forecast = append(forecast, models.RiskForecastEntry{
			Time: futureTime,
			Hour: futureTime.Hour(),
			RiskSnapshot: models.RiskSnapshot{
				Weather:   weather,
				Crime:     crime,
				Political: base.Political,
				Overall:   overall,
				Level:     classifyOverallRisk(overall),
				Timestamp: futureTime,
			},
		})
	}

	return forecast, nil
}

// defaultSnapshot - консервативный снимок при недоступности провайдеров
func (s *RiskService) defaultSnapshot() *models.RiskSnapshot {
	return &models.RiskSnapshot{
		Weather:   0.2,
		Crime:     0.3,
		Political: 0.1,
		Overall:   0.2,
		Level:     models.RiskLevelGreen,
		Timestamp: s.now(),
	}
}

// classifyOverallRisk - пороги оракула: >=0.7 Red, >=0.4 Yellow, иначе Green.
// Отличаются от порогов скорера аномалий (0.5/0.8).
func classifyOverallRisk(overall float64) models.RiskLevel {
	switch {
	case overall >= 0.7:
		return models.RiskLevelRed
	case overall >= 0.4:
		return models.RiskLevelYellow
	default:
		return models.RiskLevelGreen
	}
}

// timeOfDayMultiplier - множитель риска по часу суток: ночь x1.3, день 14-18 x1.2
func timeOfDayMultiplier(hour int) float64 {
	switch {
	case hour >= 22 || hour <= 6:
		return 1.3
	case hour >= 14 && hour <= 18:
		return 1.2
	default:
		return 1.0
	}
}
