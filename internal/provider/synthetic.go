package provider

import (
	"context"
	"math"
	"time"
)

// Синтетические модели криминального и политического риска. Заглушки на месте
// реальных источников данных: детерминированы по координате и времени суток,
// интерфейс (lat, lon) -> риск совпадает с будущим реальным провайдером.

// SyntheticCrimeProvider - синтетический провайдер криминального риска
type SyntheticCrimeProvider struct {
	now func() time.Time
}

// NewSyntheticCrimeProvider создает синтетический провайдер криминального риска
func NewSyntheticCrimeProvider() *SyntheticCrimeProvider {
	return &SyntheticCrimeProvider{now: time.Now}
}

// Risk возвращает криминальный риск [0,1]: городская плотность + ночной фактор
func (p *SyntheticCrimeProvider) Risk(_ context.Context, lat, lon float64) (float64, error) {
	hour := p.now().Hour()
	isNight := hour < 6 || hour > 22

	urbanFactor := math.Abs(math.Sin(lat*2)*math.Cos(lon*2)) * 0.4
	timeFactor := 0.1
	if isNight {
		timeFactor = 0.3
	}

	return math.Min(urbanFactor+timeFactor, 1.0), nil
}

// SyntheticPoliticalProvider - синтетический провайдер политического риска
type SyntheticPoliticalProvider struct{}

// NewSyntheticPoliticalProvider создает синтетический провайдер политического риска
func NewSyntheticPoliticalProvider() *SyntheticPoliticalProvider {
	return &SyntheticPoliticalProvider{}
}

// Risk возвращает политический риск [0,1]: региональная составляющая плюс
// детерминированная поправка от координаты (вместо случайных "событий")
func (p *SyntheticPoliticalProvider) Risk(_ context.Context, lat, lon float64) (float64, error) {
	regionRisk := math.Abs(math.Sin(lat*0.5)) * 0.3
	localEvents := math.Abs(math.Sin(lat*7.31+lon*3.17)) * 0.2

	return math.Min(regionRisk+localEvents, 1.0), nil
}
