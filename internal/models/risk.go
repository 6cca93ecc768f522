package models

import (
	"time"
)

// RiskLevel - трехуровневая классификация риска
type RiskLevel string

const (
	RiskLevelGreen  RiskLevel = "Green"
	RiskLevelYellow RiskLevel = "Yellow"
	RiskLevelRed    RiskLevel = "Red"
)

// RiskSnapshot - комбинированная оценка риска местности для координаты.
// Инвариант: Overall = 0.2*Weather + 0.4*Crime + 0.4*Political, в пределах [0,1].
type RiskSnapshot struct {
	Weather   float64   `json:"weather"`
	Crime     float64   `json:"crime"`
	Political float64   `json:"political"`
	Overall   float64   `json:"overall"`
	Level     RiskLevel `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// RiskForecastEntry - один шаг прогноза риска (интервалы по 6 часов)
type RiskForecastEntry struct {
	Time time.Time `json:"time"`
	Hour int       `json:"hour"`
	RiskSnapshot
}
