package models

import (
	"time"
)

// Источник оценки аномалии
const (
	AnomalySourceModel         = "model"
	AnomalySourceLocalFallback = "local-fallback"
)

// AnomalyResult - результат оценки аномальности поведения туриста
type AnomalyResult struct {
	Score     float64   `json:"score"`
	RiskLevel RiskLevel `json:"risk_level"`
	Factors   []string  `json:"factors"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// GroupContext - контекст пространственной группы туриста в текущем батче
type GroupContext struct {
	Size       int      `json:"size"`
	Separation float64  `json:"separation"`
	Anomalies  int      `json:"anomalies"`
	Members    []string `json:"members,omitempty"`
}

// HistoricalSummary - сводка исторических паттернов туриста.
// Источник данных внешний; допускается синтетическая заглушка.
type HistoricalSummary struct {
	VisitCount   int     `json:"visit_count"`
	AvgStayTime  float64 `json:"avg_stay_time"`
	AnomalyCount int     `json:"anomaly_count"`
}
