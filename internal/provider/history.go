package provider

import (
	"context"
	"hash/fnv"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
)

// SyntheticHistoryProvider - детерминированная заглушка исторических паттернов
// туриста на месте реального хранилища истории посещений
type SyntheticHistoryProvider struct{}

// NewSyntheticHistoryProvider создает заглушку исторических данных
func NewSyntheticHistoryProvider() *SyntheticHistoryProvider {
	return &SyntheticHistoryProvider{}
}

// Summary возвращает синтетическую сводку, выведенную из идентификатора туриста
func (p *SyntheticHistoryProvider) Summary(_ context.Context, touristID string) (models.HistoricalSummary, error) {
	h := fnv.New32a()
	h.Write([]byte(touristID))
	sum := h.Sum32()

	return models.HistoricalSummary{
		VisitCount:   int(sum%10) + 1,
		AvgStayTime:  1 + float64(sum%400)/100, // 1-5 часов
		AnomalyCount: int(sum % 3),
	}, nil
}
