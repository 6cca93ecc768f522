package service

import (
	"fmt"
	"math"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/pkg/geo"
)

// Размер пространственной ячейки в градусах (~1 км)
const areaCellSize = 0.01

// Минимальный размер группы для анализа групповых паттернов (защита от шума)
const minGroupPatternSize = 3

// Порог аномальности отдельного участника при подсчете аномалий группы
const memberAnomalyThreshold = 0.5

// GroupPattern - результат анализа групповых паттернов одной ячейки
type GroupPattern struct {
	Anomalous bool
	AvgSpeed  float64
	GroupSize int
	Factors   []string
}

// CorrelationService группирует одновременно наблюдаемых туристов по
// пространственным ячейкам и выявляет групповые аномалии. Состояние живет
// только в рамках одного батча.
type CorrelationService struct{}

// NewCorrelationService создает коррелятор
func NewCorrelationService() *CorrelationService {
	return &CorrelationService{}
}

// CellKey возвращает ключ пространственной ячейки для координаты
func CellKey(lat, lon float64) string {
	return fmt.Sprintf("%d_%d", int(math.Floor(lat/areaCellSize)), int(math.Floor(lon/areaCellSize)))
}

// GroupByCell раскладывает туристов батча по пространственным ячейкам.
// Туристы без координат не участвуют в группировке.
func (s *CorrelationService) GroupByCell(tourists []*models.Tourist) map[string][]*models.Tourist {
	groups := make(map[string][]*models.Tourist)
	for _, t := range tourists {
		if !t.HasLocation() {
			continue
		}
		key := CellKey(t.Location.Latitude, t.Location.Longitude)
		groups[key] = append(groups[key], t)
	}
	return groups
}

// Separation возвращает нормализованную меру разброса группы [0,1]:
// максимальная попарная дистанция в км, деленная на 2 и ограниченная 1.
// Для групп из менее чем двух участников с координатами возвращает 0.
func (s *CorrelationService) Separation(members []*models.Tourist) float64 {
	maxDistance := 0.0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			if !members[i].HasLocation() || !members[j].HasLocation() {
				continue
			}
			d := geo.Distance(
				members[i].Location.Latitude, members[i].Location.Longitude,
				members[j].Location.Latitude, members[j].Location.Longitude,
			)
			maxDistance = math.Max(maxDistance, d)
		}
	}
	return math.Min(maxDistance/2, 1.0)
}

// GroupContextFor возвращает групповой контекст туриста в текущем батче
func (s *CorrelationService) GroupContextFor(t *models.Tourist, groups map[string][]*models.Tourist) models.GroupContext {
	if !t.HasLocation() {
		return models.GroupContext{Size: 1}
	}

	members, ok := groups[CellKey(t.Location.Latitude, t.Location.Longitude)]
	if !ok {
		return models.GroupContext{Size: 1}
	}

	anomalies := 0
	memberIDs := make([]string, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, m.ID)
		if m.AnomalyScore > memberAnomalyThreshold {
			anomalies++
		}
	}

	return models.GroupContext{
		Size:       len(members),
		Separation: s.Separation(members),
		Anomalies:  anomalies,
		Members:    memberIDs,
	}
}

// DetectGroupAnomaly анализирует коллективное поведение ячейки. Группы из менее
// чем трех участников не анализируются.
func (s *CorrelationService) DetectGroupAnomaly(members []*models.Tourist) GroupPattern {
	if len(members) < minGroupPatternSize {
		return GroupPattern{GroupSize: len(members)}
	}

	totalSpeed := 0.0
	redCount := 0
	yellowCount := 0
	for _, m := range members {
		totalSpeed += m.Speed
		switch m.RiskLevel {
		case models.RiskLevelRed:
			redCount++
		case models.RiskLevelYellow:
			yellowCount++
		}
	}
	avgSpeed := totalSpeed / float64(len(members))

	n := float64(len(members))
	anomalous := avgSpeed > 60 ||
		float64(redCount) > n*0.5 ||
		float64(redCount+yellowCount) > n*0.8

	pattern := GroupPattern{
		Anomalous: anomalous,
		AvgSpeed:  avgSpeed,
		GroupSize: len(members),
	}
	if anomalous {
		pattern.Factors = s.groupRiskFactors(members, avgSpeed, redCount)
	}
	return pattern
}

// groupRiskFactors собирает факторы групповой аномалии по сработавшим условиям
func (s *CorrelationService) groupRiskFactors(members []*models.Tourist, avgSpeed float64, redCount int) []string {
	factors := []string{}

	if avgSpeed > 60 {
		factors = append(factors, "High group movement speed")
	}
	if float64(redCount) > float64(len(members))*0.5 {
		factors = append(factors, "Multiple high-risk individuals")
	}
	if s.Separation(members) > 0.7 {
		factors = append(factors, "Group members widely separated")
	}

	return factors
}

// Centroid возвращает центр группы - среднее арифметическое координат
// участников с известным местоположением
func (s *CorrelationService) Centroid(members []*models.Tourist) *models.Location {
	sumLat, sumLon := 0.0, 0.0
	count := 0
	for _, m := range members {
		if !m.HasLocation() {
			continue
		}
		sumLat += m.Location.Latitude
		sumLon += m.Location.Longitude
		count++
	}
	if count == 0 {
		return nil
	}
	return &models.Location{
		Latitude:  sumLat / float64(count),
		Longitude: sumLon / float64(count),
	}
}
