package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubModelClient - фиксированный ответ классификатора для тестов
type stubModelClient struct {
	confidence float64
	err        error
	lastInput  string
}

func (c *stubModelClient) Classify(_ context.Context, input string) (float64, error) {
	c.lastInput = input
	return c.confidence, c.err
}

func newTestAnomalyService(model ModelClient) *AnomalyService {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах
	return NewAnomalyService(model, logger)
}

// Дневное время без множителей и ночных правил
var daytime = time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)

func TestScore_LocalFallback_SpeedAndDeviation(t *testing.T) {
	// Подготовка: без модели скоринг идет по локальным правилам
	service := newTestAnomalyService(nil)
	tourist := &models.Tourist{
		ID:                 "t-1",
		Speed:              95,
		ItineraryDeviation: 0.6,
	}
	actx := AnomalyContext{
		Risk: &models.RiskSnapshot{Weather: 0.3, Crime: 0.3, Political: 0.3},
		Time: daytime,
	}

	// Действие
	result := service.Score(context.Background(), tourist, actx)

	// Проверки: 0.3 (скорость) + 0.25 (отклонение) + 0.3*0.2 (среда)
	assert.InDelta(t, 0.61, result.Score, 1e-9)
	assert.Equal(t, models.AnomalySourceLocalFallback, result.Source)
	assert.Equal(t, models.RiskLevelYellow, result.RiskLevel)
}

func TestScore_LocalFallback_NightAndGroupRules(t *testing.T) {
	service := newTestAnomalyService(nil)
	night := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	tourist := &models.Tourist{ID: "t-2", Speed: 5}
	actx := AnomalyContext{
		Risk:  &models.RiskSnapshot{Crime: 0.7},
		Group: models.GroupContext{Size: 3, Separation: 0.8},
		Time:  night,
	}

	result := service.Score(context.Background(), tourist, actx)

	// 0.7/3*0.2 (среда) + 0.15 (ночь + криминал) + 0.1 (разделение группы)
	expected := (0.7/3)*0.2 + 0.15 + 0.1
	assert.InDelta(t, expected, result.Score, 1e-9)
	assert.Contains(t, result.Factors, "High crime area")
	assert.Contains(t, result.Factors, "Group members separated")
}

func TestScore_LocalFallback_ClampedToOne(t *testing.T) {
	service := newTestAnomalyService(nil)
	night := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	tourist := &models.Tourist{ID: "t-3", Speed: 200, ItineraryDeviation: 0.9}
	actx := AnomalyContext{
		Risk:  &models.RiskSnapshot{Weather: 1, Crime: 1, Political: 1},
		Group: models.GroupContext{Size: 4, Separation: 0.9},
		Time:  night,
	}

	result := service.Score(context.Background(), tourist, actx)

	assert.Equal(t, 1.0, result.Score)
	assert.Equal(t, models.RiskLevelRed, result.RiskLevel)
}

func TestScore_ModelPath_EnvironmentMultiplier(t *testing.T) {
	// Подготовка
	model := &stubModelClient{confidence: 0.5}
	service := newTestAnomalyService(model)
	tourist := &models.Tourist{ID: "t-4", Speed: 10}
	actx := AnomalyContext{
		Risk: &models.RiskSnapshot{Weather: 0.3, Crime: 0.3, Political: 0.3},
		Time: daytime,
	}

	// Действие
	result := service.Score(context.Background(), tourist, actx)

	// Проверки: 0.5 * (1 + 0.3) = 0.65
	assert.InDelta(t, 0.65, result.Score, 1e-9)
	assert.Equal(t, models.AnomalySourceModel, result.Source)
	assert.Contains(t, model.lastInput, "Tourist behavior analysis: ")
}

func TestScore_ModelFailure_FallsBackLocally(t *testing.T) {
	// Подготовка: модель сконфигурирована, но падает
	model := &stubModelClient{err: errors.New("inference timeout")}
	service := newTestAnomalyService(model)
	tourist := &models.Tourist{ID: "t-5", Speed: 95}
	actx := AnomalyContext{
		Risk: &models.RiskSnapshot{},
		Time: daytime,
	}

	// Действие
	result := service.Score(context.Background(), tourist, actx)

	// Проверки: локальное правило скорости, источник - fallback
	assert.InDelta(t, 0.3, result.Score, 1e-9)
	assert.Equal(t, models.AnomalySourceLocalFallback, result.Source)
}

func TestClassifyAnomalyRisk_EnvironmentOverrides(t *testing.T) {
	testCases := []struct {
		name     string
		score    float64
		features featureVector
		expected models.RiskLevel
	}{
		{"красный по оценке", 0.85, featureVector{}, models.RiskLevelRed},
		{"красный по криминальному риску", 0.1, featureVector{crimeRisk: 0.95}, models.RiskLevelRed},
		{"красный по политическому риску", 0.1, featureVector{politicalRisk: 0.9}, models.RiskLevelRed},
		{"желтый по оценке", 0.55, featureVector{}, models.RiskLevelYellow},
		{"желтый по погоде", 0.1, featureVector{weatherRisk: 0.75}, models.RiskLevelYellow},
		{"желтый по криминалу", 0.1, featureVector{crimeRisk: 0.65}, models.RiskLevelYellow},
		{"зеленый", 0.2, featureVector{}, models.RiskLevelGreen},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, classifyAnomalyRisk(tc.score, tc.features))
		})
	}
}

func TestIdentifyRiskFactors_Order(t *testing.T) {
	f := featureVector{
		speed:          95,
		routeDeviation: 0.6,
		weatherRisk:    0.8,
		crimeRisk:      0.7,
		politicalRisk:  0.7,
		groupSize:      3,
		isNight:        true,
	}
	f.groupSeparation = 0.8

	factors := identifyRiskFactors(f, 0.7)

	expected := []string{
		"High speed detected",
		"Significant route deviation",
		"Severe weather conditions",
		"High crime area",
		"Political instability",
		"Group members separated",
		"High-risk nighttime activity",
	}
	require.Equal(t, expected, factors)
}

func TestScore_DefaultsForMissingContext(t *testing.T) {
	service := newTestAnomalyService(nil)

	// Обновление без контекста: нулевой риск, нет группы и истории
	result := service.Score(context.Background(), &models.Tourist{ID: "t-6", Speed: 10}, AnomalyContext{Time: daytime})

	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, models.RiskLevelGreen, result.RiskLevel)
	assert.Empty(t, result.Factors)
}
