package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
	"github.com/sirupsen/logrus"
)

// ModelClient определяет контракт внешнего классификатора аномалий
type ModelClient interface {
	Classify(ctx context.Context, input string) (float64, error)
}

// AnomalyContext - контекст оценки: снимок риска местности, групповой контекст,
// историческая сводка и момент времени (нулевое значение - текущее время)
type AnomalyContext struct {
	Risk    *models.RiskSnapshot
	Group   models.GroupContext
	History models.HistoricalSummary
	Time    time.Time
}

// featureVector - вектор признаков для скоринга. Извлечение тотально:
// каждый признак имеет значение по умолчанию при отсутствии исходного поля.
type featureVector struct {
	speed           float64
	acceleration    float64
	directionChange float64
	routeDeviation  float64

	hour      int
	dayOfWeek int
	isNight   bool

	weatherRisk   float64
	crimeRisk     float64
	politicalRisk float64

	groupSize       int
	groupSeparation float64
	groupAnomalies  int

	visitCount        int
	avgStayTime       float64
	previousAnomalies int
}

// AnomalyService - скорер аномальности поведения. Основной путь - внешняя
// модель; при отсутствии конфигурации или сбое - детерминированный локальный
// fallback. Score никогда не возвращает ошибку.
type AnomalyService struct {
	model  ModelClient
	logger *logrus.Logger
	now    func() time.Time
}

// NewAnomalyService создает скорер аномалий. model может быть nil.
func NewAnomalyService(model ModelClient, logger *logrus.Logger) *AnomalyService {
	return &AnomalyService{
		model:  model,
		logger: logger,
		now:    time.Now,
	}
}

// Score вычисляет оценку аномальности для обновления туриста в заданном контексте
func (s *AnomalyService) Score(ctx context.Context, tourist *models.Tourist, actx AnomalyContext) *models.AnomalyResult {
	features := s.extractFeatures(tourist, actx)

	score, source := s.calculateScore(ctx, features)

	return &models.AnomalyResult{
		Score:     score,
		RiskLevel: classifyAnomalyRisk(score, features),
		Factors:   identifyRiskFactors(features, score),
		Timestamp: s.now(),
		Source:    source,
	}
}

// extractFeatures строит вектор признаков из обновления и контекста
func (s *AnomalyService) extractFeatures(tourist *models.Tourist, actx AnomalyContext) featureVector {
	at := actx.Time
	if at.IsZero() {
		at = s.now()
	}
	hour := at.Hour()

	f := featureVector{
		hour:      hour,
		dayOfWeek: int(at.Weekday()),
		isNight:   hour < 6 || hour > 22,

		groupSize:       actx.Group.Size,
		groupSeparation: actx.Group.Separation,
		groupAnomalies:  actx.Group.Anomalies,

		visitCount:        actx.History.VisitCount,
		avgStayTime:       actx.History.AvgStayTime,
		previousAnomalies: actx.History.AnomalyCount,
	}
	if f.groupSize == 0 {
		f.groupSize = 1
	}

	if tourist != nil {
		f.speed = tourist.Speed
		f.acceleration = tourist.Acceleration
		f.directionChange = tourist.DirectionChange
		f.routeDeviation = tourist.ItineraryDeviation
	}

	if actx.Risk != nil {
		f.weatherRisk = actx.Risk.Weather
		f.crimeRisk = actx.Risk.Crime
		f.politicalRisk = actx.Risk.Political
	}

	return f
}

// calculateScore выбирает путь скоринга: модель или локальный fallback
func (s *AnomalyService) calculateScore(ctx context.Context, f featureVector) (float64, string) {
	if s.model == nil {
		return localAnomalyScore(f), models.AnomalySourceLocalFallback
	}

	confidence, err := s.model.Classify(ctx, modelInput(f))
	if err != nil {
		s.logger.WithError(err).Warn("Model inference failed, using local fallback score")
		return localAnomalyScore(f), models.AnomalySourceLocalFallback
	}

	return normalizeModelScore(confidence, f), models.AnomalySourceModel
}

// modelInput - текстовое представление вектора признаков для классификатора
func modelInput(f featureVector) string {
	values := []string{
		fmt.Sprintf("%g", f.speed),
		fmt.Sprintf("%g", f.acceleration),
		fmt.Sprintf("%g", f.directionChange),
		fmt.Sprintf("%g", f.routeDeviation),
		fmt.Sprintf("%d", f.hour),
		fmt.Sprintf("%d", f.dayOfWeek),
		fmt.Sprintf("%t", f.isNight),
		fmt.Sprintf("%g", f.weatherRisk),
		fmt.Sprintf("%g", f.crimeRisk),
		fmt.Sprintf("%g", f.politicalRisk),
		fmt.Sprintf("%d", f.groupSize),
		fmt.Sprintf("%g", f.groupSeparation),
		fmt.Sprintf("%d", f.groupAnomalies),
		fmt.Sprintf("%d", f.visitCount),
		fmt.Sprintf("%g", f.avgStayTime),
		fmt.Sprintf("%d", f.previousAnomalies),
	}
	return "Tourist behavior analysis: " + strings.Join(values, ",")
}

// normalizeModelScore корректирует уверенность модели средовым множителем
func normalizeModelScore(confidence float64, f featureVector) float64 {
	envMultiplier := 1 + (f.weatherRisk+f.crimeRisk+f.politicalRisk)/3
	return math.Min(confidence*envMultiplier, 1.0)
}

// localAnomalyScore - аддитивный rule-based скоринг (fallback-путь)
func localAnomalyScore(f featureVector) float64 {
	score := 0.0

	// Аномалия скорости: вне диапазона [0.5, 80] км/ч
	if f.speed > 80 || f.speed < 0.5 {
		score += 0.3
	}

	// Отклонение от маршрута
	if f.routeDeviation > 0.5 {
		score += 0.25
	}

	// Средовые риски вносят до 0.2 пропорционально
	envRisk := (f.weatherRisk + f.crimeRisk + f.politicalRisk) / 3
	score += envRisk * 0.2

	// Ночное время в сочетании с криминальным или политическим риском
	if f.isNight && (f.crimeRisk > 0.6 || f.politicalRisk > 0.6) {
		score += 0.15
	}

	// Разделение группы
	if f.groupSize > 1 && f.groupSeparation > 0.7 {
		score += 0.1
	}

	return math.Min(score, 1.0)
}

// classifyAnomalyRisk - пороги скорера: >=0.8 Red, >=0.5 Yellow (с учетом
// средовых переопределений). Отличаются от порогов оракула (0.4/0.7).
func classifyAnomalyRisk(score float64, f featureVector) models.RiskLevel {
	switch {
	case score >= 0.8 || f.crimeRisk >= 0.9 || f.politicalRisk >= 0.9:
		return models.RiskLevelRed
	case score >= 0.5 || f.weatherRisk >= 0.7 || f.crimeRisk >= 0.6:
		return models.RiskLevelYellow
	default:
		return models.RiskLevelGreen
	}
}

// identifyRiskFactors собирает человекочитаемые факторы в порядке проверок
func identifyRiskFactors(f featureVector, score float64) []string {
	factors := []string{}

	if f.speed > 80 {
		factors = append(factors, "High speed detected")
	}
	if f.routeDeviation > 0.5 {
		factors = append(factors, "Significant route deviation")
	}
	if f.weatherRisk > 0.7 {
		factors = append(factors, "Severe weather conditions")
	}
	if f.crimeRisk > 0.6 {
		factors = append(factors, "High crime area")
	}
	if f.politicalRisk > 0.6 {
		factors = append(factors, "Political instability")
	}
	if f.groupSeparation > 0.7 {
		factors = append(factors, "Group members separated")
	}
	if f.isNight && score > 0.6 {
		factors = append(factors, "High-risk nighttime activity")
	}

	return factors
}
