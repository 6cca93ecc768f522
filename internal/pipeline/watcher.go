package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/service"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/stream"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/webhook"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Порог оценки аномальности, при котором создается инцидент
const AnomalyThreshold = 0.7

// TTL и округление производного кеша риска на уровне конвейера
const (
	derivedRiskTTL = 10 * time.Minute
)

// HistoryProvider определяет контракт источника исторических паттернов туриста
type HistoryProvider interface {
	Summary(ctx context.Context, touristID string) (models.HistoricalSummary, error)
}

type derivedRiskEntry struct {
	snapshot  *models.RiskSnapshot
	timestamp time.Time
}

// scoredTourist - результат скоринга одного туриста до записи проекции
type scoredTourist struct {
	tourist *models.Tourist
	result  *models.AnomalyResult
	overall float64
}

// Watcher - оркестратор конвейера: потребляет батчи обновлений, дедуплицирует,
// прогоняет каждого туриста через оракул риска и скорер аномалий, создает
// инциденты при превышении порога и выполняет групповой анализ по ячейкам.
// Батчи обрабатываются строго последовательно; внутри батча работа по туристам
// распараллелена с ограниченной степенью параллелизма.
type Watcher struct {
	source     stream.TouristSource
	risk       *service.RiskService
	anomaly    *service.AnomalyService
	correlator *service.CorrelationService
	geofence   *service.GeofenceService
	incidents  service.IncidentService
	history    HistoryProvider
	publisher  webhook.AlertPublisher
	logger     *logrus.Logger

	// Дедупликация (subjectID:updateMarker) - ограниченный LRU вместо
	// неограниченной карты, чтобы долгоживущий процесс не тек
	dedup *lru.Cache[string, struct{}]

	concurrency int64

	riskMu    sync.RWMutex
	riskCache map[string]derivedRiskEntry

	now func() time.Time
}

// NewWatcher создает оркестратор конвейера
func NewWatcher(
	source stream.TouristSource,
	risk *service.RiskService,
	anomaly *service.AnomalyService,
	correlator *service.CorrelationService,
	geofence *service.GeofenceService,
	incidents service.IncidentService,
	history HistoryProvider,
	publisher webhook.AlertPublisher,
	logger *logrus.Logger,
	dedupSize int,
	concurrency int,
) (*Watcher, error) {
	if dedupSize <= 0 {
		dedupSize = 100000
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	dedup, err := lru.New[string, struct{}](dedupSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create dedup ledger: %w", err)
	}

	return &Watcher{
		source:      source,
		risk:        risk,
		anomaly:     anomaly,
		correlator:  correlator,
		geofence:    geofence,
		incidents:   incidents,
		history:     history,
		publisher:   publisher,
		logger:      logger,
		dedup:       dedup,
		concurrency: int64(concurrency),
		riskCache:   make(map[string]derivedRiskEntry),
		now:         time.Now,
	}, nil
}

// Start подписывается на поток обновлений и возвращает функцию остановки
func (w *Watcher) Start(ctx context.Context) (func(), error) {
	w.logger.Info("Starting anomaly pipeline...")
	stop, err := w.source.Subscribe(ctx, func(batch []*models.Tourist) {
		w.ProcessBatch(ctx, batch)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to tourist stream: %w", err)
	}
	return stop, nil
}

// ProcessBatch обрабатывает один батч обновлений до конца
func (w *Watcher) ProcessBatch(ctx context.Context, tourists []*models.Tourist) {
	// Группировка по пространственным ячейкам строится один раз на батч
	groups := w.correlator.GroupByCell(tourists)

	// Наблюдатель геозон работает по тому же батчу независимо от скоринга
	w.geofence.Observe(ctx, tourists)

	sem := semaphore.NewWeighted(w.concurrency)
	var wg sync.WaitGroup

	// Горутины скоринга не изменяют туристов: групповой контекст соседей по
	// ячейке читается из проекций предыдущего батча
	var scoredMu sync.Mutex
	scored := make([]scoredTourist, 0, len(tourists))

	for _, t := range tourists {
		if !t.HasLocation() {
			continue
		}

		key := fmt.Sprintf("%s:%d", t.ID, t.UpdatedAt)
		if existed, _ := w.dedup.ContainsOrAdd(key, struct{}{}); existed {
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			// Контекст отменен: новых горутин не запускаем, запущенные доводим
			break
		}
		wg.Add(1)
		go func(t *models.Tourist) {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				// Ошибка скоринга одного туриста не должна останавливать батч
				if r := recover(); r != nil {
					w.logger.WithField("tourist_id", t.ID).Errorf("Panic while processing tourist: %v", r)
				}
			}()
			st, ok := w.scoreTourist(ctx, t, groups)
			if !ok {
				return
			}
			scoredMu.Lock()
			scored = append(scored, st)
			scoredMu.Unlock()
		}(t)
	}
	wg.Wait()

	// Запись проекций и создание инцидентов - после завершения всех горутин батча
	for _, st := range scored {
		w.applyProjection(st)
		if st.result.Score >= AnomalyThreshold {
			w.createAnomalyIncident(ctx, st.tourist, st.result)
		}
	}

	// Групповой анализ после обработки всех туристов батча
	for cellKey, members := range groups {
		pattern := w.correlator.DetectGroupAnomaly(members)
		if pattern.Anomalous {
			w.createGroupIncident(ctx, cellKey, members, pattern)
		}
	}
}

// scoreTourist прогоняет одного туриста через оракул риска и скорер,
// не изменяя самого туриста
func (w *Watcher) scoreTourist(ctx context.Context, t *models.Tourist, groups map[string][]*models.Tourist) (scoredTourist, bool) {
	locationRisk, err := w.locationRisk(ctx, t.Location.Latitude, t.Location.Longitude)
	if err != nil {
		w.logger.WithError(err).WithField("tourist_id", t.ID).Warn("Skipping tourist with invalid coordinates")
		return scoredTourist{}, false
	}

	history, err := w.history.Summary(ctx, t.ID)
	if err != nil {
		w.logger.WithError(err).WithField("tourist_id", t.ID).Debug("History provider failed, using empty summary")
		history = models.HistoricalSummary{}
	}

	result := w.anomaly.Score(ctx, t, service.AnomalyContext{
		Risk:    locationRisk,
		Group:   w.correlator.GroupContextFor(t, groups),
		History: history,
	})

	overall := result.Score
	if locationRisk.Overall > overall {
		overall = locationRisk.Overall
	}
	return scoredTourist{tourist: t, result: result, overall: overall}, true
}

// applyProjection обновляет проекцию туриста (состояние дашборда, не запись Incident)
func (w *Watcher) applyProjection(st scoredTourist) {
	t := st.tourist
	switch {
	case st.overall >= 0.8:
		t.RiskLevel = models.RiskLevelRed
	case st.overall >= 0.5:
		t.RiskLevel = models.RiskLevelYellow
	default:
		t.RiskLevel = models.RiskLevelGreen
	}
	t.AnomalyScore = st.result.Score
	t.RiskFactors = st.result.Factors
	t.LastRiskUpdate = w.now()
}

// locationRisk - производный кеш снимков риска (10 минут, округление до 3 знаков)
// поверх оракула для снижения нагрузки при плотных батчах
func (w *Watcher) locationRisk(ctx context.Context, lat, lon float64) (*models.RiskSnapshot, error) {
	key := fmt.Sprintf("%.3f_%.3f", lat, lon)
	now := w.now()

	w.riskMu.RLock()
	entry, ok := w.riskCache[key]
	w.riskMu.RUnlock()
	if ok && now.Sub(entry.timestamp) < derivedRiskTTL {
		return entry.snapshot, nil
	}

	snapshot, err := w.risk.Assess(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	w.riskMu.Lock()
	w.riskCache[key] = derivedRiskEntry{snapshot: snapshot, timestamp: now}
	w.riskMu.Unlock()

	return snapshot, nil
}

// createAnomalyIncident создает индивидуальный инцидент и уведомляет дашборд
func (w *Watcher) createAnomalyIncident(ctx context.Context, t *models.Tourist, result *models.AnomalyResult) {
	groupID := t.GroupID
	if groupID == "" {
		groupID = t.FamilyID
	}

	incident := w.incidents.CreateIncident(ctx, &models.Incident{
		Type:        models.IncidentTypeAnomaly,
		Score:       result.Score,
		RiskLevel:   result.RiskLevel,
		TouristName: t.Name,
		TouristID:   t.ID,
		DigitalID:   t.DigitalID,
		GroupID:     groupID,
		Location:    t.Location,
		Factors:     result.Factors,
	})

	severity := webhook.SeverityWarning
	if result.RiskLevel == models.RiskLevelRed {
		severity = webhook.SeverityError
	}
	name := t.Name
	if name == "" {
		name = "tourist"
	}
	event := webhook.AlertEvent{
		Severity:   severity,
		Message:    fmt.Sprintf("AI detected %s risk anomaly for %s", strings.ToLower(string(result.RiskLevel)), name),
		IncidentID: incident.ID,
		TouristID:  t.ID,
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.WithError(err).Warn("Failed to publish anomaly alert")
	}
}

// createGroupIncident создает групповой инцидент по ячейке
func (w *Watcher) createGroupIncident(ctx context.Context, cellKey string, members []*models.Tourist, pattern service.GroupPattern) {
	memberIDs := make([]string, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, m.ID)
	}

	incident := w.incidents.CreateIncident(ctx, &models.Incident{
		Type:             models.IncidentTypeGroupAnomaly,
		Score:            0.8,
		RiskLevel:        models.RiskLevelRed,
		TouristName:      fmt.Sprintf("Group in area %s", cellKey),
		TouristID:        fmt.Sprintf("group-%s", cellKey),
		Location:         w.correlator.Centroid(members),
		Factors:          pattern.Factors,
		AffectedTourists: memberIDs,
	})

	event := webhook.AlertEvent{
		Severity:   webhook.SeverityError,
		Message:    fmt.Sprintf("Group anomaly detected: %d tourists in area %s", pattern.GroupSize, cellKey),
		IncidentID: incident.ID,
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.WithError(err).Warn("Failed to publish group anomaly alert")
	}
}
