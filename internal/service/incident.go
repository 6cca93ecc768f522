package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/config"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/webhook"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/pkg/geo"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id string) (*models.Incident, error)
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	AppendUpdate(ctx context.Context, id string, status models.IncidentStatus, update models.IncidentUpdate) error
	AppendEvidence(ctx context.Context, id string, evidence models.Evidence) error
	AssignResponder(ctx context.Context, id string, responder *models.Responder) error
	GetIncidentFromCache(ctx context.Context, id string) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id string) error
}

// Geocoder определяет контракт обратного геокодирования
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// EvidenceStorage определяет контракт внешнего блоб-хранилища улик
type EvidenceStorage interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
}

// EvidenceInput - входные данные для прикрепления улики
type EvidenceInput struct {
	Type        string
	Description string
	AddedBy     string
	Data        []byte
}

// IncidentService определяет контракт бизнес-логики жизненного цикла инцидентов
type IncidentService interface {
	CreateIncident(ctx context.Context, incident *models.Incident) *models.Incident
	GetIncident(ctx context.Context, id string) (*models.Incident, error)
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	UpdateStatus(ctx context.Context, id string, status models.IncidentStatus, remarks string) (*models.IncidentUpdate, error)
	AddEvidence(ctx context.Context, id string, input EvidenceInput) (*models.Evidence, error)
}

// Допустимые переходы статусов: линейный жизненный цикл с прямым закрытием.
// Assigned допускает повторное назначение. Closed - терминальный статус.
var allowedTransitions = map[models.IncidentStatus][]models.IncidentStatus{
	models.StatusOpen:     {models.StatusAssigned, models.StatusResolved, models.StatusClosed},
	models.StatusAssigned: {models.StatusAssigned, models.StatusResolved, models.StatusClosed},
	models.StatusResolved: {models.StatusClosed},
	models.StatusClosed:   {},
}

type incidentService struct {
	repo      IncidentRepository
	geocoder  Geocoder
	storage   EvidenceStorage
	publisher webhook.AlertPublisher
	logger    *logrus.Logger
	cfg       *config.Config

	responders []models.Responder

	incidentCounter atomic.Int64
	firCounter      atomic.Int64

	// Локальный буфер на случай недоступности персистентного хранилища.
	// Создание инцидента никогда не завершается ошибкой для вызывающего.
	bufMu    sync.Mutex
	buffered map[string]*models.Incident

	now func() time.Time
}

// NewIncidentService создает менеджер жизненного цикла инцидентов
func NewIncidentService(
	repo IncidentRepository,
	geocoder Geocoder,
	storage EvidenceStorage,
	publisher webhook.AlertPublisher,
	responders []models.Responder,
	logger *logrus.Logger,
	cfg *config.Config,
) IncidentService {
	s := &incidentService{
		repo:       repo,
		geocoder:   geocoder,
		storage:    storage,
		publisher:  publisher,
		responders: responders,
		logger:     logger,
		cfg:        cfg,
		buffered:   make(map[string]*models.Incident),
		now:        time.Now,
	}
	s.incidentCounter.Store(1000)
	return s
}

// CreateIncident создает инцидент: чеканит идентификатор, вычисляет приоритет,
// генерирует E-FIR, сохраняет (или буферизует локально), назначает ближайшего
// сотрудника и публикует уведомление. Никогда не возвращает ошибку вызывающему.
func (s *incidentService) CreateIncident(ctx context.Context, incident *models.Incident) *models.Incident {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "CreateIncident",
		"type":    incident.Type,
	})

	now := s.now()
	incident.ID = s.mintIncidentID(now)
	incident.Status = models.StatusOpen
	incident.Priority = calculatePriority(incident)
	incident.EFIR = s.generateEFIR(ctx, incident, now)
	incident.Evidence = []models.Evidence{}
	incident.Updates = []models.IncidentUpdate{}
	incident.CreatedAt = now
	incident.UpdatedAt = now

	log = log.WithField("incident_id", incident.ID)

	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Warn("Persistence unavailable, buffering incident locally")
		s.bufMu.Lock()
		s.buffered[incident.ID] = incident
		s.bufMu.Unlock()
	}

	s.assignNearestResponder(ctx, incident, log)
	s.notify(ctx, incident, log)

	log.WithField("priority", incident.Priority).Info("Incident created")
	return incident
}

// mintIncidentID чеканит идентификатор INC-YYYYMMDD-NNNN. Счетчик монотонный
// в рамках процесса; уникальность между рестартами не гарантируется.
func (s *incidentService) mintIncidentID(now time.Time) string {
	counter := s.incidentCounter.Add(1)
	return fmt.Sprintf("INC-%s-%04d", now.Format("20060102"), counter)
}

// calculatePriority вычисляет приоритет инцидента
func calculatePriority(incident *models.Incident) models.Priority {
	switch {
	case incident.Type == models.IncidentTypeSOS || incident.Score >= 0.9:
		return models.PriorityCritical
	case incident.Type == models.IncidentTypeAnomaly && incident.Score >= 0.7:
		return models.PriorityHigh
	case incident.RiskLevel == models.RiskLevelRed:
		return models.PriorityHigh
	case incident.RiskLevel == models.RiskLevelYellow:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// generateEFIR синтезирует электронный рапорт по данным инцидента
func (s *incidentService) generateEFIR(ctx context.Context, incident *models.Incident, now time.Time) *models.EFIR {
	return &models.EFIR{
		FIRNumber: s.mintFIRNumber(now),
		DateTime:  now,
		Location: models.EFIRLocation{
			Coordinates:  incident.Location,
			Address:      s.resolveAddress(ctx, incident.Location),
			Jurisdiction: determineJurisdiction(incident.Location),
		},
		Complainant: "AI Anomaly Detection System",
		Category:    categorizeIncident(incident.Type),
		Description: describeIncident(incident),
		Severity:    incident.Priority,
		VictimName:  victimName(incident),
		VictimID:    incident.TouristID,
		DigitalID:   incident.DigitalID,
		Contact:     "",
		Evidence: models.EFIREvidence{
			GPSData:      incident.Location,
			AnomalyScore: incident.Score,
			RiskFactors:  incident.Factors,
			Timestamp:    now,
		},
		Status:  "Registered",
		Remarks: "Auto-generated based on AI anomaly detection",
	}
}

// mintFIRNumber чеканит номер рапорта FIR-<station>-<year>-<serial>
func (s *incidentService) mintFIRNumber(now time.Time) string {
	serial := s.firCounter.Add(1)
	return fmt.Sprintf("FIR-%s-%d-%04d", s.cfg.StationCode, now.Year(), serial)
}

// resolveAddress возвращает адрес по координатам, деградируя до "lat, lon"
func (s *incidentService) resolveAddress(ctx context.Context, loc *models.Location) string {
	if loc == nil {
		return "Unknown Location"
	}
	if s.geocoder != nil {
		if address, err := s.geocoder.ReverseGeocode(ctx, loc.Latitude, loc.Longitude); err == nil {
			return address
		} else {
			s.logger.WithError(err).Debug("Reverse geocoding failed, using raw coordinates")
		}
	}
	return fmt.Sprintf("%f, %f", loc.Latitude, loc.Longitude)
}

// determineJurisdiction - таблица юрисдикций по диапазонам координат
func determineJurisdiction(loc *models.Location) string {
	if loc == nil {
		return "Central Police Station"
	}
	switch {
	case loc.Latitude > 28.6 && loc.Latitude < 28.7 && loc.Longitude > 77.2 && loc.Longitude < 77.3:
		return "New Delhi Police Station"
	case loc.Latitude > 28.5 && loc.Latitude < 28.6:
		return "South Delhi Police Station"
	default:
		return "Central Police Station"
	}
}

// categorizeIncident возвращает категорию рапорта для типа инцидента
func categorizeIncident(incidentType models.IncidentType) string {
	categories := map[models.IncidentType]string{
		models.IncidentTypeSOS:             "Emergency Assistance",
		models.IncidentTypeAnomaly:         "Suspicious Activity",
		models.IncidentTypeZoneBreach:      "Restricted Area Entry",
		models.IncidentTypeGroupSeparation: "Missing Person Alert",
		models.IncidentTypeRouteDeviation:  "Lost Tourist",
	}
	if category, ok := categories[incidentType]; ok {
		return category
	}
	return "General Incident"
}

// describeIncident строит текстовое описание по шаблону
func describeIncident(incident *models.Incident) string {
	description := fmt.Sprintf("AI system detected %s for tourist %s",
		incident.Type, victimName(incident))
	if incident.Location != nil {
		description += fmt.Sprintf(" at coordinates %f, %f", incident.Location.Latitude, incident.Location.Longitude)
	}
	description += fmt.Sprintf(". Anomaly score: %.2f.", incident.Score)
	if len(incident.Factors) > 0 {
		description += " Risk factors: "
		for i, factor := range incident.Factors {
			if i > 0 {
				description += ", "
			}
			description += factor
		}
		description += "."
	}
	description += " Immediate attention required."
	return description
}

func victimName(incident *models.Incident) string {
	if incident.TouristName != "" {
		return incident.TouristName
	}
	if incident.TouristID != "" {
		return "Tourist " + incident.TouristID
	}
	return "Unknown Tourist"
}

// assignNearestResponder назначает ближайшего сотрудника из ростера
// (по дистанции большого круга; при равенстве побеждает порядок в ростере)
func (s *incidentService) assignNearestResponder(ctx context.Context, incident *models.Incident, log *logrus.Entry) {
	if incident.Location == nil || len(s.responders) == 0 {
		return
	}

	var nearest *models.Responder
	minDistance := 0.0
	for i := range s.responders {
		r := &s.responders[i]
		d := geo.Distance(incident.Location.Latitude, incident.Location.Longitude, r.Latitude, r.Longitude)
		if nearest == nil || d < minDistance {
			nearest = r
			minDistance = d
		}
	}

	incident.AssignedResponder = nearest
	if err := s.repo.AssignResponder(ctx, incident.ID, nearest); err != nil {
		log.WithError(err).Warn("Failed to persist responder assignment")
	}
}

// notify публикует уведомление о новом инциденте в дашборд
func (s *incidentService) notify(ctx context.Context, incident *models.Incident, log *logrus.Entry) {
	severity := webhook.SeverityInfo
	switch incident.Priority {
	case models.PriorityCritical:
		severity = webhook.SeverityError
	case models.PriorityHigh:
		severity = webhook.SeverityWarning
	}

	event := webhook.AlertEvent{
		Severity:   severity,
		Message:    fmt.Sprintf("New %s incident: %s - %s", incident.Type, incident.ID, victimName(incident)),
		IncidentID: incident.ID,
		TouristID:  incident.TouristID,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Warn("Failed to publish incident notification")
	}
}

// GetIncident получает инцидент по ID (кеш, затем бд, затем локальный буфер)
func (s *incidentService) GetIncident(ctx context.Context, id string) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident cache")
	}
	if cached != nil {
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if buffered := s.getBuffered(id); buffered != nil {
			return buffered, nil
		}
		log.WithError(err).Error("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// ListIncidents возвращает список инцидентов с пагинацией
func (s *incidentService) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ListIncidents",
		"page":      page,
		"page_size": pageSize,
	})

	incidents, err := s.repo.ListIncidents(ctx, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}
	return incidents, nil
}

// UpdateStatus выполняет переход статуса с проверкой жизненного цикла
// и записью в журнал изменений
func (s *incidentService) UpdateStatus(ctx context.Context, id string, status models.IncidentStatus, remarks string) (*models.IncidentUpdate, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "UpdateStatus",
		"incident_id": id,
		"status":      status,
	})

	incident, err := s.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(incident.Status, status) {
		log.Warn("Rejected status transition")
		return nil, fmt.Errorf("service: transition from %s to %s is not allowed", incident.Status, status)
	}

	update := models.IncidentUpdate{
		Status:    status,
		Remarks:   remarks,
		UpdatedAt: s.now(),
		UpdatedBy: "System",
	}

	if buffered := s.getBuffered(id); buffered != nil {
		s.bufMu.Lock()
		buffered.Status = status
		buffered.Updates = append(buffered.Updates, update)
		buffered.UpdatedAt = update.UpdatedAt
		s.bufMu.Unlock()
		return &update, nil
	}

	if err := s.repo.AppendUpdate(ctx, id, status, update); err != nil {
		log.WithError(err).Error("Failed to persist status update")
		return nil, fmt.Errorf("service: could not update incident status: %w", err)
	}
	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	log.Info("Incident status updated")
	return &update, nil
}

// transitionAllowed проверяет допустимость перехода статуса
func transitionAllowed(from, to models.IncidentStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AddEvidence прикрепляет улику к инциденту. Сбой загрузки блоба не мешает
// созданию записи (ссылка остается пустой).
func (s *incidentService) AddEvidence(ctx context.Context, id string, input EvidenceInput) (*models.Evidence, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "AddEvidence",
		"incident_id": id,
	})

	evidence := models.Evidence{
		ID:          uuid.New(),
		Type:        input.Type,
		Description: input.Description,
		Timestamp:   s.now(),
		AddedBy:     input.AddedBy,
	}
	if evidence.AddedBy == "" {
		evidence.AddedBy = "System"
	}

	if len(input.Data) > 0 && s.storage != nil {
		key := fmt.Sprintf("evidence/%s/%s", id, evidence.ID)
		url, err := s.storage.Upload(ctx, key, input.Data)
		if err != nil {
			log.WithError(err).Warn("Evidence upload failed, creating record without reference")
		} else {
			evidence.URL = &url
		}
	}

	if buffered := s.getBuffered(id); buffered != nil {
		s.bufMu.Lock()
		buffered.Evidence = append(buffered.Evidence, evidence)
		s.bufMu.Unlock()
		return &evidence, nil
	}

	if err := s.repo.AppendEvidence(ctx, id, evidence); err != nil {
		log.WithError(err).Error("Failed to persist evidence")
		return nil, fmt.Errorf("service: could not add evidence: %w", err)
	}
	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	return &evidence, nil
}

// getBuffered возвращает локально буферизованный инцидент, если он есть
func (s *incidentService) getBuffered(id string) *models.Incident {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	return s.buffered[id]
}
