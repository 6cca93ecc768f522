package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/webhook"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/pkg/geo"
	"github.com/sirupsen/logrus"
)

// Geofence - полигональная зона с уровнем риска. Полигоны проверяются в порядке
// объявления, первый совпавший выигрывает (зоны могут пересекаться).
type Geofence struct {
	Level models.RiskLevel `json:"level"`
	Ring  []geo.Point      `json:"ring"`
}

// geofenceFile - формат файла геозон (GeoJSON FeatureCollection, только Polygon)
type geofenceFile struct {
	Features []struct {
		Properties struct {
			Level models.RiskLevel `json:"level"`
		} `json:"properties"`
		Geometry struct {
			Type        string        `json:"type"`
			Coordinates [][][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// LoadGeofences читает геозоны из GeoJSON-файла
func LoadGeofences(path string) ([]Geofence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read geofence file: %w", err)
	}

	var file geofenceFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse geofence file: %w", err)
	}

	fences := make([]Geofence, 0, len(file.Features))
	for _, f := range file.Features {
		if f.Geometry.Type != "Polygon" || len(f.Geometry.Coordinates) == 0 {
			continue
		}
		ring := make([]geo.Point, 0, len(f.Geometry.Coordinates[0]))
		for _, pair := range f.Geometry.Coordinates[0] {
			if len(pair) < 2 {
				continue
			}
			ring = append(ring, geo.Point{Lon: pair[0], Lat: pair[1]})
		}
		fences = append(fences, Geofence{Level: f.Properties.Level, Ring: ring})
	}
	return fences, nil
}

// DefaultGeofences возвращает демонстрационный набор зон (Дели)
func DefaultGeofences() []Geofence {
	return []Geofence{
		{
			Level: models.RiskLevelGreen,
			Ring: []geo.Point{
				{Lon: 77.15, Lat: 28.60}, {Lon: 77.27, Lat: 28.60},
				{Lon: 77.27, Lat: 28.66}, {Lon: 77.15, Lat: 28.66}, {Lon: 77.15, Lat: 28.60},
			},
		},
		{
			Level: models.RiskLevelYellow,
			Ring: []geo.Point{
				{Lon: 77.19, Lat: 28.61}, {Lon: 77.31, Lat: 28.61},
				{Lon: 77.31, Lat: 28.69}, {Lon: 77.19, Lat: 28.69}, {Lon: 77.19, Lat: 28.61},
			},
		},
		{
			Level: models.RiskLevelRed,
			Ring: []geo.Point{
				{Lon: 77.21, Lat: 28.59}, {Lon: 77.24, Lat: 28.59},
				{Lon: 77.24, Lat: 28.62}, {Lon: 77.21, Lat: 28.62}, {Lon: 77.21, Lat: 28.59},
			},
		},
	}
}

// GeofenceService отслеживает текущую зону каждого туриста и генерирует
// уведомление при переходе в Yellow/Red зону. Чистая машина состояний на
// каждого туриста: переходы в Green или потеря классификации обновляют
// запомненное состояние молча.
type GeofenceService struct {
	fences    []Geofence
	publisher webhook.AlertPublisher
	logger    *logrus.Logger

	mu        sync.Mutex
	lastZones map[string]models.RiskLevel
}

// NewGeofenceService создает наблюдатель геозон
func NewGeofenceService(fences []Geofence, publisher webhook.AlertPublisher, logger *logrus.Logger) *GeofenceService {
	return &GeofenceService{
		fences:    fences,
		publisher: publisher,
		logger:    logger,
		lastZones: make(map[string]models.RiskLevel),
	}
}

// Classify возвращает уровень зоны для точки; ok=false, если точка вне всех зон
func (s *GeofenceService) Classify(lon, lat float64) (models.RiskLevel, bool) {
	for _, fence := range s.fences {
		if geo.PointInPolygon(lon, lat, fence.Ring) {
			return fence.Level, true
		}
	}
	return "", false
}

// Observe обрабатывает батч обновлений: переклассифицирует зону каждого туриста
// и уведомляет ровно один раз при входе в Yellow/Red
func (s *GeofenceService) Observe(ctx context.Context, tourists []*models.Tourist) {
	for _, t := range tourists {
		if !t.HasLocation() {
			continue
		}

		level, ok := s.Classify(t.Location.Longitude, t.Location.Latitude)

		s.mu.Lock()
		prev, hadPrev := s.lastZones[t.ID]
		if !ok {
			delete(s.lastZones, t.ID)
			s.mu.Unlock()
			continue
		}
		changed := !hadPrev || prev != level
		s.lastZones[t.ID] = level
		s.mu.Unlock()

		if !changed || (level != models.RiskLevelYellow && level != models.RiskLevelRed) {
			continue
		}

		severity := webhook.SeverityWarning
		if level == models.RiskLevelRed {
			severity = webhook.SeverityError
		}
		name := t.Name
		if name == "" {
			name = "Tourist"
		}

		event := webhook.AlertEvent{
			Severity:  severity,
			Message:   fmt.Sprintf("%s entered %s zone", name, level),
			TouristID: t.ID,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.WithError(err).WithField("tourist_id", t.ID).
				Warn("Failed to publish zone transition alert")
		}
	}
}
