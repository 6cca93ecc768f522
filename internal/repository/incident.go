package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// TTL кеша инцидентов в Redis
const incidentCacheTTL = 5 * time.Minute

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

// Create создает новую запись об инциденте в бд
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	factors, err := json.Marshal(incident.Factors)
	if err != nil {
		return fmt.Errorf("failed to marshal factors: %w", err)
	}
	efir, err := json.Marshal(incident.EFIR)
	if err != nil {
		return fmt.Errorf("failed to marshal efir: %w", err)
	}
	affected, err := json.Marshal(incident.AffectedTourists)
	if err != nil {
		return fmt.Errorf("failed to marshal affected tourists: %w", err)
	}

	var lat, lon *float64
	if incident.Location != nil {
		lat, lon = &incident.Location.Latitude, &incident.Location.Longitude
	}

	query := `
		INSERT INTO incidents (
			incident_id, type, score, risk_level, priority, status,
			tourist_name, tourist_id, digital_id, group_id, affected_tourists,
			location, factors, efir
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			ST_SetSRID(ST_MakePoint($12, $13), 4326), $14, $15)
		RETURNING persistence_id, created_at, updated_at;
	`
	err = r.db.QueryRow(ctx, query,
		incident.ID,
		incident.Type,
		incident.Score,
		incident.RiskLevel,
		incident.Priority,
		incident.Status,
		incident.TouristName,
		incident.TouristID,
		incident.DigitalID,
		incident.GroupID,
		affected,
		lon,
		lat,
		factors,
		efir,
	).Scan(&incident.PersistenceID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

const incidentColumns = `
	persistence_id,
	incident_id,
	type,
	score,
	risk_level,
	priority,
	status,
	tourist_name,
	tourist_id,
	digital_id,
	group_id,
	affected_tourists,
	ST_Y(location::geometry) as latitude,
	ST_X(location::geometry) as longitude,
	factors,
	efir,
	assigned_responder,
	evidence,
	updates,
	created_at,
	updated_at
`

// scanIncident читает одну строку инцидента
func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	var (
		lat, lon          *float64
		affected          []byte
		factors           []byte
		efir              []byte
		assignedResponder []byte
		evidence          []byte
		updates           []byte
	)

	err := row.Scan(
		&incident.PersistenceID,
		&incident.ID,
		&incident.Type,
		&incident.Score,
		&incident.RiskLevel,
		&incident.Priority,
		&incident.Status,
		&incident.TouristName,
		&incident.TouristID,
		&incident.DigitalID,
		&incident.GroupID,
		&affected,
		&lat,
		&lon,
		&factors,
		&efir,
		&assignedResponder,
		&evidence,
		&updates,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat != nil && lon != nil {
		incident.Location = &models.Location{Latitude: *lat, Longitude: *lon}
	}
	for _, pair := range []struct {
		raw []byte
		dst any
	}{
		{affected, &incident.AffectedTourists},
		{factors, &incident.Factors},
		{efir, &incident.EFIR},
		{assignedResponder, &incident.AssignedResponder},
		{evidence, &incident.Evidence},
		{updates, &incident.Updates},
	} {
		if len(pair.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal incident field: %w", err)
		}
	}
	return incident, nil
}

// GetByID возвращает инцидент по его идентификатору (INC-...)
func (r *IncidentRepository) GetByID(ctx context.Context, id string) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE incident_id = $1;`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// ListIncidents возвращает список инцидентов с пагинацией
func (r *IncidentRepository) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	offset := (page - 1) * pageSize

	query := `SELECT ` + incidentColumns + ` FROM incidents ORDER BY created_at DESC LIMIT $1 OFFSET $2;`
	rows, err := r.db.Query(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// AppendUpdate переводит статус и добавляет запись в журнал изменений
func (r *IncidentRepository) AppendUpdate(ctx context.Context, id string, status models.IncidentStatus, update models.IncidentUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal incident update: %w", err)
	}

	query := `
		UPDATE incidents SET
			status = $1,
			updates = updates || $2::jsonb,
			updated_at = NOW()
		WHERE incident_id = $3;
	`
	cmdTag, err := r.db.Exec(ctx, query, status, payload, id)
	if err != nil {
		return fmt.Errorf("failed to append incident update: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s not found for update", id)
	}
	return nil
}

// AppendEvidence добавляет улику к инциденту
func (r *IncidentRepository) AppendEvidence(ctx context.Context, id string, evidence models.Evidence) error {
	payload, err := json.Marshal(evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}

	query := `
		UPDATE incidents SET
			evidence = evidence || $1::jsonb,
			updated_at = NOW()
		WHERE incident_id = $2;
	`
	cmdTag, err := r.db.Exec(ctx, query, payload, id)
	if err != nil {
		return fmt.Errorf("failed to append evidence: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s not found for evidence", id)
	}
	return nil
}

// AssignResponder сохраняет назначенного сотрудника
func (r *IncidentRepository) AssignResponder(ctx context.Context, id string, responder *models.Responder) error {
	payload, err := json.Marshal(responder)
	if err != nil {
		return fmt.Errorf("failed to marshal responder: %w", err)
	}

	query := `
		UPDATE incidents SET
			assigned_responder = $1::jsonb,
			updated_at = NOW()
		WHERE incident_id = $2;
	`
	cmdTag, err := r.db.Exec(ctx, query, payload, id)
	if err != nil {
		return fmt.Errorf("failed to assign responder: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s not found for assignment", id)
	}
	return nil
}

// GetIncidentFromCache пытается получить инцидент из Redis
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id string) (*models.Incident, error) {
	key := fmt.Sprintf("incident:%s", id)
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	key := fmt.Sprintf("incident:%s", incident.ID)
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, key, val, incidentCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id string) error {
	key := fmt.Sprintf("incident:%s", id)
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}
