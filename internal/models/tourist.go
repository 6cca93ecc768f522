package models

import (
	"time"
)

// Location - координаты точки в WGS84
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Tourist представляет одно обновление позиции/телеметрии отслеживаемого туриста.
// Поле UpdatedAt служит маркером обновления: пара (ID, UpdatedAt) уникально
// идентифицирует физическое обновление для дедупликации в конвейере.
type Tourist struct {
	ID               string    `json:"id"`
	Name             string    `json:"name,omitempty"`
	DigitalID        string    `json:"digital_id,omitempty"`
	EmergencyContact string    `json:"emergency_contact,omitempty"`
	GroupID          string    `json:"group_id,omitempty"`
	FamilyID         string    `json:"family_id,omitempty"`
	Location         *Location `json:"location,omitempty"`

	// Телеметрия движения (необязательные поля, по умолчанию 0)
	Speed              float64 `json:"speed,omitempty"`
	Acceleration       float64 `json:"acceleration,omitempty"`
	DirectionChange    float64 `json:"direction_change,omitempty"`
	ItineraryDeviation float64 `json:"itinerary_deviation,omitempty"`

	// Маркер обновления (unix-секунды)
	UpdatedAt int64 `json:"updated_at"`

	// Проекция результатов скоринга для дашборда. Изменяется только конвейером
	// в рамках текущего батча; долговременная запись - это Incident.
	RiskLevel      RiskLevel `json:"risk_level,omitempty"`
	AnomalyScore   float64   `json:"anomaly_score,omitempty"`
	RiskFactors    []string  `json:"risk_factors,omitempty"`
	LastRiskUpdate time.Time `json:"last_risk_update,omitempty"`
}

// HasLocation сообщает, содержит ли обновление валидные координаты
func (t *Tourist) HasLocation() bool {
	return t != nil && t.Location != nil
}
