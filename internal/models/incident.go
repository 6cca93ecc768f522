package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentType - тип инцидента
type IncidentType string

const (
	IncidentTypeSOS             IncidentType = "SOS"
	IncidentTypeAnomaly         IncidentType = "Anomaly"
	IncidentTypeGroupAnomaly    IncidentType = "Group Anomaly"
	IncidentTypeZoneBreach      IncidentType = "Zone Breach"
	IncidentTypeGroupSeparation IncidentType = "Group Separation"
	IncidentTypeRouteDeviation  IncidentType = "Route Deviation"
)

// Priority - приоритет реагирования
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// IncidentStatus - статус жизненного цикла инцидента
type IncidentStatus string

const (
	StatusOpen     IncidentStatus = "Open"
	StatusAssigned IncidentStatus = "Assigned"
	StatusResolved IncidentStatus = "Resolved"
	StatusClosed   IncidentStatus = "Closed"
)

// Responder - сотрудник из ростера реагирования
type Responder struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EFIRLocation - место происшествия в электронном рапорте
type EFIRLocation struct {
	Coordinates  *Location `json:"coordinates,omitempty"`
	Address      string    `json:"address"`
	Jurisdiction string    `json:"jurisdiction"`
}

// EFIREvidence - исходный пакет улик, на основании которых создан рапорт
type EFIREvidence struct {
	GPSData      *Location `json:"gps_data,omitempty"`
	AnomalyScore float64   `json:"anomaly_score"`
	RiskFactors  []string  `json:"risk_factors"`
	Timestamp    time.Time `json:"timestamp"`
}

// EFIR - автоматически сгенерированный электронный рапорт (E-FIR)
type EFIR struct {
	FIRNumber   string       `json:"fir_number"`
	DateTime    time.Time    `json:"date_time"`
	Location    EFIRLocation `json:"location"`
	Complainant string       `json:"complainant"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Severity    Priority     `json:"severity"`
	VictimName  string       `json:"victim_name"`
	VictimID    string       `json:"victim_id,omitempty"`
	DigitalID   string       `json:"digital_id,omitempty"`
	Contact     string       `json:"contact,omitempty"`
	Evidence    EFIREvidence `json:"evidence"`
	Status      string       `json:"status"`
	Remarks     string       `json:"remarks"`
}

// Evidence - улика, приложенная к инциденту
type Evidence struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	URL         *string   `json:"url,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	AddedBy     string    `json:"added_by"`
}

// IncidentUpdate - запись в журнале изменений инцидента
type IncidentUpdate struct {
	Status    IncidentStatus `json:"status"`
	Remarks   string         `json:"remarks"`
	UpdatedAt time.Time      `json:"updated_at"`
	UpdatedBy string         `json:"updated_by"`
}

// Incident - долговременная запись об инциденте. Создается менеджером жизненного
// цикла при превышении порога; изменяется только через операции статуса/назначения,
// никогда не удаляется (только переводится в Closed).
type Incident struct {
	ID            string    `json:"id"`
	PersistenceID uuid.UUID `json:"persistence_id,omitempty"`

	Type      IncidentType   `json:"type"`
	Score     float64        `json:"score"`
	RiskLevel RiskLevel      `json:"risk_level"`
	Priority  Priority       `json:"priority"`
	Status    IncidentStatus `json:"status"`

	TouristName      string   `json:"tourist,omitempty"`
	TouristID        string   `json:"tourist_id,omitempty"`
	DigitalID        string   `json:"digital_id,omitempty"`
	GroupID          string   `json:"group_id,omitempty"`
	AffectedTourists []string `json:"affected_tourists,omitempty"`

	Location *Location `json:"location,omitempty"`
	Factors  []string  `json:"factors,omitempty"`
	EFIR     *EFIR     `json:"efir,omitempty"`

	AssignedResponder *Responder       `json:"assigned_responder,omitempty"`
	Evidence          []Evidence       `json:"evidence"`
	Updates           []IncidentUpdate `json:"updates"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
