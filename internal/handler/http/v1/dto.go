package v1

import (
	"time"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
)

// UpdateStatusRequest DTO для перевода статуса инцидента
// @Description DTO для перевода статуса инцидента
type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=Open Assigned Resolved Closed"`
	Remarks string `json:"remarks,omitempty"`
}

// AddEvidenceRequest DTO для прикрепления улики
// @Description DTO для прикрепления улики
type AddEvidenceRequest struct {
	Type        string `json:"type" validate:"required,min=2,max=64"`
	Description string `json:"description,omitempty"`
	AddedBy     string `json:"added_by,omitempty"`
	Data        []byte `json:"data,omitempty"`
}

// SOSRequest DTO для ручного сигнала SOS
// @Description DTO для ручного сигнала SOS
type SOSRequest struct {
	TouristID string  `json:"tourist_id" validate:"required"`
	Name      string  `json:"name,omitempty"`
	DigitalID string  `json:"digital_id,omitempty"`
	Latitude  float64 `json:"latitude" validate:"required,latitude"`
	Longitude float64 `json:"longitude" validate:"required,longitude"`
	Message   string  `json:"message,omitempty"`
}

// ResponderResponse DTO назначенного сотрудника
type ResponderResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID                string                  `json:"id"`
	Type              string                  `json:"type"`
	Score             float64                 `json:"score"`
	RiskLevel         string                  `json:"risk_level"`
	Priority          string                  `json:"priority"`
	Status            string                  `json:"status"`
	Tourist           string                  `json:"tourist,omitempty"`
	TouristID         string                  `json:"tourist_id,omitempty"`
	Latitude          *float64                `json:"latitude,omitempty"`
	Longitude         *float64                `json:"longitude,omitempty"`
	Factors           []string                `json:"factors,omitempty"`
	FIRNumber         string                  `json:"fir_number,omitempty"`
	Jurisdiction      string                  `json:"jurisdiction,omitempty"`
	AssignedResponder *ResponderResponse      `json:"assigned_responder,omitempty"`
	Evidence          []models.Evidence       `json:"evidence"`
	Updates           []models.IncidentUpdate `json:"updates"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// UpdateResponse DTO для записи журнала изменений
type UpdateResponse struct {
	Status    string    `json:"status"`
	Remarks   string    `json:"remarks,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by"`
}

// RiskResponse DTO снимка риска местности
// @Description DTO снимка риска местности
type RiskResponse struct {
	Weather   float64   `json:"weather"`
	Crime     float64   `json:"crime"`
	Political float64   `json:"political"`
	Overall   float64   `json:"overall"`
	Level     string    `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// ForecastEntryResponse DTO одного шага прогноза риска
type ForecastEntryResponse struct {
	Time time.Time `json:"time"`
	Hour int       `json:"hour"`
	RiskResponse
}
