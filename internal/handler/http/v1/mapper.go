package v1

import "github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	resp := &IncidentResponse{
		ID:        model.ID,
		Type:      string(model.Type),
		Score:     model.Score,
		RiskLevel: string(model.RiskLevel),
		Priority:  string(model.Priority),
		Status:    string(model.Status),
		Tourist:   model.TouristName,
		TouristID: model.TouristID,
		Factors:   model.Factors,
		Evidence:  model.Evidence,
		Updates:   model.Updates,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
	if model.Location != nil {
		resp.Latitude = &model.Location.Latitude
		resp.Longitude = &model.Location.Longitude
	}
	if model.EFIR != nil {
		resp.FIRNumber = model.EFIR.FIRNumber
		resp.Jurisdiction = model.EFIR.Location.Jurisdiction
	}
	if model.AssignedResponder != nil {
		resp.AssignedResponder = &ResponderResponse{
			ID:   model.AssignedResponder.ID,
			Name: model.AssignedResponder.Name,
		}
	}
	return resp
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(incidents []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(incidents))
	for i, model := range incidents {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

// SnapshotToRiskResponse преобразует снимок риска в DTO
func SnapshotToRiskResponse(s *models.RiskSnapshot) RiskResponse {
	return RiskResponse{
		Weather:   s.Weather,
		Crime:     s.Crime,
		Political: s.Political,
		Overall:   s.Overall,
		Level:     string(s.Level),
		Timestamp: s.Timestamp,
	}
}

// ForecastToResponses преобразует прогноз в слайс DTO
func ForecastToResponses(entries []models.RiskForecastEntry) []ForecastEntryResponse {
	responses := make([]ForecastEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = ForecastEntryResponse{
			Time:         e.Time,
			Hour:         e.Hour,
			RiskResponse: SnapshotToRiskResponse(&e.RiskSnapshot),
		}
	}
	return responses
}
