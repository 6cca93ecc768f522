package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/config"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	incidentService service.IncidentService
	riskService     *service.RiskService
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
}

func NewHandler(incidentService service.IncidentService, riskService *service.RiskService, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		incidentService: incidentService,
		riskService:     riskService,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
	}
}

// @Summary Get a list of incidents
// @Description Get a paginated list of all incidents. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Success 200 {array} IncidentResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Description Get a single incident by its ID (INC-YYYYMMDD-NNNN). Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from service")
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Update incident status
// @Description Transition an incident to a new lifecycle status. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param status body UpdateStatusRequest true "Status transition request"
// @Success 200 {object} UpdateResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Transition not allowed"
// @Router /incidents/{id}/status [patch]
func (h *Handler) updateStatus(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "updateStatus").WithField("id", id)

	var input UpdateStatusRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update, err := h.incidentService.UpdateStatus(c.Request.Context(), id, models.IncidentStatus(input.Status), input.Remarks)
	if err != nil {
		log.WithError(err).Warn("Failed to update incident status")
		if strings.Contains(err.Error(), "not allowed") {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}

	c.JSON(http.StatusOK, UpdateResponse{
		Status:    string(update.Status),
		Remarks:   update.Remarks,
		UpdatedAt: update.UpdatedAt,
		UpdatedBy: update.UpdatedBy,
	})
}

// @Summary Attach evidence to an incident
// @Description Attach an evidence record to an existing incident. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param evidence body AddEvidenceRequest true "Evidence request"
// @Success 201 {object} models.Evidence
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id}/evidence [post]
func (h *Handler) addEvidence(c *gin.Context) {
	id := c.Param("id")
	log := h.logger.WithField("method", "addEvidence").WithField("id", id)

	var input AddEvidenceRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evidence, err := h.incidentService.AddEvidence(c.Request.Context(), id, service.EvidenceInput{
		Type:        input.Type,
		Description: input.Description,
		AddedBy:     input.AddedBy,
		Data:        input.Data,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to add evidence")
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}

	c.JSON(http.StatusCreated, evidence)
}

// @Summary Raise a manual SOS
// @Description Create a critical SOS incident for a tourist at the given location. Requires API key.
// @Tags SOS
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param sos body SOSRequest true "SOS request"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /sos [post]
func (h *Handler) createSOS(c *gin.Context) {
	var input SOSRequest
	log := h.logger.WithField("method", "createSOS")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	factors := []string{"Manual SOS trigger"}
	if input.Message != "" {
		factors = append(factors, input.Message)
	}

	incident := h.incidentService.CreateIncident(c.Request.Context(), &models.Incident{
		Type:        models.IncidentTypeSOS,
		Score:       1.0,
		RiskLevel:   models.RiskLevelRed,
		TouristName: input.Name,
		TouristID:   input.TouristID,
		DigitalID:   input.DigitalID,
		Location:    &models.Location{Latitude: input.Latitude, Longitude: input.Longitude},
		Factors:     factors,
	})

	c.JSON(http.StatusCreated, ModelToIncidentResponse(incident))
}

// @Summary Get risk snapshot for a location
// @Description Assess weather, crime and political risk for the given coordinates. Requires API key.
// @Tags Risk
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Success 200 {object} RiskResponse
// @Failure 400 {object} map[string]string "Invalid coordinates"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /risk [get]
func (h *Handler) getRisk(c *gin.Context) {
	log := h.logger.WithField("method", "getRisk")

	lat, lon, ok := parseCoordinates(c)
	if !ok {
		return
	}

	snapshot, err := h.riskService.Assess(c.Request.Context(), lat, lon)
	if err != nil {
		log.WithError(err).Warn("Risk assessment rejected coordinates")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, SnapshotToRiskResponse(snapshot))
}

// @Summary Get risk forecast for a location
// @Description Forecast risk for the given coordinates over a horizon in 6-hour steps. Requires API key.
// @Tags Risk
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Param hours query int false "Forecast horizon in hours" default(24)
// @Success 200 {array} ForecastEntryResponse
// @Failure 400 {object} map[string]string "Invalid coordinates"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /risk/forecast [get]
func (h *Handler) getRiskForecast(c *gin.Context) {
	log := h.logger.WithField("method", "getRiskForecast")

	lat, lon, ok := parseCoordinates(c)
	if !ok {
		return
	}
	hours, _ := strconv.Atoi(c.DefaultQuery("hours", "24"))

	forecast, err := h.riskService.Forecast(c.Request.Context(), lat, lon, hours)
	if err != nil {
		log.WithError(err).Warn("Risk forecast rejected coordinates")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ForecastToResponses(forecast))
}

// parseCoordinates читает lat/lon из query-параметров
func parseCoordinates(c *gin.Context) (float64, float64, bool) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon query parameters are required"})
		return 0, 0, false
	}
	return lat, lon, true
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
