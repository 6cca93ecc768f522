package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1.
// Все маршруты, кроме health-check, защищены API-ключом.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	auth := APIKeyAuthMiddleware(h.cfg, h.logger)

	// Маршруты жизненного цикла инцидентов
	incidents := api.Group("/incidents", auth)
	{
		incidents.GET("", h.listIncidents)
		incidents.GET("/:id", h.getIncident)
		incidents.PATCH("/:id/status", h.updateStatus)
		incidents.POST("/:id/evidence", h.addEvidence)
	}

	// Ручной сигнал SOS
	api.POST("/sos", auth, h.createSOS)

	// Оценка и прогноз риска местности
	risk := api.Group("/risk", auth)
	{
		risk.GET("", h.getRisk)
		risk.GET("/forecast", h.getRiskForecast)
	}

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
