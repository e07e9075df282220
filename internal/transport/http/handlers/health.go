package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/tariff"
)

// HealthHandler exposes liveness information.
type HealthHandler struct {
	startedAt time.Time
	tables    *tariff.Provider
}

// NewHealthHandler builds a new health handler instance.
func NewHealthHandler(tables *tariff.Provider) *HealthHandler {
	return &HealthHandler{startedAt: time.Now().UTC(), tables: tables}
}

// Status returns the service status and the number of loaded tariff tables.
func (h *HealthHandler) Status(c *gin.Context) {
	count := 0
	if h.tables != nil {
		count = len(h.tables.ListTableKeys())
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		StartedAt: h.startedAt,
		Tables:    count,
	})
}
