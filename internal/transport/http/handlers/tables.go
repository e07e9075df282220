package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/tariff"
)

// TableHandler exposes the loaded tariff tables.
type TableHandler struct {
	tables *tariff.Provider
}

// NewTableHandler constructs TableHandler.
func NewTableHandler(tables *tariff.Provider) *TableHandler {
	return &TableHandler{tables: tables}
}

// tableListResponse pairs the canonical key order with per-file metadata.
type tableListResponse struct {
	Keys []string                    `json:"keys"`
	Meta map[string]domain.TableMeta `json:"meta"`
}

// tableResponse wraps one table with its minimum-pay overlay.
type tableResponse struct {
	Key   string             `json:"key"`
	Table domain.TariffTable `json:"table"`
	AtMin map[string]float64 `json:"atMin"`
}

// List returns the loaded table keys in canonical tariff order.
func (h *TableHandler) List(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, tableListResponse{
		Keys: h.tables.ListTableKeys(),
		Meta: h.tables.Meta(),
	})
}

// Get returns one table by key, falling back to the current table.
func (h *TableHandler) Get(c *gin.Context) {
	key := c.Param("key")
	entry, ok := h.tables.GetEntry(key)
	if !ok {
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "not_found", fmt.Sprintf("table '%s' not found", key)))
		return
	}

	c.Header("Cache-Control", "public, max-age=86400, immutable")
	c.JSON(http.StatusOK, tableResponse{
		Key:   key,
		Table: entry.Table,
		AtMin: entry.AtMin,
	})
}
