package handlers

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/tariff"
)

var payGroupPattern = regexp.MustCompile(`^(EG\d{2}|AJ[1-4])$`)

// CalcHandler exposes the wage calculation endpoint.
type CalcHandler struct {
	tables *tariff.Provider
}

// NewCalcHandler constructs CalcHandler.
func NewCalcHandler(tables *tariff.Provider) *CalcHandler {
	return &CalcHandler{tables: tables}
}

// Calculate validates the request and runs the wage calculation against the
// loaded tables. Calculation failures surface as validation errors since they
// stem from the input referencing missing tables, groups or steps.
func (h *CalcHandler) Calculate(c *gin.Context) {
	var req CalcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", "invalid calculation payload"))
		return
	}
	if !payGroupPattern.MatchString(req.Eg) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", "invalid pay group"))
		return
	}

	period := tariff.TZugBUntil2025
	if req.TZugBPeriod == string(tariff.TZugBFrom2026) {
		period = tariff.TZugBFrom2026
	}

	result, err := tariff.Calculate(h.tables, tariff.Input{
		TariffDate:     req.TariffDate,
		PayGroup:       req.Eg,
		Step:           req.Stufe,
		IrwazHours:     req.IrwazHours,
		PerformancePct: req.LeistungsPct,
		VacationDays:   req.Urlaubstage,
		TenureMonths:   req.BetriebsMonate,
		TZugBPeriod:    period,
		OwnChildren:    req.EigeneKinder,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", err.Error()))
		return
	}

	c.JSON(http.StatusOK, result)
}
