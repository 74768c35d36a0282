// backend/src/handlers/tax_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/username/cryptofolio/backend/src/config"
	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/models"
	"github.com/username/cryptofolio/backend/src/services"
	"github.com/username/cryptofolio/backend/src/utils"
)

type TaxHandler struct {
	reportService services.ReportService
}

func NewTaxHandler(service services.ReportService) *TaxHandler {
	return &TaxHandler{
		reportService: service,
	}
}

// HandleGetTaxReport returns the full report for one fiscal year.
// Query params: year (defaults to last year), method (defaults to config).
func (h *TaxHandler) HandleGetTaxReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.L.Error("Error generating JSON response for tax report", "error", err)
	}
}

// HandleGetTaxReportRows returns only the flat export rows, ready for a
// CSV/tabular writer.
func (h *TaxHandler) HandleGetTaxReportRows(w http.ResponseWriter, r *http.Request) {
	report, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	rows := report.Rows
	if rows == nil {
		rows = []models.TaxReportRow{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		logger.L.Error("Error generating JSON response for tax report rows", "error", err)
	}
}

func (h *TaxHandler) buildReport(w http.ResponseWriter, r *http.Request) (*models.TaxYearReport, bool) {
	year := time.Now().Year() - 1
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		parsed, err := strconv.Atoi(yearStr)
		if err != nil {
			utils.SendJSONError(w, fmt.Sprintf("invalid year: %s", yearStr), http.StatusBadRequest)
			return nil, false
		}
		year = parsed
	}

	method := models.CostBasisMethod(config.Cfg.CostBasisMethod)
	if methodStr := r.URL.Query().Get("method"); methodStr != "" {
		method = models.CostBasisMethod(strings.ToUpper(methodStr))
	}
	if !method.Valid() {
		utils.SendJSONError(w, fmt.Sprintf("invalid cost basis method: %s (use FIFO or AVERAGE_COST)", method), http.StatusBadRequest)
		return nil, false
	}

	report, err := h.reportService.GetTaxReport(r.Context(), year, method)
	if err != nil {
		if errors.Is(err, models.ErrRateUnavailable) {
			logger.L.Error("Tax report failed on missing exchange rate", "year", year, "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Report failed: %v", err), http.StatusBadGateway)
			return nil, false
		}
		logger.L.Error("Error building tax report", "year", year, "method", method, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error building tax report for %d: %v", year, err), http.StatusInternalServerError)
		return nil, false
	}
	return report, true
}
