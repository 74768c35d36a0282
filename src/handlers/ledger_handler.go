// backend/src/handlers/ledger_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/services"
	"github.com/username/cryptofolio/backend/src/utils"
)

type LedgerHandler struct {
	reportService services.ReportService
}

func NewLedgerHandler(service services.ReportService) *LedgerHandler {
	return &LedgerHandler{
		reportService: service,
	}
}

// HandleGetLedgers returns every asset ledger with ETag support so clients
// polling the dashboard do not re-download unchanged state.
func (h *LedgerHandler) HandleGetLedgers(w http.ResponseWriter, r *http.Request) {
	ledgers, err := h.reportService.GetLedgers()
	if err != nil {
		logger.L.Error("Error retrieving ledgers", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving ledgers: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, private")

	currentETag, etagErr := utils.GenerateETag(ledgers)
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("%q", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, clientETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(clientETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	} else {
		logger.L.Warn("Proceeding without ETag check", "error", etagErr)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ledgers); err != nil {
		logger.L.Error("Error generating JSON response for ledgers", "error", err)
	}
}

// HandleGetLedger returns the ledger for a single asset.
func (h *LedgerHandler) HandleGetLedger(w http.ResponseWriter, r *http.Request) {
	asset := r.PathValue("asset")
	if asset == "" {
		utils.SendJSONError(w, "missing asset path parameter", http.StatusBadRequest)
		return
	}

	ledger, err := h.reportService.GetLedger(asset)
	if err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			utils.SendJSONError(w, fmt.Sprintf("no ledger for asset %s", asset), http.StatusNotFound)
			return
		}
		logger.L.Error("Error retrieving ledger", "asset", asset, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving ledger for %s: %v", asset, err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ledger); err != nil {
		logger.L.Error("Error generating JSON response for ledger", "asset", asset, "error", err)
	}
}
