// Package filings provides the HTTP API over the filing summary engine.
package filings

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sec_filings/pkg/core/edgar"
	"sec_filings/pkg/core/report"
	"sec_filings/pkg/core/summary"
)

// Handler serves the filing endpoints.
type Handler struct {
	service  *summary.Service
	client   *edgar.Client
	resolver *edgar.Resolver
	log      *zap.Logger
}

// NewHandler wires a handler over the summary service.
func NewHandler(service *summary.Service, client *edgar.Client, resolver *edgar.Resolver, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, client: client, resolver: resolver, log: log}
}

// HandleSummary handles POST /api/filings/summary. With ?format=markdown
// the response is a rendered digest instead of the structured JSON shape.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req summary.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	requestID := uuid.NewString()
	log := h.log.With(zap.String("request_id", requestID))
	log.Info("summary request",
		zap.String("ticker", req.Ticker),
		zap.String("cik", req.CIK),
		zap.String("company", req.CompanyName),
		zap.String("form", req.FormType),
	)

	filing, err := h.service.Summarize(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		var resolutionErr *edgar.ResolutionError
		var noFilingErr *summary.NoFilingError
		var fetchErr *edgar.FetchError
		switch {
		case errors.As(err, &resolutionErr), errors.As(err, &noFilingErr):
			status = http.StatusNotFound
		case errors.As(err, &fetchErr):
			status = http.StatusBadGateway
		}
		log.Warn("summary request failed", zap.Int("status", status), zap.Error(err))
		writeError(w, status, err.Error(), requestID)
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		digest, err := report.RenderMarkdown(filing)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error(), requestID)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(digest))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(filing)
}

// HandleRecent handles GET /api/filings/recent: the company's latest
// filings from the EDGAR atom feed.
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.NewString()
	q := r.URL.Query()
	formType := q.Get("form")
	limit, _ := strconv.Atoi(q.Get("limit"))

	identity, err := h.resolver.Resolve(r.Context(), edgar.Query{
		Ticker:      q.Get("ticker"),
		CIK:         q.Get("cik"),
		CompanyName: q.Get("company"),
	}, formType)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), requestID)
		return
	}

	entries, err := h.client.RecentFilingsFeed(r.Context(), identity.CanonicalID, formType, limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error(), requestID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"cik":     identity.CanonicalID,
		"company": identity.CompanyName,
		"filings": entries,
	})
}

func writeError(w http.ResponseWriter, status int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":      message,
		"request_id": requestID,
	})
}
