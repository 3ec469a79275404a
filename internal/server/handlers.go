package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "price-monitor/internal/errors"
	"price-monitor/internal/export"
	"price-monitor/internal/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) // response already committed
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.Is(err, apperrors.ErrSymbolNotTracked):
		status = http.StatusNotFound
	case apperrors.Is(err, apperrors.ErrInvalidSymbol),
		apperrors.Is(err, apperrors.ErrMalformedInput),
		apperrors.Is(err, apperrors.ErrUnknownKind):
		status = http.StatusUnprocessableEntity
	case apperrors.Is(err, apperrors.ErrProviderUnavailable):
		status = http.StatusServiceUnavailable
	case apperrors.Is(err, apperrors.ErrServiceStopped):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleListSymbols(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"symbols": s.svc.Symbols()})
}

type addSymbolRequest struct {
	Symbol string `json:"symbol"`
}

func (s *Server) handleAddSymbol(w http.ResponseWriter, r *http.Request) {
	var req addSymbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.NewValidationError("body", "", "invalid JSON", apperrors.ErrMalformedInput))
		return
	}
	res, err := s.svc.AddSymbol(r.Context(), req.Symbol)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if !res.Added {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (s *Server) handleRemoveSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if _, err := s.svc.RemoveSymbol(r.Context(), symbol); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"symbol": models.NormalizeSymbol(symbol), "removed": true})
}

func (s *Server) handleListThresholds(w http.ResponseWriter, r *http.Request) {
	symbol := models.NormalizeSymbol(chi.URLParam(r, "symbol"))
	views, err := s.svc.Thresholds(symbol)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"symbol": symbol, "thresholds": views})
}

type thresholdRequest struct {
	Kind string `json:"kind"`
	// Value is normally a string; a bare JSON number is accepted too.
	Value json.RawMessage `json:"value"`
}

func (t thresholdRequest) value() string {
	raw := bytes.TrimSpace(t.Value)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (s *Server) handleAddThreshold(w http.ResponseWriter, r *http.Request) {
	symbol := models.NormalizeSymbol(chi.URLParam(r, "symbol"))
	var req thresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.NewValidationError("body", "", "invalid JSON", apperrors.ErrMalformedInput))
		return
	}
	added, err := s.svc.AddThreshold(r.Context(), symbol, req.Kind, req.value())
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]interface{}{"symbol": symbol, "added": added})
}

func (s *Server) handleRemoveThreshold(w http.ResponseWriter, r *http.Request) {
	symbol := models.NormalizeSymbol(chi.URLParam(r, "symbol"))
	removed, err := s.svc.RemoveThreshold(r.Context(), symbol, chi.URLParam(r, "kind"), chi.URLParam(r, "value"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "threshold not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"symbol": symbol, "removed": true})
}

type historyRecord struct {
	Timestamp  time.Time                `json:"timestamp"`
	Symbol     string                   `json:"symbol"`
	Price      float64                  `json:"price"`
	Change     *float64                 `json:"change_percent"`
	Thresholds models.ThresholdSnapshot `json:"thresholds"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records := s.svc.History()
	out := make([]historyRecord, len(records))
	for i, o := range records {
		out[i] = historyRecord{
			Timestamp:  o.Timestamp.In(s.svc.Location()),
			Symbol:     o.Symbol,
			Price:      o.Price,
			Change:     o.ChangePercent,
			Thresholds: o.Thresholds,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(out), "records": out})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearHistory(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		raw = string(export.FormatCSV)
	}
	format, err := export.ParseFormat(raw)
	if err != nil || format == export.FormatSQLite {
		writeError(w, apperrors.NewValidationError("format", raw, "must be csv or xlsx", apperrors.ErrMalformedInput))
		return
	}

	records := s.svc.History()
	if len(records) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "history is empty"})
		return
	}

	var buf bytes.Buffer
	switch format {
	case export.FormatCSV:
		err = export.WriteCSV(&buf, records, s.svc.Location())
		w.Header().Set("Content-Type", "text/csv")
	case export.FormatXLSX:
		err = export.WriteXLSX(&buf, records, s.svc.Location())
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	}
	if err != nil {
		writeError(w, err)
		return
	}

	name := export.FileName("stock_data", format, time.Now().In(s.svc.Location()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
