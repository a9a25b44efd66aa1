package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/SimonWaldherr/sqlmystery/internal/exporter"
	"github.com/SimonWaldherr/sqlmystery/internal/query"
	"github.com/SimonWaldherr/sqlmystery/internal/store"
)

type queryRequest struct {
	SQL string `json:"sql"`
}

type queryResponse struct {
	query.Outcome
	Count int `json:"count"`
}

type checkRequest struct {
	Answer string `json:"answer"`
}

type checkResponse struct {
	Correct bool `json:"correct"`
}

type schemaResponse struct {
	Tables []store.TableInfo `json:"tables"`
}

// handleAPIQuery runs {"sql": ...}. A failed query is still a 200 with the
// outcome's error; ?format=csv|xml|json turns the rows into a download.
func (h *Handler) handleAPIQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	out := h.backend.Run(r.Context(), req.SQL)

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		writeJSON(w, queryResponse{Outcome: out, Count: out.Count()})
		return
	}
	switch format {
	case "csv", "json", "xml":
	default:
		http.Error(w, "unsupported format "+format, http.StatusBadRequest)
		return
	}
	if out.Kind == query.Failed {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(out)
		return
	}
	w.Header().Set("Content-Type", exporter.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="result.`+format+`"`)
	if err := exporter.Write(w, format, out, exporter.Options{PrettyJSON: true}); err != nil {
		h.log.Warnw("export failed", "format", format, "error", err)
	}
}

func (h *Handler) handleAPICheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, checkResponse{Correct: h.backend.Check(req.Answer)})
}

func (h *Handler) handleAPISchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tables, err := h.backend.Schema(r.Context())
	if err != nil {
		h.log.Errorw("schema", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, schemaResponse{Tables: tables})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
