// Package server exposes the census viewer over a JSON HTTP API. It is the
// serving collaborator of the core pipeline; all domain errors originate in
// the packages below it and are only mapped to status codes here.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/censusview/internal/census"
	"github.com/sells-group/censusview/internal/geostore"
	"github.com/sells-group/censusview/internal/transform"
	"github.com/sells-group/censusview/internal/view"
	"github.com/sells-group/censusview/internal/viewer"
)

// Server handles HTTP requests for the census viewer.
type Server struct {
	store  *geostore.Store
	viewer *viewer.Viewer
}

// New creates a Server.
func New(store *geostore.Store, v *viewer.Viewer) *Server {
	return &Server{store: store, viewer: v}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/states", s.handleStates)
		r.Get("/states/{state}/counties", s.handleCounties)
		r.Get("/choices", s.handleChoices)
		r.Get("/variables", s.handleVariables)
		r.Post("/view", s.handleView)
		r.Post("/export", s.handleExport)
	})

	return r
}

// requestLogger tags each request with an id and logs its outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()
		start := time.Now()
		w.Header().Set("X-Request-Id", reqID)

		next.ServeHTTP(w, r)

		zap.L().Info("request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	states, err := s.store.States(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"states": states})
}

func (s *Server) handleCounties(w http.ResponseWriter, r *http.Request) {
	state := chi.URLParam(r, "state")
	counties, err := s.store.Counties(r.Context(), state)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state, "counties": counties})
}

func (s *Server) handleChoices(w http.ResponseWriter, r *http.Request) {
	choices, err := s.store.CountyChoices(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"choices": choices})
}

func (s *Server) handleVariables(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"variables": s.viewer.Catalog().Groups()})
}

// viewRequest is the body of /api/view and /api/export.
type viewRequest struct {
	Counties    []census.Geography `json:"counties"`
	VariableIDs []string           `json:"variable_ids"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	dict, cols, err := s.viewer.DictView(r.Context(), req.Counties, req.VariableIDs)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"columns":    cols,
		"categories": view.SortedCategories(dict),
		"data":       sanitizeDict(dict),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Counties) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no counties selected"})
		return
	}

	f, err := s.viewer.Formatted(r.Context(), req.Counties, req.VariableIDs)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	switch format := r.URL.Query().Get("format"); format {
	case "xlsx":
		if err := view.WriteXLSX(&buf, f); err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="census_data.xlsx"`)
	case "", "csv":
		if err := view.WriteCSV(&buf, f); err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="census_data.csv"`)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown format " + format})
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// writeError maps domain errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var upErr *census.UpstreamError
	var exprErr *transform.ExpressionError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, geostore.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &upErr):
		status = http.StatusBadGateway
	case errors.As(err, &exprErr):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	} else {
		zap.L().Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// sanitizeDict replaces NaN and Inf values with nil so the view encodes as
// valid JSON.
func sanitizeDict(d map[string][][]any) map[string][][]any {
	for _, rows := range d {
		for _, row := range rows {
			for i, cell := range row {
				if v, ok := cell.(float64); ok && (math.IsNaN(v) || math.IsInf(v, 0)) {
					row[i] = nil
				}
			}
		}
	}
	return d
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
