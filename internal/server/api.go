package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TobiSchelling/NewsIntellect/internal/apperr"
	"github.com/TobiSchelling/NewsIntellect/internal/database"
	"github.com/TobiSchelling/NewsIntellect/internal/export"
	"github.com/TobiSchelling/NewsIntellect/internal/news"
	"github.com/TobiSchelling/NewsIntellect/internal/workflow"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var q news.Query
	if err := decodeJSON(r, &q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	articles, err := s.searcher.Search(r.Context(), q)
	if err != nil {
		s.logger.Warn("search failed", "query", q.Text, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if articles == nil {
		articles = []news.Article{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": articles})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var p workflow.Payload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.analyzer.AnalyzeArticle(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.store.ListAnalyses(r.Context(), database.ListFilter{
		Sentiment: r.URL.Query().Get("sentiment"),
	})
	if err != nil {
		s.logger.Error("listing analyses", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch analyses")
		return
	}
	if analyses == nil {
		analyses = []database.AnalysisWithArticle{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": analyses})
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.DeleteAnalysis(r.Context(), id)
	switch {
	case apperr.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.logger.Error("deleting analysis", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete analysis")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Analysis deleted successfully"})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.store.ListAnalyses(r.Context(), database.ListFilter{
		Sentiment: r.URL.Query().Get("sentiment"),
	})
	if err != nil {
		s.logger.Error("listing analyses for export", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export analyses")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(s.now())+`"`)
	if err := export.WriteCSV(w, analyses); err != nil {
		s.logger.Error("writing csv", "error", err)
	}
}

// decodeJSON decodes a request body into v, reporting problems as
// validation errors.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("", "request body is required")
		}
		return apperr.Validation("", "invalid JSON body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}
