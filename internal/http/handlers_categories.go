package http

import (
	"errors"
	"net/http"

	"pocketbudget/internal/core"
	"pocketbudget/internal/services"
)

type createCategoryRequest struct {
	Name   string `json:"name"`
	Bucket string `json:"bucket"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Categories []services.CategoryView `json:"categories"`
	}{Categories: s.svc.ListCategories()})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bucket, err := core.ParseBucket(req.Bucket)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown bucket "+req.Bucket)
		return
	}

	name := sanitizeInput(req.Name)
	created, err := s.svc.AddCustomCategory(r.Context(), name, bucket)
	if err != nil {
		if errors.Is(err, services.ErrCategoryRejected) {
			conflict := struct {
				Error      string `json:"error"`
				Suggestion string `json:"suggestion,omitempty"`
			}{Error: "category name is empty or collides with an existing category"}
			if hint, ok := s.svc.SuggestCategory(name); ok {
				conflict.Suggestion = hint
			}
			writeJSON(w, http.StatusConflict, conflict)
			return
		}
		s.logHandlerError(r, "Category creation failed", err)
		writeError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	writeJSON(w, http.StatusCreated, services.CategoryView{
		Key:         created.Key,
		DisplayName: created.DisplayName,
		Bucket:      created.Bucket,
		Custom:      true,
	})
}

type renameCategoryRequest struct {
	DisplayName string `json:"display_name"`
}

// handleRenameCategory overrides a canonical display name. An empty display
// name clears the override.
func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	var req renameCategoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key := r.PathValue("key")
	if err := s.svc.RenameCategory(r.Context(), key, sanitizeInput(req.DisplayName)); err != nil {
		if errors.Is(err, services.ErrCategoryRejected) {
			writeError(w, http.StatusNotFound, "unknown category "+key)
			return
		}
		s.logHandlerError(r, "Category rename failed", err)
		writeError(w, http.StatusInternalServerError, "failed to rename category")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
