package http

import (
	"errors"
	"math"
	"net/http"
	"time"

	"pocketbudget/internal/core"
	"pocketbudget/internal/storage"
)

type createCommitmentRequest struct {
	Name          string  `json:"name"`
	MonthlyAmount float64 `json:"monthly_amount"`
	Bucket        string  `json:"bucket"`
}

type commitmentResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	MonthlyAmount float64 `json:"monthly_amount"`
	Bucket        string  `json:"bucket"`
	Active        bool    `json:"active"`
	CreatedAt     string  `json:"created_at"`
}

func toCommitmentResponse(c core.RecurringCommitment) commitmentResponse {
	return commitmentResponse{
		ID:            c.ID,
		Name:          c.Name,
		MonthlyAmount: c.MonthlyAmount,
		Bucket:        c.Bucket.String(),
		Active:        c.Active,
		CreatedAt:     c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleListCommitments(w http.ResponseWriter, r *http.Request) {
	commitments, err := s.svc.ListCommitments(r.Context())
	if err != nil {
		s.logHandlerError(r, "Commitment listing failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list commitments")
		return
	}

	out := struct {
		Commitments []commitmentResponse `json:"commitments"`
	}{Commitments: make([]commitmentResponse, 0, len(commitments))}
	for _, c := range commitments {
		out.Commitments = append(out.Commitments, toCommitmentResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCommitment(w http.ResponseWriter, r *http.Request) {
	var req createCommitmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := sanitizeInput(req.Name)
	if name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	if math.IsNaN(req.MonthlyAmount) || math.IsInf(req.MonthlyAmount, 0) || req.MonthlyAmount < 0 {
		writeError(w, http.StatusUnprocessableEntity, "monthly_amount must be a non-negative number")
		return
	}
	bucket, err := core.ParseBucket(req.Bucket)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown bucket "+req.Bucket)
		return
	}

	created, err := s.svc.AddCommitment(r.Context(), name, req.MonthlyAmount, bucket)
	if err != nil {
		s.logHandlerError(r, "Commitment creation failed", err)
		writeError(w, http.StatusInternalServerError, "failed to create commitment")
		return
	}

	s.invalidateAll()
	writeJSON(w, http.StatusCreated, toCommitmentResponse(created))
}

type setCommitmentActiveRequest struct {
	Active bool `json:"active"`
}

func (s *Server) handleSetCommitmentActive(w http.ResponseWriter, r *http.Request) {
	var req setCommitmentActiveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := r.PathValue("id")
	if err := s.svc.SetCommitmentActive(r.Context(), id, req.Active); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "commitment not found")
			return
		}
		s.logHandlerError(r, "Commitment toggle failed", err)
		writeError(w, http.StatusInternalServerError, "failed to update commitment")
		return
	}

	s.invalidateAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCommitment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.DeleteCommitment(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "commitment not found")
			return
		}
		s.logHandlerError(r, "Commitment deletion failed", err)
		writeError(w, http.StatusInternalServerError, "failed to delete commitment")
		return
	}

	s.invalidateAll()
	w.WriteHeader(http.StatusNoContent)
}
