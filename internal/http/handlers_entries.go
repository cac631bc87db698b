package http

import (
	"errors"
	"net/http"
	"time"

	"pocketbudget/internal/core"
	"pocketbudget/internal/extract"
	"pocketbudget/internal/services"
	"pocketbudget/internal/storage"
)

type createEntryRequest struct {
	ModelOutput string   `json:"model_output"`
	Utterance   string   `json:"utterance"`
	Labels      []string `json:"labels,omitempty"`
	Date        string   `json:"date,omitempty"`
}

type entryResponse struct {
	ID          string  `json:"id"`
	Merchant    string  `json:"merchant"`
	Amount      float64 `json:"amount"`
	CategoryKey string  `json:"category_key"`
	Bucket      string  `json:"bucket"`
	Date        string  `json:"date"`
	Notes       string  `json:"notes,omitempty"`
}

func toEntryResponse(e core.LedgerEntry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		Merchant:    e.Merchant,
		Amount:      e.Amount,
		CategoryKey: e.CategoryKey,
		Bucket:      e.Bucket.String(),
		Date:        e.Date.UTC().Format(time.RFC3339),
		Notes:       e.Notes,
	}
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	modelOutput := sanitizeInput(req.ModelOutput)
	utterance := sanitizeInput(req.Utterance)
	if modelOutput == "" || utterance == "" {
		writeError(w, http.StatusBadRequest, "model_output and utterance are required")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	entry, err := s.svc.CaptureEntry(r.Context(), services.CaptureRequest{
		ModelOutput: modelOutput,
		Utterance:   utterance,
		Labels:      req.Labels,
		Date:        date,
	})
	if err != nil {
		if errors.Is(err, extract.ErrNoStructuredData) {
			writeError(w, http.StatusUnprocessableEntity, "could not extract a transaction from the model output")
			return
		}
		s.logHandlerError(r, "Entry capture failed", err)
		writeError(w, http.StatusInternalServerError, "failed to record entry")
		return
	}

	structuredLogger(r.Context()).LogEntryRecorded(r.Context(), entry.ID, entry.Merchant, entry.Amount,
		entry.CategoryKey, entry.Bucket.String())

	s.invalidateMonth(core.MonthOf(entry.Date))
	writeJSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	month := parseMonth(r)

	entries, found := s.entriesCache.Get(month.String())
	if !found {
		var err error
		entries, err = s.svc.ListEntries(r.Context(), month)
		if err != nil {
			s.logHandlerError(r, "Entry listing failed", err)
			writeError(w, http.StatusInternalServerError, "failed to list entries")
			return
		}
		s.entriesCache.Set(month.String(), entries)
	}

	out := struct {
		Month   string          `json:"month"`
		Entries []entryResponse `json:"entries"`
	}{Month: month.String(), Entries: make([]entryResponse, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.svc.GetEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		s.logHandlerError(r, "Entry lookup failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load entry")
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	entry, err := s.svc.GetEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		s.logHandlerError(r, "Entry lookup failed", err)
		writeError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}

	if err := s.svc.DeleteEntry(r.Context(), id); err != nil {
		s.logHandlerError(r, "Entry deletion failed", err)
		writeError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}

	s.invalidateMonth(core.MonthOf(entry.Date))
	w.WriteHeader(http.StatusNoContent)
}
