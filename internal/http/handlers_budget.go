package http

import (
	"math"
	"net/http"

	"pocketbudget/internal/core"
	"pocketbudget/internal/services"
)

// percentageSumTolerance absorbs float accumulation when checking that the
// three bucket percentages sum to 1.0.
const percentageSumTolerance = 0.001

type bucketStatusResponse struct {
	Bucket    string  `json:"bucket"`
	Budgeted  float64 `json:"budgeted"`
	Spent     float64 `json:"spent"`
	Overspent bool    `json:"overspent"`
	Progress  float64 `json:"progress"`
}

type budgetStatusResponse struct {
	Month           string                 `json:"month"`
	EffectiveIncome float64                `json:"effective_income"`
	TotalSpent      float64                `json:"total_spent"`
	SpendCapacity   float64                `json:"spend_capacity"`
	OverspentAmount float64                `json:"overspent_amount"`
	Buckets         []bucketStatusResponse `json:"buckets"`
}

func toBudgetStatusResponse(report services.BudgetReport) budgetStatusResponse {
	out := budgetStatusResponse{
		Month:           report.Month.String(),
		EffectiveIncome: report.EffectiveIncome,
		TotalSpent:      report.TotalSpent,
		SpendCapacity:   report.SpendCapacity,
		OverspentAmount: report.OverspentAmount,
	}
	for _, b := range report.Buckets {
		out.Buckets = append(out.Buckets, bucketStatusResponse{
			Bucket:    b.Bucket.String(),
			Budgeted:  b.Budgeted,
			Spent:     b.Spent,
			Overspent: b.Overspent,
			Progress:  b.Progress,
		})
	}
	return out
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	month := parseMonth(r)

	report, found := s.statusCache.Get(month.String())
	if !found {
		var err error
		report, err = s.svc.BudgetStatus(r.Context(), month)
		if err != nil {
			s.logHandlerError(r, "Budget status failed", err)
			writeError(w, http.StatusInternalServerError, "failed to compute budget status")
			return
		}
		s.statusCache.Set(month.String(), report)
	}

	writeJSON(w, http.StatusOK, toBudgetStatusResponse(report))
}

type budgetConfigPayload struct {
	MonthlyIncome   float64            `json:"monthly_income"`
	Percentages     map[string]float64 `json:"percentages,omitempty"`
	RolloverEnabled bool               `json:"rollover_enabled"`
}

func toBudgetConfigPayload(cfg core.BudgetConfiguration) budgetConfigPayload {
	out := budgetConfigPayload{
		MonthlyIncome:   cfg.MonthlyIncome,
		RolloverEnabled: cfg.RolloverEnabled,
	}
	if len(cfg.BucketPercentages) > 0 {
		out.Percentages = make(map[string]float64, len(cfg.BucketPercentages))
		for b, p := range cfg.BucketPercentages {
			out.Percentages[b.String()] = p
		}
	}
	return out
}

func (s *Server) handleGetBudgetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.svc.BudgetConfig(r.Context())
	if err != nil {
		s.logHandlerError(r, "Budget config load failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load budget config")
		return
	}
	writeJSON(w, http.StatusOK, toBudgetConfigPayload(cfg))
}

func (s *Server) handleUpdateBudgetConfig(w http.ResponseWriter, r *http.Request) {
	var req budgetConfigPayload
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if math.IsNaN(req.MonthlyIncome) || math.IsInf(req.MonthlyIncome, 0) || req.MonthlyIncome < 0 {
		writeError(w, http.StatusUnprocessableEntity, "monthly_income must be a non-negative number")
		return
	}

	cfg := core.BudgetConfiguration{
		MonthlyIncome:   req.MonthlyIncome,
		RolloverEnabled: req.RolloverEnabled,
	}

	if len(req.Percentages) > 0 {
		cfg.BucketPercentages = make(map[core.Bucket]float64, len(req.Percentages))
		var sum float64
		for name, pct := range req.Percentages {
			bucket, err := core.ParseBucket(name)
			if err != nil {
				writeError(w, http.StatusBadRequest, "unknown bucket "+name)
				return
			}
			if math.IsNaN(pct) || math.IsInf(pct, 0) || pct < 0 || pct > 1 {
				writeError(w, http.StatusUnprocessableEntity, "percentages must be in [0, 1]")
				return
			}
			cfg.BucketPercentages[bucket] = pct
			sum += pct
		}
		if len(cfg.BucketPercentages) != len(core.Buckets) ||
			math.Abs(sum-1) > percentageSumTolerance {
			writeError(w, http.StatusUnprocessableEntity, "percentages must cover all three buckets and sum to 1.0")
			return
		}
	}

	if err := s.svc.UpdateBudgetConfig(r.Context(), cfg); err != nil {
		s.logHandlerError(r, "Budget config update failed", err)
		writeError(w, http.StatusInternalServerError, "failed to save budget config")
		return
	}

	s.invalidateAll()
	writeJSON(w, http.StatusOK, toBudgetConfigPayload(cfg.Sanitized()))
}
