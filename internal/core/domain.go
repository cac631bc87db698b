package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

// IncomeCategoryKey is the pseudo-category for income-like entries. Entries
// carrying it are excluded from spend aggregation and instead raise the
// month's effective income. It lives in the future-you bucket.
const IncomeCategoryKey = "income"

var (
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyMerchant    = errors.New("empty merchant")
	ErrEmptyCategory    = errors.New("empty category key")
	ErrInvalidBucket    = errors.New("invalid bucket")
	ErrEmptyName        = errors.New("empty name")
	ErrZeroDate         = errors.New("date cannot be zero")
)

type (
	// LedgerEntry is one recorded transaction. Amount is signed: positive is
	// an expense, negative a credit/refund. Notes preserves the raw utterance
	// the entry was captured from, verbatim.
	LedgerEntry struct {
		ID          string
		Merchant    string
		Amount      float64
		CategoryKey string
		Bucket      Bucket
		Date        time.Time
		Notes       string
	}

	// RecurringCommitment is a fixed monthly amount applied uniformly every
	// month while active. Unlike LedgerEntry it is not date-filtered.
	RecurringCommitment struct {
		ID            string
		Name          string
		MonthlyAmount float64
		Bucket        Bucket
		Active        bool
		CreatedAt     time.Time
	}

	// BudgetConfiguration holds the user's budget settings. Percentages are
	// clamped to [0,1] individually; the engine does not enforce that they
	// sum to 1.0 — callers gate commits on that invariant.
	BudgetConfiguration struct {
		MonthlyIncome     float64
		BucketPercentages map[Bucket]float64
		RolloverEnabled   bool
	}

	// BucketStatus is the derived per-bucket view for one month. It is
	// recomputed on demand and never persisted.
	BucketStatus struct {
		Bucket    Bucket
		Budgeted  float64
		Spent     float64
		Overspent bool
		Progress  float64
	}
)

func (e LedgerEntry) Validate() error {
	if !isFinite(e.Amount) {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if strings.TrimSpace(e.CategoryKey) == "" {
		return ErrEmptyCategory
	}
	if !e.Bucket.Valid() {
		return ErrInvalidBucket
	}
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// IsIncome reports whether the entry resolved to the income pseudo-category.
func (e LedgerEntry) IsIncome() bool {
	return e.CategoryKey == IncomeCategoryKey
}

func (c RecurringCommitment) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Bucket.Valid() {
		return ErrInvalidBucket
	}
	return nil
}

// Sanitized returns a copy with MonthlyAmount forced finite and non-negative.
func (c RecurringCommitment) Sanitized() RecurringCommitment {
	c.MonthlyAmount = SanitizeAmount(c.MonthlyAmount)
	return c
}

// Sanitized returns a copy with income forced finite and non-negative and
// every bucket percentage clamped to [0,1]. Missing percentages stay missing;
// the engine substitutes its baseline for those.
func (c BudgetConfiguration) Sanitized() BudgetConfiguration {
	out := BudgetConfiguration{
		MonthlyIncome:   SanitizeAmount(c.MonthlyIncome),
		RolloverEnabled: c.RolloverEnabled,
	}
	if c.BucketPercentages != nil {
		out.BucketPercentages = make(map[Bucket]float64, len(c.BucketPercentages))
		for b, p := range c.BucketPercentages {
			out.BucketPercentages[b] = ClampFraction(p)
		}
	}
	return out
}

// SanitizeAmount forces v finite and non-negative: NaN, infinities and
// negative values all become 0.
func SanitizeAmount(v float64) float64 {
	if !isFinite(v) || v < 0 {
		return 0
	}
	return v
}

// Finite maps NaN and infinities to 0 so they never propagate into results.
func Finite(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}

// ClampFraction clamps v to [0,1], treating non-finite values as 0.
func ClampFraction(v float64) float64 {
	if !isFinite(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
