// Package budget computes per-bucket allocation, spend, overspend and rollover
// carryover from ledger snapshots. Every method is a pure function over the
// snapshot it is handed; the engine holds configuration only and never touches
// storage.
package budget

import (
	"pocketbudget/internal/core"
)

// RolloverDepth bounds how far back carryover looks. Beyond this window prior
// months contribute nothing, so the fold terminates regardless of history.
const RolloverDepth = 24

// ProgressCap is the upper clamp on the spent/budgeted ratio.
const ProgressCap = 1.5

// baselinePercentages apply for any bucket without a configured percentage.
var baselinePercentages = map[core.Bucket]float64{
	core.BucketFundamentals: 0.50,
	core.BucketFun:          0.30,
	core.BucketFutureYou:    0.20,
}

// Snapshot is the read-only input to every engine computation: the dated
// ledger plus the recurring commitments in force.
type Snapshot struct {
	Entries     []core.LedgerEntry
	Commitments []core.RecurringCommitment
}

// Engine evaluates budget formulas against a configuration. Construct one per
// configuration read; it holds no other state.
type Engine struct {
	cfg core.BudgetConfiguration
}

func NewEngine(cfg core.BudgetConfiguration) *Engine {
	return &Engine{cfg: cfg.Sanitized()}
}

// Config returns the sanitized configuration the engine computes with.
func (e *Engine) Config() core.BudgetConfiguration {
	return e.cfg
}

// Percentage returns the configured fraction for a bucket, falling back to the
// 50/30/20 baseline when the bucket has no configured value.
func (e *Engine) Percentage(b core.Bucket) float64 {
	if p, ok := e.cfg.BucketPercentages[b]; ok {
		return core.ClampFraction(p)
	}
	return baselinePercentages[b]
}

// BucketBudget is the base allocation for a bucket at a given month income,
// before carryover.
func (e *Engine) BucketBudget(b core.Bucket, monthIncome float64) float64 {
	return core.SanitizeAmount(monthIncome) * e.Percentage(b)
}

// EffectiveMonthlyIncome is the configured income plus the absolute value of
// every income entry dated in the month.
func (e *Engine) EffectiveMonthlyIncome(snap Snapshot, month core.Month) float64 {
	income := e.cfg.MonthlyIncome
	for _, entry := range snap.Entries {
		if entry.IsIncome() && month.Contains(entry.Date) {
			income += abs(core.Finite(entry.Amount))
		}
	}
	return core.SanitizeAmount(income)
}

// TotalSpent sums non-income entry amounts for the month plus every active
// recurring commitment. Commitments are not date-filtered. Credits carry
// negative amounts, so the sum can dip below the commitment floor.
func (e *Engine) TotalSpent(snap Snapshot, month core.Month) float64 {
	var total float64
	for _, entry := range snap.Entries {
		if !entry.IsIncome() && month.Contains(entry.Date) {
			total += core.Finite(entry.Amount)
		}
	}
	for _, c := range snap.Commitments {
		if c.Active {
			total += core.SanitizeAmount(c.MonthlyAmount)
		}
	}
	return core.Finite(total)
}

// bucketSpent is TotalSpent restricted to one bucket.
func (e *Engine) bucketSpent(snap Snapshot, b core.Bucket, month core.Month) float64 {
	var total float64
	for _, entry := range snap.Entries {
		if entry.Bucket == b && !entry.IsIncome() && month.Contains(entry.Date) {
			total += core.Finite(entry.Amount)
		}
	}
	for _, c := range snap.Commitments {
		if c.Active && c.Bucket == b {
			total += core.SanitizeAmount(c.MonthlyAmount)
		}
	}
	return core.Finite(total)
}

// Carryover is the unspent allocation carried into month from prior months.
// It is 0 unless rollover is enabled and the bucket is rollover-eligible.
//
// The recursive definition (carryover of a month depends on the prior month's
// budget, carryover and spend) is computed as an iterative fold from the
// oldest month in the window forward. Months with no dated ledger entries at
// all ground the fold at 0: an empty month has no recorded history to carry.
func (e *Engine) Carryover(snap Snapshot, b core.Bucket, month core.Month) float64 {
	if !e.cfg.RolloverEnabled || !b.RolloverEligible() {
		return 0
	}
	var carry float64
	for i := RolloverDepth; i >= 1; i-- {
		m := month.AddMonths(-i)
		if !e.hasEntries(snap, m) {
			carry = 0
			continue
		}
		budgeted := e.BucketBudget(b, e.EffectiveMonthlyIncome(snap, m)) + carry
		leftover := budgeted - e.bucketSpent(snap, b, m)
		if leftover < 0 {
			leftover = 0
		}
		carry = core.SanitizeAmount(leftover)
	}
	return carry
}

func (e *Engine) hasEntries(snap Snapshot, month core.Month) bool {
	for _, entry := range snap.Entries {
		if month.Contains(entry.Date) {
			return true
		}
	}
	return false
}

// Status computes the per-bucket view for the month, in fixed bucket order.
// It is a pure read: calling it twice on an unchanged snapshot returns
// identical results.
func (e *Engine) Status(snap Snapshot, month core.Month) []core.BucketStatus {
	income := e.EffectiveMonthlyIncome(snap, month)
	out := make([]core.BucketStatus, 0, len(core.Buckets))
	for _, b := range core.Buckets {
		budgeted := e.BucketBudget(b, income) + e.Carryover(snap, b, month)
		spent := e.bucketSpent(snap, b, month)
		out = append(out, core.BucketStatus{
			Bucket:    b,
			Budgeted:  budgeted,
			Spent:     spent,
			Overspent: spent > budgeted,
			Progress:  progress(spent, budgeted),
		})
	}
	return out
}

// MonthSpendCapacity is the month's effective income plus, when rollover is
// enabled, the carryover of every rollover-eligible bucket.
func (e *Engine) MonthSpendCapacity(snap Snapshot, month core.Month) float64 {
	capacity := e.EffectiveMonthlyIncome(snap, month)
	if e.cfg.RolloverEnabled {
		for _, b := range core.Buckets {
			if b.RolloverEligible() {
				capacity += e.Carryover(snap, b, month)
			}
		}
	}
	return core.SanitizeAmount(capacity)
}

// MonthlyOverspentAmount is how far the month's total spend exceeds its
// capacity, floored at 0.
func (e *Engine) MonthlyOverspentAmount(snap Snapshot, month core.Month) float64 {
	over := e.TotalSpent(snap, month) - e.MonthSpendCapacity(snap, month)
	if over < 0 {
		return 0
	}
	return core.Finite(over)
}

// progress is spent/budgeted clamped to [0, ProgressCap], or 0 when there is
// no budget to measure against.
func progress(spent, budgeted float64) float64 {
	if budgeted <= 0 {
		return 0
	}
	p := core.Finite(spent / budgeted)
	if p < 0 {
		return 0
	}
	if p > ProgressCap {
		return ProgressCap
	}
	return p
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
