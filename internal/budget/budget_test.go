package budget

import (
	"math"
	"reflect"
	"testing"
	"time"

	"pocketbudget/internal/core"
)

var testMonth = core.Month{Year: 2026, Month: 8}

func dateIn(m core.Month, day int) time.Time {
	return time.Date(m.Year, time.Month(m.Month), day, 12, 0, 0, 0, time.UTC)
}

func entry(m core.Month, day int, amount float64, key string, b core.Bucket) core.LedgerEntry {
	return core.LedgerEntry{
		ID:          "e",
		Merchant:    "m",
		Amount:      amount,
		CategoryKey: key,
		Bucket:      b,
		Date:        dateIn(m, day),
	}
}

func TestPercentageBaseline(t *testing.T) {
	e := NewEngine(core.BudgetConfiguration{MonthlyIncome: 1000})
	if got := e.Percentage(core.BucketFundamentals); got != 0.50 {
		t.Errorf("fundamentals = %v, want 0.50", got)
	}
	if got := e.Percentage(core.BucketFun); got != 0.30 {
		t.Errorf("fun = %v, want 0.30", got)
	}
	if got := e.Percentage(core.BucketFutureYou); got != 0.20 {
		t.Errorf("future_you = %v, want 0.20", got)
	}

	e = NewEngine(core.BudgetConfiguration{
		MonthlyIncome:     1000,
		BucketPercentages: map[core.Bucket]float64{core.BucketFun: 2.5},
	})
	if got := e.Percentage(core.BucketFun); got != 1 {
		t.Errorf("clamped fun = %v, want 1", got)
	}
}

func TestEffectiveMonthlyIncome(t *testing.T) {
	e := NewEngine(core.BudgetConfiguration{MonthlyIncome: 1000})
	snap := Snapshot{Entries: []core.LedgerEntry{
		entry(testMonth, 3, -250, core.IncomeCategoryKey, core.BucketFutureYou),
		entry(testMonth, 5, 40, "groceries", core.BucketFundamentals),
		entry(testMonth.Prev(), 2, -999, core.IncomeCategoryKey, core.BucketFutureYou),
	}}
	if got := e.EffectiveMonthlyIncome(snap, testMonth); got != 1250 {
		t.Errorf("EffectiveMonthlyIncome = %v, want 1250", got)
	}
}

func TestTotalSpentIncludesCommitmentsExcludesIncome(t *testing.T) {
	e := NewEngine(core.BudgetConfiguration{MonthlyIncome: 1000})
	snap := Snapshot{
		Entries: []core.LedgerEntry{
			entry(testMonth, 1, 100, "groceries", core.BucketFundamentals),
			entry(testMonth, 2, -20, "groceries", core.BucketFundamentals),
			entry(testMonth, 3, -300, core.IncomeCategoryKey, core.BucketFutureYou),
			entry(testMonth.Prev(), 4, 500, "rent", core.BucketFundamentals),
		},
		Commitments: []core.RecurringCommitment{
			{Name: "gym", MonthlyAmount: 30, Bucket: core.BucketFundamentals, Active: true},
			{Name: "old sub", MonthlyAmount: 99, Bucket: core.BucketFun, Active: false},
		},
	}
	if got := e.TotalSpent(snap, testMonth); got != 110 {
		t.Errorf("TotalSpent = %v, want 110", got)
	}
}

func TestCarryoverMatchesRolloverExample(t *testing.T) {
	// Prior month: income 1000, fundamentals at 50% budgets 500, spent 400.
	// Current month carries 100 and budgets 600 total.
	e := NewEngine(core.BudgetConfiguration{
		MonthlyIncome:     1000,
		BucketPercentages: map[core.Bucket]float64{core.BucketFundamentals: 0.50},
		RolloverEnabled:   true,
	})
	snap := Snapshot{Entries: []core.LedgerEntry{
		entry(testMonth.Prev(), 10, 400, "groceries", core.BucketFundamentals),
	}}

	if got := e.Carryover(snap, core.BucketFundamentals, testMonth); got != 100 {
		t.Errorf("Carryover = %v, want 100", got)
	}
	for _, st := range e.Status(snap, testMonth) {
		if st.Bucket == core.BucketFundamentals && st.Budgeted != 600 {
			t.Errorf("Budgeted = %v, want 600", st.Budgeted)
		}
	}
}

func TestCarryoverChainsAcrossMonths(t *testing.T) {
	// Two months back: 500 budget, 300 spent, 200 left. Prior month: 500+200
	// budget, 600 spent, 100 left. Current month carries 100.
	e := NewEngine(core.BudgetConfiguration{
		MonthlyIncome:   1000,
		RolloverEnabled: true,
	})
	snap := Snapshot{Entries: []core.LedgerEntry{
		entry(testMonth.AddMonths(-2), 5, 300, "groceries", core.BucketFundamentals),
		entry(testMonth.Prev(), 5, 600, "groceries", core.BucketFundamentals),
	}}
	if got := e.Carryover(snap, core.BucketFundamentals, testMonth); got != 100 {
		t.Errorf("Carryover = %v, want 100", got)
	}
}

func TestCarryoverResetsAtEmptyMonths(t *testing.T) {
	// A surplus two months back does not carry through an entry-less prior
	// month.
	e := NewEngine(core.BudgetConfiguration{
		MonthlyIncome:   1000,
		RolloverEnabled: true,
	})
	snap := Snapshot{Entries: []core.LedgerEntry{
		entry(testMonth.AddMonths(-2), 5, 100, "groceries", core.BucketFundamentals),
	}}
	if got := e.Carryover(snap, core.BucketFundamentals, testMonth); got != 0 {
		t.Errorf("Carryover = %v, want 0", got)
	}
}

func TestCarryoverDepthCap(t *testing.T) {
	e := NewEngine(core.BudgetConfiguration{
		MonthlyIncome:   1000,
		RolloverEnabled: true,
	})
	snap := Snapshot{Entries: []core.LedgerEntry{
		entry(testMonth.AddMonths(-(RolloverDepth+1)), 5, 0, "groceries", core.BucketFundamentals),
	}}
	if got := e.Carryover(snap, core.BucketFundamentals, testMonth); got != 0 {
		t.Errorf("Carryover beyond the window = %v, want 0", got)
	}
}

func TestCarryoverGates(t *testing.T) {
	snap := Snapshot{Entries: []core.LedgerEntry{
		entry(testMonth.Prev(), 5, 100, "savings", core.BucketFutureYou),
	}}

	e := NewEngine(core.BudgetConfiguration{MonthlyIncome: 1000})
	if got := e.Carryover(snap, core.BucketFundamentals, testMonth); got != 0 {
		t.Errorf("Carryover with rollover disabled = %v, want 0", got)
	}

	e = NewEngine(core.BudgetConfiguration{MonthlyIncome: 1000, RolloverEnabled: true})
	if got := e.Carryover(snap, core.BucketFutureYou, testMonth); got != 0 {
		t.Errorf("Carryover for future_you = %v, want 0", got)
	}
}

func TestStatusOverspendAndProgress(t *testing.T) {
	e := NewEngine(core.BudgetConfiguration{MonthlyIncome: 1000})
	snap := Snapshot{Entries: []core.LedgerEntry{
		entry(testMonth, 1, 500, "groceries", core.BucketFundamentals), // exactly at budget
		entry(testMonth, 2, 900, "dining", core.BucketFun),             // 3x the 300 budget
	}}
	for _, st := range e.Status(snap, testMonth) {
		switch st.Bucket {
		case core.BucketFundamentals:
			if st.Overspent {
				t.Error("spent == budgeted must not count as overspent")
			}
			if st.Progress != 1 {
				t.Errorf("fundamentals progress = %v, want 1", st.Progress)
			}
		case core.BucketFun:
			if !st.Overspent {
				t.Error("fun bucket should be overspent")
			}
			if st.Progress != ProgressCap {
				t.Errorf("fun progress = %v, want cap %v", st.Progress, ProgressCap)
			}
		case core.BucketFutureYou:
			if st.Spent != 0 || st.Progress != 0 {
				t.Errorf("future_you status = %+v", st)
			}
		}
	}
}

func TestStatusIdempotent(t *testing.T) {
	e := NewEngine(core.BudgetConfiguration{MonthlyIncome: 1234, RolloverEnabled: true})
	snap := Snapshot{
		Entries: []core.LedgerEntry{
			entry(testMonth.Prev(), 3, 77, "coffee", core.BucketFun),
			entry(testMonth, 8, 42.5, "groceries", core.BucketFundamentals),
		},
		Commitments: []core.RecurringCommitment{
			{Name: "rent", MonthlyAmount: 800, Bucket: core.BucketFundamentals, Active: true},
		},
	}
	first := e.Status(snap, testMonth)
	second := e.Status(snap, testMonth)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Status not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestMonthlyOverspentAmount(t *testing.T) {
	e := NewEngine(core.BudgetConfiguration{MonthlyIncome: 1000})
	snap := Snapshot{Entries: []core.LedgerEntry{
		entry(testMonth, 1, 1300, "rent", core.BucketFundamentals),
	}}
	if got := e.MonthlyOverspentAmount(snap, testMonth); got != 300 {
		t.Errorf("MonthlyOverspentAmount = %v, want 300", got)
	}

	snap.Entries[0].Amount = 900
	if got := e.MonthlyOverspentAmount(snap, testMonth); got != 0 {
		t.Errorf("under-capacity overspend = %v, want 0", got)
	}
}

func TestMonthSpendCapacityIncludesEligibleCarryover(t *testing.T) {
	e := NewEngine(core.BudgetConfiguration{MonthlyIncome: 1000, RolloverEnabled: true})
	// Prior month: fundamentals 500-400=100 left, fun 300-300=0 left,
	// future_you surplus never carries.
	snap := Snapshot{Entries: []core.LedgerEntry{
		entry(testMonth.Prev(), 2, 400, "groceries", core.BucketFundamentals),
		entry(testMonth.Prev(), 3, 300, "dining", core.BucketFun),
	}}
	if got := e.MonthSpendCapacity(snap, testMonth); got != 1100 {
		t.Errorf("MonthSpendCapacity = %v, want 1100", got)
	}
}

func TestNonFiniteInputsNeverPropagate(t *testing.T) {
	e := NewEngine(core.BudgetConfiguration{
		MonthlyIncome:     math.Inf(1),
		BucketPercentages: map[core.Bucket]float64{core.BucketFun: math.NaN()},
		RolloverEnabled:   true,
	})
	snap := Snapshot{
		Entries: []core.LedgerEntry{
			entry(testMonth, 1, math.NaN(), "groceries", core.BucketFundamentals),
			entry(testMonth, 2, math.Inf(-1), core.IncomeCategoryKey, core.BucketFutureYou),
		},
		Commitments: []core.RecurringCommitment{
			{Name: "x", MonthlyAmount: math.Inf(1), Bucket: core.BucketFun, Active: true},
		},
	}
	for _, st := range e.Status(snap, testMonth) {
		if math.IsNaN(st.Budgeted) || math.IsInf(st.Budgeted, 0) {
			t.Errorf("budgeted not finite: %+v", st)
		}
		if math.IsNaN(st.Spent) || math.IsInf(st.Spent, 0) {
			t.Errorf("spent not finite: %+v", st)
		}
		if math.IsNaN(st.Progress) || math.IsInf(st.Progress, 0) {
			t.Errorf("progress not finite: %+v", st)
		}
	}
	if got := e.MonthlyOverspentAmount(snap, testMonth); math.IsNaN(got) || math.IsInf(got, 0) {
		t.Errorf("overspent amount not finite: %v", got)
	}
}
