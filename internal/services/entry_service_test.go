package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pocketbudget/internal/core"
	"pocketbudget/internal/storage"
)

func newTestService(t *testing.T) *EntryService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	svc, err := NewEntryService(context.Background(), repo, nil, 3000)
	if err != nil {
		t.Fatalf("NewEntryService: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestCaptureEntry(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry, err := svc.CaptureEntry(ctx, CaptureRequest{
		ModelOutput: `{"merchant": "Trader Joe's", "amount": 45.50, "category": "groceries"}`,
		Utterance:   "spent 45.50 at trader joes on groceries",
		Labels:      []string{"groceries", "dining"},
		Date:        time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CaptureEntry: %v", err)
	}

	if entry.ID == "" {
		t.Error("entry has no ID")
	}
	if entry.Merchant != "Trader Joe's" || entry.Amount != 45.50 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.CategoryKey != "groceries" || entry.Bucket != core.BucketFundamentals {
		t.Errorf("category = %s/%s, want groceries/fundamentals", entry.CategoryKey, entry.Bucket)
	}
	if entry.Notes != "spent 45.50 at trader joes on groceries" {
		t.Errorf("notes = %q, want verbatim utterance", entry.Notes)
	}

	stored, err := svc.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if stored.Merchant != entry.Merchant {
		t.Errorf("stored = %+v", stored)
	}
}

func TestCaptureEntryIncome(t *testing.T) {
	svc := newTestService(t)

	entry, err := svc.CaptureEntry(context.Background(), CaptureRequest{
		ModelOutput: `{"merchant": "Acme Corp", "amount": 2500, "category": "other"}`,
		Utterance:   "got paid 2500 salary from acme",
		Date:        time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CaptureEntry: %v", err)
	}

	if entry.CategoryKey != core.IncomeCategoryKey {
		t.Errorf("category = %s, want %s", entry.CategoryKey, core.IncomeCategoryKey)
	}
	if entry.Bucket != core.BucketFutureYou {
		t.Errorf("bucket = %s, want future_you", entry.Bucket)
	}
	if entry.Amount != -2500 {
		t.Errorf("amount = %v, want -2500", entry.Amount)
	}
}

func TestCaptureEntryUsesParseCache(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := CaptureRequest{
		ModelOutput: `{"merchant": "Metro", "amount": 2.75, "category": "transport"}`,
		Utterance:   "2.75 subway fare",
		Date:        time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
	}
	if _, err := svc.CaptureEntry(ctx, req); err != nil {
		t.Fatalf("first capture: %v", err)
	}

	// Same utterance with garbage model output: the cached result carries it.
	req.ModelOutput = "total nonsense"
	entry, err := svc.CaptureEntry(ctx, req)
	if err != nil {
		t.Fatalf("cached capture: %v", err)
	}
	if entry.Merchant != "Metro" || entry.Amount != 2.75 {
		t.Errorf("cached entry = %+v", entry)
	}
}

func TestCaptureEntryExtractionFailure(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CaptureEntry(context.Background(), CaptureRequest{
		ModelOutput: "I could not understand that",
		Utterance:   "mumble mumble",
	})
	if err == nil {
		t.Fatal("CaptureEntry accepted output with no amount")
	}

	// Nothing was cached; repeating the attempt still fails.
	_, err = svc.CaptureEntry(context.Background(), CaptureRequest{
		ModelOutput: "still nothing",
		Utterance:   "mumble mumble",
	})
	if err == nil {
		t.Fatal("failed extraction was cached")
	}
}

func TestBudgetStatusDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	month := core.Month{Year: 2026, Month: 8}

	if _, err := svc.CaptureEntry(ctx, CaptureRequest{
		ModelOutput: `{"merchant": "Rent Co", "amount": 400, "category": "rent"}`,
		Utterance:   "paid 400 rent",
		Date:        time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("CaptureEntry: %v", err)
	}

	report, err := svc.BudgetStatus(ctx, month)
	if err != nil {
		t.Fatalf("BudgetStatus: %v", err)
	}

	// No stored config: the default income and baseline splits apply.
	if report.EffectiveIncome != 3000 {
		t.Errorf("EffectiveIncome = %v, want 3000", report.EffectiveIncome)
	}
	if report.TotalSpent != 400 {
		t.Errorf("TotalSpent = %v, want 400", report.TotalSpent)
	}
	if len(report.Buckets) != 3 {
		t.Fatalf("Buckets = %d, want 3", len(report.Buckets))
	}
	fundamentals := report.Buckets[0]
	if fundamentals.Bucket != core.BucketFundamentals || fundamentals.Budgeted != 1500 {
		t.Errorf("fundamentals = %+v", fundamentals)
	}
	if fundamentals.Spent != 400 || fundamentals.Overspent {
		t.Errorf("fundamentals = %+v", fundamentals)
	}
}

func TestBudgetConfigRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cfg := core.BudgetConfiguration{
		MonthlyIncome: 4200,
		BucketPercentages: map[core.Bucket]float64{
			core.BucketFundamentals: 0.6,
			core.BucketFun:          0.2,
			core.BucketFutureYou:    0.2,
		},
		RolloverEnabled: true,
	}
	if err := svc.UpdateBudgetConfig(ctx, cfg); err != nil {
		t.Fatalf("UpdateBudgetConfig: %v", err)
	}

	got, err := svc.BudgetConfig(ctx)
	if err != nil {
		t.Fatalf("BudgetConfig: %v", err)
	}
	if got.MonthlyIncome != 4200 || !got.RolloverEnabled {
		t.Errorf("config = %+v", got)
	}
	if got.BucketPercentages[core.BucketFundamentals] != 0.6 {
		t.Errorf("percentages = %+v", got.BucketPercentages)
	}
}

func TestCustomCategoryLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.AddCustomCategory(ctx, "Dog Care", core.BucketFundamentals)
	if err != nil {
		t.Fatalf("AddCustomCategory: %v", err)
	}
	if created.Key != "dog care" {
		t.Errorf("key = %q, want normalized name", created.Key)
	}

	if _, err := svc.AddCustomCategory(ctx, "dog care", core.BucketFun); !errors.Is(err, ErrCategoryRejected) {
		t.Errorf("duplicate add err = %v, want ErrCategoryRejected", err)
	}

	var found bool
	for _, c := range svc.ListCategories() {
		if c.Key == "dog care" && c.Custom {
			found = true
		}
	}
	if !found {
		t.Error("custom category missing from listing")
	}

	// Capture routes the model label through the custom mapping.
	entry, err := svc.CaptureEntry(ctx, CaptureRequest{
		ModelOutput: `{"merchant": "Vet Clinic", "amount": 80, "category": "dog care"}`,
		Utterance:   "80 at the vet",
		Date:        time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CaptureEntry: %v", err)
	}
	if entry.CategoryKey != "dog care" || entry.Bucket != core.BucketFundamentals {
		t.Errorf("entry = %s/%s, want dog care/fundamentals", entry.CategoryKey, entry.Bucket)
	}
}

func TestRenameCategory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.RenameCategory(ctx, "groceries", "Food Shopping"); err != nil {
		t.Fatalf("RenameCategory: %v", err)
	}

	var display string
	for _, c := range svc.ListCategories() {
		if c.Key == "groceries" {
			display = c.DisplayName
		}
	}
	if display != "Food Shopping" {
		t.Errorf("display = %q, want Food Shopping", display)
	}

	if err := svc.RenameCategory(ctx, "not_a_category", "X"); !errors.Is(err, ErrCategoryRejected) {
		t.Errorf("rename unknown err = %v, want ErrCategoryRejected", err)
	}

	// Clearing the override restores the built-in name.
	if err := svc.RenameCategory(ctx, "groceries", ""); err != nil {
		t.Fatalf("clear rename: %v", err)
	}
	for _, c := range svc.ListCategories() {
		if c.Key == "groceries" && c.DisplayName != "Groceries" {
			t.Errorf("display after clear = %q", c.DisplayName)
		}
	}
}

func TestSuggestCategory(t *testing.T) {
	svc := newTestService(t)

	got, ok := svc.SuggestCategory("grocries")
	if !ok || got != "Groceries" {
		t.Errorf("SuggestCategory(grocries) = %q, %v, want Groceries, true", got, ok)
	}

	if hint, ok := svc.SuggestCategory("quarterly tax prepayment"); ok {
		t.Errorf("SuggestCategory matched %q for a label with no close category", hint)
	}
}

func TestCommitmentsInBudget(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	month := core.Month{Year: 2026, Month: 8}

	c, err := svc.AddCommitment(ctx, "Gym", 50, core.BucketFun)
	if err != nil {
		t.Fatalf("AddCommitment: %v", err)
	}

	report, err := svc.BudgetStatus(ctx, month)
	if err != nil {
		t.Fatalf("BudgetStatus: %v", err)
	}
	if report.TotalSpent != 50 {
		t.Errorf("TotalSpent = %v, want 50", report.TotalSpent)
	}

	if err := svc.SetCommitmentActive(ctx, c.ID, false); err != nil {
		t.Fatalf("SetCommitmentActive: %v", err)
	}
	report, err = svc.BudgetStatus(ctx, month)
	if err != nil {
		t.Fatalf("BudgetStatus: %v", err)
	}
	if report.TotalSpent != 0 {
		t.Errorf("TotalSpent after pause = %v, want 0", report.TotalSpent)
	}
}
