// Package services orchestrates the capture pipeline: model output through
// extraction and category resolution into a stored ledger entry, plus the
// budget, taxonomy and commitment operations the HTTP layer exposes.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pocketbudget/internal/amqp"
	"pocketbudget/internal/budget"
	"pocketbudget/internal/category"
	"pocketbudget/internal/core"
	"pocketbudget/internal/extract"
	"pocketbudget/internal/parsecache"
	"pocketbudget/internal/storage"
)

// ErrCategoryRejected is returned when a custom category is refused for an
// empty name or a key collision. An expected condition, not a failure.
var ErrCategoryRejected = errors.New("category rejected")

// EntryService orchestrates entry operations across extraction, the taxonomy,
// SQLite and AMQP. The mutex serializes resolver and parse-cache mutation;
// neither is internally synchronized.
type EntryService struct {
	mu            sync.Mutex
	storage       *storage.SQLiteRepository
	amqpClient    *amqp.Client
	extractor     *extract.Extractor
	resolver      *category.Resolver
	parseCache    *parsecache.Cache
	defaultIncome float64
}

// NewEntryService loads the persisted taxonomy state and parse-cache snapshot
// and wires the capture pipeline. amqpClient may be nil; sync messages are
// then skipped.
func NewEntryService(ctx context.Context, repo *storage.SQLiteRepository, amqpClient *amqp.Client, defaultIncome float64) (*EntryService, error) {
	custom, err := repo.ListCustomCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load custom categories: %w", err)
	}
	renames, err := repo.ListRenames(ctx)
	if err != nil {
		return nil, fmt.Errorf("load category renames: %w", err)
	}

	cache := parsecache.New()
	if payload, err := repo.LoadParseCache(ctx); err == nil {
		if err := cache.Restore(payload); err != nil {
			slog.WarnContext(ctx, "Discarding unreadable parse cache snapshot", "error", err)
			cache = parsecache.New()
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load parse cache: %w", err)
	}

	return &EntryService{
		storage:       repo,
		amqpClient:    amqpClient,
		extractor:     extract.New(),
		resolver:      category.NewResolver(custom, renames),
		parseCache:    cache,
		defaultIncome: core.SanitizeAmount(defaultIncome),
	}, nil
}

// CaptureRequest is one utterance to turn into a ledger entry. ModelOutput is
// the raw text the language model produced for the utterance; Labels is the
// allowed-category list the model was prompted with.
type CaptureRequest struct {
	ModelOutput string
	Utterance   string
	Labels      []string
	Date        time.Time
}

// CaptureEntry runs extraction (memoized), resolves the category, persists
// the entry and queues it for export. The raw utterance is preserved verbatim
// in the entry notes.
func (s *EntryService) CaptureEntry(ctx context.Context, req CaptureRequest) (core.LedgerEntry, error) {
	key := parsecache.Key(req.Utterance, req.Labels)

	s.mu.Lock()
	result, hit := s.parseCache.Get(key)
	s.mu.Unlock()

	if !hit {
		var err error
		result, err = s.extractor.Extract(req.ModelOutput, req.Utterance)
		if err != nil {
			return core.LedgerEntry{}, fmt.Errorf("extract: %w", err)
		}

		s.mu.Lock()
		s.parseCache.Put(key, result)
		snapshot, snapErr := s.parseCache.Snapshot()
		s.mu.Unlock()
		if snapErr != nil {
			slog.WarnContext(ctx, "Failed to snapshot parse cache", "error", snapErr)
		} else if err := s.storage.SaveParseCache(ctx, snapshot); err != nil {
			slog.WarnContext(ctx, "Failed to persist parse cache", "error", err)
		}
	} else {
		slog.DebugContext(ctx, "Parse cache hit", "cache_hit", true)
	}

	categoryKey, bucket := s.resolveCategory(result, req.Utterance)

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	entry := core.LedgerEntry{
		ID:          uuid.NewString(),
		Merchant:    result.Record.Merchant,
		Amount:      result.SignedAmount,
		CategoryKey: categoryKey,
		Bucket:      bucket,
		Date:        date,
		Notes:       req.Utterance,
	}

	if err := s.storage.CreateEntry(ctx, entry); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("save entry: %w", err)
	}

	// Export is async; a publish failure never fails the capture.
	if err := s.publishSyncMessage(ctx, entry.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"entry_id", entry.ID, "error", err)
	}

	return entry, nil
}

// resolveCategory routes income utterances into the income pseudo-category;
// everything else goes through the resolver with the utterance as context.
func (s *EntryService) resolveCategory(result extract.Result, utterance string) (string, core.Bucket) {
	if result.IsIncome {
		return core.IncomeCategoryKey, core.BucketFutureYou
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.resolver.Resolve(result.Record.Category, utterance)
	return res.StorageKey, res.Bucket
}

func (s *EntryService) publishSyncMessage(ctx context.Context, id string) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishEntrySync(ctx, id, 1)
}

// GetEntry returns one entry by ID.
func (s *EntryService) GetEntry(ctx context.Context, id string) (core.LedgerEntry, error) {
	return s.storage.GetEntry(ctx, id)
}

// ListEntries returns the month's entries, oldest first.
func (s *EntryService) ListEntries(ctx context.Context, month core.Month) ([]core.LedgerEntry, error) {
	return s.storage.ListEntriesByMonth(ctx, month)
}

// DeleteEntry removes an entry from local storage.
func (s *EntryService) DeleteEntry(ctx context.Context, id string) error {
	return s.storage.DeleteEntry(ctx, id)
}

// BudgetReport is the derived view for one month.
type BudgetReport struct {
	Month           core.Month
	EffectiveIncome float64
	TotalSpent      float64
	SpendCapacity   float64
	OverspentAmount float64
	Buckets         []core.BucketStatus
}

// BudgetStatus computes the month's report from a fresh ledger snapshot
// covering the full rollover window.
func (s *EntryService) BudgetStatus(ctx context.Context, month core.Month) (BudgetReport, error) {
	if err := month.Validate(); err != nil {
		return BudgetReport{}, err
	}

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return BudgetReport{}, err
	}

	entries, err := s.storage.ListEntriesSince(ctx, month.AddMonths(-budget.RolloverDepth))
	if err != nil {
		return BudgetReport{}, fmt.Errorf("load ledger snapshot: %w", err)
	}
	commitments, err := s.storage.ListCommitments(ctx)
	if err != nil {
		return BudgetReport{}, fmt.Errorf("load commitments: %w", err)
	}

	snap := budget.Snapshot{
		Entries:     s.normalizeEntries(ctx, entries),
		Commitments: commitments,
	}
	engine := budget.NewEngine(cfg)

	return BudgetReport{
		Month:           month,
		EffectiveIncome: engine.EffectiveMonthlyIncome(snap, month),
		TotalSpent:      engine.TotalSpent(snap, month),
		SpendCapacity:   engine.MonthSpendCapacity(snap, month),
		OverspentAmount: engine.MonthlyOverspentAmount(snap, month),
		Buckets:         engine.Status(snap, month),
	}, nil
}

// normalizeEntries repairs entries whose stored key no longer maps to a
// bucket, sending them to the fallback bucket once at read time.
func (s *EntryService) normalizeEntries(ctx context.Context, entries []core.LedgerEntry) []core.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range entries {
		if e.Bucket.Valid() {
			continue
		}
		b, ok := s.resolver.BucketFor(e.CategoryKey)
		if !ok {
			slog.WarnContext(ctx, "Entry category no longer resolves, using fallback bucket",
				"entry_id", e.ID, "category", e.CategoryKey)
		}
		entries[i].Bucket = b
	}
	return entries
}

func (s *EntryService) loadConfig(ctx context.Context) (core.BudgetConfiguration, error) {
	cfg, found, err := s.storage.GetBudgetConfig(ctx)
	if err != nil {
		return core.BudgetConfiguration{}, fmt.Errorf("load budget config: %w", err)
	}
	if !found {
		return core.BudgetConfiguration{MonthlyIncome: s.defaultIncome}, nil
	}
	return cfg, nil
}

// BudgetConfig returns the effective configuration, falling back to the
// configured default income when nothing is stored yet.
func (s *EntryService) BudgetConfig(ctx context.Context) (core.BudgetConfiguration, error) {
	return s.loadConfig(ctx)
}

// UpdateBudgetConfig sanitizes and persists the configuration. The
// sum-to-one percentage gate belongs to the caller, not here.
func (s *EntryService) UpdateBudgetConfig(ctx context.Context, cfg core.BudgetConfiguration) error {
	return s.storage.SaveBudgetConfig(ctx, cfg)
}

// CategoryView is one category as presented to clients.
type CategoryView struct {
	Key         string      `json:"key"`
	DisplayName string      `json:"display_name"`
	Bucket      core.Bucket `json:"bucket"`
	Custom      bool        `json:"custom"`
}

// ListCategories returns the canonical taxonomy with rename overrides
// applied, followed by the custom categories.
func (s *EntryService) ListCategories() []CategoryView {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []CategoryView
	for _, c := range category.Canonicals() {
		out = append(out, CategoryView{
			Key:         c.Key,
			DisplayName: s.resolver.DisplayName(c.Key),
			Bucket:      c.Bucket,
		})
	}
	for _, c := range s.resolver.CustomCategories() {
		out = append(out, CategoryView{
			Key:         c.Key,
			DisplayName: c.DisplayName,
			Bucket:      c.Bucket,
			Custom:      true,
		})
	}
	return out
}

// AddCustomCategory registers a custom category and persists it. Returns
// ErrCategoryRejected for empty names, invalid buckets and key collisions.
func (s *EntryService) AddCustomCategory(ctx context.Context, name string, bucket core.Bucket) (category.CustomCategory, error) {
	s.mu.Lock()
	if !s.resolver.AddCustomCategory(name, bucket) {
		s.mu.Unlock()
		return category.CustomCategory{}, ErrCategoryRejected
	}
	custom := s.resolver.CustomCategories()
	created := custom[len(custom)-1]
	s.mu.Unlock()

	if err := s.storage.CreateCustomCategory(ctx, created); err != nil {
		return category.CustomCategory{}, fmt.Errorf("persist custom category: %w", err)
	}
	return created, nil
}

// RenameCategory overrides a canonical display name without touching its key
// or bucket. An empty display clears the override.
func (s *EntryService) RenameCategory(ctx context.Context, canonicalKey, display string) error {
	s.mu.Lock()
	ok := s.resolver.Rename(canonicalKey, display)
	s.mu.Unlock()
	if !ok {
		return ErrCategoryRejected
	}

	if display == "" {
		return s.storage.DeleteRename(ctx, canonicalKey)
	}
	return s.storage.UpsertRename(ctx, canonicalKey, display)
}

// SuggestCategory returns a close known category name for a label that did
// not resolve, for "did you mean" hints.
func (s *EntryService) SuggestCategory(label string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.Suggest(label)
}

// AddCommitment creates an active recurring commitment.
func (s *EntryService) AddCommitment(ctx context.Context, name string, monthlyAmount float64, bucket core.Bucket) (core.RecurringCommitment, error) {
	c := core.RecurringCommitment{
		ID:            uuid.NewString(),
		Name:          name,
		MonthlyAmount: monthlyAmount,
		Bucket:        bucket,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}.Sanitized()

	if err := s.storage.CreateCommitment(ctx, c); err != nil {
		return core.RecurringCommitment{}, err
	}
	return c, nil
}

// ListCommitments returns all recurring commitments.
func (s *EntryService) ListCommitments(ctx context.Context) ([]core.RecurringCommitment, error) {
	return s.storage.ListCommitments(ctx)
}

// SetCommitmentActive toggles a commitment without deleting its history.
func (s *EntryService) SetCommitmentActive(ctx context.Context, id string, active bool) error {
	return s.storage.SetCommitmentActive(ctx, id, active)
}

// DeleteCommitment removes a commitment entirely.
func (s *EntryService) DeleteCommitment(ctx context.Context, id string) error {
	return s.storage.DeleteCommitment(ctx, id)
}

// Close flushes the parse cache and closes storage and AMQP connections.
func (s *EntryService) Close() error {
	var errs []error

	s.mu.Lock()
	snapshot, snapErr := s.parseCache.Snapshot()
	s.mu.Unlock()
	if snapErr == nil {
		if err := s.storage.SaveParseCache(context.Background(), snapshot); err != nil {
			slog.Warn("Failed to flush parse cache on shutdown", "error", err)
		}
	}

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close entry service: %v", errs)
	}
	return nil
}
