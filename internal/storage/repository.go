// Package storage persists ledger entries, recurring commitments, the category
// taxonomy state, the budget configuration and the parse-cache snapshot in
// SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pocketbudget/internal/category"
	"pocketbudget/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// dateFormat stores timestamps as UTC RFC3339 text so string comparison
// matches chronological order.
const dateFormat = time.RFC3339

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateEntry inserts a ledger entry with sync_status pending.
func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.LedgerEntry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validate entry: %w", err)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (id, merchant, amount, category_key, bucket, entry_date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Merchant, e.Amount, e.CategoryKey, string(e.Bucket),
		e.Date.UTC().Format(dateFormat), e.Notes, time.Now().UTC().Format(dateFormat))
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved to SQLite",
		"id", e.ID,
		"merchant", e.Merchant,
		"amount", e.Amount,
		"category", e.CategoryKey,
		"bucket", e.Bucket)

	return nil
}

// GetEntry retrieves a single entry by ID.
func (r *SQLiteRepository) GetEntry(ctx context.Context, id string) (core.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, merchant, amount, category_key, bucket, entry_date, notes
		FROM entries WHERE id = ?`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerEntry{}, ErrNotFound
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get entry by id: %w", err)
	}
	return e, nil
}

// DeleteEntry removes an entry. Missing rows return ErrNotFound.
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListEntriesByMonth returns entries dated inside the month, oldest first.
func (r *SQLiteRepository) ListEntriesByMonth(ctx context.Context, month core.Month) ([]core.LedgerEntry, error) {
	start := monthStart(month)
	end := monthStart(month.AddMonths(1))
	return r.listEntries(ctx, `
		SELECT id, merchant, amount, category_key, bucket, entry_date, notes
		FROM entries WHERE entry_date >= ? AND entry_date < ?
		ORDER BY entry_date ASC`, start, end)
}

// ListEntriesSince returns every entry dated on or after the start of the
// given month, oldest first. Budget snapshots use this to cover the rollover
// window in one read.
func (r *SQLiteRepository) ListEntriesSince(ctx context.Context, month core.Month) ([]core.LedgerEntry, error) {
	return r.listEntries(ctx, `
		SELECT id, merchant, amount, category_key, bucket, entry_date, notes
		FROM entries WHERE entry_date >= ?
		ORDER BY entry_date ASC`, monthStart(month))
}

func (r *SQLiteRepository) listEntries(ctx context.Context, query string, args ...any) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []core.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// PendingSyncEntry is the minimal row shape queued for export.
type PendingSyncEntry struct {
	ID        string
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncEntries returns entries awaiting export, oldest first.
func (r *SQLiteRepository) GetPendingSyncEntries(ctx context.Context, limit int) ([]PendingSyncEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, created_at FROM entries
		WHERE sync_status = 'pending'
		ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync entries: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncEntry
	for rows.Next() {
		var p PendingSyncEntry
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Version, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending sync entry: %w", err)
		}
		if t, err := time.Parse(dateFormat, createdAt); err == nil {
			p.CreatedAt = t
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending sync entries: %w", err)
	}
	return pending, nil
}

// MarkSynced marks an entry as successfully exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE entries SET sync_status = 'synced' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark entry synced: %w", err)
	}
	slog.InfoContext(ctx, "Entry marked as synced", "id", id)
	return nil
}

// MarkSyncError marks an entry as having failed export.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE entries SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark entry sync error: %w", err)
	}
	slog.WarnContext(ctx, "Entry marked with sync error", "id", id)
	return nil
}

// CreateCommitment inserts a recurring commitment.
func (r *SQLiteRepository) CreateCommitment(ctx context.Context, c core.RecurringCommitment) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate commitment: %w", err)
	}
	c = c.Sanitized()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO commitments (id, name, monthly_amount, bucket, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.MonthlyAmount, string(c.Bucket), boolToInt(c.Active),
		c.CreatedAt.UTC().Format(dateFormat))
	if err != nil {
		return fmt.Errorf("create commitment: %w", err)
	}
	return nil
}

// ListCommitments returns all commitments, newest first.
func (r *SQLiteRepository) ListCommitments(ctx context.Context) ([]core.RecurringCommitment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, monthly_amount, bucket, active, created_at
		FROM commitments ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	defer rows.Close()

	var commitments []core.RecurringCommitment
	for rows.Next() {
		var c core.RecurringCommitment
		var bucket, createdAt string
		var active int
		if err := rows.Scan(&c.ID, &c.Name, &c.MonthlyAmount, &bucket, &active, &createdAt); err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		c.Bucket = core.Bucket(bucket)
		c.Active = active != 0
		if t, err := time.Parse(dateFormat, createdAt); err == nil {
			c.CreatedAt = t
		}
		commitments = append(commitments, c.Sanitized())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commitments: %w", err)
	}
	return commitments, nil
}

// SetCommitmentActive toggles a commitment's active flag.
func (r *SQLiteRepository) SetCommitmentActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE commitments SET active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("set commitment active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set commitment active rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCommitment removes a commitment. Missing rows return ErrNotFound.
func (r *SQLiteRepository) DeleteCommitment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM commitments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete commitment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete commitment rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateCustomCategory persists a user-defined category.
func (r *SQLiteRepository) CreateCustomCategory(ctx context.Context, c category.CustomCategory) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO custom_categories (id, category_key, display_name, bucket)
		VALUES (?, ?, ?, ?)`,
		c.ID, c.Key, c.DisplayName, string(c.Bucket))
	if err != nil {
		return fmt.Errorf("create custom category: %w", err)
	}
	return nil
}

// ListCustomCategories returns all user-defined categories.
func (r *SQLiteRepository) ListCustomCategories(ctx context.Context) ([]category.CustomCategory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category_key, display_name, bucket
		FROM custom_categories ORDER BY category_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list custom categories: %w", err)
	}
	defer rows.Close()

	var categories []category.CustomCategory
	for rows.Next() {
		var c category.CustomCategory
		var bucket string
		if err := rows.Scan(&c.ID, &c.Key, &c.DisplayName, &bucket); err != nil {
			return nil, fmt.Errorf("scan custom category: %w", err)
		}
		c.Bucket = core.Bucket(bucket)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate custom categories: %w", err)
	}
	return categories, nil
}

// UpsertRename stores a display-name override for a canonical key.
func (r *SQLiteRepository) UpsertRename(ctx context.Context, canonicalKey, display string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO category_renames (canonical_key, display_name) VALUES (?, ?)
		ON CONFLICT(canonical_key) DO UPDATE SET display_name = excluded.display_name`,
		canonicalKey, display)
	if err != nil {
		return fmt.Errorf("upsert rename: %w", err)
	}
	return nil
}

// DeleteRename removes a display-name override.
func (r *SQLiteRepository) DeleteRename(ctx context.Context, canonicalKey string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM category_renames WHERE canonical_key = ?`, canonicalKey); err != nil {
		return fmt.Errorf("delete rename: %w", err)
	}
	return nil
}

// ListRenames returns the canonical display-name overrides.
func (r *SQLiteRepository) ListRenames(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT canonical_key, display_name FROM category_renames`)
	if err != nil {
		return nil, fmt.Errorf("list renames: %w", err)
	}
	defer rows.Close()

	renames := make(map[string]string)
	for rows.Next() {
		var key, display string
		if err := rows.Scan(&key, &display); err != nil {
			return nil, fmt.Errorf("scan rename: %w", err)
		}
		renames[key] = display
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate renames: %w", err)
	}
	return renames, nil
}

// GetBudgetConfig loads the singleton configuration row. found is false when
// no configuration has been saved yet.
func (r *SQLiteRepository) GetBudgetConfig(ctx context.Context) (core.BudgetConfiguration, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT monthly_income, pct_fundamentals, pct_fun, pct_future_you, rollover_enabled
		FROM budget_config WHERE id = 1`)

	var cfg core.BudgetConfiguration
	var pctFundamentals, pctFun, pctFuture float64
	var rollover int
	err := row.Scan(&cfg.MonthlyIncome, &pctFundamentals, &pctFun, &pctFuture, &rollover)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetConfiguration{}, false, nil
	}
	if err != nil {
		return core.BudgetConfiguration{}, false, fmt.Errorf("get budget config: %w", err)
	}

	cfg.BucketPercentages = map[core.Bucket]float64{
		core.BucketFundamentals: pctFundamentals,
		core.BucketFun:          pctFun,
		core.BucketFutureYou:    pctFuture,
	}
	cfg.RolloverEnabled = rollover != 0
	return cfg.Sanitized(), true, nil
}

// SaveBudgetConfig upserts the singleton configuration row.
func (r *SQLiteRepository) SaveBudgetConfig(ctx context.Context, cfg core.BudgetConfiguration) error {
	cfg = cfg.Sanitized()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budget_config (id, monthly_income, pct_fundamentals, pct_fun, pct_future_you, rollover_enabled)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			monthly_income = excluded.monthly_income,
			pct_fundamentals = excluded.pct_fundamentals,
			pct_fun = excluded.pct_fun,
			pct_future_you = excluded.pct_future_you,
			rollover_enabled = excluded.rollover_enabled`,
		cfg.MonthlyIncome,
		cfg.BucketPercentages[core.BucketFundamentals],
		cfg.BucketPercentages[core.BucketFun],
		cfg.BucketPercentages[core.BucketFutureYou],
		boolToInt(cfg.RolloverEnabled))
	if err != nil {
		return fmt.Errorf("save budget config: %w", err)
	}

	slog.InfoContext(ctx, "Budget configuration saved",
		"monthly_income", cfg.MonthlyIncome,
		"rollover_enabled", cfg.RolloverEnabled)
	return nil
}

// LoadParseCache returns the persisted parse-cache snapshot, or ErrNotFound
// when none has been saved.
func (r *SQLiteRepository) LoadParseCache(ctx context.Context) ([]byte, error) {
	row := r.db.QueryRowContext(ctx, `SELECT payload FROM parse_cache WHERE id = 1`)
	var payload []byte
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load parse cache: %w", err)
	}
	return payload, nil
}

// SaveParseCache upserts the parse-cache snapshot.
func (r *SQLiteRepository) SaveParseCache(ctx context.Context, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO parse_cache (id, payload, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		payload, time.Now().UTC().Format(dateFormat))
	if err != nil {
		return fmt.Errorf("save parse cache: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (core.LedgerEntry, error) {
	var e core.LedgerEntry
	var bucket, date string
	if err := s.Scan(&e.ID, &e.Merchant, &e.Amount, &e.CategoryKey, &bucket, &date, &e.Notes); err != nil {
		return core.LedgerEntry{}, err
	}
	e.Bucket = core.Bucket(bucket)
	t, err := time.Parse(dateFormat, date)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("parse entry date %q: %w", date, err)
	}
	e.Date = t
	return e, nil
}

func monthStart(m core.Month) string {
	return time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC).Format(dateFormat)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
