// Package category resolves free-text or model-supplied labels to a stable
// category key and its budget bucket. Resolution is deterministic: custom
// categories first, then canonical keys and renames with keyword-based
// overrides, then keyword inference, then aliases, then the "other" fallback.
package category

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"pocketbudget/internal/core"
)

// Resolution is the outcome of resolving a label: the key entries are stored
// under and the bucket spend aggregates into.
type Resolution struct {
	StorageKey string
	Bucket     core.Bucket
}

// CustomCategory is a user-defined category with its own bucket mapping,
// stored separately from the canonical set.
type CustomCategory struct {
	ID          string
	Key         string // normalized, unique against canonical and custom keys
	DisplayName string
	Bucket      core.Bucket
}

// Resolver holds the mutable taxonomy state: custom categories and canonical
// display-name overrides. The canonical table itself is fixed. Not safe for
// concurrent mutation; callers serialize access.
type Resolver struct {
	custom  []CustomCategory
	renames map[string]string // canonical key -> display override
}

func NewResolver(custom []CustomCategory, renames map[string]string) *Resolver {
	r := &Resolver{renames: map[string]string{}}
	for _, c := range custom {
		c.Key = Normalize(c.Key)
		if c.Key != "" && c.Bucket.Valid() {
			r.custom = append(r.custom, c)
		}
	}
	for k, v := range renames {
		if _, ok := canonicalByKey[k]; ok && strings.TrimSpace(v) != "" {
			r.renames[k] = v
		}
	}
	return r
}

// Resolve maps a raw label, with optional context text, to a storage key and
// bucket. It never fails: the final fallback is the "other" category.
func (r *Resolver) Resolve(rawLabel, context string) Resolution {
	label := Normalize(rawLabel)
	combined := strings.TrimSpace(label + " " + Normalize(context))

	// 1) custom categories win outright.
	for _, c := range r.custom {
		if label == c.Key || label == Normalize(c.DisplayName) {
			return Resolution{StorageKey: c.Key, Bucket: c.Bucket}
		}
	}

	// 2) canonical key or renamed display name, with keyword override.
	if key, ok := r.matchCanonical(label); ok {
		canon := canonicalByKey[key]
		if inferred, ok := inferFromKeywords(combined); ok && inferred != key {
			inf := canonicalByKey[inferred]
			if inferred == "investments" ||
				(canon.Bucket == core.BucketFundamentals && inf.Bucket == core.BucketFun) {
				return Resolution{StorageKey: inf.Key, Bucket: inf.Bucket}
			}
		}
		return Resolution{StorageKey: canon.Key, Bucket: canon.Bucket}
	}

	// 3) keyword inference on label + context.
	if inferred, ok := inferFromKeywords(combined); ok {
		c := canonicalByKey[inferred]
		return Resolution{StorageKey: c.Key, Bucket: c.Bucket}
	}

	// 4) exact alias, then one more keyword pass, then the fallback.
	if key, ok := aliases[label]; ok {
		c := canonicalByKey[key]
		return Resolution{StorageKey: c.Key, Bucket: c.Bucket}
	}
	if inferred, ok := inferFromKeywords(combined); ok {
		c := canonicalByKey[inferred]
		return Resolution{StorageKey: c.Key, Bucket: c.Bucket}
	}
	fb := canonicalByKey[FallbackKey]
	return Resolution{StorageKey: fb.Key, Bucket: fb.Bucket}
}

// matchCanonical matches a normalized label against canonical keys and
// against normalized display-name overrides.
func (r *Resolver) matchCanonical(label string) (string, bool) {
	if _, ok := canonicalByKey[label]; ok {
		return label, true
	}
	for key, display := range r.renames {
		if label == Normalize(display) {
			return key, true
		}
	}
	return "", false
}

// AddCustomCategory appends a user-defined category. Returns false for an
// empty name, an invalid bucket, or a key collision with any canonical or
// custom key. Collisions are expected conditions, not errors.
func (r *Resolver) AddCustomCategory(name string, bucket core.Bucket) bool {
	name = strings.TrimSpace(name)
	if name == "" || !bucket.Valid() {
		return false
	}
	key := Normalize(name)
	if key == "" {
		return false
	}
	if _, ok := canonicalByKey[key]; ok {
		return false
	}
	for _, c := range r.custom {
		if c.Key == key {
			return false
		}
	}
	r.custom = append(r.custom, CustomCategory{
		ID:          uuid.NewString(),
		Key:         key,
		DisplayName: name,
		Bucket:      bucket,
	})
	return true
}

// CustomCategories returns a copy of the custom category list.
func (r *Resolver) CustomCategories() []CustomCategory {
	out := make([]CustomCategory, len(r.custom))
	copy(out, r.custom)
	return out
}

// Rename sets a display override for a canonical key without changing its
// stored key or bucket mapping. Returns false for unknown keys.
func (r *Resolver) Rename(canonicalKey, display string) bool {
	if _, ok := canonicalByKey[canonicalKey]; !ok {
		return false
	}
	display = strings.TrimSpace(display)
	if display == "" {
		delete(r.renames, canonicalKey)
		return true
	}
	r.renames[canonicalKey] = display
	return true
}

// Renames returns a copy of the canonical display overrides.
func (r *Resolver) Renames() map[string]string {
	out := make(map[string]string, len(r.renames))
	for k, v := range r.renames {
		out[k] = v
	}
	return out
}

// DisplayName resolves the user-facing name for a storage key: custom
// display, rename override, canonical default, or the key itself.
func (r *Resolver) DisplayName(key string) string {
	for _, c := range r.custom {
		if c.Key == key {
			return c.DisplayName
		}
	}
	if display, ok := r.renames[key]; ok {
		return display
	}
	if c, ok := canonicalByKey[key]; ok {
		return c.DisplayName
	}
	return key
}

// BucketFor resolves the bucket for a stored key, covering canonical, custom
// and the income pseudo-category. Unknown keys fall back to the "other"
// bucket; the caller decides whether to log the drift.
func (r *Resolver) BucketFor(key string) (core.Bucket, bool) {
	if key == core.IncomeCategoryKey {
		return core.BucketFutureYou, true
	}
	if c, ok := canonicalByKey[key]; ok {
		return c.Bucket, true
	}
	for _, c := range r.custom {
		if c.Key == key {
			return c.Bucket, true
		}
	}
	return canonicalByKey[FallbackKey].Bucket, false
}

// Suggest returns the closest known category display name for a label the
// resolver could not place, for "did you mean" hints. The match must be
// within an edit distance of 3; ok is false otherwise.
func (r *Resolver) Suggest(rawLabel string) (string, bool) {
	label := Normalize(rawLabel)
	if label == "" {
		return "", false
	}
	best, bestDist := "", 4
	consider := func(candidate string) {
		d := levenshtein.ComputeDistance(label, Normalize(candidate))
		if d < bestDist {
			best, bestDist = candidate, d
		}
	}
	for _, c := range canonicals {
		consider(c.DisplayName)
	}
	for _, c := range r.custom {
		consider(c.DisplayName)
	}
	return best, best != ""
}

// inferFromKeywords runs the priority-ordered keyword groups over text and
// returns the first group's category with any substring match.
func inferFromKeywords(text string) (string, bool) {
	for _, g := range keywordGroups {
		for _, kw := range g.keywords {
			if strings.Contains(text, kw) {
				return g.category, true
			}
		}
	}
	return "", false
}

// Normalize lowercases, strips characters outside [a-z0-9 ], and collapses
// whitespace runs. The same normalization applies to labels, context text
// and display names.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n':
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
