package category

import (
	"testing"

	"pocketbudget/internal/core"
)

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  Groceries ", "groceries"},
		{"Fun & Games!", "fun games"},
		{"Café-Bar", "cafbar"},
		{"a   b\tc", "a b c"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalTableBucketMapping(t *testing.T) {
	for _, c := range Canonicals() {
		if !c.Bucket.Valid() {
			t.Errorf("canonical %q has invalid bucket %q", c.Key, c.Bucket)
		}
		if Normalize(c.Key) != c.Key {
			t.Errorf("canonical key %q is not normalized", c.Key)
		}
	}
	if got, _ := CanonicalBucket("travel"); got != core.BucketFun {
		t.Errorf("travel bucket = %q, want fun", got)
	}
	if got, _ := CanonicalBucket(FallbackKey); got != core.BucketFun {
		t.Errorf("other bucket = %q, want fun", got)
	}
	if got, _ := CanonicalBucket("investments"); got != core.BucketFutureYou {
		t.Errorf("investments bucket = %q, want future_you", got)
	}
}

func TestResolveCanonicalDirect(t *testing.T) {
	r := NewResolver(nil, nil)
	res := r.Resolve("Groceries", "")
	if res.StorageKey != "groceries" || res.Bucket != core.BucketFundamentals {
		t.Errorf("Resolve(groceries) = %+v", res)
	}
}

func TestResolveContextOverridesFundamentalsToFun(t *testing.T) {
	r := NewResolver(nil, nil)
	res := r.Resolve("groceries", "bought a disneyland ticket")
	if res.StorageKey != "travel" || res.Bucket != core.BucketFun {
		t.Errorf("Resolve = %+v, want travel/fun", res)
	}
}

func TestResolveInvestmentsAlwaysWins(t *testing.T) {
	r := NewResolver(nil, nil)
	res := r.Resolve("invest", "put 200 into bitcoin")
	if res.StorageKey != "investments" || res.Bucket != core.BucketFutureYou {
		t.Errorf("Resolve = %+v, want investments/future_you", res)
	}

	// Even against a fun canonical the investments inference overrides.
	res = r.Resolve("shopping", "bought an index fund")
	if res.StorageKey != "investments" {
		t.Errorf("Resolve = %+v, want investments override", res)
	}
}

func TestResolveFunCanonicalNotOverriddenByFunInference(t *testing.T) {
	r := NewResolver(nil, nil)
	// coffee is fun; dining inference is also fun, so the canonical sticks.
	res := r.Resolve("coffee", "lunch at the diner")
	if res.StorageKey != "coffee" {
		t.Errorf("Resolve = %+v, want coffee kept", res)
	}
}

func TestResolveAlias(t *testing.T) {
	r := NewResolver(nil, nil)
	res := r.Resolve("btc", "")
	if res.StorageKey != "investments" || res.Bucket != core.BucketFutureYou {
		t.Errorf("Resolve(btc) = %+v", res)
	}
	res = r.Resolve("snack", "")
	if res.StorageKey != "dining" || res.Bucket != core.BucketFun {
		t.Errorf("Resolve(snack) = %+v", res)
	}
}

func TestResolveFallbackOther(t *testing.T) {
	r := NewResolver(nil, nil)
	res := r.Resolve("zzzz unknown thing", "")
	if res.StorageKey != FallbackKey || res.Bucket != core.BucketFun {
		t.Errorf("Resolve = %+v, want other/fun", res)
	}
}

func TestResolveCustomCategory(t *testing.T) {
	r := NewResolver(nil, nil)
	if !r.AddCustomCategory("Board Games", core.BucketFun) {
		t.Fatal("AddCustomCategory rejected valid category")
	}
	res := r.Resolve("board games", "")
	if res.StorageKey != "board games" || res.Bucket != core.BucketFun {
		t.Errorf("Resolve = %+v", res)
	}
	// Display-name match works too.
	res = r.Resolve("Board Games", "")
	if res.StorageKey != "board games" {
		t.Errorf("Resolve by display = %+v", res)
	}
}

func TestAddCustomCategoryRejections(t *testing.T) {
	r := NewResolver(nil, nil)
	if r.AddCustomCategory("   ", core.BucketFun) {
		t.Error("empty name accepted")
	}
	if r.AddCustomCategory("Groceries", core.BucketFun) {
		t.Error("canonical key collision accepted")
	}
	if !r.AddCustomCategory("Wine Club", core.BucketFun) {
		t.Fatal("valid category rejected")
	}
	if r.AddCustomCategory("wine  club", core.BucketFutureYou) {
		t.Error("custom key collision accepted")
	}
	if r.AddCustomCategory("Gadgets", "stuff") {
		t.Error("invalid bucket accepted")
	}
}

func TestRenameAffectsDisplayNotBucket(t *testing.T) {
	r := NewResolver(nil, nil)
	if !r.Rename("groceries", "Food Shop") {
		t.Fatal("Rename rejected canonical key")
	}
	if r.Rename("nope", "X") {
		t.Error("Rename accepted unknown key")
	}
	if got := r.DisplayName("groceries"); got != "Food Shop" {
		t.Errorf("DisplayName = %q", got)
	}
	// Resolving the renamed display finds the canonical key and keeps its
	// bucket mapping.
	res := r.Resolve("food shop", "")
	if res.StorageKey != "groceries" || res.Bucket != core.BucketFundamentals {
		t.Errorf("Resolve(renamed) = %+v", res)
	}
}

func TestBucketFor(t *testing.T) {
	r := NewResolver(nil, nil)
	if b, ok := r.BucketFor(core.IncomeCategoryKey); !ok || b != core.BucketFutureYou {
		t.Errorf("income bucket = %q, %v", b, ok)
	}
	if b, ok := r.BucketFor("dining"); !ok || b != core.BucketFun {
		t.Errorf("dining bucket = %q, %v", b, ok)
	}
	if b, ok := r.BucketFor("never-stored"); ok || b != core.BucketFun {
		t.Errorf("unknown key = %q, %v; want other-bucket fallback with ok=false", b, ok)
	}
}

func TestSuggest(t *testing.T) {
	r := NewResolver(nil, nil)
	if got, ok := r.Suggest("grocries"); !ok || got != "Groceries" {
		t.Errorf("Suggest(grocries) = %q, %v", got, ok)
	}
	if _, ok := r.Suggest("completely unrelated text"); ok {
		t.Error("Suggest matched text beyond the distance threshold")
	}
}

func TestResolverSeededState(t *testing.T) {
	custom := []CustomCategory{{ID: "c1", Key: "Dog Walker", DisplayName: "Dog Walker", Bucket: core.BucketFundamentals}}
	renames := map[string]string{"dining": "Eating Out", "bogus": "X"}
	r := NewResolver(custom, renames)

	res := r.Resolve("dog walker", "")
	if res.StorageKey != "dog walker" || res.Bucket != core.BucketFundamentals {
		t.Errorf("seeded custom Resolve = %+v", res)
	}
	if got := r.DisplayName("dining"); got != "Eating Out" {
		t.Errorf("seeded rename DisplayName = %q", got)
	}
	if _, ok := r.Renames()["bogus"]; ok {
		t.Error("rename for unknown canonical key should be dropped")
	}
}
