package category

import "pocketbudget/internal/core"

// FallbackKey is the canonical category used when nothing else resolves.
const FallbackKey = "other"

// Canonical is one built-in category. The key is stable and persisted; the
// display name can be overridden per user without touching the bucket mapping.
type Canonical struct {
	Key         string
	DisplayName string
	Bucket      core.Bucket
}

// canonicals is the fixed built-in taxonomy. Every key maps to exactly one
// bucket.
var canonicals = []Canonical{
	{"groceries", "Groceries", core.BucketFundamentals},
	{"rent", "Rent & Mortgage", core.BucketFundamentals},
	{"utilities", "Utilities", core.BucketFundamentals},
	{"transport", "Transport", core.BucketFundamentals},
	{"gas", "Gas & Fuel", core.BucketFundamentals},
	{"insurance", "Insurance", core.BucketFundamentals},
	{"healthcare", "Healthcare", core.BucketFundamentals},
	{"pharmacy", "Pharmacy", core.BucketFundamentals},
	{"phone", "Phone", core.BucketFundamentals},
	{"internet", "Internet", core.BucketFundamentals},
	{"childcare", "Childcare", core.BucketFundamentals},
	{"household", "Household", core.BucketFundamentals},

	{"dining", "Dining Out", core.BucketFun},
	{"coffee", "Coffee", core.BucketFun},
	{"entertainment", "Entertainment", core.BucketFun},
	{"shopping", "Shopping", core.BucketFun},
	{"clothing", "Clothing", core.BucketFun},
	{"travel", "Travel", core.BucketFun},
	{"hobbies", "Hobbies", core.BucketFun},
	{"beauty", "Beauty & Care", core.BucketFun},
	{"gifts", "Gifts", core.BucketFun},
	{"subscriptions", "Subscriptions", core.BucketFun},
	{FallbackKey, "Other", core.BucketFun},

	{"investments", "Investments", core.BucketFutureYou},
	{"savings", "Savings", core.BucketFutureYou},
	{"debt", "Debt Payments", core.BucketFutureYou},
	{"education", "Education", core.BucketFutureYou},
	{"emergency", "Emergency Fund", core.BucketFutureYou},
}

var canonicalByKey = func() map[string]Canonical {
	m := make(map[string]Canonical, len(canonicals))
	for _, c := range canonicals {
		m[c.Key] = c
	}
	return m
}()

// keywordGroup infers a canonical category from free text. Groups are checked
// in priority order; the first group with any substring match wins.
type keywordGroup struct {
	category string
	keywords []string
}

var keywordGroups = []keywordGroup{
	{"investments", []string{
		"invest", "stock", "etf", "shares", "bitcoin", "btc", "ethereum",
		"crypto", "brokerage", "401k", "roth", "index fund", "portfolio",
	}},
	{"travel", []string{
		"flight", "hotel", "airbnb", "disneyland", "vacation", "holiday",
		"trip", "airline", "cruise", "resort", "travel",
	}},
	{"entertainment", []string{
		"movie", "cinema", "concert", "netflix", "spotify", "hulu",
		"arcade", "theater", "theatre", "festival",
	}},
	{"dining", []string{
		"restaurant", "dinner", "lunch", "brunch", "breakfast", "takeout",
		"pizza", "sushi", "burger", "taco", "doordash", "snack",
	}},
	{"shopping", []string{
		"amazon", "mall", "store", "clothes", "shoes", "target", "ikea",
		"shopping",
	}},
}

// aliases maps exact normalized labels to canonical keys, catching common
// shorthand the keyword groups are too coarse for.
var aliases = map[string]string{
	"btc":         "investments",
	"disneyland":  "travel",
	"snack":       "dining",
	"bar":         "dining",
	"drinks":      "dining",
	"uber":        "transport",
	"lyft":        "transport",
	"supermarket": "groceries",
	"gym":         "healthcare",
	"doctor":      "healthcare",
	"petrol":      "gas",
	"fuel":        "gas",
}

// Canonicals returns the built-in taxonomy in display order.
func Canonicals() []Canonical {
	out := make([]Canonical, len(canonicals))
	copy(out, canonicals)
	return out
}

// CanonicalBucket returns the bucket a canonical key maps to.
func CanonicalBucket(key string) (core.Bucket, bool) {
	c, ok := canonicalByKey[key]
	if !ok {
		return "", false
	}
	return c.Bucket, true
}
