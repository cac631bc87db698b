package core

import "fmt"

// Bucket is one of the three top-level budget buckets every category maps to.
type Bucket string

const (
	BucketFundamentals Bucket = "fundamentals"
	BucketFun          Bucket = "fun"
	BucketFutureYou    Bucket = "future_you"
)

// Buckets lists all buckets in display order.
var Buckets = []Bucket{BucketFundamentals, BucketFun, BucketFutureYou}

// ParseBucket decodes a stored bucket code. Unknown codes are an error rather
// than silently defaulting, so drift in persisted data surfaces at load time.
func ParseBucket(s string) (Bucket, error) {
	switch Bucket(s) {
	case BucketFundamentals, BucketFun, BucketFutureYou:
		return Bucket(s), nil
	}
	return "", fmt.Errorf("unknown bucket %q", s)
}

// Valid reports whether b is one of the three known buckets.
func (b Bucket) Valid() bool {
	switch b {
	case BucketFundamentals, BucketFun, BucketFutureYou:
		return true
	}
	return false
}

// RolloverEligible reports whether unused budget in b carries into the next
// month. The future-you bucket never rolls over.
func (b Bucket) RolloverEligible() bool {
	return b == BucketFundamentals || b == BucketFun
}

func (b Bucket) String() string {
	return string(b)
}
