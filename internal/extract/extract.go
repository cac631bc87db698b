// Package extract turns raw language-model output into a structured
// transaction record. Decoding is dual-path: a strict JSON decode over the
// first {...} block in the text, then a regex fallback for output that is
// close to, but not quite, the contracted shape. Both paths sit behind the
// Parser interface so they stay independently testable and swappable.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TransactionType is the optional model-supplied direction hint.
type TransactionType string

const (
	TypeExpense TransactionType = "expense"
	TypeCredit  TransactionType = "credit"
)

var (
	// ErrNoStructuredData means neither strict JSON nor the regex fallback
	// located a numeric amount. Fatal for the extraction attempt; the caller
	// surfaces it for a user-facing retry and caches nothing.
	ErrNoStructuredData = errors.New("no structured data found in model output")

	// ErrMalformedJSON means braces were found but the content does not
	// decode to the contracted schema. Internal: the extractor retries via
	// the regex fallback before anything reaches the caller.
	ErrMalformedJSON = errors.New("malformed JSON in model output")
)

// Record is the decoded model output before sign resolution.
type Record struct {
	Merchant        string
	Amount          float64
	Category        string
	TransactionType TransactionType // empty when absent or unmatched
}

// Result is a fully interpreted extraction: the decoded record plus the
// signed amount and the income routing flag, both derived from the original
// utterance.
type Result struct {
	Record
	SignedAmount float64
	IsIncome     bool
}

// Parser decodes raw model output into a Record.
type Parser interface {
	Parse(raw string) (Record, error)
}

// Extractor combines the strict and fallback parsers. The zero value is not
// usable; construct with New.
type Extractor struct {
	strict   Parser
	fallback Parser
}

func New() *Extractor {
	return &Extractor{strict: JSONParser{}, fallback: RegexParser{}}
}

// Extract decodes modelOutput and resolves the signed amount and income flag
// against the original utterance. Pure: identical inputs yield identical
// results.
func (e *Extractor) Extract(modelOutput, utterance string) (Result, error) {
	rec, err := e.Parse(modelOutput)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Record:       rec,
		SignedAmount: SignedAmount(rec, utterance),
		IsIncome:     IsIncome(utterance),
	}, nil
}

// Parse runs the strict decoder and falls back to regex extraction on any
// strict failure. Only a fallback failure surfaces, collapsed into
// ErrNoStructuredData.
func (e *Extractor) Parse(modelOutput string) (Record, error) {
	rec, err := e.strict.Parse(modelOutput)
	if err == nil {
		return rec, nil
	}
	rec, err = e.fallback.Parse(modelOutput)
	if err != nil {
		return Record{}, ErrNoStructuredData
	}
	return rec, nil
}

// SignedAmount resolves the stored sign convention: positive for expenses,
// negative for credits. The amount is treated as a credit when the decoded
// amount was negative, the model tagged it as a credit, or the utterance
// carries a credit signal.
func SignedAmount(rec Record, utterance string) float64 {
	amt := math.Abs(rec.Amount)
	if math.IsNaN(amt) || math.IsInf(amt, 0) {
		amt = 0
	}
	if rec.Amount < 0 || rec.TransactionType == TypeCredit || hasCreditSignal(utterance) {
		return -amt
	}
	return amt
}

// JSONParser is the strict path: isolate the first '{' through the last '}'
// after it and decode that slice against the model-output contract.
type JSONParser struct{}

type wireRecord struct {
	Merchant        *string  `json:"merchant"`
	Amount          *float64 `json:"amount"`
	Category        *string  `json:"category"`
	TransactionType *string  `json:"transactionType"`
}

func (JSONParser) Parse(raw string) (Record, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return Record{}, ErrNoStructuredData
	}
	end := strings.LastIndexByte(raw, '}')
	if end < start {
		return Record{}, ErrNoStructuredData
	}

	var wire wireRecord
	if err := json.Unmarshal([]byte(raw[start:end+1]), &wire); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if wire.Merchant == nil || wire.Amount == nil || wire.Category == nil {
		return Record{}, fmt.Errorf("%w: missing required key", ErrMalformedJSON)
	}

	rec := Record{
		Merchant: *wire.Merchant,
		Amount:   *wire.Amount,
		Category: *wire.Category,
	}
	if wire.TransactionType != nil {
		rec.TransactionType = matchTransactionType(*wire.TransactionType)
	}
	return rec, nil
}

// RegexParser is the fallback path. A missing amount is fatal; merchant and
// category fall back to "Unknown" and "other".
type RegexParser struct{}

func (RegexParser) Parse(raw string) (Record, error) {
	m := amountRe.FindStringSubmatch(raw)
	if m == nil {
		return Record{}, ErrNoStructuredData
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Record{}, ErrNoStructuredData
	}

	rec := Record{Merchant: "Unknown", Amount: amount, Category: "other"}
	if mm := merchantRe.FindStringSubmatch(raw); mm != nil {
		rec.Merchant = mm[1]
	}
	if cm := categoryRe.FindStringSubmatch(raw); cm != nil {
		rec.Category = cm[1]
	}
	if tm := typeRe.FindStringSubmatch(raw); tm != nil {
		rec.TransactionType = matchTransactionType(tm[1])
	}
	return rec, nil
}

// matchTransactionType case-insensitively matches the enum; anything else
// collapses to absent.
func matchTransactionType(s string) TransactionType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(TypeExpense):
		return TypeExpense
	case string(TypeCredit):
		return TypeCredit
	}
	return ""
}
