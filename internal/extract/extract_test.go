package extract

import (
	"errors"
	"testing"
)

func TestParseCleanJSON(t *testing.T) {
	raw := `{"merchant":"Whole Foods","amount":45,"category":"groceries"}`
	rec, err := New().Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Merchant != "Whole Foods" || rec.Amount != 45 || rec.Category != "groceries" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.TransactionType != "" {
		t.Errorf("transactionType should be absent, got %q", rec.TransactionType)
	}
}

func TestParseJSONWithSurroundingCommentary(t *testing.T) {
	raw := "Sure! ```json\n{\"merchant\":\"Starbucks\",\"amount\":5.5,\"category\":\"coffee\"}\n```"
	rec, err := New().Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Merchant != "Starbucks" || rec.Amount != 5.5 || rec.Category != "coffee" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestParseTransactionTypeCaseInsensitive(t *testing.T) {
	raw := `{"merchant":"Acme","amount":10,"category":"other","transactionType":"CREDIT"}`
	rec, err := New().Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.TransactionType != TypeCredit {
		t.Errorf("transactionType = %q, want credit", rec.TransactionType)
	}

	raw = `{"merchant":"Acme","amount":10,"category":"other","transactionType":"transfer"}`
	rec, err = New().Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.TransactionType != "" {
		t.Errorf("unmatched transactionType should collapse to absent, got %q", rec.TransactionType)
	}
}

func TestRegexFallbackOnBrokenJSON(t *testing.T) {
	// Braces present but not decodable: trailing comma.
	raw := `{"merchant": "Target", "amount": 23.10,}`
	rec, err := New().Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Merchant != "Target" {
		t.Errorf("merchant = %q, want Target", rec.Merchant)
	}
	if rec.Amount != 23.10 {
		t.Errorf("amount = %v, want 23.10", rec.Amount)
	}
	if rec.Category != "other" {
		t.Errorf("category = %q, want fallback other", rec.Category)
	}
}

func TestRegexFallbackWithoutBraces(t *testing.T) {
	raw := `merchant": "Target" something 23.10`
	rec, err := New().Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Merchant != "Target" || rec.Amount != 23.10 || rec.Category != "other" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestRegexFallbackDefaultsMerchantUnknown(t *testing.T) {
	rec, err := New().Parse("charged $12.50 somewhere")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Merchant != "Unknown" {
		t.Errorf("merchant = %q, want Unknown", rec.Merchant)
	}
	if rec.Amount != 12.50 {
		t.Errorf("amount = %v, want 12.50", rec.Amount)
	}
}

func TestParseNoAmountAnywhere(t *testing.T) {
	_, err := New().Parse("sorry, I could not parse that")
	if !errors.Is(err, ErrNoStructuredData) {
		t.Fatalf("err = %v, want ErrNoStructuredData", err)
	}
}

func TestJSONParserMissingRequiredKey(t *testing.T) {
	_, err := JSONParser{}.Parse(`{"merchant":"Acme","category":"other"}`)
	if !errors.Is(err, ErrMalformedJSON) {
		t.Fatalf("err = %v, want ErrMalformedJSON", err)
	}
}

func TestSignedAmountCreditSignal(t *testing.T) {
	rec := Record{Merchant: "Grandma", Amount: 50, Category: "gifts"}
	if got := SignedAmount(rec, "grandma gave me 50 for lunch"); got != -50 {
		t.Errorf("SignedAmount = %v, want -50", got)
	}
}

func TestSignedAmountPlainExpense(t *testing.T) {
	rec := Record{Merchant: "Whole Foods", Amount: 45, Category: "groceries"}
	if got := SignedAmount(rec, "spent 45 at whole foods"); got != 45 {
		t.Errorf("SignedAmount = %v, want 45", got)
	}
}

func TestSignedAmountNegativeDecodedAmount(t *testing.T) {
	rec := Record{Merchant: "Visa", Amount: -20, Category: "other"}
	if got := SignedAmount(rec, "statement adjustment"); got != -20 {
		t.Errorf("SignedAmount = %v, want -20", got)
	}
}

func TestSignedAmountCreditType(t *testing.T) {
	rec := Record{Merchant: "Amazon", Amount: 30, Category: "shopping", TransactionType: TypeCredit}
	if got := SignedAmount(rec, "amazon order"); got != -30 {
		t.Errorf("SignedAmount = %v, want -30", got)
	}
}

func TestIsIncome(t *testing.T) {
	cases := []struct {
		utterance string
		want      bool
	}{
		{"got paid today, salary came in", true},
		{"client paid invoice #42", true},
		{"direct deposit hit", true},
		{"spent 45 at whole foods", false},
		{"grandma gave me 50 for lunch", false},
	}
	for _, tc := range cases {
		if got := IsIncome(tc.utterance); got != tc.want {
			t.Errorf("IsIncome(%q) = %v, want %v", tc.utterance, got, tc.want)
		}
	}
}

func TestExtractDeterministic(t *testing.T) {
	raw := `{"merchant":"Starbucks","amount":5.5,"category":"coffee"}`
	utterance := "coffee at starbucks 5.50"
	e := New()
	a, err := e.Extract(raw, utterance)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	b, err := e.Extract(raw, utterance)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if a != b {
		t.Errorf("extraction not deterministic: %+v vs %+v", a, b)
	}
	if a.SignedAmount != 5.5 || a.IsIncome {
		t.Errorf("unexpected result: %+v", a)
	}
}
