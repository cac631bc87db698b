package extract

import (
	"regexp"
	"strings"
)

// Amount: optional dollar sign, digits, optional decimal portion.
var (
	amountRe   = regexp.MustCompile(`\$?(\d+(?:\.\d+)?)`)
	merchantRe = regexp.MustCompile(`"merchant"\s*:\s*"([^"]*)"`)
	categoryRe = regexp.MustCompile(`"category"\s*:\s*"([^"]*)"`)
	typeRe     = regexp.MustCompile(`"transactionType"\s*:\s*"([^"]*)"`)
)

// creditSignals are utterance substrings indicating the amount reduces spend
// (gift, refund, reimbursement) rather than adding to it.
var creditSignals = []string{
	"gave me", "gift", "refund", "reimburs", "cashback", "cash back",
	"found", "increase", "add ", "added ", "credit", "deposit", "income",
	"paid me", "sent me", "received", "got paid",
}

// incomeSignals route the entry into the income pseudo-category, independent
// of the credit-signal scan.
var incomeSignals = []string{
	"salary", "paycheck", "pay check", "got paid", "paid me",
	"direct deposit", "payroll", "wages", "bonus", "freelance", "invoice",
	"client paid", "income",
}

func hasCreditSignal(utterance string) bool {
	return containsAny(strings.ToLower(utterance), creditSignals)
}

// IsIncome reports whether the utterance reads as income (salary, payout,
// client payment). Income entries bypass category resolution and land in the
// income pseudo-category in the future-you bucket.
func IsIncome(utterance string) bool {
	return containsAny(strings.ToLower(utterance), incomeSignals)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
