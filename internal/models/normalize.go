// internal/models/normalize.go
package models

import (
	"strconv"
	"strings"
)

// ExtractionFieldHints names the fields the extractor is asked to pull from
// a conversation, with a plain-language description of each.
var ExtractionFieldHints = map[string]string{
	"name":            "Full name of the applicant",
	"loan_amount":     "Loan amount requested (number only)",
	"loan_purpose":    "Purpose of the loan",
	"monthly_salary":  "Monthly salary/income (number only)",
	"employment_type": "Type of employment (salaried, self-employed, etc.)",
	"pan_number":      "PAN card number if mentioned",
}

// NormalizeAmount parses a human-formatted amount ("1,00,000", "50_000",
// "75000.50"). Grouping characters are stripped before parsing; anything the
// parser still rejects becomes zero, which downstream code treats as "not
// collected".
func NormalizeAmount(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', '_', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
