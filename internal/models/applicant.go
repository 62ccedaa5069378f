// internal/models/applicant.go
package models

import "regexp"

// PANRegex is the Indian PAN layout: five letters, four digits, one letter.
var PANRegex = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

// ApplicantRecord holds the loan-relevant fields accumulated over the
// conversation. Zero values mean "not collected yet"; updates go through
// Merge so that an extraction round only overwrites fields it actually
// returned.
type ApplicantRecord struct {
	Name           string  `json:"name,omitempty"`
	LoanAmount     float64 `json:"loan_amount,omitempty"`
	LoanPurpose    string  `json:"loan_purpose,omitempty"`
	MonthlySalary  float64 `json:"monthly_salary,omitempty"`
	EmploymentType string  `json:"employment_type,omitempty"`
	CreditScore    int     `json:"credit_score,omitempty"`
	ExistingLoans  float64 `json:"existing_loans,omitempty"`
	PANNumber      string  `json:"pan_number,omitempty"`
}

// ApplicantUpdate is one round of extractor output. Pointer fields
// distinguish "not returned" from "returned empty/zero".
type ApplicantUpdate struct {
	Name           *string
	LoanAmount     *float64
	LoanPurpose    *string
	MonthlySalary  *float64
	EmploymentType *string
	CreditScore    *int
	ExistingLoans  *float64
	PANNumber      *string
}

// Merge applies an update in place. Only fields the extractor returned are
// written; numeric fields are clamped at zero so a bad extraction can never
// leave a negative amount behind.
func (a *ApplicantRecord) Merge(u ApplicantUpdate) {
	if u.Name != nil && *u.Name != "" {
		a.Name = *u.Name
	}
	if u.LoanAmount != nil {
		a.LoanAmount = clampNonNegative(*u.LoanAmount)
	}
	if u.LoanPurpose != nil && *u.LoanPurpose != "" {
		a.LoanPurpose = *u.LoanPurpose
	}
	if u.MonthlySalary != nil {
		a.MonthlySalary = clampNonNegative(*u.MonthlySalary)
	}
	if u.EmploymentType != nil && *u.EmploymentType != "" {
		a.EmploymentType = *u.EmploymentType
	}
	if u.CreditScore != nil && *u.CreditScore > 0 {
		a.CreditScore = *u.CreditScore
	}
	if u.ExistingLoans != nil {
		a.ExistingLoans = clampNonNegative(*u.ExistingLoans)
	}
	if u.PANNumber != nil && *u.PANNumber != "" {
		a.PANNumber = *u.PANNumber
	}
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
