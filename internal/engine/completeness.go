// internal/engine/completeness.go
package engine

import "loanflow/internal/models"

// requiredFields is the fixed priority order in which missing information is
// requested, one field per turn.
var requiredFields = []string{
	"loan_amount",
	"loan_purpose",
	"monthly_salary",
	"employment_type",
	"name",
}

// IsComplete reports whether the applicant record carries every field needed
// to move from INFO_GATHERING to VERIFICATION. Pure; no side effects.
func IsComplete(a models.ApplicantRecord) bool {
	if a.Name == "" || a.LoanPurpose == "" || a.EmploymentType == "" {
		return false
	}
	if a.LoanAmount <= 0 {
		return false
	}
	if a.MonthlySalary <= 0 {
		return false
	}
	return true
}

// NextMissingField returns the first field, in priority order, that the
// applicant record still lacks, or "" when nothing is missing.
func NextMissingField(a models.ApplicantRecord) string {
	for _, field := range requiredFields {
		switch field {
		case "loan_amount":
			if a.LoanAmount <= 0 {
				return field
			}
		case "loan_purpose":
			if a.LoanPurpose == "" {
				return field
			}
		case "monthly_salary":
			if a.MonthlySalary <= 0 {
				return field
			}
		case "employment_type":
			if a.EmploymentType == "" {
				return field
			}
		case "name":
			if a.Name == "" {
				return field
			}
		}
	}
	return ""
}
