// internal/engine/eligibility.go
package engine

import (
	"fmt"
	"math"
	"strconv"
	"time"

	commonerrors "loanflow/internal/common/errors"
	"loanflow/internal/models"
)

// Fixed loan terms used by the eligibility calculator.
const (
	AnnualInterestRate = 12.5
	TenureMonths       = 36
)

// Eligibility rule thresholds.
const (
	salaryToEMIMultiple  = 3.0
	loanToSalaryMultiple = 10.0
	debtBurdenRatio      = 0.5
	minimumCreditScore   = 650
)

// MonthlyEMI computes the equated monthly installment for the fixed terms:
// emi = P*r*(1+r)^n / ((1+r)^n - 1), r the monthly rate, n the tenure.
func MonthlyEMI(loanAmount float64) float64 {
	r := AnnualInterestRate / 12 / 100
	pow := math.Pow(1+r, TenureMonths)
	return loanAmount * r * pow / (pow - 1)
}

// AssessRisk runs the eligibility rule chain in fixed order and returns the
// decision. The first failing rule determines the rejection. Pure given the
// record; credit score and existing loans must already be populated by the
// caller (bureau lookups happen in the orchestrator, not here).
//
// Preconditions: loanAmount > 0 and monthlySalary > 0. Violations return an
// INVALID_LOAN_REQUEST error rather than a coerced decision.
func AssessRisk(a models.ApplicantRecord, now time.Time) (*models.Decision, error) {
	if a.LoanAmount <= 0 {
		return nil, commonerrors.NewInvalidLoanRequestError(
			fmt.Sprintf("loan amount must be positive, got %v", a.LoanAmount))
	}
	if a.MonthlySalary <= 0 {
		return nil, commonerrors.NewInvalidLoanRequestError(
			fmt.Sprintf("monthly salary must be positive, got %v", a.MonthlySalary))
	}

	emi := MonthlyEMI(a.LoanAmount)

	// Rule 1: salary must cover three EMIs
	if a.MonthlySalary < emi*salaryToEMIMultiple {
		return &models.Decision{
			Status: models.DecisionRejected,
			Reason: fmt.Sprintf(
				"Monthly salary (Rs %s) is insufficient for EMI repayment (Rs %s). Required: Rs %s",
				formatAmount(a.MonthlySalary), formatAmount(emi), formatAmount(emi*salaryToEMIMultiple)),
			Suggestions: []string{
				"Consider reducing the loan amount",
				"Increase the loan tenure",
				"Wait until your salary increases",
			},
			DecidedAt: now,
		}, nil
	}

	// Rule 2: loan amount capped at ten months of salary
	maxEligible := a.MonthlySalary * loanToSalaryMultiple
	if a.LoanAmount > maxEligible {
		return &models.Decision{
			Status: models.DecisionRejected,
			Reason: fmt.Sprintf(
				"Loan amount (Rs %s) exceeds eligibility limit (Rs %s). Maximum eligible: 10x monthly salary",
				formatAmount(a.LoanAmount), formatAmount(maxEligible)),
			Suggestions: []string{
				fmt.Sprintf("Reduce loan amount to Rs %s or less", formatAmount(maxEligible)),
				"Consider applying after salary increase",
			},
			DecidedAt: now,
		}, nil
	}

	// Rule 3: existing debt burden
	if a.ExistingLoans > a.MonthlySalary*debtBurdenRatio {
		return &models.Decision{
			Status: models.DecisionRejected,
			Reason: fmt.Sprintf(
				"Existing loans (Rs %s) exceed 50%% of monthly salary. This indicates high debt burden.",
				formatAmount(a.ExistingLoans)),
			Suggestions: []string{
				"Pay off existing loans first",
				"Reduce the new loan amount",
			},
			DecidedAt: now,
		}, nil
	}

	// Rule 4: credit score floor, only when a score is known
	if a.CreditScore > 0 && a.CreditScore < minimumCreditScore {
		return &models.Decision{
			Status: models.DecisionRejected,
			Reason: fmt.Sprintf(
				"Credit score (%d) is below minimum requirement (%d)",
				a.CreditScore, minimumCreditScore),
			Suggestions: []string{
				"Improve your credit score by paying bills on time",
				"Reduce existing debt",
				"Wait 3-6 months and reapply",
			},
			DecidedAt: now,
		}, nil
	}

	return &models.Decision{
		Status:         models.DecisionApproved,
		Reason:         "All eligibility criteria met",
		ApprovedAmount: a.LoanAmount,
		InterestRate:   AnnualInterestRate,
		TenureMonths:   TenureMonths,
		MonthlyEMI:     emi,
		Suggestions:    []string{},
		DecidedAt:      now,
	}, nil
}

// formatAmount rounds to the nearest unit and groups digits with commas.
// Rounding happens only here, at presentation time.
func formatAmount(v float64) string {
	s := strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-" + s
	}
	return s
}
