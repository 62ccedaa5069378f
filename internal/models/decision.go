// internal/models/decision.go
package models

import "time"

// DecisionStatus is the terminal underwriting outcome.
type DecisionStatus string

const (
	DecisionApproved DecisionStatus = "APPROVED"
	DecisionRejected DecisionStatus = "REJECTED"
)

// Decision is the underwriting outcome for one conversation. It is set at
// most once; the orchestrator never overwrites an existing decision.
type Decision struct {
	Status DecisionStatus `json:"status"`
	Reason string         `json:"reason"`

	// Populated when Status is APPROVED.
	ApprovedAmount float64 `json:"approved_amount,omitempty"`
	InterestRate   float64 `json:"interest_rate,omitempty"`
	TenureMonths   int     `json:"tenure_months,omitempty"`
	MonthlyEMI     float64 `json:"monthly_emi,omitempty"`

	// Populated when Status is REJECTED. Order matters for display.
	Suggestions []string `json:"suggestions,omitempty"`

	DecidedAt time.Time `json:"decided_at"`
}

// Approved reports whether the decision is an approval.
func (d *Decision) Approved() bool {
	return d != nil && d.Status == DecisionApproved
}
