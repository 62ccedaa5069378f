// internal/engine/prompts.go
package engine

import (
	"fmt"
	"strings"

	"loanflow/internal/models"
)

// greetingPrompt drives the warm opening turn.
const greetingPrompt = `You are a friendly, persuasive loan sales executive for an NBFC.

Your goal:
- Build trust quickly
- Make the customer feel valued
- Guide them smoothly toward applying
- Be conversational, not robotic
- Show enthusiasm and professionalism

Start with a warm greeting and ask how you can help them today. Be natural and engaging.`

// confirmPrompt drives the summary-and-confirm turn once the record is
// complete.
const confirmPrompt = `You are a loan sales executive confirming loan application details.

Summarize all the collected information clearly and ask the customer to confirm if everything is correct.
Be friendly and professional. Once confirmed, let them know the next steps (document verification).`

// fieldDescriptions names each required field in plain language for the
// ask-missing-info prompt.
var fieldDescriptions = map[string]string{
	"loan_amount":     "the loan amount you need",
	"loan_purpose":    "the purpose of the loan (e.g., home renovation, medical expenses, education)",
	"monthly_salary":  "your monthly salary or income",
	"employment_type": "your employment type (salaried, self-employed, business owner)",
	"name":            "your full name",
}

func askMissingPrompt(field string, a models.ApplicantRecord) string {
	desc, ok := fieldDescriptions[field]
	if !ok {
		desc = field
	}
	return fmt.Sprintf(`You are a friendly loan sales executive. The customer is applying for a loan.

Current information collected:
%s

You need to ask for: %s

Ask for this information in a natural, conversational way. Explain WHY you need this info (e.g., "to determine your eligibility").
Be friendly and make it feel like a conversation, not an interrogation.`, summarizeRecord(a), desc)
}

func summarizeRecord(a models.ApplicantRecord) string {
	var b strings.Builder
	writeLine := func(label, value string) {
		if value == "" {
			value = "Not provided"
		}
		fmt.Fprintf(&b, "- %s: %s\n", label, value)
	}
	writeLine("Name", a.Name)
	if a.LoanAmount > 0 {
		writeLine("Loan Amount", "Rs "+formatAmount(a.LoanAmount))
	} else {
		writeLine("Loan Amount", "")
	}
	writeLine("Loan Purpose", a.LoanPurpose)
	if a.MonthlySalary > 0 {
		writeLine("Monthly Salary", "Rs "+formatAmount(a.MonthlySalary))
	} else {
		writeLine("Monthly Salary", "")
	}
	writeLine("Employment Type", a.EmploymentType)
	return b.String()
}

func confirmationRequest(a models.ApplicantRecord) string {
	return fmt.Sprintf("Please confirm these details:\n\nLoan Application Summary:\n%s", summarizeRecord(a))
}
