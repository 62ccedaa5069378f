// internal/models/applicant_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

func TestMerge_OnlyReturnedFieldsOverwrite(t *testing.T) {
	record := ApplicantRecord{
		Name:       "Priya Sharma",
		LoanAmount: 500000,
	}

	record.Merge(ApplicantUpdate{
		MonthlySalary: f64Ptr(60000),
	})

	assert.Equal(t, "Priya Sharma", record.Name)
	assert.Equal(t, 500000.0, record.LoanAmount)
	assert.Equal(t, 60000.0, record.MonthlySalary)
}

func TestMerge_EmptyStringsDoNotErase(t *testing.T) {
	record := ApplicantRecord{Name: "Priya Sharma", LoanPurpose: "home renovation"}

	record.Merge(ApplicantUpdate{
		Name:        strPtr(""),
		LoanPurpose: strPtr(""),
	})

	assert.Equal(t, "Priya Sharma", record.Name)
	assert.Equal(t, "home renovation", record.LoanPurpose)
}

func TestMerge_NegativeAmountsClampToZero(t *testing.T) {
	record := ApplicantRecord{}
	record.Merge(ApplicantUpdate{
		LoanAmount:    f64Ptr(-100),
		ExistingLoans: f64Ptr(-1),
	})

	assert.Equal(t, 0.0, record.LoanAmount)
	assert.Equal(t, 0.0, record.ExistingLoans)
}

func TestPANRegex(t *testing.T) {
	valid := []string{"ABCDE1234F", "ZZZZZ9999Z"}
	invalid := []string{"", "abcde1234f", "ABCD1234FG", "ABCDE12345", "ABCDE1234", "1BCDE1234F", "ABCDE1234F "}

	for _, pan := range valid {
		assert.True(t, PANRegex.MatchString(pan), "expected %q to match", pan)
	}
	for _, pan := range invalid {
		assert.False(t, PANRegex.MatchString(pan), "expected %q to not match", pan)
	}
}

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{"plain number", "75000", 75000},
		{"indian grouping", "1,00,000", 100000},
		{"underscores", "50_000", 50000},
		{"decimal", "75000.50", 75000.50},
		{"spaces", " 25 000 ", 25000},
		{"garbage", "five lakhs", 0},
		{"empty", "", 0},
		{"negative", "-500", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAmount(tt.input))
		})
	}
}
