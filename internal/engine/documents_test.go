// internal/engine/documents_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"loanflow/internal/models"
	"loanflow/pkg/doccatalog"
)

func TestCheckDocuments_AllMissing(t *testing.T) {
	result := CheckDocuments(models.DocumentSet{}, models.ApplicantRecord{}, nil)

	assert.False(t, result.Passed)
	assert.Equal(t, []string{models.DocSalarySlip, models.DocPANCard, models.DocVideoKYC}, result.MissingDocs)
	assert.Equal(t, "Please upload: Salary Slip, PAN Card, Video KYC Selfie", result.Message)
}

func TestCheckDocuments_PartialSet(t *testing.T) {
	docs := models.DocumentSet{
		models.DocPANCard: "pan.pdf",
	}
	result := CheckDocuments(docs, models.ApplicantRecord{}, nil)

	assert.False(t, result.Passed)
	assert.Equal(t, []string{models.DocSalarySlip, models.DocVideoKYC}, result.MissingDocs)
	assert.Equal(t, "Please upload: Salary Slip, Video KYC Selfie", result.Message)
}

func TestCheckDocuments_CompleteSetPasses(t *testing.T) {
	docs := models.DocumentSet{
		models.DocSalarySlip: "salary.pdf",
		models.DocPANCard:    "pan.pdf",
		models.DocVideoKYC:   "selfie.jpg",
	}
	applicant := models.ApplicantRecord{PANNumber: "ABCDE1234F"}

	result := CheckDocuments(docs, applicant, nil)

	assert.True(t, result.Passed)
	assert.Empty(t, result.MissingDocs)
	assert.Equal(t, "All documents verified successfully", result.Message)
}

func TestCheckDocuments_PANValidatedFromRecordNotFilename(t *testing.T) {
	// The filename looks like a PAN but the extracted value is bogus. The
	// check must fail on the extracted value.
	docs := models.DocumentSet{
		models.DocSalarySlip: "salary.pdf",
		models.DocPANCard:    "ABCDE1234F.pdf",
		models.DocVideoKYC:   "selfie.jpg",
	}
	applicant := models.ApplicantRecord{PANNumber: "NOT-A-PAN"}

	result := CheckDocuments(docs, applicant, nil)

	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "PAN")
}

func TestCheckDocuments_GarbageFilenameStillPasses(t *testing.T) {
	// Conversely, a junk filename must not fail the check when the extracted
	// PAN is valid.
	docs := models.DocumentSet{
		models.DocSalarySlip: "salary.pdf",
		models.DocPANCard:    "IMG_20250601_093412.jpg",
		models.DocVideoKYC:   "selfie.jpg",
	}
	applicant := models.ApplicantRecord{PANNumber: "ABCDE1234F"}

	result := CheckDocuments(docs, applicant, nil)
	assert.True(t, result.Passed)
}

func TestCheckDocuments_NoPANOnRecordFails(t *testing.T) {
	// A complete set with no readable PAN value is not verified: the
	// applicant is asked for a clearer PAN card instead of a silent pass.
	docs := models.DocumentSet{
		models.DocSalarySlip: "salary.pdf",
		models.DocPANCard:    "pan.pdf",
		models.DocVideoKYC:   "selfie.jpg",
	}
	result := CheckDocuments(docs, models.ApplicantRecord{}, nil)

	assert.False(t, result.Passed)
	assert.Empty(t, result.MissingDocs)
	assert.Contains(t, result.Message, "clearer copy of your PAN card")
}

func TestCheckDocuments_NoPANRequirementWithoutPANCard(t *testing.T) {
	// A catalog that does not require a PAN card must not gate on the PAN
	// value.
	catalog := &doccatalog.Catalog{
		Version: "test",
		Documents: []doccatalog.Document{
			{Tag: models.DocBankStatement, DisplayName: "Bank Statement", Required: true},
		},
	}
	docs := models.DocumentSet{models.DocBankStatement: "statement.pdf"}

	result := CheckDocuments(docs, models.ApplicantRecord{}, catalog)
	assert.True(t, result.Passed)
}

func TestCheckDocuments_OptionalDocsNotRequired(t *testing.T) {
	docs := models.DocumentSet{
		models.DocSalarySlip: "salary.pdf",
		models.DocPANCard:    "pan.pdf",
		models.DocVideoKYC:   "selfie.jpg",
		// no aadhaar, no bank statement
	}
	result := CheckDocuments(docs, models.ApplicantRecord{PANNumber: "ABCDE1234F"}, nil)
	assert.True(t, result.Passed)
}

func TestCheckDocuments_CustomCatalog(t *testing.T) {
	catalog := &doccatalog.Catalog{
		Version: "test",
		Documents: []doccatalog.Document{
			{Tag: "bank_statement", DisplayName: "Bank Statement", Required: true},
		},
	}
	result := CheckDocuments(models.DocumentSet{}, models.ApplicantRecord{}, catalog)

	assert.False(t, result.Passed)
	assert.Equal(t, "Please upload: Bank Statement", result.Message)
}

func TestCheckDocuments_Idempotent(t *testing.T) {
	docs := models.DocumentSet{models.DocSalarySlip: "salary.pdf"}
	applicant := models.ApplicantRecord{}

	first := CheckDocuments(docs, applicant, nil)
	second := CheckDocuments(docs, applicant, nil)
	assert.Equal(t, first, second)
}
