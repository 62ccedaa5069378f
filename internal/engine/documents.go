// internal/engine/documents.go
package engine

import (
	"fmt"
	"strings"

	"loanflow/internal/models"
	"loanflow/pkg/doccatalog"
)

// ChecklistResult is the outcome of one document checklist run.
type ChecklistResult struct {
	Passed      bool
	MissingDocs []string // tags, in required-list order
	Message     string
}

// CheckDocuments validates the uploaded document set against the required
// checklist. Missing documents are reported in catalog order with their
// display names. When the set is complete and the catalog requires a PAN
// card, a PAN value must be on the applicant record (extracted from the
// document, not the upload's filename) and must match the PAN layout; a
// complete set with no readable PAN does not pass.
//
// Pure given its inputs; calling it twice with the same arguments yields the
// same result.
func CheckDocuments(docs models.DocumentSet, applicant models.ApplicantRecord, catalog *doccatalog.Catalog) ChecklistResult {
	if catalog == nil {
		catalog = doccatalog.Default()
	}

	var missing []string
	for _, tag := range catalog.Required() {
		if _, ok := docs[tag]; !ok {
			missing = append(missing, tag)
		}
	}

	if len(missing) > 0 {
		names := make([]string, len(missing))
		for i, tag := range missing {
			names[i] = catalog.DisplayName(tag)
		}
		return ChecklistResult{
			Passed:      false,
			MissingDocs: missing,
			Message:     fmt.Sprintf("Please upload: %s", strings.Join(names, ", ")),
		}
	}

	if requiresPAN(catalog) {
		if applicant.PANNumber == "" {
			return ChecklistResult{
				Passed:  false,
				Message: "We could not read a PAN number from your PAN card. Please upload a clearer copy of your PAN card.",
			}
		}
		if !models.PANRegex.MatchString(applicant.PANNumber) {
			return ChecklistResult{
				Passed:  false,
				Message: "The PAN number on your PAN card could not be validated. Please upload a clearer copy of your PAN card.",
			}
		}
	}

	return ChecklistResult{
		Passed:  true,
		Message: "All documents verified successfully",
	}
}

func requiresPAN(catalog *doccatalog.Catalog) bool {
	for _, tag := range catalog.Required() {
		if tag == models.DocPANCard {
			return true
		}
	}
	return false
}
