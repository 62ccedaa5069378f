// pkg/doccatalog/catalog.go
package doccatalog

import (
	"encoding/json"
	"os"
)

// Catalog maps document type tags to their display metadata. The checklist
// validator uses it to turn tags into human-readable names and to know which
// documents a loan application requires.
type Catalog struct {
	Version   string     `json:"version"`
	Documents []Document `json:"documents"`
}

type Document struct {
	Tag         string `json:"tag"`
	DisplayName string `json:"displayName"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// Load reads a catalog overlay from disk.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat Catalog
	err = json.Unmarshal(data, &cat)
	return &cat, err
}

// Default returns the built-in catalog. Required entries keep their listed
// order; the checklist reports missing documents in exactly this order.
func Default() *Catalog {
	return &Catalog{
		Version: "1",
		Documents: []Document{
			{Tag: "salary_slip", DisplayName: "Salary Slip", Required: true},
			{Tag: "pan_card", DisplayName: "PAN Card", Required: true},
			{Tag: "video_kyc_selfie", DisplayName: "Video KYC Selfie", Required: true},
			{Tag: "aadhaar", DisplayName: "Aadhaar Card", Required: false},
			{Tag: "bank_statement", DisplayName: "Bank Statement", Required: false},
		},
	}
}

// Required returns the required tags in catalog order.
func (c *Catalog) Required() []string {
	var tags []string
	for _, d := range c.Documents {
		if d.Required {
			tags = append(tags, d.Tag)
		}
	}
	return tags
}

// Has reports whether the catalog knows the tag, required or optional.
func (c *Catalog) Has(tag string) bool {
	for _, d := range c.Documents {
		if d.Tag == tag {
			return true
		}
	}
	return false
}

// DisplayName maps a tag to its display name. Unknown tags pass through
// unchanged.
func (c *Catalog) DisplayName(tag string) string {
	for _, d := range c.Documents {
		if d.Tag == tag {
			return d.DisplayName
		}
	}
	return tag
}
