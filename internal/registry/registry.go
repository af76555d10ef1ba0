// Package registry talks to the two external directories a seller is
// checked against: the marketplace seller directory and the government
// tax-registration service.
package registry

import (
	"context"
	"encoding/json"
)

// SellerDirectory resolves sellers to their registered profile.
type SellerDirectory interface {
	// ResolveAlias maps a numeric user ID to the seller's showroom alias.
	ResolveAlias(ctx context.Context, userID string) (string, error)
	// FetchDetails returns the registered profile for an alias.
	FetchDetails(ctx context.Context, alias string) (*SellerRecord, error)
}

// GovernmentRegistry verifies tax-registration numbers.
type GovernmentRegistry interface {
	Verify(ctx context.Context, taxID string) (*GovernmentRecord, error)
}

// SellerRecord is a seller's self-declared profile in the directory.
type SellerRecord struct {
	Alias          string          `json:"alias"`
	CompanyName    string          `json:"company_name"`
	ProductCount   int             `json:"product_count"`
	Products       []string        `json:"products"`
	TaxID          string          `json:"gst_number,omitempty"`
	Classification *Classification `json:"gst_info,omitempty"`
}

// Classification is the business classification a seller declared
// alongside their tax registration.
type Classification struct {
	LegalStatus          string            `json:"legal_status,omitempty"`
	NatureOfBusiness     string            `json:"nature_of_business,omitempty"`
	AdditionalActivities string            `json:"additional_activities,omitempty"`
	Raw                  map[string]string `json:"raw,omitempty"`
}

// Field titles used by the seller directory's "GST Information" section.
const (
	titleTaxID            = "GST"
	titleLegalStatus      = "GST Legal status"
	titleNatureOfBusiness = "GST Nature of business"
	titleAdditionalNOB    = "GST Additional NOB"
)

// ClassificationFromFields builds a Classification from the title/value
// pairs of a directory factsheet.
func ClassificationFromFields(fields map[string]string) *Classification {
	if len(fields) == 0 {
		return nil
	}
	raw := make(map[string]string, len(fields))
	for k, v := range fields {
		raw[k] = v
	}
	return &Classification{
		LegalStatus:          fields[titleLegalStatus],
		NatureOfBusiness:     fields[titleNatureOfBusiness],
		AdditionalActivities: fields[titleAdditionalNOB],
		Raw:                  raw,
	}
}

// GovernmentRecord is the authoritative record for a tax registration.
type GovernmentRecord struct {
	Verified         bool            `json:"verified"`
	TaxID            string          `json:"gstin"`
	TradeName        string          `json:"trade_name"`
	LegalName        string          `json:"legal_name"`
	RegistrationDate string          `json:"registration_date"`
	Status           string          `json:"status"`
	Constitution     string          `json:"constitution"`
	Activities       []string        `json:"nature_of_business"`
	Jurisdiction     string          `json:"state"`
	Address          string          `json:"address,omitempty"`
	TaxpayerType     string          `json:"taxpayer_type,omitempty"`
	Raw              json.RawMessage `json:"raw_data,omitempty"`
}
