// Package verify decides whether a seller actually deals in the products
// discussed on a call, using the seller directory and the government tax
// registry as evidence.
package verify

import (
	"context"
	"log"
	"strings"

	"github.com/TobiSchelling/TradeCheck/internal/match"
	"github.com/TobiSchelling/TradeCheck/internal/registry"
)

// Status is the overall verdict of a validation.
type Status string

const (
	StatusVerified   Status = "verified"
	StatusPartial    Status = "partial"
	StatusUnverified Status = "unverified"
	StatusError      Status = "error"
)

const (
	msgVerified   = "Seller is verified GST supplier for all discussed products"
	msgPartial    = "Seller verified for some products, but not all"
	msgUnverified = "WARNING: Seller not registered for discussed products"
	msgErrorFmt   = "Could not validate seller: "
)

// Result is the outcome of validating one seller against a product list.
// Government and Categories are supplementary and never affect Status.
type Result struct {
	SellerID string `json:"seller_identifier"`
	Status   Status `json:"validation_status"`
	Message  string `json:"message"`

	Seller *registry.SellerRecord `json:"seller_data"`
	match.ProductMatch

	Government      *registry.GovernmentRecord `json:"government_gst_verification"`
	GovernmentError string                     `json:"government_error,omitempty"`
	Categories      *match.CategoryMatch       `json:"business_category_match"`
}

// Orchestrator runs the validation sequence. It holds no state beyond its
// two clients and is safe for concurrent use when they are.
type Orchestrator struct {
	sellers registry.SellerDirectory
	gov     registry.GovernmentRegistry
}

// New creates an Orchestrator. gov may be nil, in which case government
// verification is skipped.
func New(sellers registry.SellerDirectory, gov registry.GovernmentRegistry) *Orchestrator {
	return &Orchestrator{sellers: sellers, gov: gov}
}

// Validate checks sellerID against the products mentioned on a call. It
// never returns an error; failures to reach the seller directory produce a
// StatusError result.
func (o *Orchestrator) Validate(ctx context.Context, sellerID string, products []string) *Result {
	sellerID = strings.TrimSpace(sellerID)
	res := &Result{SellerID: sellerID}

	seller, reason := o.lookupSeller(ctx, sellerID)
	if seller == nil {
		res.Status = StatusError
		res.Message = msgErrorFmt + reason
		return res
	}
	res.Seller = seller

	if seller.TaxID != "" && o.gov != nil {
		gov, err := o.gov.Verify(ctx, seller.TaxID)
		switch {
		case err != nil:
			log.Printf("GST verification for %s skipped (%s): %v", seller.TaxID, registry.KindOf(err), err)
			res.GovernmentError = err.Error()
		case gov != nil && gov.Verified:
			res.Government = gov
			if seller.Classification != nil {
				cm := match.MatchCategories(seller.Classification, gov)
				res.Categories = &cm
				log.Printf("Business category match score: %.1f%%", cm.Score)
			}
		}
	}

	res.ProductMatch = match.MatchProducts(products, seller.Products)
	res.Status, res.Message = verdict(res.ProductMatch)
	return res
}

func (o *Orchestrator) lookupSeller(ctx context.Context, sellerID string) (*registry.SellerRecord, string) {
	if sellerID == "" {
		return nil, "No seller identifier provided"
	}

	alias := sellerID
	if isNumeric(sellerID) {
		log.Printf("Fetching alias for user ID %s", sellerID)
		a, err := o.sellers.ResolveAlias(ctx, sellerID)
		if err != nil {
			log.Printf("Alias lookup for %s failed (%s): %v", sellerID, registry.KindOf(err), err)
			return nil, "Could not fetch seller alias"
		}
		alias = a
	}

	rec, err := o.sellers.FetchDetails(ctx, alias)
	if err != nil || rec == nil {
		log.Printf("Details lookup for %s failed (%s): %v", alias, registry.KindOf(err), err)
		return nil, "Could not fetch company details"
	}
	return rec, ""
}

func verdict(pm match.ProductMatch) (Status, string) {
	switch {
	case len(pm.Matches) > 0 && len(pm.NonMatches) == 0:
		return StatusVerified, msgVerified
	case len(pm.Matches) > 0:
		return StatusPartial, msgPartial
	default:
		return StatusUnverified, msgUnverified
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
