package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/TobiSchelling/TradeCheck/internal/registry"
)

type fakeDirectory struct {
	aliases  map[string]string
	records  map[string]*registry.SellerRecord
	aliasErr error
	calls    []string
}

func (f *fakeDirectory) ResolveAlias(_ context.Context, userID string) (string, error) {
	f.calls = append(f.calls, "alias:"+userID)
	if f.aliasErr != nil {
		return "", f.aliasErr
	}
	a, ok := f.aliases[userID]
	if !ok {
		return "", &registry.Error{Kind: registry.DataMissing, Op: "resolve alias"}
	}
	return a, nil
}

func (f *fakeDirectory) FetchDetails(_ context.Context, alias string) (*registry.SellerRecord, error) {
	f.calls = append(f.calls, "details:"+alias)
	rec, ok := f.records[alias]
	if !ok {
		return nil, &registry.Error{Kind: registry.UpstreamUnavailable, Op: "fetch details"}
	}
	return rec, nil
}

type fakeGov struct {
	rec   *registry.GovernmentRecord
	err   error
	calls int
}

func (f *fakeGov) Verify(_ context.Context, _ string) (*registry.GovernmentRecord, error) {
	f.calls++
	return f.rec, f.err
}

func newDirectory() *fakeDirectory {
	return &fakeDirectory{
		aliases: map[string]string{"1001": "sharma-steels"},
		records: map[string]*registry.SellerRecord{
			"sharma-steels": {
				Alias:       "sharma-steels",
				CompanyName: "Sharma Steels",
				Products:    []string{"Steel Rods", "Copper Wire"},
				TaxID:       "07ABCDE1234F1Z5",
				Classification: &registry.Classification{
					LegalStatus: "Proprietorship",
				},
			},
			"no-gst": {
				Alias:    "no-gst",
				Products: []string{"Cotton Fabric"},
			},
		},
	}
}

func TestValidateVerified(t *testing.T) {
	gov := &fakeGov{rec: &registry.GovernmentRecord{Verified: true, Constitution: "Proprietorship"}}
	o := New(newDirectory(), gov)

	res := o.Validate(context.Background(), "1001", []string{"Steel"})
	if res.Status != StatusVerified {
		t.Fatalf("expected verified, got %s (%s)", res.Status, res.Message)
	}
	if res.Message != "Seller is verified GST supplier for all discussed products" {
		t.Errorf("unexpected message %q", res.Message)
	}
	if len(res.Matches) != 1 || res.Matches[0].Conversation != "Steel" || res.Matches[0].Registered != "Steel Rods" {
		t.Errorf("unexpected matches %+v", res.Matches)
	}
	if len(res.NonMatches) != 0 {
		t.Errorf("expected no non-matches, got %v", res.NonMatches)
	}
	if res.Government == nil || res.Categories == nil {
		t.Fatal("expected government record and category match")
	}
	if res.Categories.Score != 100 {
		t.Errorf("expected category score 100, got %v", res.Categories.Score)
	}
}

func TestValidatePartial(t *testing.T) {
	o := New(newDirectory(), &fakeGov{rec: &registry.GovernmentRecord{Verified: true}})

	res := o.Validate(context.Background(), "1001", []string{"Steel", "Plastic"})
	if res.Status != StatusPartial {
		t.Fatalf("expected partial, got %s", res.Status)
	}
	if len(res.NonMatches) != 1 || res.NonMatches[0] != "Plastic" {
		t.Errorf("unexpected non-matches %v", res.NonMatches)
	}
}

func TestValidateUnverified(t *testing.T) {
	o := New(newDirectory(), nil)

	for _, products := range [][]string{{"Plastic"}, nil} {
		res := o.Validate(context.Background(), "sharma-steels", products)
		if res.Status != StatusUnverified {
			t.Errorf("%v: expected unverified, got %s", products, res.Status)
		}
		if res.Message != "WARNING: Seller not registered for discussed products" {
			t.Errorf("unexpected message %q", res.Message)
		}
	}
}

func TestValidateAliasUsedDirectly(t *testing.T) {
	dir := newDirectory()
	o := New(dir, nil)

	o.Validate(context.Background(), "sharma-steels", []string{"Steel"})
	if len(dir.calls) != 1 || dir.calls[0] != "details:sharma-steels" {
		t.Errorf("expected a direct details lookup, got %v", dir.calls)
	}
}

func TestValidateSellerErrors(t *testing.T) {
	tests := []struct {
		name     string
		sellerID string
		dir      *fakeDirectory
		want     string
	}{
		{"empty id", "  ", newDirectory(), "Could not validate seller: No seller identifier provided"},
		{"unknown user", "4242", newDirectory(), "Could not validate seller: Could not fetch seller alias"},
		{"unknown alias", "ghost", newDirectory(), "Could not validate seller: Could not fetch company details"},
		{"directory down", "1001", &fakeDirectory{aliasErr: errors.New("dial tcp: refused")}, "Could not validate seller: Could not fetch seller alias"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gov := &fakeGov{}
			res := New(tt.dir, gov).Validate(context.Background(), tt.sellerID, []string{"Steel"})
			if res.Status != StatusError {
				t.Fatalf("expected error status, got %s", res.Status)
			}
			if res.Message != tt.want {
				t.Errorf("expected %q, got %q", tt.want, res.Message)
			}
			if res.Seller != nil || gov.calls != 0 {
				t.Error("expected no further steps after seller lookup failure")
			}
		})
	}
}

func TestValidateGovernmentFailureIsSoft(t *testing.T) {
	gov := &fakeGov{err: &registry.Error{Kind: registry.DataMissing, Op: "verify gst"}}
	o := New(newDirectory(), gov)

	res := o.Validate(context.Background(), "1001", []string{"Copper"})
	if res.Status != StatusVerified {
		t.Fatalf("expected verified despite government failure, got %s", res.Status)
	}
	if res.Government != nil || res.Categories != nil {
		t.Error("expected no government evidence")
	}
	if res.GovernmentError == "" {
		t.Error("expected government error to be recorded")
	}
}

func TestValidateSkipsGovernmentWithoutTaxID(t *testing.T) {
	gov := &fakeGov{rec: &registry.GovernmentRecord{Verified: true}}
	o := New(newDirectory(), gov)

	res := o.Validate(context.Background(), "no-gst", []string{"cotton"})
	if gov.calls != 0 {
		t.Errorf("expected no government call, got %d", gov.calls)
	}
	if res.Status != StatusVerified {
		t.Errorf("expected verified, got %s", res.Status)
	}
}

func TestValidateUnverifiedGovernmentSkipsCategories(t *testing.T) {
	gov := &fakeGov{rec: &registry.GovernmentRecord{Verified: false}}
	res := New(newDirectory(), gov).Validate(context.Background(), "1001", []string{"Steel"})
	if res.Categories != nil || res.Government != nil {
		t.Errorf("expected no category match for unverified record, got %+v", res)
	}
}

func TestValidateGovernmentWithoutRecord(t *testing.T) {
	gov := &fakeGov{}
	res := New(newDirectory(), gov).Validate(context.Background(), "1001", []string{"Steel"})

	if gov.calls != 1 {
		t.Fatalf("expected one government lookup, got %d", gov.calls)
	}
	if res.Status != StatusVerified {
		t.Errorf("expected verified, got %s", res.Status)
	}
	if res.Government != nil || res.Categories != nil {
		t.Errorf("expected no government evidence, got %+v / %+v", res.Government, res.Categories)
	}
}
