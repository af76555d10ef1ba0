package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const detailsFixture = `{
  "DATA": {
    "COMPANYDETAIL": {"DIR_SEARCH_COMPANY": "Sharma Steels"},
    "FACTSHEET": [
      {"TITLE": "Basic Information", "DATA": [{"TITLE": "Year", "DATA": "2001"}]},
      {"TITLE": "GST Information", "DATA": [
        {"TITLE": "GST", "DATA": "07ABCDE1234F1Z5"},
        {"TITLE": "GST Legal status", "DATA": "Proprietorship"},
        {"TITLE": "GST Nature of business", "DATA": "Trader - Wholesaler/Distributor"},
        {"TITLE": "GST Additional NOB", "DATA": "Retail Business, Warehouse"}
      ]}
    ],
    "PRDSERV": [{"ITEM_NAME": "Steel Rods"}, {"ITEM_NAME": "TMT Bars"}, {"OTHER": 1}],
    "PRD_COUNT": "2"
  }
}`

func newSellerServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/alias/1001", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"URL_DETAIL": {"FREESHOWROOM_ALIAS": "sharma-steels"}}`))
	})
	mux.HandleFunc("/alias/2002", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"URL_DETAIL": {}}`))
	})
	mux.HandleFunc("/alias/3003", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	mux.HandleFunc("/details/sharma-steels", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(detailsFixture))
	})
	mux.HandleFunc("/details/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"STATUS": "ok"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestSellerClient(srv *httptest.Server) *SellerClient {
	return NewSellerClient(
		srv.URL+"/alias/{user_id}?token={token}",
		srv.URL+"/details/{alias}?token={token}",
		"secret", 0,
	)
}

func TestResolveAlias(t *testing.T) {
	c := newTestSellerClient(newSellerServer(t))

	alias, err := c.ResolveAlias(context.Background(), "1001")
	if err != nil {
		t.Fatalf("ResolveAlias: %v", err)
	}
	if alias != "sharma-steels" {
		t.Errorf("expected alias sharma-steels, got %q", alias)
	}
}

func TestResolveAliasErrors(t *testing.T) {
	srv := newSellerServer(t)
	c := newTestSellerClient(srv)

	tests := []struct {
		userID string
		want   Kind
	}{
		{"2002", DataMissing},
		{"3003", MalformedInput},
		{"9999", UpstreamUnavailable},
	}
	for _, tt := range tests {
		_, err := c.ResolveAlias(context.Background(), tt.userID)
		if err == nil {
			t.Errorf("user %s: expected error", tt.userID)
			continue
		}
		if got := KindOf(err); got != tt.want {
			t.Errorf("user %s: expected kind %s, got %s (%v)", tt.userID, tt.want, got, err)
		}
	}

	bad := NewSellerClient(srv.URL+"/alias/{user_id}?token=wrong", "", "", 0)
	_, err := bad.ResolveAlias(context.Background(), "1001")
	var se *statusError
	if !errors.As(err, &se) || se.code != http.StatusUnauthorized {
		t.Errorf("expected status 401 error, got %v", err)
	}
}

func TestFetchDetails(t *testing.T) {
	c := newTestSellerClient(newSellerServer(t))

	rec, err := c.FetchDetails(context.Background(), "sharma-steels")
	if err != nil {
		t.Fatalf("FetchDetails: %v", err)
	}
	if rec.Alias != "sharma-steels" || rec.CompanyName != "Sharma Steels" {
		t.Errorf("unexpected identity: %+v", rec)
	}
	if rec.ProductCount != 2 {
		t.Errorf("expected product count 2, got %d", rec.ProductCount)
	}
	if len(rec.Products) != 2 || rec.Products[0] != "Steel Rods" || rec.Products[1] != "TMT Bars" {
		t.Errorf("unexpected products %v", rec.Products)
	}
	if rec.TaxID != "07ABCDE1234F1Z5" {
		t.Errorf("unexpected tax ID %q", rec.TaxID)
	}
	if rec.Classification == nil {
		t.Fatal("expected classification")
	}
	if rec.Classification.LegalStatus != "Proprietorship" {
		t.Errorf("unexpected legal status %q", rec.Classification.LegalStatus)
	}
	if rec.Classification.NatureOfBusiness != "Trader - Wholesaler/Distributor" {
		t.Errorf("unexpected nature of business %q", rec.Classification.NatureOfBusiness)
	}
	if rec.Classification.AdditionalActivities != "Retail Business, Warehouse" {
		t.Errorf("unexpected additional activities %q", rec.Classification.AdditionalActivities)
	}
}

func TestFetchDetailsMissingData(t *testing.T) {
	c := newTestSellerClient(newSellerServer(t))

	_, err := c.FetchDetails(context.Background(), "empty")
	if KindOf(err) != DataMissing {
		t.Errorf("expected DataMissing, got %v", err)
	}
}

func TestParseSellerDataFallsBackToAdditionalInfo(t *testing.T) {
	raw := map[string]json.RawMessage{
		"FACTSHEET":      json.RawMessage(`[]`),
		"ADDITIONALINFO": json.RawMessage(`[{"TITLE": "GST Information", "DATA": [{"TITLE": "GST", "DATA": "27AAAAA0000A1Z5"}]}]`),
		"PRD_COUNT":      json.RawMessage(`7`),
	}

	rec := ParseSellerData(raw)
	if rec.TaxID != "27AAAAA0000A1Z5" {
		t.Errorf("expected tax ID from ADDITIONALINFO, got %q", rec.TaxID)
	}
	if rec.CompanyName != "Unknown" {
		t.Errorf("expected default company name, got %q", rec.CompanyName)
	}
	if rec.ProductCount != 7 {
		t.Errorf("expected product count 7, got %d", rec.ProductCount)
	}
	if rec.Products == nil || len(rec.Products) != 0 {
		t.Errorf("expected empty product list, got %v", rec.Products)
	}
}

func newGSTServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/check/key/07ABCDE1234F1Z5", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"flag": true, "data": {
			"tradeNam": "SHARMA STEELS", "lgnm": "RAVI SHARMA", "rgdt": "01/07/2017",
			"sts": "Active", "stj": "Delhi", "ctb": "Proprietorship",
			"nba": ["Wholesale Business", "Retail Business"],
			"gstin": "07ABCDE1234F1Z5", "dty": "Regular",
			"pradr": {"adr": "12 Main Road, Delhi"}}}`))
	})
	mux.HandleFunc("/check/key/STRINGFLAG", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"flag": "true", "data": {"tradeNam": "X", "nba": [3]}}`))
	})
	mux.HandleFunc("/check/key/UNKNOWN", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"flag": false, "message": "Invalid GSTIN"}`))
	})
	mux.HandleFunc("/check/key/DOWN", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGSTVerify(t *testing.T) {
	srv := newGSTServer(t)
	c := NewGSTClient(srv.URL+"/check/{api_key}/{gstin}", "key", 0)

	rec, err := c.Verify(context.Background(), "07ABCDE1234F1Z5")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !rec.Verified {
		t.Error("expected verified record")
	}
	if rec.TradeName != "SHARMA STEELS" || rec.LegalName != "RAVI SHARMA" {
		t.Errorf("unexpected names: %+v", rec)
	}
	if rec.Constitution != "Proprietorship" || rec.Jurisdiction != "Delhi" {
		t.Errorf("unexpected classification: %+v", rec)
	}
	if len(rec.Activities) != 2 || rec.Activities[0] != "Wholesale Business" {
		t.Errorf("unexpected activities %v", rec.Activities)
	}
	if rec.Address != "12 Main Road, Delhi" {
		t.Errorf("unexpected address %q", rec.Address)
	}
	if len(rec.Raw) == 0 {
		t.Error("expected raw data to be kept")
	}
}

func TestGSTVerifyStringFlag(t *testing.T) {
	srv := newGSTServer(t)
	c := NewGSTClient(srv.URL+"/check/{api_key}/{gstin}", "key", 0)

	rec, err := c.Verify(context.Background(), "STRINGFLAG")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if rec.TaxID != "STRINGFLAG" {
		t.Errorf("expected tax ID to fall back to the query, got %q", rec.TaxID)
	}
	if len(rec.Activities) != 1 || rec.Activities[0] != "3" {
		t.Errorf("expected stringified activity, got %v", rec.Activities)
	}
}

func TestGSTVerifyErrors(t *testing.T) {
	srv := newGSTServer(t)
	c := NewGSTClient(srv.URL+"/check/{api_key}/{gstin}", "key", 0)

	tests := []struct {
		taxID string
		want  Kind
	}{
		{"", DataMissing},
		{"UNKNOWN", DataMissing},
		{"DOWN", UpstreamUnavailable},
	}
	for _, tt := range tests {
		_, err := c.Verify(context.Background(), tt.taxID)
		if got := KindOf(err); got != tt.want {
			t.Errorf("%q: expected kind %s, got %s (%v)", tt.taxID, tt.want, got, err)
		}
	}
}

func TestKindOfForeignError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindUnknown {
		t.Errorf("expected KindUnknown, got %s", got)
	}
}
