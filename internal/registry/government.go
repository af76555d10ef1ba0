package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GSTClient verifies tax-registration numbers against the government
// registry. The URL template takes {api_key} and {gstin}.
type GSTClient struct {
	urlTemplate string
	apiKey      string
	client      *http.Client
}

// NewGSTClient creates a government registry client.
func NewGSTClient(urlTemplate, apiKey string, timeout time.Duration) *GSTClient {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &GSTClient{
		urlTemplate: urlTemplate,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: timeout},
	}
}

type gstResponse struct {
	Flag    json.RawMessage `json:"flag"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type gstData struct {
	TradeName    string `json:"tradeNam"`
	LegalName    string `json:"lgnm"`
	RegDate      string `json:"rgdt"`
	Status       string `json:"sts"`
	Jurisdiction string `json:"stj"`
	Constitution string `json:"ctb"`
	Activities   []any  `json:"nba"`
	GSTIN        string `json:"gstin"`
	TaxpayerType string `json:"dty"`
	Principal    struct {
		Address string `json:"adr"`
	} `json:"pradr"`
}

// Verify looks up a tax ID. A registry that answers with a negative flag
// yields a DataMissing error.
func (c *GSTClient) Verify(ctx context.Context, taxID string) (*GovernmentRecord, error) {
	const op = "verify gst"
	taxID = strings.TrimSpace(taxID)
	if taxID == "" {
		return nil, newError(DataMissing, op, errors.New("no tax ID provided"))
	}

	endpoint := strings.NewReplacer(
		"{api_key}", c.apiKey,
		"{gstin}", url.PathEscape(taxID),
	).Replace(c.urlTemplate)

	var resp gstResponse
	if err := getJSON(ctx, c.client, op, endpoint, &resp); err != nil {
		return nil, err
	}
	return parseGSTResponse(op, taxID, resp)
}

func parseGSTResponse(op, taxID string, resp gstResponse) (*GovernmentRecord, error) {
	if !flagSet(resp.Flag) {
		log.Printf("GST %s not found in government database", taxID)
		msg := "not found in government database"
		if resp.Message != "" {
			msg = resp.Message
		}
		return nil, newError(DataMissing, op, fmt.Errorf("gst %s: %s", taxID, msg))
	}

	var d gstData
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &d); err != nil {
			return nil, newError(MalformedInput, op, fmt.Errorf("decoding gst data: %w", err))
		}
	}

	rec := &GovernmentRecord{
		Verified:         true,
		TaxID:            d.GSTIN,
		TradeName:        d.TradeName,
		LegalName:        d.LegalName,
		RegistrationDate: d.RegDate,
		Status:           d.Status,
		Constitution:     d.Constitution,
		Activities:       make([]string, 0, len(d.Activities)),
		Jurisdiction:     d.Jurisdiction,
		Address:          d.Principal.Address,
		TaxpayerType:     d.TaxpayerType,
		Raw:              resp.Data,
	}
	if rec.TaxID == "" {
		rec.TaxID = taxID
	}
	for _, a := range d.Activities {
		rec.Activities = append(rec.Activities, stringify(a))
	}
	return rec, nil
}

// flagSet accepts both a JSON boolean and the string "true".
func flagSet(raw json.RawMessage) bool {
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return b
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.EqualFold(s, "true")
	}
	return false
}
