package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const gstSectionTitle = "GST Information"

// SellerClient is the HTTP client for the seller directory. URLs are
// templates: {user_id}, {alias} and {token} are substituted per request.
type SellerClient struct {
	aliasURL   string
	detailsURL string
	token      string
	client     *http.Client
}

// NewSellerClient creates a seller directory client.
func NewSellerClient(aliasURL, detailsURL, token string, timeout time.Duration) *SellerClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &SellerClient{
		aliasURL:   aliasURL,
		detailsURL: detailsURL,
		token:      token,
		client:     &http.Client{Timeout: timeout},
	}
}

// ResolveAlias looks up the showroom alias for a numeric user ID.
func (c *SellerClient) ResolveAlias(ctx context.Context, userID string) (string, error) {
	const op = "resolve alias"
	endpoint := c.expand(c.aliasURL, "{user_id}", userID)

	var body struct {
		URLDetail *struct {
			Alias *string `json:"FREESHOWROOM_ALIAS"`
		} `json:"URL_DETAIL"`
	}
	if err := c.getJSON(ctx, op, endpoint, &body); err != nil {
		return "", err
	}
	if body.URLDetail == nil || body.URLDetail.Alias == nil || *body.URLDetail.Alias == "" {
		log.Printf("FREESHOWROOM_ALIAS not found for user_id %s", userID)
		return "", newError(DataMissing, op, fmt.Errorf("no alias for user %s", userID))
	}
	return *body.URLDetail.Alias, nil
}

// FetchDetails fetches and normalizes the directory profile for an alias.
func (c *SellerClient) FetchDetails(ctx context.Context, alias string) (*SellerRecord, error) {
	const op = "fetch details"
	endpoint := c.expand(c.detailsURL, "{alias}", alias)

	var body struct {
		Data map[string]json.RawMessage `json:"DATA"`
	}
	if err := c.getJSON(ctx, op, endpoint, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, newError(DataMissing, op, errors.New("response has no DATA section"))
	}

	rec := ParseSellerData(body.Data)
	rec.Alias = alias
	log.Printf("Fetched %d products for seller %s", rec.ProductCount, alias)
	return rec, nil
}

// ParseSellerData normalizes the DATA section of a directory reply. Sections
// with an unexpected shape are ignored.
func ParseSellerData(data map[string]json.RawMessage) *SellerRecord {
	rec := &SellerRecord{CompanyName: "Unknown", Products: []string{}}

	var company map[string]any
	if json.Unmarshal(data["COMPANYDETAIL"], &company) == nil {
		if name, ok := company["DIR_SEARCH_COMPANY"].(string); ok {
			rec.CompanyName = name
		}
	}

	fields := gstFields(data["FACTSHEET"])
	if len(fields) == 0 {
		fields = gstFields(data["ADDITIONALINFO"])
	}
	if len(fields) > 0 {
		rec.TaxID = fields[titleTaxID]
		rec.Classification = ClassificationFromFields(fields)
	}

	var items []map[string]any
	if json.Unmarshal(data["PRDSERV"], &items) == nil {
		for _, item := range items {
			if name, ok := item["ITEM_NAME"]; ok && name != nil {
				rec.Products = append(rec.Products, fmt.Sprint(name))
			}
		}
	}
	rec.ProductCount = parseCount(data["PRD_COUNT"])
	return rec
}

// gstFields finds the "GST Information" section in a list of titled
// sections and flattens its title/value pairs.
func gstFields(raw json.RawMessage) map[string]string {
	var sections []json.RawMessage
	if json.Unmarshal(raw, &sections) != nil {
		return nil
	}
	for _, s := range sections {
		var section struct {
			Title string          `json:"TITLE"`
			Data  json.RawMessage `json:"DATA"`
		}
		if json.Unmarshal(s, &section) != nil || section.Title != gstSectionTitle {
			continue
		}
		var pairs []json.RawMessage
		if json.Unmarshal(section.Data, &pairs) != nil {
			return nil
		}
		fields := make(map[string]string)
		for _, p := range pairs {
			var pair struct {
				Title string `json:"TITLE"`
				Data  any    `json:"DATA"`
			}
			if json.Unmarshal(p, &pair) != nil {
				continue
			}
			fields[pair.Title] = stringify(pair.Data)
		}
		return fields
	}
	return nil
}

func parseCount(raw json.RawMessage) int {
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i
		}
	}
	return 0
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func (c *SellerClient) expand(tmpl, key, value string) string {
	return strings.NewReplacer(
		key, url.PathEscape(value),
		"{token}", c.token,
	).Replace(tmpl)
}

func (c *SellerClient) getJSON(ctx context.Context, op, endpoint string, dst any) error {
	return getJSON(ctx, c.client, op, endpoint, dst)
}

// getJSON performs a single GET and decodes the JSON reply. Every failure
// is reported as a typed *Error.
func getJSON(ctx context.Context, client *http.Client, op, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return newError(MalformedInput, op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("Registry request failed (%s): %v", op, err)
		return newError(UpstreamUnavailable, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Registry returned status %d (%s)", resp.StatusCode, op)
		return newError(UpstreamUnavailable, op, &statusError{code: resp.StatusCode})
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return newError(MalformedInput, op, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
