package calls

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Metadata describes who was on a call and what it was about. Keys the
// system does not interpret are kept in Extra.
type Metadata struct {
	SellerID    string
	BuyerID     string
	City        string
	State       string
	Category    string
	CategoryID  string
	MainProduct string
	Extra       map[string]string
}

// metadataKeys maps each field to its canonical key and the input keys
// accepted for it, in order of precedence.
var metadataKeys = []struct {
	key    string
	lookup []string
	field  func(*Metadata) *string
}{
	{"seller_identifier", []string{"seller_identifier"}, func(m *Metadata) *string { return &m.SellerID }},
	{"buyer_identifier", []string{"buyer_identifier"}, func(m *Metadata) *string { return &m.BuyerID }},
	{"city", []string{"city_name", "city"}, func(m *Metadata) *string { return &m.City }},
	{"state", []string{"state_name", "state"}, func(m *Metadata) *string { return &m.State }},
	{"category_name", []string{"category_name", "mcat_name", "category"}, func(m *Metadata) *string { return &m.Category }},
	{"mcat_id", []string{"mcat_id_x", "mcat_id", "mcat_id_y"}, func(m *Metadata) *string { return &m.CategoryID }},
	{"main_product", []string{"pns_call_modrefname", "main_product"}, func(m *Metadata) *string { return &m.MainProduct }},
}

// MetadataFromFields maps a flat key/value set onto Metadata. The first
// non-blank value among a field's accepted keys wins.
func MetadataFromFields(fields map[string]string) Metadata {
	var m Metadata
	consumed := make(map[string]bool)
	for _, k := range metadataKeys {
		for _, name := range k.lookup {
			consumed[name] = true
			if dst := k.field(&m); *dst == "" {
				*dst = strings.TrimSpace(fields[name])
			}
		}
	}
	for name, v := range fields {
		if consumed[name] {
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]string)
		}
		m.Extra[name] = v
	}
	return m
}

// Fields flattens m back into key/value pairs using canonical keys.
func (m Metadata) Fields() map[string]string {
	out := make(map[string]string, len(m.Extra)+len(metadataKeys))
	for k, v := range m.Extra {
		out[k] = v
	}
	for _, k := range metadataKeys {
		if v := *k.field(&m); v != "" {
			out[k.key] = v
		}
	}
	return out
}

// MarshalJSON writes metadata as a flat object.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Fields())
}

// UnmarshalJSON accepts a flat object with scalar values. Nulls are dropped
// and numbers keep their literal form.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
		case string:
			fields[k] = t
		case json.Number:
			fields[k] = t.String()
		default:
			fields[k] = fmt.Sprint(t)
		}
	}
	*m = MetadataFromFields(fields)
	return nil
}

// ParseMetadata reads metadata pasted as either a JSON object or a
// two-line tab-separated block (header row, value row). Anything else
// yields empty metadata.
func ParseMetadata(raw string) Metadata {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Metadata{}
	}

	if strings.HasPrefix(raw, "{") {
		var m Metadata
		if err := json.Unmarshal([]byte(raw), &m); err == nil {
			return m
		}
	}

	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return Metadata{}
	}

	headers := strings.Split(lines[0], "\t")
	values := strings.Split(lines[1], "\t")
	fields := make(map[string]string, len(headers))
	for i, h := range headers {
		if i >= len(values) {
			break
		}
		fields[strings.TrimSpace(h)] = strings.TrimSpace(values[i])
	}
	return MetadataFromFields(fields)
}
