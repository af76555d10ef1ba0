// Package workflow reads the structured output returned by the upstream
// transcription workflow for a call.
package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
)

// Product is one product the workflow identified in a call.
type Product struct {
	Name string `json:"product_name"`
}

// Output is the workflow's summary of one call.
type Output struct {
	SellerID     string     `json:"seller_identifier"`
	Products     []Product  `json:"products"`
	CategoryName string     `json:"mcat_name"`
	MainProduct  string     `json:"main_product"`
	CallSummary  StringList `json:"call_summary"`
	AISuggestion StringList `json:"ai_suggestion"`
}

// StringList decodes either a JSON string or an array of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*l = nil
		} else {
			*l = StringList{s}
		}
		return nil
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(StringList, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		out = append(out, fmt.Sprint(it))
	}
	*l = out
	return nil
}

// ErrEmpty is returned when the workflow reply has no output.
var ErrEmpty = errors.New("workflow returned no output")

// Parse decodes a workflow reply. The reply may be wrapped in a markdown
// code fence and may be a list of {"output": ...} objects, a single such
// object, or a bare output object. Only the first list element is used.
func Parse(text string) (*Output, error) {
	text = stripFences(strings.TrimSpace(text))
	if text == "" {
		return nil, ErrEmpty
	}

	raw := json.RawMessage(text)
	if strings.HasPrefix(text, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			log.Printf("Failed to parse workflow response as JSON: %v", err)
			return nil, fmt.Errorf("parsing workflow response: %w", err)
		}
		if len(items) == 0 {
			return nil, ErrEmpty
		}
		raw = items[0]
	}

	var envelope struct {
		Output *json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		log.Printf("Failed to parse workflow response as JSON: %v", err)
		return nil, fmt.Errorf("parsing workflow response: %w", err)
	}
	if envelope.Output != nil {
		raw = *envelope.Output
	}

	var out Output
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parsing workflow output: %w", err)
	}
	return &out, nil
}

// ConversationProducts lists every product name mentioned in the output:
// identified products, then the category, then the main product. Blank
// names are skipped and duplicates keep their first position.
func (o *Output) ConversationProducts() []string {
	seen := make(map[string]bool)
	products := []string{}
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		products = append(products, name)
	}
	for _, p := range o.Products {
		add(p.Name)
	}
	add(o.CategoryName)
	add(o.MainProduct)
	return products
}

// stripFences removes a surrounding markdown code fence.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	endIdx := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[1:endIdx], "\n"))
}
