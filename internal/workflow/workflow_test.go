package workflow

import (
	"errors"
	"reflect"
	"testing"
)

const listReply = `[{"output": {
  "seller_identifier": "1001",
  "products": [{"product_name": "TMT Bars"}, {"product_name": "Steel Rods"}, {"product_name": ""}, {"other": "x"}],
  "mcat_name": "Steel Rods",
  "main_product": "MS Angles",
  "call_summary": ["Buyer wants 500 kg", "Delivery in Jaipur"],
  "ai_suggestion": "Share a quotation"
}}]`

func TestParseList(t *testing.T) {
	out, err := Parse(listReply)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if out.SellerID != "1001" {
		t.Errorf("expected seller 1001, got %q", out.SellerID)
	}
	if len(out.CallSummary) != 2 {
		t.Errorf("expected 2 summary lines, got %v", out.CallSummary)
	}
	if !reflect.DeepEqual([]string(out.AISuggestion), []string{"Share a quotation"}) {
		t.Errorf("expected single suggestion, got %v", out.AISuggestion)
	}
}

func TestConversationProducts(t *testing.T) {
	out, err := Parse(listReply)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"TMT Bars", "Steel Rods", "MS Angles"}
	if got := out.ConversationProducts(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	empty := (&Output{}).ConversationProducts()
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil list, got %v", empty)
	}
}

func TestParseShapes(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"object with output", `{"output": {"seller_identifier": "abc"}}`},
		{"bare output", `{"seller_identifier": "abc"}`},
		{"json fence", "```json\n[{\"output\": {\"seller_identifier\": \"abc\"}}]\n```"},
		{"plain fence", "```\n{\"seller_identifier\": \"abc\"}\n```"},
		{"whitespace", "  \n  {\"seller_identifier\": \"abc\"}  \n  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if out.SellerID != "abc" {
				t.Errorf("expected seller abc, got %q", out.SellerID)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{"", "[]"} {
		if _, err := Parse(text); !errors.Is(err, ErrEmpty) {
			t.Errorf("%q: expected ErrEmpty, got %v", text, err)
		}
	}
	if _, err := Parse("not json at all"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
