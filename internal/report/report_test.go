package report

import (
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/TradeCheck/internal/database"
	"github.com/TobiSchelling/TradeCheck/internal/insights"
)

func ptr[T any](v T) *T { return &v }

func TestMarkdownEmpty(t *testing.T) {
	md := Markdown(Input{Insights: &insights.Insights{}})
	if !strings.HasPrefix(md, "# Call Insights") {
		t.Errorf("expected title, got %q", md)
	}
	if !strings.Contains(md, "No calls recorded yet.") {
		t.Errorf("expected empty notice, got %q", md)
	}
	if strings.Contains(md, "## Categories") {
		t.Error("expected no category table for an empty store")
	}
}

func TestMarkdown(t *testing.T) {
	ins := &insights.Insights{
		Categories: map[string]insights.CategorySummary{
			"Steel":  {AvgPrice: ptr(9000.0), AvgQty: ptr(200.0), Sentiment: map[string]int{"positive": 2, "neutral": 1}},
			"Cement": {Sentiment: map[string]int{"negative": 1}},
		},
		Overall: insights.Overall{
			TotalCalls:    4,
			CitiesCovered: []string{"Delhi", "Pune"},
			TopCities:     []insights.CityCount{{City: "Pune", Count: 3}, {City: "Delhi", Count: 1}},
		},
	}
	states := map[string]*insights.StateSummary{
		"Delhi":       {CallCount: 1, Cities: []string{"Delhi"}, Categories: []string{"Cement"}},
		"Maharashtra": {CallCount: 3, Cities: []string{"Pune"}, Categories: []string{"Steel"}, Sentiment: map[string]int{"positive": 2}},
	}
	vals := []database.Validation{
		{SellerID: "1001", Status: "partial", CompanyName: ptr("Sharma | Sons"), MatchCount: 1, NonMatchCount: 1, CategoryScore: ptr(66.7)},
		{SellerID: "", Status: "error"},
	}

	md := Markdown(Input{
		Insights:    ins,
		States:      states,
		Validations: vals,
		GeneratedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	})

	for _, want := range []string{
		"_Generated 2026-03-01 09:30_",
		"- **Total calls:** 4",
		"- **Top cities:** Pune (3), Delhi (1)",
		"| Steel | 9000.00 | 200.00 | positive 2, neutral 1 |",
		"| Cement | - | - | negative 1 |",
		"| 1001 | Sharma \\| Sons | partial | 1/2 | 66.7% |",
		"|  | - | error | 0/0 | - |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected %q in report:\n%s", want, md)
		}
	}

	// Categories sorted by name, states by call count.
	if strings.Index(md, "| Cement |") > strings.Index(md, "| Steel |") {
		t.Error("expected categories in name order")
	}
	if strings.Index(md, "| Maharashtra |") > strings.Index(md, "| Delhi | 1 |") {
		t.Error("expected busiest state first")
	}
}
