// Package report renders call insights as a markdown document.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/TobiSchelling/TradeCheck/internal/database"
	"github.com/TobiSchelling/TradeCheck/internal/extract"
	"github.com/TobiSchelling/TradeCheck/internal/insights"
)

var sentimentOrder = []string{
	string(extract.Positive),
	string(extract.Negative),
	string(extract.Neutral),
}

// Input is everything a report can show. Only Insights is required.
type Input struct {
	Insights    *insights.Insights
	States      map[string]*insights.StateSummary
	Validations []database.Validation
	GeneratedAt time.Time
}

// Markdown renders the report.
func Markdown(in Input) string {
	var sections []string

	title := "# Call Insights"
	if !in.GeneratedAt.IsZero() {
		title += "\n\n_Generated " + in.GeneratedAt.Format("2006-01-02 15:04") + "_"
	}
	sections = append(sections, title)

	if in.Insights == nil || in.Insights.Overall.TotalCalls == 0 {
		sections = append(sections, "No calls recorded yet.")
	} else {
		sections = append(sections, overview(in.Insights), categoryTable(in.Insights))
	}
	if len(in.States) > 0 {
		sections = append(sections, stateTable(in.States))
	}
	if len(in.Validations) > 0 {
		sections = append(sections, validationTable(in.Validations))
	}
	return strings.Join(sections, "\n\n") + "\n"
}

func overview(ins *insights.Insights) string {
	var b strings.Builder
	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "- **Total calls:** %d\n", ins.Overall.TotalCalls)
	fmt.Fprintf(&b, "- **Cities covered:** %d\n", len(ins.Overall.CitiesCovered))
	if len(ins.Overall.TopCities) > 0 {
		var top []string
		for _, c := range ins.Overall.TopCities {
			top = append(top, fmt.Sprintf("%s (%d)", c.City, c.Count))
		}
		fmt.Fprintf(&b, "- **Top cities:** %s", strings.Join(top, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func categoryTable(ins *insights.Insights) string {
	names := make([]string, 0, len(ins.Categories))
	for name := range ins.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("## Categories\n\n")
	b.WriteString("| Category | Avg price | Avg qty | Sentiment |\n")
	b.WriteString("|---|---|---|---|")
	for _, name := range names {
		c := ins.Categories[name]
		fmt.Fprintf(&b, "\n| %s | %s | %s | %s |", escape(name), number(c.AvgPrice), number(c.AvgQty), sentiment(c.Sentiment))
	}
	return b.String()
}

func stateTable(states map[string]*insights.StateSummary) string {
	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := states[names[i]], states[names[j]]
		if a.CallCount != b.CallCount {
			return a.CallCount > b.CallCount
		}
		return names[i] < names[j]
	})

	var b strings.Builder
	b.WriteString("## States\n\n")
	b.WriteString("| State | Calls | Cities | Categories | Sentiment |\n")
	b.WriteString("|---|---|---|---|---|")
	for _, name := range names {
		s := states[name]
		fmt.Fprintf(&b, "\n| %s | %d | %s | %s | %s |",
			escape(name), s.CallCount,
			escape(strings.Join(s.Cities, ", ")),
			escape(strings.Join(s.Categories, ", ")),
			sentiment(s.Sentiment))
	}
	return b.String()
}

func validationTable(vals []database.Validation) string {
	var b strings.Builder
	b.WriteString("## Recent validations\n\n")
	b.WriteString("| Seller | Company | Status | Products matched | Category score |\n")
	b.WriteString("|---|---|---|---|---|")
	for _, v := range vals {
		company := "-"
		if v.CompanyName != nil && *v.CompanyName != "" {
			company = *v.CompanyName
		}
		score := "-"
		if v.CategoryScore != nil {
			score = fmt.Sprintf("%.1f%%", *v.CategoryScore)
		}
		fmt.Fprintf(&b, "\n| %s | %s | %s | %d/%d | %s |",
			escape(v.SellerID), escape(company), v.Status,
			v.MatchCount, v.MatchCount+v.NonMatchCount, score)
	}
	return b.String()
}

func number(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func sentiment(counts map[string]int) string {
	var parts []string
	for _, s := range sentimentOrder {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", s, n))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

// escape keeps pipes in values from breaking table rows.
func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
