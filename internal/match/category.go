package match

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/TobiSchelling/TradeCheck/internal/registry"
)

// Match types reported in a CategoryEntry.
const (
	TypeExact    = "exact"
	TypeSimilar  = "similar"
	TypeSemantic = "semantic"
	TypeCategory = "category"
)

// Axis labels.
const (
	AxisLegalStatus      = "Legal Status / Constitution"
	AxisNatureOfBusiness = "Nature of Business"
	AxisActivities       = "Business Activities"
)

// ItemPair records one seller part that matched one government activity.
type ItemPair struct {
	Seller     string `json:"seller"`
	Government string `json:"government"`
}

// CategoryEntry is the result of one comparison axis.
type CategoryEntry struct {
	Category        string     `json:"category"`
	SellerValue     string     `json:"seller_value"`
	GovernmentValue []string   `json:"government_value"`
	MatchType       string     `json:"match_type,omitempty"`
	MatchedItems    []ItemPair `json:"matched_items,omitempty"`
}

// CategoryMatch aggregates the three axes. Axes without data on either
// side are skipped and do not count towards Score.
type CategoryMatch struct {
	Matches    []CategoryEntry `json:"matches"`
	Mismatches []CategoryEntry `json:"mismatches"`
	Score      float64         `json:"match_score"`
	Summary    string          `json:"summary"`
}

// SynonymRule maps a keyword found in a seller's nature of business to
// government activity terms that count as the same line of business.
type SynonymRule struct {
	Keyword  string
	Synonyms []string
}

// SemanticKeywords is consulted in order; the first rule that yields a
// match wins.
var SemanticKeywords = []SynonymRule{
	{"trader", []string{"wholesale", "retail", "trading"}},
	{"retailer", []string{"retail", "trading"}},
	{"wholesaler", []string{"wholesale", "trading"}},
	{"manufacturer", []string{"manufacturing", "factory"}},
	{"exporter", []string{"export"}},
	{"importer", []string{"import"}},
	{"service", []string{"service provider"}},
}

// legalKeywords mark legal forms that match whenever both sides mention them.
var legalKeywords = []string{"limited", "proprietor", "partnership"}

var nobSeparators = regexp.MustCompile(`[,/\-]`)

// MatchCategories compares a seller's declared classification with the
// government record. Nil inputs yield an empty result.
func MatchCategories(seller *registry.Classification, gov *registry.GovernmentRecord) CategoryMatch {
	res := CategoryMatch{Matches: []CategoryEntry{}, Mismatches: []CategoryEntry{}}
	if seller == nil || gov == nil {
		res.Summary = summarize(0, 0)
		return res
	}

	activities := normalizeActivities(gov.Activities)

	if entry, matched, ok := matchLegalStatus(seller.LegalStatus, gov.Constitution); ok {
		res.add(entry, matched)
	}
	if entry, matched, ok := matchNatureOfBusiness(seller.NatureOfBusiness, gov.Activities, activities); ok {
		res.add(entry, matched)
	}
	if entry, ok := matchActivities(seller.AdditionalActivities, gov.Activities, activities); ok {
		res.add(entry, true)
	}

	m, mm := len(res.Matches), len(res.Mismatches)
	if total := m + mm; total > 0 {
		res.Score = math.Round(float64(m)/float64(total)*1000) / 10
	}
	res.Summary = summarize(m, mm)
	return res
}

func (r *CategoryMatch) add(e CategoryEntry, matched bool) {
	if matched {
		r.Matches = append(r.Matches, e)
	} else {
		r.Mismatches = append(r.Mismatches, e)
	}
}

func summarize(m, mm int) string {
	if m+mm == 0 {
		return "No categories to compare"
	}
	return fmt.Sprintf("%d/%d categories match", m, m+mm)
}

func matchLegalStatus(status, constitution string) (CategoryEntry, bool, bool) {
	if strings.TrimSpace(status) == "" || strings.TrimSpace(constitution) == "" {
		return CategoryEntry{}, false, false
	}
	entry := CategoryEntry{
		Category:        AxisLegalStatus,
		SellerValue:     status,
		GovernmentValue: []string{constitution},
	}

	s, g := strings.ToLower(status), strings.ToLower(constitution)
	matched := strings.Contains(g, s) || strings.Contains(s, g)
	for _, kw := range legalKeywords {
		if matched {
			break
		}
		matched = strings.Contains(s, kw) && strings.Contains(g, kw)
	}
	if !matched {
		return entry, false, true
	}
	if s == g {
		entry.MatchType = TypeExact
	} else {
		entry.MatchType = TypeSimilar
	}
	return entry, true, true
}

func matchNatureOfBusiness(nob string, rawActivities, activities []string) (CategoryEntry, bool, bool) {
	if strings.TrimSpace(nob) == "" || len(rawActivities) == 0 {
		return CategoryEntry{}, false, false
	}
	entry := CategoryEntry{
		Category:        AxisNatureOfBusiness,
		SellerValue:     nob,
		GovernmentValue: rawActivities,
	}

	parts := splitParts(nob, nobSeparators)
	if pair, ok := directMatch(parts, activities); ok {
		entry.MatchType = TypeSemantic
		entry.MatchedItems = []ItemPair{pair}
		return entry, true, true
	}
	if pair, ok := synonymMatch(parts, activities); ok {
		entry.MatchType = TypeSemantic
		entry.MatchedItems = []ItemPair{pair}
		return entry, true, true
	}
	return entry, false, true
}

// directMatch returns the first containment pair, scanning government
// activities in the outer loop.
func directMatch(parts, activities []string) (ItemPair, bool) {
	for _, g := range activities {
		for _, p := range parts {
			if strings.Contains(g, p) || strings.Contains(p, g) {
				return ItemPair{Seller: p, Government: g}, true
			}
		}
	}
	return ItemPair{}, false
}

func synonymMatch(parts, activities []string) (ItemPair, bool) {
	for _, p := range parts {
		for _, rule := range SemanticKeywords {
			if !strings.Contains(p, rule.Keyword) {
				continue
			}
			for _, g := range activities {
				for _, syn := range rule.Synonyms {
					if strings.Contains(g, syn) {
						return ItemPair{Seller: p, Government: g}, true
					}
				}
			}
		}
	}
	return ItemPair{}, false
}

// matchActivities only ever reports a match; an axis with no overlapping
// activity is skipped rather than counted as a mismatch.
func matchActivities(additional string, rawActivities, activities []string) (CategoryEntry, bool) {
	if strings.TrimSpace(additional) == "" || len(rawActivities) == 0 {
		return CategoryEntry{}, false
	}
	var pairs []ItemPair
	for _, p := range splitParts(additional, nil) {
		for _, g := range activities {
			if strings.Contains(g, p) || strings.Contains(p, g) {
				pairs = append(pairs, ItemPair{Seller: p, Government: g})
			}
		}
	}
	if len(pairs) == 0 {
		return CategoryEntry{}, false
	}
	return CategoryEntry{
		Category:        AxisActivities,
		SellerValue:     additional,
		GovernmentValue: rawActivities,
		MatchType:       TypeCategory,
		MatchedItems:    pairs,
	}, true
}

// splitParts lower-cases s and splits it on sep, or on commas when sep is
// nil. Blank parts are dropped.
func splitParts(s string, sep *regexp.Regexp) []string {
	lower := strings.ToLower(s)
	var raw []string
	if sep == nil {
		raw = strings.Split(lower, ",")
	} else {
		raw = sep.Split(lower, -1)
	}
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// normalizeActivities lower-cases and trims government activities,
// dropping blank entries so they cannot match every part.
func normalizeActivities(activities []string) []string {
	out := make([]string, 0, len(activities))
	for _, a := range activities {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			out = append(out, a)
		}
	}
	return out
}
