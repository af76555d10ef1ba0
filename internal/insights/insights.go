// Package insights summarizes stored call records by category, city and
// state.
package insights

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/TobiSchelling/TradeCheck/internal/calls"
)

const (
	defaultCategory = "Misc"
	defaultCity     = "Unknown"
	topCityLimit    = 5
)

// CategorySummary holds the per-category aggregates. Averages are nil when
// no record in the category mentioned a price or quantity.
type CategorySummary struct {
	AvgPrice  *float64       `json:"avg_price"`
	AvgQty    *float64       `json:"avg_qty"`
	Sentiment map[string]int `json:"sentiment"`
}

// CityCount is a city with its record count. It serialises as a
// two-element array.
type CityCount struct {
	City  string
	Count int
}

func (c CityCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.City, c.Count})
}

func (c *CityCount) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("city count: expected 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &c.City); err != nil {
		return fmt.Errorf("city count: %w", err)
	}
	if err := json.Unmarshal(pair[1], &c.Count); err != nil {
		return fmt.Errorf("city count: %w", err)
	}
	return nil
}

// Overall holds totals across every record.
type Overall struct {
	TotalCalls    int         `json:"total_calls"`
	CitiesCovered []string    `json:"cities_covered"`
	TopCities     []CityCount `json:"top_cities"`
}

// Insights is the full aggregate over the store.
type Insights struct {
	Categories map[string]CategorySummary `json:"categories"`
	Locations  map[string]int             `json:"locations"`
	Overall    Overall                    `json:"overall"`
}

// Aggregator computes insights from a call store. It keeps no state of its
// own, so every call reflects the store as it is read.
type Aggregator struct {
	store calls.Store
}

// NewAggregator creates an Aggregator over store.
func NewAggregator(store calls.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Aggregate reads every record and summarizes it.
func (a *Aggregator) Aggregate() (*Insights, error) {
	records, err := a.store.ListCalls()
	if err != nil {
		return nil, fmt.Errorf("listing calls: %w", err)
	}
	return Summarize(records), nil
}

type accumulator struct {
	priceSum, priceN int
	qtySum, qtyN     int
	sentiment        map[string]int
}

// Summarize aggregates records without touching any store. Averages are
// computed from integer sums, so they do not depend on record order.
func Summarize(records []calls.Record) *Insights {
	acc := make(map[string]*accumulator)
	locations := make(map[string]int)
	var cityOrder []string

	for _, r := range records {
		cat := orDefault(r.Metadata.Category, defaultCategory)
		city := orDefault(r.Metadata.City, defaultCity)

		a, ok := acc[cat]
		if !ok {
			a = &accumulator{sentiment: make(map[string]int)}
			acc[cat] = a
		}
		for _, p := range r.Extracted.Prices {
			a.priceSum += p
			a.priceN++
		}
		for _, q := range r.Extracted.Quantities {
			a.qtySum += q
			a.qtyN++
		}
		a.sentiment[string(r.Extracted.Sentiment)]++

		if _, seen := locations[city]; !seen {
			cityOrder = append(cityOrder, city)
		}
		locations[city]++
	}

	categories := make(map[string]CategorySummary, len(acc))
	for cat, a := range acc {
		categories[cat] = CategorySummary{
			AvgPrice:  mean(a.priceSum, a.priceN),
			AvgQty:    mean(a.qtySum, a.qtyN),
			Sentiment: a.sentiment,
		}
	}

	covered := append([]string{}, cityOrder...)
	sort.Strings(covered)

	top := make([]CityCount, 0, len(cityOrder))
	for _, c := range cityOrder {
		top = append(top, CityCount{City: c, Count: locations[c]})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Count > top[j].Count })
	if len(top) > topCityLimit {
		top = top[:topCityLimit]
	}

	return &Insights{
		Categories: categories,
		Locations:  locations,
		Overall: Overall{
			TotalCalls:    len(records),
			CitiesCovered: covered,
			TopCities:     top,
		},
	}
}

func mean(sum, n int) *float64 {
	if n == 0 {
		return nil
	}
	v := round2(float64(sum) / float64(n))
	return &v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
