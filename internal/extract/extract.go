// Package extract pulls commercial signals out of sales-call transcripts
// using fixed patterns. It performs no I/O and never fails.
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Sentiment is the overall tone of a call.
type Sentiment string

const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
	Neutral  Sentiment = "neutral"
)

// Entities holds everything extracted from a single transcript.
type Entities struct {
	Specs      []string  `json:"specs"`
	Prices     []int     `json:"prices"`
	Quantities []int     `json:"quantities"`
	Sentiment  Sentiment `json:"sentiment"`
}

// Derived holds the numeric summary of a call's entities. Nil fields mean
// the value is undefined for the call.
type Derived struct {
	AvgPrice    *float64 `json:"avg_price"`
	TotalQty    *int     `json:"total_qty"`
	PricePerQty *float64 `json:"price_per_qty"`
}

var specPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(\d+\s?mm)\b`),
	regexp.MustCompile(`(?i)\b(\d+\s?kg)\b`),
	regexp.MustCompile(`(?i)\b(\d+\s?meters?)\b`),
	regexp.MustCompile(`(?i)\b(\d+\s?units?)\b`),
	regexp.MustCompile(`(?i)\b(grade\s?[A-D])\b`),
}

var (
	pricePattern    = regexp.MustCompile(`(?i)(?:INR|Rs\.?|Rupees)\s?(\d{2,7})(?:\s?per\s?(?:kg|unit|meter|piece))?`)
	quantityPattern = regexp.MustCompile(`(?i)\b(\d{1,5})\s?(?:kg|units?|meters?|pieces?)\b`)
)

// Sentiment cues are matched as plain substrings of the lower-cased text,
// so "no" also fires inside "not" or "know".
var (
	positiveCues = []string{"good", "ok", "yes", "fine", "deal", "confirm"}
	negativeCues = []string{"no", "delay", "price high", "issue", "problem", "cancel"}
)

// Extract parses a transcript into structured entities. The same text
// always yields the same result.
func Extract(transcript string) Entities {
	return Entities{
		Specs:      extractSpecs(transcript),
		Prices:     extractInts(pricePattern, transcript),
		Quantities: extractInts(quantityPattern, transcript),
		Sentiment:  classifySentiment(transcript),
	}
}

func extractSpecs(text string) []string {
	seen := make(map[string]struct{})
	specs := []string{}
	for _, pat := range specPatterns {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			if _, dup := seen[m[1]]; dup {
				continue
			}
			seen[m[1]] = struct{}{}
			specs = append(specs, m[1])
		}
	}
	sort.Strings(specs)
	return specs
}

func extractInts(pat *regexp.Regexp, text string) []int {
	values := []int{}
	for _, m := range pat.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		values = append(values, n)
	}
	return values
}

func classifySentiment(text string) Sentiment {
	lower := strings.ToLower(text)
	pos := countCues(lower, positiveCues)
	neg := countCues(lower, negativeCues)
	switch {
	case pos > neg:
		return Positive
	case neg > pos:
		return Negative
	default:
		return Neutral
	}
}

func countCues(lower string, cues []string) int {
	n := 0
	for _, cue := range cues {
		if strings.Contains(lower, cue) {
			n++
		}
	}
	return n
}

// Derive computes the mean price, the total quantity and the price per
// unit of quantity.
func Derive(e Entities) Derived {
	var d Derived
	if len(e.Prices) > 0 {
		sum := 0
		for _, p := range e.Prices {
			sum += p
		}
		avg := float64(sum) / float64(len(e.Prices))
		d.AvgPrice = &avg
	}
	if len(e.Quantities) > 0 {
		total := 0
		for _, q := range e.Quantities {
			total += q
		}
		d.TotalQty = &total
	}
	if d.AvgPrice != nil && d.TotalQty != nil && *d.TotalQty != 0 {
		ppq := *d.AvgPrice / float64(*d.TotalQty)
		d.PricePerQty = &ppq
	}
	return d
}
