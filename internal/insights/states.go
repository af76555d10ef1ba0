package insights

import (
	"fmt"
	"sort"

	"github.com/TobiSchelling/TradeCheck/internal/calls"
)

const (
	defaultState     = "Unknown"
	recentCallLimit  = 10
	previewLength    = 100
	emptyTranscript  = "No transcript"
	audioURLMetadata = "audio_url"
)

// CallPreview is a shortened view of one call for state listings.
type CallPreview struct {
	Transcript string `json:"transcript"`
	Category   string `json:"category"`
	City       string `json:"city"`
	Sentiment  string `json:"sentiment"`
	AudioURL   string `json:"audio_url,omitempty"`
}

// StateSummary aggregates the calls placed from one state.
type StateSummary struct {
	State       string         `json:"state"`
	CallCount   int            `json:"call_count"`
	Cities      []string       `json:"cities"`
	Categories  []string       `json:"categories"`
	Sentiment   map[string]int `json:"sentiment"`
	RecentCalls []CallPreview  `json:"recent_calls"`
}

// States groups stored records by state.
func (a *Aggregator) States() (map[string]*StateSummary, error) {
	records, err := a.store.ListCalls()
	if err != nil {
		return nil, fmt.Errorf("listing calls: %w", err)
	}
	return SummarizeStates(records), nil
}

// State returns the summary for a single state, or nil if no call was
// placed from it.
func (a *Aggregator) State(name string) (*StateSummary, error) {
	states, err := a.States()
	if err != nil {
		return nil, err
	}
	return states[name], nil
}

// SummarizeStates groups records by state. Cities and categories are
// sorted; recent calls keep the last ten in insertion order.
func SummarizeStates(records []calls.Record) map[string]*StateSummary {
	states := make(map[string]*StateSummary)
	cities := make(map[string]map[string]bool)
	cats := make(map[string]map[string]bool)

	for _, r := range records {
		name := orDefault(r.Metadata.State, defaultState)
		s, ok := states[name]
		if !ok {
			s = &StateSummary{
				State:       name,
				Cities:      []string{},
				Categories:  []string{},
				Sentiment:   map[string]int{"positive": 0, "negative": 0, "neutral": 0},
				RecentCalls: []CallPreview{},
			}
			states[name] = s
			cities[name] = make(map[string]bool)
			cats[name] = make(map[string]bool)
		}

		s.CallCount++
		s.Sentiment[string(r.Extracted.Sentiment)]++
		if r.Metadata.City != "" {
			cities[name][r.Metadata.City] = true
		}
		category := orDefault(r.Metadata.Category, defaultCategory)
		cats[name][category] = true

		s.RecentCalls = append(s.RecentCalls, CallPreview{
			Transcript: preview(r.Transcript),
			Category:   category,
			City:       r.Metadata.City,
			Sentiment:  string(r.Extracted.Sentiment),
			AudioURL:   r.Metadata.Extra[audioURLMetadata],
		})
		if len(s.RecentCalls) > recentCallLimit {
			s.RecentCalls = s.RecentCalls[1:]
		}
	}

	for name, s := range states {
		s.Cities = sortedKeys(cities[name])
		s.Categories = sortedKeys(cats[name])
	}
	return states
}

func preview(transcript string) string {
	if transcript == "" {
		return emptyTranscript
	}
	runes := []rune(transcript)
	if len(runes) > previewLength {
		return string(runes[:previewLength])
	}
	return transcript
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
