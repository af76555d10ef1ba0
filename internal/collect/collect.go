package collect

import (
	"context"
	"log"

	"github.com/TobiSchelling/TradeCheck/internal/calls"
	"github.com/TobiSchelling/TradeCheck/internal/config"
)

// Item is one call transcript found by a source. Transcript may be empty
// when only SourceURL is known; see fetch.Fetcher.
type Item struct {
	SourceURL     string
	Title         string
	Transcript    string
	Metadata      calls.Metadata
	Source        string
	PublishedDate string // YYYY-MM-DD or empty
}

// Source yields call transcripts.
type Source interface {
	Name() string
	Collect(ctx context.Context) ([]Item, error)
}

// Result holds the results of a collection run.
type Result struct {
	Items      []Item
	TotalFound int
	Failed     int
	Sources    map[string]int
}

// Collect gathers items from every source. A failing source is logged and
// skipped.
func Collect(ctx context.Context, sources []Source) *Result {
	r := &Result{Sources: make(map[string]int)}
	for _, s := range sources {
		items, err := s.Collect(ctx)
		if err != nil {
			log.Printf("Failed to collect from %s: %v", s.Name(), err)
			r.Failed++
			continue
		}
		r.Items = append(r.Items, items...)
		r.TotalFound += len(items)
		r.Sources[s.Name()] += len(items)
	}
	log.Printf("Collection complete: %d transcripts from %d sources", r.TotalFound, len(sources))
	return r
}

// SourcesFromConfig builds the feed and CSV sources named in cfg.
func SourcesFromConfig(cfg *config.Config, daysBack int) []Source {
	var sources []Source
	for _, f := range cfg.Sources.Feeds {
		sources = append(sources, NewFeedSource(FeedConfig{URL: f.URL, Name: f.Name, Category: f.Category}, daysBack))
	}
	if cfg.Sources.CSVDir != "" {
		sources = append(sources, NewCSVSource(cfg.Sources.CSVDir))
	}
	return sources
}
