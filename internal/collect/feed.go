package collect

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/TradeCheck/internal/calls"
)

const maxPerFeed = 50

// FeedConfig represents a single transcript feed.
type FeedConfig struct {
	URL      string
	Name     string
	Category string // applied when an item names none
}

// FeedSource reads call transcripts from an RSS/Atom feed. Item content is
// the transcript; categories of the form "key:value" and custom item
// elements become call metadata, and an audio enclosure becomes audio_url.
type FeedSource struct {
	feed     FeedConfig
	daysBack int
	parser   *gofeed.Parser
}

// NewFeedSource creates a feed source keeping items from the last daysBack
// days. Zero keeps everything.
func NewFeedSource(feed FeedConfig, daysBack int) *FeedSource {
	if feed.Name == "" {
		feed.Name = extractSourceName(feed.URL)
	}
	return &FeedSource{feed: feed, daysBack: daysBack, parser: gofeed.NewParser()}
}

func (s *FeedSource) Name() string { return s.feed.Name }

// Collect fetches and parses the feed.
func (s *FeedSource) Collect(ctx context.Context) ([]Item, error) {
	feed, err := s.parser.ParseURLWithContext(s.feed.URL, ctx)
	if err != nil {
		return nil, err
	}

	var cutoff time.Time
	if s.daysBack > 0 {
		cutoff = time.Now().AddDate(0, 0, -s.daysBack)
	}

	var items []Item
	for _, it := range feed.Items {
		if len(items) >= maxPerFeed {
			break
		}
		item := s.parseItem(it)
		if item == nil {
			continue
		}
		if isWithinWindow(item.PublishedDate, cutoff) {
			items = append(items, *item)
		}
	}
	log.Printf("Parsed %d transcripts from %s", len(items), s.feed.Name)
	return items, nil
}

func (s *FeedSource) parseItem(item *gofeed.Item) *Item {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}

	var transcript string
	if item.Content != "" {
		transcript = stripHTML(item.Content)
	} else if item.Description != "" {
		transcript = stripHTML(item.Description)
	}
	if itemURL == "" && transcript == "" {
		return nil
	}

	var publishedDate string
	if item.PublishedParsed != nil {
		publishedDate = item.PublishedParsed.Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		publishedDate = item.UpdatedParsed.Format("2006-01-02")
	}

	return &Item{
		SourceURL:     itemURL,
		Title:         strings.TrimSpace(item.Title),
		Transcript:    transcript,
		Metadata:      s.itemMetadata(item, itemURL),
		Source:        s.feed.Name,
		PublishedDate: publishedDate,
	}
}

func (s *FeedSource) itemMetadata(item *gofeed.Item, itemURL string) calls.Metadata {
	fields := make(map[string]string)
	for k, v := range item.Custom {
		fields[k] = strings.TrimSpace(v)
	}
	for _, c := range item.Categories {
		key, value, ok := strings.Cut(c, ":")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "audio/") {
			fields["audio_url"] = enc.URL
			break
		}
	}
	if itemURL != "" {
		fields["source_url"] = itemURL
	}

	m := calls.MetadataFromFields(fields)
	if m.Category == "" {
		m.Category = s.feed.Category
	}
	return m
}

func isWithinWindow(publishedDate string, cutoff time.Time) bool {
	if publishedDate == "" || cutoff.IsZero() {
		return true
	}
	pub, err := time.Parse("2006-01-02", publishedDate)
	if err != nil {
		return true
	}
	return !pub.Before(cutoff.Truncate(24 * time.Hour))
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	return strings.Join(strings.Fields(s), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "calls.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
