package collect

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Call transcripts</title>
  <link>https://calls.example.com</link>
  <description>Recorded buyer calls</description>
  <item>
    <title>Call 1</title>
    <link>https://calls.example.com/t/1</link>
    <description>&lt;p&gt;Seller: Rs 9000 per 200kg. Buyer: deal confirmed.&lt;/p&gt;</description>
    <category>city:Jaipur</category>
    <category>state_name:Rajasthan</category>
    <category>seller_identifier:1001</category>
    <category>untagged</category>
    <enclosure url="https://calls.example.com/a/1.mp3" length="1024" type="audio/mpeg"/>
    <pubDate>%s</pubDate>
  </item>
  <item>
    <title>Call 2</title>
    <link>https://calls.example.com/t/2</link>
    <category>category_name:Textiles</category>
    <pubDate>%s</pubDate>
  </item>
  <item>
    <title>Old call</title>
    <link>https://calls.example.com/t/0</link>
    <description>too old</description>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
  </item>
</channel>
</rss>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC1123Z)
	body := strings.Replace(strings.Replace(rssFixture, "%s", now, 1), "%s", now, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedSource(t *testing.T) {
	srv := newFeedServer(t)
	src := NewFeedSource(FeedConfig{URL: srv.URL, Name: "Test Calls", Category: "Steel Rods"}, 30)

	items, err := src.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 recent items, got %d", len(items))
	}

	first := items[0]
	if first.Transcript != "Seller: Rs 9000 per 200kg. Buyer: deal confirmed." {
		t.Errorf("unexpected transcript %q", first.Transcript)
	}
	m := first.Metadata
	if m.City != "Jaipur" || m.State != "Rajasthan" || m.SellerID != "1001" {
		t.Errorf("unexpected metadata %+v", m)
	}
	if m.Category != "Steel Rods" {
		t.Errorf("expected feed default category, got %q", m.Category)
	}
	if m.Extra["audio_url"] != "https://calls.example.com/a/1.mp3" {
		t.Errorf("expected audio url from enclosure, got %v", m.Extra)
	}
	if m.Extra["source_url"] != "https://calls.example.com/t/1" {
		t.Errorf("expected source url, got %v", m.Extra)
	}

	second := items[1]
	if second.Transcript != "" || second.SourceURL != "https://calls.example.com/t/2" {
		t.Errorf("expected link-only item, got %+v", second)
	}
	if second.Metadata.Category != "Textiles" {
		t.Errorf("expected item category to win, got %q", second.Metadata.Category)
	}
}

func TestFeedSourceNoWindow(t *testing.T) {
	srv := newFeedServer(t)
	items, err := NewFeedSource(FeedConfig{URL: srv.URL}, 0).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("expected all 3 items without a window, got %d", len(items))
	}
}

func TestReadCSV(t *testing.T) {
	data := "State,City,Category,Transcript,audio_url,seller_identifier\n" +
		"Gujarat,Surat,Textiles,\"Need 500 meters, Rs 120 per meter\",http://a/1.mp3,2002\n" +
		",,,,,\n" +
		"Delhi,Delhi,Furniture,,http://a/2.mp3,\n"

	items, err := ReadCSV(strings.NewReader(data), "bulk.csv")
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(items))
	}
	it := items[0]
	if it.Transcript != "Need 500 meters, Rs 120 per meter" {
		t.Errorf("unexpected transcript %q", it.Transcript)
	}
	if it.Metadata.State != "Gujarat" || it.Metadata.City != "Surat" || it.Metadata.Category != "Textiles" {
		t.Errorf("unexpected metadata %+v", it.Metadata)
	}
	if it.Metadata.SellerID != "2002" || it.Metadata.Extra["audio_url"] != "http://a/1.mp3" {
		t.Errorf("unexpected metadata %+v", it.Metadata)
	}
	if _, ok := it.Metadata.Extra["transcript"]; ok {
		t.Error("transcript should not be copied into metadata")
	}
	if items[1].Transcript != "" || items[1].Source != "bulk.csv" {
		t.Errorf("unexpected second row %+v", items[1])
	}
}

func TestReadCSVEmpty(t *testing.T) {
	items, err := ReadCSV(strings.NewReader(""), "empty.csv")
	if err != nil || len(items) != 0 {
		t.Errorf("expected no items and no error, got %v, %v", items, err)
	}
}

func TestCSVSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b.csv":     "state,transcript\nGoa,second\n",
		"a.csv":     "state,transcript\nKerala,first\n",
		"notes.txt": "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	items, err := NewCSVSource(dir).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) != 2 || items[0].Transcript != "first" || items[1].Transcript != "second" {
		t.Errorf("expected rows in file name order, got %+v", items)
	}
}

type staticSource struct {
	name  string
	items []Item
	err   error
}

func (s staticSource) Name() string                            { return s.name }
func (s staticSource) Collect(context.Context) ([]Item, error) { return s.items, s.err }

func TestCollectSkipsFailingSources(t *testing.T) {
	r := Collect(context.Background(), []Source{
		staticSource{name: "ok", items: []Item{{Transcript: "a"}, {Transcript: "b"}}},
		staticSource{name: "down", err: errors.New("boom")},
	})
	if r.TotalFound != 2 || r.Failed != 1 || r.Sources["ok"] != 2 {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestExtractSourceName(t *testing.T) {
	tests := map[string]string{
		"https://www.indiamart.com/feed.xml":  "Indiamart",
		"https://calls.example.com/rss":       "Example",
		"https://feeds.tradeindia.com/t.atom": "Tradeindia",
	}
	for in, want := range tests {
		if got := extractSourceName(in); got != want {
			t.Errorf("%s: expected %q, got %q", in, want, got)
		}
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<p>Rs 500 &amp; 20&nbsp;kg</p><br/>ok")
	if got != "Rs 500 & 20 kg ok" {
		t.Errorf("unexpected %q", got)
	}
}
