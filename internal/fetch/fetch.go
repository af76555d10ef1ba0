package fetch

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/TobiSchelling/TradeCheck/internal/collect"
)

const minTranscriptLength = 20

// ErrNoContent is returned when a page has no extractable transcript.
var ErrNoContent = errors.New("no extractable transcript")

// Result holds the results of a transcript fetch run.
type Result struct {
	Fetched           int
	AlreadyHadContent int
	Failed            int
}

// Fetcher downloads transcript pages and extracts their text with
// readability.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a new transcript fetcher.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FillMissing fetches transcripts for items that only carry a URL. After
// an HTTP error the rest of that host is skipped.
func (f *Fetcher) FillMissing(ctx context.Context, items []collect.Item) *Result {
	result := &Result{}
	failedDomains := make(map[string]struct{})

	for i := range items {
		item := &items[i]
		if item.Transcript != "" {
			result.AlreadyHadContent++
			continue
		}
		if item.SourceURL == "" || !isPage(item.SourceURL) {
			result.Failed++
			continue
		}

		u, _ := url.Parse(item.SourceURL)
		domain := ""
		if u != nil {
			domain = strings.ToLower(u.Host)
		}
		if _, failed := failedDomains[domain]; failed {
			result.Failed++
			continue
		}

		text, err := f.Fetch(ctx, item.SourceURL)
		var he *httpError
		switch {
		case errors.As(err, &he):
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("HTTP %d for %s, skipping remaining from %s", he.code, item.SourceURL, domain)
		case err != nil:
			result.Failed++
			log.Printf("No transcript from %s: %v", item.SourceURL, err)
		default:
			item.Transcript = text
			result.Fetched++
		}
	}

	log.Printf("Transcript fetch complete: %d fetched, %d failed", result.Fetched, result.Failed)
	return result
}

// Fetch downloads pageURL and returns its main text.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "TradeCheck/1.0 (call transcript collector)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", err
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if len(text) < minTranscriptLength {
		return "", ErrNoContent
	}
	return text, nil
}

// isPage filters out audio links, which need transcription rather than
// text extraction.
func isPage(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, ext := range []string{".mp3", ".wav", ".m4a", ".ogg", ".flac"} {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	return true
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
