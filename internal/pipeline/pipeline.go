// Package pipeline ties call ingestion, seller validation and transcript
// collection together.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/TradeCheck/internal/calls"
	"github.com/TobiSchelling/TradeCheck/internal/collect"
	"github.com/TobiSchelling/TradeCheck/internal/fetch"
	"github.com/TobiSchelling/TradeCheck/internal/verify"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a collection run.
type Result struct {
	Steps []StepResult
}

// Validator checks a seller against the products discussed on a call.
// *verify.Orchestrator implements it.
type Validator interface {
	Validate(ctx context.Context, sellerID string, products []string) *verify.Result
}

// History persists validation results. *database.DB implements it.
type History interface {
	InsertValidation(res *verify.Result) (int64, error)
}

// Options control optional pipeline behaviour.
type Options struct {
	// BulkValidate enables seller validation for bulk and collected calls.
	BulkValidate bool
	FetchTimeout time.Duration
}

// Pipeline processes calls into a store. validator and history may be nil.
type Pipeline struct {
	store     calls.Store
	validator Validator
	history   History
	fetcher   *fetch.Fetcher
	opts      Options
}

// New creates a new pipeline.
func New(store calls.Store, validator Validator, history History, opts Options) *Pipeline {
	return &Pipeline{
		store:     store,
		validator: validator,
		history:   history,
		fetcher:   fetch.NewFetcher(opts.FetchTimeout),
		opts:      opts,
	}
}

// Ingested is the outcome of ingesting one call.
type Ingested struct {
	Record     calls.Record   `json:"record"`
	Validation *verify.Result `json:"validation,omitempty"`
}

// Ingest extracts and stores a call and, when it names a seller, validates
// that seller in parallel. When products is empty the main product and
// category from the call metadata are used. If the call was stored but the
// validation could not be recorded, the result is returned with the error.
func (p *Pipeline) Ingest(ctx context.Context, t calls.Transcript, products []string) (*Ingested, error) {
	out := &Ingested{}
	stored := false
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out.Record = calls.Process(t)
		if err := p.store.AppendCall(out.Record); err != nil {
			return fmt.Errorf("storing call: %w", err)
		}
		stored = true
		return nil
	})

	sellerID := strings.TrimSpace(t.Metadata.SellerID)
	if p.validator != nil && sellerID != "" {
		if len(products) == 0 {
			products = MetadataProducts(t.Metadata)
		}
		g.Go(func() error {
			res, err := p.Validate(gctx, sellerID, products)
			out.Validation = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		if stored {
			return out, err
		}
		return nil, err
	}
	log.Printf("Ingested call %s", out.Record.ID)
	return out, nil
}

// Validate runs the validator and records the result in the history.
func (p *Pipeline) Validate(ctx context.Context, sellerID string, products []string) (*verify.Result, error) {
	if p.validator == nil {
		return nil, fmt.Errorf("seller validation is not configured")
	}
	res := p.validator.Validate(ctx, sellerID, products)
	log.Printf("Seller %s: %s", res.SellerID, res.Status)
	if p.history != nil {
		if _, err := p.history.InsertValidation(res); err != nil {
			return res, fmt.Errorf("recording validation: %w", err)
		}
	}
	return res, nil
}

// BulkResult summarizes a bulk run.
type BulkResult struct {
	Processed int
	Validated int
	Failed    int
}

// Bulk ingests items one at a time, calling progress after each. Sellers
// are only validated when Options.BulkValidate is set.
func (p *Pipeline) Bulk(ctx context.Context, items []collect.Item, progress func(done, total int)) *BulkResult {
	r := &BulkResult{}
	for i, item := range items {
		if ctx.Err() != nil {
			r.Failed += len(items) - i
			break
		}

		t := calls.Transcript{Text: item.Transcript, Metadata: item.Metadata}
		rec := calls.Process(t)
		if err := p.store.AppendCall(rec); err != nil {
			log.Printf("Failed to store row %d: %v", i+1, err)
			r.Failed++
		} else {
			r.Processed++
		}

		if p.opts.BulkValidate && p.validator != nil && strings.TrimSpace(item.Metadata.SellerID) != "" {
			if _, err := p.Validate(ctx, item.Metadata.SellerID, MetadataProducts(item.Metadata)); err != nil {
				log.Printf("Validation for row %d not recorded: %v", i+1, err)
			} else {
				r.Validated++
			}
		}

		if progress != nil {
			progress(i+1, len(items))
		}
	}
	log.Printf("Bulk complete: %d processed, %d validated, %d failed", r.Processed, r.Validated, r.Failed)
	return r
}

// Run collects transcripts from sources, fetches missing transcript pages
// and ingests everything not already stored.
func (p *Pipeline) Run(ctx context.Context, sources []collect.Source) *Result {
	r := &Result{}

	log.Println("Step 1/3: Collecting transcripts...")
	collected := collect.Collect(ctx, sources)
	items, dupes, err := p.dedupe(collected.Items)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Collect", Err: err})
		return r
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("Found %d new transcripts (%d total, %d duplicates)", len(items), collected.TotalFound, dupes),
	})

	log.Println("Step 2/3: Fetching transcript pages...")
	fetched := p.fetcher.FillMissing(ctx, items)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d transcripts, %d failed", fetched.Fetched, fetched.Failed),
	})

	log.Println("Step 3/3: Ingesting calls...")
	ready := items[:0]
	for _, item := range items {
		// Feed items whose page could not be fetched carry nothing to store.
		if item.Transcript == "" && item.SourceURL != "" {
			continue
		}
		ready = append(ready, item)
	}
	bulk := p.Bulk(ctx, ready, nil)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Ingest",
		Summary: fmt.Sprintf("Stored %d calls, validated %d sellers, %d failed", bulk.Processed, bulk.Validated, bulk.Failed),
	})
	return r
}

// sourceKeys are the metadata keys an item's SourceURL is stored under:
// feed items keep their link, CSV rows their audio URL.
var sourceKeys = []string{"source_url", "audio_url"}

// dedupe drops items whose source URL is already stored or repeated.
func (p *Pipeline) dedupe(items []collect.Item) ([]collect.Item, int, error) {
	existing, err := p.store.ListCalls()
	if err != nil {
		return nil, 0, fmt.Errorf("listing stored calls: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, rec := range existing {
		for _, key := range sourceKeys {
			if u := rec.Metadata.Extra[key]; u != "" {
				seen[u] = true
			}
		}
	}

	var out []collect.Item
	dupes := 0
	for _, item := range items {
		if item.SourceURL != "" {
			if seen[item.SourceURL] {
				dupes++
				continue
			}
			seen[item.SourceURL] = true
		}
		out = append(out, item)
	}
	return out, dupes, nil
}

// MetadataProducts returns the main product and category named in call
// metadata, skipping blanks and repeats.
func MetadataProducts(m calls.Metadata) []string {
	var out []string
	for _, v := range []string{m.MainProduct, m.Category} {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dup := false
		for _, o := range out {
			if strings.EqualFold(o, v) {
				dup = true
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}
