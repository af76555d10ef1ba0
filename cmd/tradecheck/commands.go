package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/TradeCheck/internal/calls"
	"github.com/TobiSchelling/TradeCheck/internal/collect"
	"github.com/TobiSchelling/TradeCheck/internal/report"
	"github.com/TobiSchelling/TradeCheck/internal/seed"
	"github.com/TobiSchelling/TradeCheck/internal/server"
	"github.com/TobiSchelling/TradeCheck/internal/workflow"
)

// --- ingest command ---

var (
	ingestMetadata string
	ingestProducts []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [transcript-file]",
	Short: "Extract insights from a call transcript and store it",
	Long:  "Reads a transcript from the given file, or from stdin when no file or '-' is given. Sellers named in the metadata are validated too.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		text, err := readInput(path)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("empty transcript")
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		out, err := e.pipeline().Ingest(cmd.Context(), calls.Transcript{
			Text:       text,
			Metadata:   calls.ParseMetadata(ingestMetadata),
			ReceivedAt: time.Now().UTC(),
		}, ingestProducts)
		if out == nil {
			return err
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: call stored, %v\n", err)
		}
		return printJSON(out)
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestMetadata, "metadata", "m", "", "Call metadata as JSON or a tab-separated header/value block")
	ingestCmd.Flags().StringSliceVar(&ingestProducts, "products", nil, "Products discussed on the call (defaults to metadata main product and category)")
}

// --- validate command ---

var validateWorkflow string

var validateCmd = &cobra.Command{
	Use:   "validate [seller-id] [product...]",
	Short: "Check a seller against the products discussed on a call",
	Long:  "Validates a seller against the seller directory and the GST registry. With --workflow, the seller and products are read from transcription workflow output.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var sellerID string
		var products []string
		if len(args) > 0 {
			sellerID, products = args[0], args[1:]
		}

		if validateWorkflow != "" {
			text, err := readInput(validateWorkflow)
			if err != nil {
				return err
			}
			out, err := workflow.Parse(text)
			if err != nil {
				return fmt.Errorf("parsing workflow output: %w", err)
			}
			if sellerID == "" {
				sellerID = out.SellerID
			}
			if len(products) == 0 {
				products = out.ConversationProducts()
			}
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.pipeline().Validate(cmd.Context(), sellerID, products)
		if res == nil {
			return err
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		return printJSON(res)
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateWorkflow, "workflow", "w", "", "File with transcription workflow output ('-' for stdin)")
}

// --- aggregate command ---

var aggregateFormat string

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Summarize stored calls by category and city",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		agg := e.aggregator()
		ins, err := agg.Aggregate()
		if err != nil {
			return err
		}

		switch aggregateFormat {
		case "json":
			return printJSON(ins)
		case "markdown", "md":
			states, err := agg.States()
			if err != nil {
				return err
			}
			validations, err := e.db.RecentValidations(10)
			if err != nil {
				return err
			}
			fmt.Print(report.Markdown(report.Input{
				Insights:    ins,
				States:      states,
				Validations: validations,
				GeneratedAt: time.Now(),
			}))
			return nil
		default:
			return fmt.Errorf("unknown format %q (want json or markdown)", aggregateFormat)
		}
	},
}

func init() {
	aggregateCmd.Flags().StringVarP(&aggregateFormat, "format", "f", "json", "Output format: json or markdown")
}

// --- states command ---

var statesCmd = &cobra.Command{
	Use:   "states [state]",
	Short: "Show per-state call summaries",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		agg := e.aggregator()
		if len(args) == 1 {
			st, err := agg.State(args[0])
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("state %q not found", args[0])
			}
			return printJSON(st)
		}

		states, err := agg.States()
		if err != nil {
			return err
		}
		if len(states) == 0 {
			fmt.Println("No calls stored. Add some with: tradecheck ingest, bulk or seed")
			return nil
		}
		names := make([]string, 0, len(states))
		for name := range states {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			return states[names[i]].CallCount > states[names[j]].CallCount
		})
		for _, name := range names {
			st := states[name]
			fmt.Printf("  %-20s %3d calls  %s\n", name, st.CallCount, strings.Join(st.Cities, ", "))
		}
		return nil
	},
}

// --- bulk command ---

var bulkValidate bool

var bulkCmd = &cobra.Command{
	Use:   "bulk [csv-file-or-dir]",
	Short: "Ingest calls from CSV (state, city, category, transcript, audio_url, seller_identifier, ...)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Sources.CSVDir
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no CSV given and sources.csv_dir is not set")
		}
		if cmd.Flags().Changed("validate") {
			cfg.Bulk.Validate = bulkValidate
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		src := collect.NewCSVSource(path)
		items, err := src.Collect(ctx)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No rows found.")
			return nil
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		fmt.Printf("Processing %d rows from %s...\n", len(items), src.Name())
		result := e.pipeline().Bulk(ctx, items, func(done, total int) {
			fmt.Printf("\r  %d/%d", done, total)
		})
		fmt.Println()
		fmt.Println("\nBulk complete:")
		fmt.Printf("  Stored: %d\n", result.Processed)
		fmt.Printf("  Validated: %d\n", result.Validated)
		fmt.Printf("  Failed: %d\n", result.Failed)
		return nil
	},
}

func init() {
	bulkCmd.Flags().BoolVar(&bulkValidate, "validate", false, "Validate sellers for every row (overrides bulk.validate)")
}

// --- seed command ---

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Store demo calls across sample categories and cities",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		n, err := seed.Into(e.store, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Stored %d demo calls across %d categories\n", n, len(seed.Categories()))
		fmt.Printf("Categories: %s\n", strings.Join(seed.Categories(), ", "))
		return nil
	},
}

// --- collect command ---

var daysBack int

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect transcripts from configured feeds and CSV directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		sources := collect.SourcesFromConfig(cfg, daysBack)
		if len(sources) == 0 {
			fmt.Println("No sources configured. Add feeds or sources.csv_dir to the config.")
			return nil
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		result := e.pipeline().Run(ctx, sources)
		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}
		fmt.Println("\nCollection complete! Run 'tradecheck serve' to view insights.")
		return nil
	},
}

func init() {
	collectCmd.Flags().IntVar(&daysBack, "days-back", 7, "Only collect feed items from the last N days (0 for all)")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(e.pipeline(), e.aggregator(), e.db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on (overrides server.port)")
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
