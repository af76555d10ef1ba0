package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/TradeCheck/internal/calls"
	"github.com/TobiSchelling/TradeCheck/internal/config"
	"github.com/TobiSchelling/TradeCheck/internal/database"
	"github.com/TobiSchelling/TradeCheck/internal/insights"
	"github.com/TobiSchelling/TradeCheck/internal/pipeline"
	"github.com/TobiSchelling/TradeCheck/internal/registry"
	"github.com/TobiSchelling/TradeCheck/internal/verify"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "tradecheck",
	Short:   "Sales-call insights and seller validation",
	Long:    "TradeCheck extracts prices, quantities and sentiment from sales-call transcripts and checks sellers against the seller directory and the GST registry.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setLogFlags(verbose)

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		setLogFlags(verbose || cfg.Logging.Verbose())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(statesCmd)
	rootCmd.AddCommand(bulkCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(serveCmd)
}

func setLogFlags(verbose bool) {
	if verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("tradecheck", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/tradecheck/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure registry URLs and feeds. Put SELLER_REGISTRY_TOKEN and GST_API_KEY in the environment or a .env file.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored calls and validation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		records, err := e.store.ListCalls()
		if err != nil {
			return fmt.Errorf("listing calls: %w", err)
		}
		stats, err := e.db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Storage: %s\n\n", cfg.Storage.Backend)
		fmt.Println("Calls:")
		fmt.Printf("  Stored: %d\n", len(records))
		if cfg.Storage.Backend == config.BackendSQLite {
			fmt.Printf("  States: %d\n", stats.States)
			fmt.Printf("  Categories: %d\n", stats.Categories)
		}
		fmt.Println("\nValidations:")
		fmt.Printf("  Total: %d\n", stats.TotalValidations)
		fmt.Printf("  Verified: %d\n", stats.VerifiedSellers)
		fmt.Printf("  Partial: %d\n", stats.PartialSellers)
		fmt.Printf("  Unverified: %d\n", stats.UnverifiedSellers)
		fmt.Printf("  Failed: %d\n", stats.FailedValidations)

		recent, err := e.db.RecentValidations(5)
		if err != nil {
			return err
		}
		if len(recent) > 0 {
			fmt.Println("\nRecent:")
			for _, v := range recent {
				fmt.Printf("  [%d] %s %s: %s\n", v.ID, v.SellerID, v.Status, v.Message)
			}
		}

		fmt.Println("\nSecrets:")
		fmt.Printf("  %s: %s\n", cfg.SellerRegistry.TokenEnv, presence(cfg.SellerToken()))
		fmt.Printf("  %s: %s\n", cfg.GovernmentRegistry.APIKeyEnv, presence(cfg.GSTAPIKey()))
		return nil
	},
}

func presence(v string) string {
	if v == "" {
		return "not set"
	}
	return "set"
}

// env bundles the stores a command works on. The database always holds
// validation history; call records live wherever storage.backend says.
type env struct {
	db    *database.DB
	store calls.Store
}

func openEnv() (*env, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	e := &env{db: db}
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		e.store = db
	default:
		e.store = calls.NewFileStore(cfg.CallsPath())
	}
	return e, nil
}

func (e *env) Close() error {
	return e.db.Close()
}

func (e *env) aggregator() *insights.Aggregator {
	return insights.NewAggregator(e.store)
}

func (e *env) pipeline() *pipeline.Pipeline {
	return pipeline.New(e.store, newOrchestrator(), e.db, pipeline.Options{
		BulkValidate: cfg.Bulk.Validate,
	})
}

func newOrchestrator() *verify.Orchestrator {
	sr := cfg.SellerRegistry
	sellers := registry.NewSellerClient(sr.AliasURL, sr.DetailsURL, cfg.SellerToken(), sr.Timeout())

	var gov registry.GovernmentRegistry
	if key := cfg.GSTAPIKey(); key != "" {
		gr := cfg.GovernmentRegistry
		gov = registry.NewGSTClient(gr.URL, key, gr.Timeout())
	} else {
		log.Printf("%s not set, GST verification disabled", cfg.GovernmentRegistry.APIKeyEnv)
	}
	return verify.New(sellers, gov)
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(cfg.DBPath())
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
