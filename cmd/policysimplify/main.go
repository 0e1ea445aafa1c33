// Package main is the policysimplify CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/policysimplify/internal/cli"
	"github.com/hyperjump/policysimplify/internal/config"
	"github.com/hyperjump/policysimplify/internal/embedding"
	"github.com/hyperjump/policysimplify/internal/export"
	"github.com/hyperjump/policysimplify/internal/extract"
	"github.com/hyperjump/policysimplify/internal/indexer"
	"github.com/hyperjump/policysimplify/internal/keyword"
	"github.com/hyperjump/policysimplify/internal/models"
	"github.com/hyperjump/policysimplify/internal/policy"
	"github.com/hyperjump/policysimplify/internal/server"
	"github.com/hyperjump/policysimplify/internal/snapshot"
	"github.com/hyperjump/policysimplify/internal/storage"
	"github.com/hyperjump/policysimplify/internal/vector"
	"github.com/hyperjump/policysimplify/internal/watcher"
	"github.com/hyperjump/policysimplify/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/policysimplify/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			cfg, err := config.Load("")
			return cfg, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]
	switch command {
	case "server":
		runServer(args)
	case "ingest":
		runIngest(args)
	case "bulk":
		runBulk(args)
	case "qa":
		runQA(args)
	case "cards":
		runCards(args)
	case "export":
		runExport(args)
	case "events":
		runEvents(args)
	case "purge":
		runPurge(args)
	case "status":
		runStatus(args)
	case "version", "--version", "-v":
		fmt.Printf("policysimplify version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// commonFlags registers --config, --debug and --output on fs.
type commonFlags struct {
	configPath *string
	debug      *bool
	output     *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
		output:     fs.String("output", "text", "output format: text or json"),
	}
}

// setup loads config, creates a logger and parses the output format, exiting on failure.
func (c commonFlags) setup(cliLogger bool) (*config.Config, string, *zap.Logger, cli.OutputFormat) {
	cfg, resolved, err := loadConfig(*c.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *c.debug
	newLogger := utils.NewLogger
	if cliLogger {
		newLogger = utils.NewCLILogger
	}
	logger, err := newLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*c.output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	return cfg, resolved, logger, format
}

func fail(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func runServer(args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	flags := addCommonFlags(fs)
	_ = fs.Parse(args)

	cfg, resolvedConfigPath, logger, _ := flags.setup(false)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, componentNeeds{embed: true, analyst: true, cards: true})
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()
	idx := components.Indexer

	if n, err := idx.SyncCardIndex(context.Background()); err != nil {
		logger.Warn("card index sync failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("card index synced", zap.Int("cards", n))
	}

	tenant := cfg.Watch.Tenant
	watchSvc := watcher.New(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		func(ctx context.Context, path string) {
			card, err := idx.IngestFile(ctx, tenant, path)
			switch {
			case errors.Is(err, indexer.ErrAlreadyIngested):
			case err != nil:
				logger.Warn("inbox ingest failed", zap.String("path", path), zap.Error(err))
			default:
				logger.Info("inbox file ingested", zap.String("path", path), zap.String("risk", card.Risk))
			}
		},
		watcher.WithLogger(logger),
		watcher.WithRecursive(cfg.Watch.RecursiveOrDefault()),
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	go watchSvc.SyncExisting()

	srv := server.NewServer(idx, components.Storage, cfg, logger, watchSvc, resolvedConfigPath)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchSvc.Stop()
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
	if err := idx.Save(); err != nil {
		logger.Warn("vector snapshot save failed", zap.Error(err))
	}
}

func runIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	flags := addCommonFlags(fs)
	tenant := fs.String("tenant", "", "tenant the cards belong to (default: default)")
	_ = fs.Parse(reorderArgs(args))
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: policysimplify ingest [flags] <file>...")
		os.Exit(1)
	}

	cfg, _, logger, format := flags.setup(true)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, componentNeeds{embed: true, analyst: true, cards: true})
	if err != nil {
		fail("Failed to initialize", err)
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	failed := 0
	for _, path := range fs.Args() {
		card, err := components.Indexer.IngestFile(ctx, *tenant, path)
		if errors.Is(err, indexer.ErrAlreadyIngested) {
			fmt.Fprintf(os.Stderr, "Skipped %s: unchanged since last ingest\n", path)
			continue
		}
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "Ingest %s failed: %v\n", path, err)
			continue
		}
		if err := cli.WriteCard(os.Stdout, card, format); err != nil {
			fail("Output failed", err)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func runBulk(args []string) {
	fs := flag.NewFlagSet("bulk", flag.ExitOnError)
	flags := addCommonFlags(fs)
	tenant := fs.String("tenant", "", "tenant the cards belong to (default: default)")
	_ = fs.Parse(reorderArgs(args))
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: policysimplify bulk [flags] <csv with name,url columns>")
		os.Exit(1)
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fail("Open CSV failed", err)
	}
	defer f.Close()

	cfg, _, logger, format := flags.setup(true)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, componentNeeds{embed: true, analyst: true, cards: true})
	if err != nil {
		fail("Failed to initialize", err)
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	results, err := components.Indexer.BulkIngest(ctx, *tenant, f)
	if werr := cli.WriteBulkResults(os.Stdout, results, format); werr != nil {
		fail("Output failed", werr)
	}
	if err != nil {
		fail("Bulk ingest failed", err)
	}
}

func runQA(args []string) {
	fs := flag.NewFlagSet("qa", flag.ExitOnError)
	flags := addCommonFlags(fs)
	k := fs.Int("k", 0, "number of chunks to retrieve (default from config, max 8)")
	_ = fs.Parse(reorderArgs(args))
	question := joinArgs(fs.Args())
	if question == "" {
		fmt.Fprintln(os.Stderr, "Usage: policysimplify qa [flags] <question>")
		os.Exit(1)
	}

	cfg, _, logger, format := flags.setup(true)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, componentNeeds{embed: true, analyst: true})
	if err != nil {
		fail("Failed to initialize", err)
	}
	defer components.Close()

	answer, err := components.Indexer.Ask(context.Background(), question, *k)
	if err != nil {
		fail("Question failed", err)
	}
	if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
		fail("Output failed", err)
	}
}

func runCards(args []string) {
	fs := flag.NewFlagSet("cards", flag.ExitOnError)
	flags := addCommonFlags(fs)
	tenant := fs.String("tenant", "", "only this tenant's cards (default: all)")
	risk := fs.String("risk", "", "comma-separated risk filter, e.g. High,Medium")
	limit := fs.Int("limit", 50, "maximum number of cards (0 = all)")
	query := fs.String("search", "", "keyword search over policy name, summary and checklist")
	_ = fs.Parse(args)

	cfg, _, logger, format := flags.setup(true)
	defer logger.Sync()
	needs := componentNeeds{cards: *query != ""}
	components, err := initializeComponents(cfg, logger, needs)
	if err != nil {
		fail("Failed to initialize", err)
	}
	defer components.Close()

	ctx := context.Background()
	var cards []*models.Card
	if *query != "" {
		if _, err := components.Indexer.SyncCardIndex(ctx); err != nil {
			logger.Warn("card index sync failed", zap.Error(err))
		}
		cards, err = components.Indexer.SearchCards(ctx, *query, *tenant, *limit)
	} else {
		cards, err = components.Storage.ListCards(ctx, *tenant, 0)
		cards = export.Sort(export.FilterRisk(cards, splitList(*risk)...))
		if *limit > 0 && len(cards) > *limit {
			cards = cards[:*limit]
		}
	}
	if err != nil {
		fail("List cards failed", err)
	}
	if err := cli.WriteCards(os.Stdout, cards, format); err != nil {
		fail("Output failed", err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	formatName := fs.String("format", "csv", "export format: csv, json or xlsx")
	tenant := fs.String("tenant", "", "only this tenant's cards (default: all)")
	risk := fs.String("risk", "", "comma-separated risk filter, e.g. High,Medium")
	out := fs.String("out", "", "output file (default: policy_items.<format>; - for stdout)")
	_ = fs.Parse(args)

	format, err := export.ParseFormat(*formatName)
	if err != nil {
		fail("Export failed", err)
	}
	output := "text"
	flags := commonFlags{configPath: configPath, debug: debug, output: &output}
	cfg, _, logger, _ := flags.setup(true)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, componentNeeds{})
	if err != nil {
		fail("Failed to initialize", err)
	}
	defer components.Close()

	cards, err := components.Storage.ListCards(context.Background(), *tenant, 0)
	if err != nil {
		fail("List cards failed", err)
	}
	rows := export.Rows(export.FilterRisk(cards, splitList(*risk)...), nil)

	target := *out
	if target == "" {
		target = format.FileName()
	}
	if target == "-" {
		if err := export.Write(os.Stdout, format, rows); err != nil {
			fail("Export failed", err)
		}
		return
	}
	f, err := os.Create(target)
	if err != nil {
		fail("Create output failed", err)
	}
	if err := export.Write(f, format, rows); err != nil {
		_ = f.Close()
		fail("Export failed", err)
	}
	if err := f.Close(); err != nil {
		fail("Export failed", err)
	}
	fmt.Fprintf(os.Stderr, "Exported %d policies to %s\n", len(rows), target)
}

func runEvents(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	flags := addCommonFlags(fs)
	tenant := fs.String("tenant", "", "only this tenant's events (default: all)")
	limit := fs.Int("limit", 10, "number of events")
	_ = fs.Parse(args)

	cfg, _, logger, format := flags.setup(true)
	defer logger.Sync()
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fail("Failed to open storage", err)
	}
	defer store.Close()

	events, err := store.RecentEvents(context.Background(), *tenant, *limit)
	if err != nil {
		fail("Events failed", err)
	}
	if err := cli.WriteEvents(os.Stdout, events, format); err != nil {
		fail("Output failed", err)
	}
}

func runPurge(args []string) {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)
	flags := addCommonFlags(fs)
	tenant := fs.String("tenant", "", "tenant to purge (default: default)")
	days := fs.Int("days", 0, "delete cards and events older than this many days (default from retention.days)")
	all := fs.Bool("all", false, "delete every card and event of the tenant")
	_ = fs.Parse(args)

	cfg, _, logger, _ := flags.setup(true)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, componentNeeds{cards: true})
	if err != nil {
		fail("Failed to initialize", err)
	}
	defer components.Close()

	ctx := context.Background()
	var n int
	if *all {
		n, err = components.Indexer.DeleteTenant(ctx, *tenant)
	} else {
		if *days <= 0 {
			*days = cfg.Retention.Days
		}
		n, err = components.Indexer.Purge(ctx, *tenant, *days)
	}
	if err != nil {
		fail("Purge failed", err)
	}
	fmt.Printf("Deleted %d cards\n", n)
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	flags := addCommonFlags(fs)
	tenant := fs.String("tenant", "", "count only this tenant's cards (default: all)")
	_ = fs.Parse(args)

	cfg, _, logger, format := flags.setup(true)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, componentNeeds{})
	if err != nil {
		fail("Failed to initialize", err)
	}
	defer components.Close()

	st, err := components.Indexer.Status(context.Background(), *tenant)
	if err != nil {
		fail("Status failed", err)
	}
	report := &cli.StatusReport{Status: st, StoreName: cfg.Storage.StoreName}
	report.DiskUsageBytes, err = storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.VectorDir, cfg.Storage.CardIndexPath)
	if err != nil {
		logger.Warn("disk usage failed", zap.Error(err))
	}
	if err := cli.WriteStatus(os.Stdout, report, format); err != nil {
		fail("Output failed", err)
	}
}

// reorderArgs moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse sees them. Go's flag package stops at the
// first non-flag argument, so "qa who files -k 3" would otherwise leave -k unparsed.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// joinArgs joins positional args with spaces so questions work with or without quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// componentNeeds selects the optional parts a command opens.
type componentNeeds struct {
	// embed builds the configured embedding gateway; otherwise an offline one is used,
	// which is enough for commands that never embed.
	embed bool
	// analyst builds the chat model client.
	analyst bool
	// cards opens the keyword card index, which holds a file lock.
	cards bool
}

// Components holds initialized application components.
type Components struct {
	Storage   *storage.SQLiteStorage
	Embedder  embedding.Embedder
	Index     *vector.Index
	CardIndex *keyword.BleveIndex
	Indexer   *indexer.Indexer
}

// Close releases every opened component.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.CardIndex != nil {
		_ = c.CardIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, needs componentNeeds) (*Components, error) {
	c := &Components{}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	if needs.embed {
		c.Embedder, err = embedding.New(cfg.Embedding, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding gateway: %w", err)
		}
	} else {
		c.Embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}

	snaps, err := snapshot.NewStore(cfg.Storage.VectorDir, cfg.Vector.IndexType, c.Embedder, snapshot.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot store: %w", err)
	}
	index := snaps.Load(cfg.Storage.StoreName)
	c.Index = index
	logger.Info("vector index loaded",
		zap.String("store", cfg.Storage.StoreName),
		zap.String("backend", index.Backend()),
		zap.Int("documents", index.Len()))

	var cards keyword.CardIndex
	if needs.cards {
		c.CardIndex, err = keyword.NewBleveIndex(cfg.Storage.CardIndexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize card index: %w", err)
		}
		cards = c.CardIndex
	}

	var analyst indexer.Analyst
	if needs.analyst {
		a, err := policy.New(cfg.LLM, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize language model: %w", err)
		}
		analyst = a
	}

	c.Indexer = indexer.NewIndexer(index, snaps, store, cards, analyst, extract.NewExtractor(extract.WithLogger(logger)), cfg,
		indexer.WithLogger(logger))
	ok = true
	return c, nil
}

func printUsage() {
	fmt.Println(`policysimplify - Policy intake, plain-English summaries, checklists and risk

Usage:
  policysimplify server [flags]              Start the HTTP API and inbox watcher
  policysimplify ingest [flags] <file>...    Ingest PDF, DOCX or TXT policy files
  policysimplify bulk [flags] <csv>          Download and ingest name,url rows
  policysimplify qa [flags] <question>       Ask a question over ingested policies
  policysimplify cards [flags]               List or search policy cards
  policysimplify export [flags]              Export cards as CSV, JSON or XLSX
  policysimplify events [flags]              Show recent audit events
  policysimplify purge [flags]               Delete old cards and events
  policysimplify status [flags]              Show index and storage status
  policysimplify version                     Show version
  policysimplify help                        Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/policysimplify/config.yaml,
                     or ./config.yaml when present)
  --debug            Enable debug logging
  --output string    Output format: text or json (default: text)

Ingest / Bulk Flags:
  --tenant string    Tenant the cards belong to (default: default)

QA Flags:
  --k int            Chunks to retrieve (default from qa.default_k, clamped to 1..8)

Cards Flags:
  --tenant string    Only this tenant (default: all)
  --risk string      Comma-separated risk filter (High,Medium,Low)
  --limit int        Maximum number of cards (default: 50)
  --search string    Keyword search over policy name, summary and checklist

Export Flags:
  --format string    csv, json or xlsx (default: csv)
  --out string       Output file (default: policy_items.<format>; - for stdout)
  --tenant, --risk   As for cards

Purge Flags:
  --tenant string    Tenant to purge (default: default)
  --days int         Age threshold in days (default: retention.days)
  --all              Delete every card and event of the tenant

The card index is locked while the server runs; stop it before running ingest,
bulk, purge or cards --search from the command line.

Examples:
  policysimplify server
  policysimplify ingest --tenant council handbook.pdf leave-policy.docx
  policysimplify bulk policies.csv
  policysimplify qa who approves annual leave -k 6
  policysimplify cards --risk High --output json
  policysimplify export --format xlsx --out report.xlsx
  policysimplify purge --days 90`)
}
