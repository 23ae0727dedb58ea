// Package main is the Kensho CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kensho/internal/catalog"
	"github.com/hyperjump/kensho/internal/cli"
	"github.com/hyperjump/kensho/internal/config"
	"github.com/hyperjump/kensho/internal/embedding"
	"github.com/hyperjump/kensho/internal/extract"
	"github.com/hyperjump/kensho/internal/indexer"
	"github.com/hyperjump/kensho/internal/models"
	"github.com/hyperjump/kensho/internal/retrieval"
	"github.com/hyperjump/kensho/internal/server"
	"github.com/hyperjump/kensho/internal/validate"
	"github.com/hyperjump/kensho/internal/vector"
	"github.com/hyperjump/kensho/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kensho/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
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
	switch command {
	case "server":
		runServer()
	case "retrieve":
		runRetrieve()
	case "validate":
		runValidate()
	case "sync":
		runSync()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kensho version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Retriever,
		components.Validator,
		components.Extractor,
		components.Embedder,
		components.Store,
		components.Indexer,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildQueryText joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQueryText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func argsReorder(args []string) []string {
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

func runRetrieve() {
	retrieveArgs := argsReorder(os.Args[2:])

	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = run in-process)")
	limit := fs.Int("limit", 10, "number of results")
	domain := fs.String("domain", "", "business domain hint (finance, sales, ...)")
	industry := fs.String("industry", "", "industry hint (healthcare, retail, ...)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(retrieveArgs)

	if fs.NArg() < 1 {
		fmt.Println("Usage: kensho retrieve [flags] <query>")
		os.Exit(1)
	}
	queryText := buildQueryText(fs.Args())
	if queryText == "" {
		fmt.Println("Usage: kensho retrieve [flags] <query>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	query := &models.RetrievalQuery{
		Query:    queryText,
		Limit:    *limit,
		Domain:   *domain,
		Industry: *industry,
	}

	var ragCtx *models.RAGContext
	if *serverURL != "" {
		ragCtx, err = retrieveViaHTTP(*serverURL, query)
	} else {
		ragCtx, err = retrieveDirect(*configPath, query)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRAGContext(os.Stdout, ragCtx, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func retrieveViaHTTP(serverURL string, query *models.RetrievalQuery) (*models.RAGContext, error) {
	var ragCtx models.RAGContext
	if err := postJSON(serverURL+"/api/v1/retrieve", query, &ragCtx); err != nil {
		return nil, err
	}
	return &ragCtx, nil
}

func retrieveDirect(configPath string, query *models.RetrievalQuery) (*models.RAGContext, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	return components.Retriever.Retrieve(context.Background(), query)
}

func runValidate() {
	validateArgs := argsReorder(os.Args[2:])

	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = run in-process)")
	kind := fs.String("kind", "query", "artifact kind: query, hierarchy, pipeline, config")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(validateArgs)

	if fs.NArg() < 1 {
		fmt.Println("Usage: kensho validate [flags] <file>   (use - for stdin)")
		os.Exit(1)
	}
	artifact, err := readArtifact(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read artifact: %v\n", err)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var result *models.ValidationResult
	if *serverURL != "" {
		var res models.ValidationResult
		err = postJSON(*serverURL+"/api/v1/validate",
			map[string]string{"artifact": artifact, "kind": *kind}, &res)
		result = &res
	} else {
		result, err = validateDirect(*configPath, artifact, models.ArtifactKind(*kind))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteValidationResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if !result.Valid {
		os.Exit(2)
	}
}

func readArtifact(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func validateDirect(configPath, artifact string, kind models.ArtifactKind) (*models.ValidationResult, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	return components.Validator.Validate(context.Background(), artifact, kind, nil), nil
}

func runSync() {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = run in-process)")
	_ = fs.Parse(os.Args[2:])

	var report indexer.SyncReport
	if *serverURL != "" {
		if err := postJSON(*serverURL+"/api/v1/sync", nil, &report); err != nil {
			fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		res, err := components.Indexer.SyncAll(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
			os.Exit(1)
		}
		report = *res
	}
	fmt.Printf("catalog:      %d\n", report.Catalog)
	fmt.Printf("templates:    %d\n", report.Templates)
	fmt.Printf("skills:       %d\n", report.Skills)
	fmt.Printf("hierarchies:  %d\n", report.Hierarchies)
	fmt.Printf("glossary:     %d\n", report.Glossary)
	fmt.Printf("total:        %d in %dms\n", report.Total, report.DurationMs)
}

// statusResponse is the shape of GET /status.
type statusResponse struct {
	Documents    int            `json:"documents"`
	BySourceType map[string]int `json:"by_source_type"`
	Dimensions   int            `json:"dimensions"`
	LastIndexed  *time.Time     `json:"last_indexed,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = run in-process)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			fmt.Fprintf(os.Stderr, "Decode failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		stats, err := components.Store.Stats(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Documents:    stats.Total,
			BySourceType: stats.BySourceType,
			Dimensions:   stats.Dimension,
		}
		if !stats.LastIndexed.IsZero() {
			t := stats.LastIndexed
			status.LastIndexed = &t
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:   %d\n", status.Documents)
		fmt.Printf("dimensions:  %d\n", status.Dimensions)
		for sourceType, n := range status.BySourceType {
			fmt.Printf("  %-10s %d\n", sourceType+":", n)
		}
		if status.LastIndexed != nil {
			fmt.Printf("last_indexed: %s\n", status.LastIndexed.Format(time.RFC3339))
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func postJSON(url string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	resp, err := http.Post(url, "application/json", reader)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized services.
type Components struct {
	Embedder  embedding.Embedder
	Store     vector.Store
	Workspace *catalog.Workspace
	Extractor *extract.Extractor
	Retriever *retrieval.Retriever
	Validator *validate.Validator
	Indexer   *indexer.Indexer
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Workspace != nil {
		_ = c.Workspace.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	workspace, err := catalog.LoadWorkspace(cfg.WorkspacePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	cache, err := embedding.NewCache(cfg.Embedding.CacheDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding cache: %w", err)
	}
	embedder, err := embedding.NewEmbedder(cfg.Embedding, cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	store, err := vector.NewStore(cfg.Vector, embedder.Dimensions(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	extractor := extract.NewExtractor(workspace.Catalog, workspace.Hierarchies, workspace.Glossary, logger)
	if err := extractor.RefreshSnapshot(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to build entity snapshot: %w", err)
	}

	retriever := retrieval.NewRetriever(embedder, store, extractor,
		workspace.Catalog, workspace.Lineage, workspace.Templates, &cfg.Retrieval, logger)
	validator := validate.NewValidator(extractor, &cfg.Validation, logger)
	idx := indexer.NewIndexer(embedder, store,
		workspace.Catalog, workspace.Hierarchies, workspace.Templates, workspace.Glossary, logger)

	return &Components{
		Embedder:  embedder,
		Store:     store,
		Workspace: workspace,
		Extractor: extractor,
		Retriever: retriever,
		Validator: validator,
		Indexer:   idx,
	}, nil
}

func printUsage() {
	fmt.Println(`kensho - grounded retrieval and validation for data platforms

Usage:
  kensho server [flags]             Start the HTTP server
  kensho retrieve [flags] <query>   Run hybrid retrieval
  kensho validate [flags] <file>    Validate an artifact against known entities
  kensho sync [flags]               Rebuild the vector store from collaborator content
  kensho status [flags]             Show vector store status
  kensho version                    Show version
  kensho help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kensho/config.yaml)
  --debug            Enable debug logging

Retrieve Flags:
  --config string    Config file path (for in-process mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to run in-process.
  --limit int        Number of results (default: 10)
  --domain string    Business domain hint (finance, sales, ...)
  --industry string  Industry hint (healthcare, retail, ...)
  --output string    Output format: text or json (default: text)

Validate Flags:
  --config string    Config file path (for in-process mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to run in-process.
  --kind string      Artifact kind: query, hierarchy, pipeline, config (default: query)
  --output string    Output format: text or json (default: text)

Examples:
  kensho server
  kensho retrieve "monthly revenue by region"
  kensho retrieve --domain finance --output json "orders by month"
  kensho validate --kind query report.sql
  echo "SELECT * FROM orders" | kensho validate -
  kensho sync
  kensho status --output json`)
}
