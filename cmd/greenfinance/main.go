// Package main is the greenfinance CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ajadindian/greenfinanceplatform/internal/chartstore"
	"github.com/ajadindian/greenfinanceplatform/internal/chartsync"
	"github.com/ajadindian/greenfinanceplatform/internal/chunker"
	"github.com/ajadindian/greenfinanceplatform/internal/cli"
	"github.com/ajadindian/greenfinanceplatform/internal/completion"
	"github.com/ajadindian/greenfinanceplatform/internal/config"
	"github.com/ajadindian/greenfinanceplatform/internal/docstore"
	"github.com/ajadindian/greenfinanceplatform/internal/embedding"
	"github.com/ajadindian/greenfinanceplatform/internal/extract"
	"github.com/ajadindian/greenfinanceplatform/internal/ingest"
	"github.com/ajadindian/greenfinanceplatform/internal/retrieval"
	"github.com/ajadindian/greenfinanceplatform/internal/server"
	"github.com/ajadindian/greenfinanceplatform/internal/watcher"
	"github.com/ajadindian/greenfinanceplatform/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/greenfinance/config.yaml"

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
	case "ingest":
		runIngest()
	case "upload":
		runUpload()
	case "query":
		runQuery()
	case "sync":
		runSync()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("greenfinance version %s\n", version)
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
	debug := fs.Bool("debug", false, "enable debug logging (file events, sync progress, etc.)")
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

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// Chart sync runs after every committed content change.
	if components.Syncer != nil {
		components.Pipeline = rebuildPipelineWithSync(cfg, components, logger, debugMode)
	}

	watchSvc := startWatcher(cfg, components, logger, debugMode)
	if watchSvc != nil {
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Pipeline,
		components.Retriever,
		components.Completer,
		components.Charts,
		components.Syncer,
		components.Docs,
		cfg,
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

// startWatcher wires the configured project directories into the pipeline.
// Returns nil when no projects are configured.
func startWatcher(cfg *config.Config, components *Components, logger *zap.Logger, debugMode bool) *watcher.Watcher {
	if len(cfg.Watch.Projects) == 0 {
		return nil
	}
	projects := make([]watcher.Project, 0, len(cfg.Watch.Projects))
	for _, p := range cfg.Watch.Projects {
		projects = append(projects, watcher.Project{ID: p.ProjectID, Name: p.ProjectName, Root: p.Directory})
	}
	pipeline := components.Pipeline
	watchOpts := []watcher.WatcherOption{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.NewWatcher(
		projects,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(p watcher.Project, path string) {
			if _, err := pipeline.IngestFile(context.Background(), p.ID, p.Name, path); err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(p watcher.Project, path string) {
			if _, err := pipeline.DeleteFile(context.Background(), p.ID, path); err != nil {
				logger.Warn("watch delete failed", zap.String("path", path), zap.Error(err))
			}
		},
		watchOpts...,
	)
	if err := watchSvc.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()
	return watchSvc
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	projectID := fs.Int64("project", 0, "project id (required)")
	projectName := fs.String("name", "", "project name used in chunk headers")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 || *projectID == 0 {
		fmt.Println("Usage: greenfinance ingest --project <id> [--name <project-name>] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		n := 0
		walkErr := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			report, ingestErr := components.Pipeline.IngestFile(ctx, *projectID, *projectName, p)
			if ingestErr != nil {
				fmt.Printf("Skipping %s: %v\n", p, ingestErr)
				return nil
			}
			n++
			fmt.Printf("Ingested %s (%d chunks)\n", p, report.ChunkCount)
			return nil
		})
		if walkErr != nil {
			fmt.Printf("Ingesting directory failed: %v\n", walkErr)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d file(s) from %s\n", n, path)
		return
	}
	report, err := components.Pipeline.IngestFile(ctx, *projectID, *projectName, path)
	if err != nil {
		fmt.Printf("Ingesting failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Ingested %s: %d chunk(s)\n", report.SourcePath, report.ChunkCount)
	for _, sheet := range report.SkippedSheets {
		fmt.Printf("  skipped sheet: %s\n", sheet)
	}
}

// buildUserQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildUserQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	projectID := fs.Int64("project", 0, "project id (required)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 || *projectID == 0 {
		fmt.Println("Usage: greenfinance query --project <id> [flags] <question>")
		os.Exit(1)
	}
	queryStr := buildUserQuery(fs.Args())

	body, _ := json.Marshal(map[string]string{"query": queryStr})
	resp, err := http.Post(fmt.Sprintf("%s/api/v1/projects/%d/query", *serverURL, *projectID),
		"application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out cli.AnalysisOutput
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response failed: %v\n", err)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
		format = cli.OutputText
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
	if err := cli.WriteAnalysis(os.Stdout, &out, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runSync() {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	projectID := fs.Int64("project", 0, "project id (required)")
	_ = fs.Parse(os.Args[2:])

	if *projectID == 0 {
		fmt.Println("Usage: greenfinance sync --project <id>")
		os.Exit(1)
	}
	resp, err := http.Post(fmt.Sprintf("%s/api/v1/projects/%d/sync", *serverURL, *projectID),
		"application/json", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var report chartsync.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response failed: %v\n", err)
		os.Exit(1)
	}
	for _, r := range report.Results {
		if r.Error != "" {
			fmt.Printf("%-10s %s (%s): %s\n", r.State, r.Name, r.ChartID, r.Error)
			continue
		}
		fmt.Printf("%-10s %s (%s)\n", r.State, r.Name, r.ChartID)
	}
	fmt.Printf("Synced project %d: %d chart(s), %d updated\n",
		report.ProjectID, len(report.Results), len(report.Updated))
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	projectID := fs.Int64("project", 0, "project id (required)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 || *projectID == 0 {
		fmt.Println("Usage: greenfinance delete --project <id> <source-path>")
		os.Exit(1)
	}
	sourcePath := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	removed, err := components.Pipeline.DeleteFile(context.Background(), *projectID, sourcePath)
	if err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	if !removed {
		fmt.Printf("No indexed content for: %s\n", sourcePath)
		os.Exit(1)
	}
	fmt.Printf("Removed from index: %s\n", sourcePath)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	projectID := fs.Int64("project", 0, "project id (required)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *projectID == 0 {
		fmt.Println("Usage: greenfinance status --project <id>")
		os.Exit(1)
	}
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/projects/%d/status", *serverURL, *projectID))
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
	var status struct {
		ProjectID      int64  `json:"project_id"`
		Chunks         int64  `json:"chunks"`
		Charts         int    `json:"charts"`
		DiskUsageBytes *int64 `json:"disk_usage_bytes,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response failed: %v\n", err)
		os.Exit(1)
	}
	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
	case "text":
		fmt.Printf("project:  %d\n", status.ProjectID)
		fmt.Printf("chunks:   %d   # indexed text chunks\n", status.Chunks)
		fmt.Printf("charts:   %d   # saved charts\n", status.Charts)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk:     %d   # storage + index bytes on disk\n", *status.DiskUsageBytes)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	projectID := fs.Int64("project", 0, "project id (required)")
	projectName := fs.String("name", "", "project name used in chunk headers")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 || *projectID == 0 {
		fmt.Println("Usage: greenfinance upload --project <id> [--name <project-name>] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	if err := uploadFile(*serverURL, *projectID, *projectName, path); err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Uploaded: %s\n", path)
}

// uploadFile posts a local file to the server's upload endpoint, for use
// against a remote instance where direct storage access is not possible.
func uploadFile(serverURL string, projectID int64, projectName, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return err
	}
	if projectName != "" {
		_ = mw.WriteField("project_name", projectName)
	}
	if err := mw.Close(); err != nil {
		return err
	}
	resp, err := http.Post(fmt.Sprintf("%s/api/v1/projects/%d/files", serverURL, projectID),
		mw.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// Components holds initialized services.
type Components struct {
	Docs      docstore.Store
	Charts    chartstore.Store
	Embedder  embedding.Embedder
	Retriever *retrieval.Engine
	Completer completion.Service
	Syncer    *chartsync.Engine
	Pipeline  *ingest.Pipeline
}

func (c *Components) Close() {
	if c.Docs != nil {
		_ = c.Docs.Close()
	}
	if c.Charts != nil {
		_ = c.Charts.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	docs, err := docstore.NewSQLiteStore(
		cfg.Storage.DatabasePath,
		cfg.Storage.BleveIndexPath,
		cfg.OpenAI.Dimensions,
		cfg.Retrieval.SemanticWeight,
		cfg.Retrieval.KeywordWeight,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document store: %w", err)
	}

	charts, err := chartstore.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		_ = docs.Close()
		return nil, fmt.Errorf("failed to initialize chart store: %w", err)
	}

	var embedder embedding.Embedder
	if cfg.OpenAI.APIKey != "" {
		embedder, err = embedding.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL,
			cfg.OpenAI.EmbeddingModel, cfg.OpenAI.Dimensions)
		if err != nil {
			_ = docs.Close()
			_ = charts.Close()
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
	} else {
		// No API key: deterministic local embeddings, keyword search still works.
		logger.Warn("OPENAI_API_KEY not set, using mock embeddings")
		embedder = embedding.NewMockEmbedder(cfg.OpenAI.Dimensions)
	}

	retrieverOpts := []retrieval.EngineOption{}
	if debug {
		retrieverOpts = append(retrieverOpts, retrieval.WithLogger(logger))
	}
	retriever := retrieval.NewEngine(docs, embedder,
		cfg.Retrieval.MaxResults, cfg.Retrieval.ContextWindow, retrieverOpts...)

	pipeline := ingest.NewPipeline(extract.NewExtractor(),
		chunker.NewChunker(cfg.Ingest.ChunkMaxChars, cfg.Ingest.TextChunkWords, cfg.Ingest.TextChunkOverlap),
		embedder, docs, ingest.WithLogger(logger))

	components := &Components{
		Docs:      docs,
		Charts:    charts,
		Embedder:  embedder,
		Retriever: retriever,
		Pipeline:  pipeline,
	}

	if cfg.OpenAI.APIKey != "" {
		completer, err := completion.NewOpenAIService(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.CompletionModel)
		if err != nil {
			components.Close()
			return nil, fmt.Errorf("failed to initialize completion service: %w", err)
		}
		components.Completer = completer
		components.Syncer = chartsync.NewEngine(retriever, completer, charts,
			cfg.Sync.ContextQuery, cfg.Sync.ContextResults, cfg.Sync.Concurrency,
			time.Duration(cfg.Sync.PerChartTimeoutSecs)*time.Second,
			chartsync.WithLogger(logger))
	} else {
		logger.Warn("OPENAI_API_KEY not set, query and chart sync are disabled")
	}

	return components, nil
}

// rebuildPipelineWithSync recreates the pipeline with the sync trigger wired
// in, so chart regeneration fires after every committed content change.
func rebuildPipelineWithSync(cfg *config.Config, components *Components, logger *zap.Logger, debug bool) *ingest.Pipeline {
	syncer := components.Syncer
	trigger := func(ctx context.Context, projectID int64) {
		go func() {
			if _, err := syncer.SyncProject(context.Background(), projectID); err != nil {
				logger.Warn("chart sync after ingest failed",
					zap.Int64("project_id", projectID), zap.Error(err))
			}
		}()
	}
	return ingest.NewPipeline(extract.NewExtractor(),
		chunker.NewChunker(cfg.Ingest.ChunkMaxChars, cfg.Ingest.TextChunkWords, cfg.Ingest.TextChunkOverlap),
		components.Embedder, components.Docs,
		ingest.WithLogger(logger), ingest.WithSyncTrigger(trigger))
}

func printUsage() {
	fmt.Println(`greenfinance - project document ingestion, retrieval, and chart sync

Usage:
  greenfinance server [flags]                    Start the HTTP server
  greenfinance ingest [flags] <file-or-dir>      Ingest files into a project
  greenfinance upload [flags] <file>             Upload a file via a running server
  greenfinance query [flags] <question>          Ask a question about a project
  greenfinance sync --project <id>               Regenerate a project's charts
  greenfinance delete [flags] <source-path>      Remove a file from the index
  greenfinance status --project <id>             Show project index status
  greenfinance version                           Show version
  greenfinance help                              Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/greenfinance/config.yaml)
  --debug            Enable debug logging (file events, sync progress, etc.)

Ingest Flags:
  --config string    Config file path
  --project int      Project id (required)
  --name string      Project name used in chunk headers

Query Flags:
  --server string    Server URL (default: http://localhost:8080)
  --project int      Project id (required)
  --output string    Output format: text or json (default: text)

Examples:
  greenfinance server
  greenfinance ingest --project 1 --name "Solar Farm" costs.xlsx
  greenfinance query --project 1 "what was the total installation cost"
  greenfinance sync --project 1
  greenfinance delete --project 1 costs.xlsx
  greenfinance status --project 1`)
}
