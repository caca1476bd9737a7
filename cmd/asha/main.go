// Package main is the Asha CLI entry point.
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

	"go.uber.org/zap"

	"github.com/herkey/asha/internal/chat"
	"github.com/herkey/asha/internal/cli"
	"github.com/herkey/asha/internal/config"
	"github.com/herkey/asha/internal/embedding"
	"github.com/herkey/asha/internal/keyword"
	"github.com/herkey/asha/internal/models"
	"github.com/herkey/asha/internal/recommender"
	"github.com/herkey/asha/internal/retrieval"
	"github.com/herkey/asha/internal/server"
	"github.com/herkey/asha/internal/sessions"
	"github.com/herkey/asha/internal/vector"
	"github.com/herkey/asha/internal/watcher"
	"github.com/herkey/asha/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/asha/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used instead.
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
	case "chat":
		runChat()
	case "recommend":
		runRecommend()
	case "import":
		runImport()
	case "reindex":
		runReindex()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("asha version %s\n", version)
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

	// Serve from a warm index when the store has sessions the index lacks.
	if !components.Manager.Ready() {
		if count, _ := components.Store.CountSessions(context.Background()); count > 0 {
			if err := components.Recommender.Reindex(context.Background()); err != nil {
				logger.Warn("initial reindex failed", zap.Error(err))
			}
		}
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Storage.SessionsFile != "" {
		rec := components.Recommender
		store := components.Store
		watchSvc := watcher.New(logger, cfg.Storage.SessionsFile, func(path string) {
			ctx := context.Background()
			loaded, err := sessions.LoadSessionsFile(path)
			if err != nil {
				logger.Warn("sessions file reload failed", zap.Error(err))
				return
			}
			for _, s := range loaded {
				if err := store.UpsertSession(ctx, s); err != nil {
					logger.Warn("session upsert failed", zap.String("id", s.ID), zap.Error(err))
				}
			}
			if err := rec.Reindex(ctx); err != nil {
				logger.Warn("reindex after reload failed", zap.Error(err))
			}
		})
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Warn("Failed to start sessions file watcher", zap.Error(err))
		} else {
			defer watchSvc.Stop()
		}
	}

	srv := server.NewServer(
		components.Bot,
		components.Recommender,
		components.Manager,
		components.Store,
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
	if err := components.Manager.Save(); err != nil {
		logger.Warn("vector index save failed", zap.Error(err))
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	userID := fs.String("user", "", "user id for history and recommendations")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: asha chat [flags] <message>")
		os.Exit(1)
	}
	message := strings.TrimSpace(strings.Join(fs.Args(), " "))

	body, _ := json.Marshal(models.ChatRequest{UserID: *userID, Message: message})
	var out models.ChatResponse
	if err := postViaHTTP(*serverURL+"/api/v1/chat", body, &out); err != nil {
		fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out.Reply)
}

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	userID := fs.String("user", "", "user id for the recommendation audit trail")
	topK := fs.Int("top", 0, "number of recommendations (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: asha recommend [flags] <query>")
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	body, _ := json.Marshal(models.RecommendQuery{Query: query, UserID: *userID, TopK: *topK})
	var out models.RecommendResponse
	if err := postViaHTTP(*serverURL+"/api/v1/recommend", body, &out); err != nil {
		fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecommendations(os.Stdout, &out, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// runImport loads sessions from a JSON file into the store and rebuilds both
// indexes. It uses direct storage, so the server should not be running.
func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	path := cfg.Storage.SessionsFile
	if fs.NArg() >= 1 {
		path = fs.Arg(0)
	}
	if path == "" {
		fmt.Println("Usage: asha import [flags] <sessions.json>")
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	loaded, err := sessions.LoadSessionsFile(path)
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	for _, s := range loaded {
		if err := components.Store.UpsertSession(ctx, s); err != nil {
			fmt.Printf("Failed to store session %s: %v\n", s.ID, err)
			os.Exit(1)
		}
	}
	if err := components.Recommender.Reindex(ctx); err != nil {
		fmt.Printf("Reindex failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d session(s) from %s\n", len(loaded), path)
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct storage)")
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		var out map[string]any
		if err := postViaHTTP(*serverURL+"/api/v1/reindex", []byte("{}"), &out); err != nil {
			fmt.Fprintf(os.Stderr, "Reindex failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Reindexed: %v session(s)\n", out["index_size"])
		return
	}

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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := components.Recommender.Reindex(context.Background()); err != nil {
		fmt.Printf("Reindex failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Reindexed: %d session(s)\n", components.Manager.Size())
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
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
		Sessions int64            `json:"sessions"`
		Index    retrieval.Status `json:"index"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
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
		fmt.Printf("sessions:         %d\n", status.Sessions)
		fmt.Printf("index_ready:      %t\n", status.Index.Ready)
		fmt.Printf("index_size:       %d\n", status.Index.Size)
		fmt.Printf("dimensions:       %d\n", status.Index.Dimensions)
		fmt.Printf("topology:         %s\n", status.Index.Topology)
		if status.Index.SearchWidth > 0 {
			fmt.Printf("search_width:     %d\n", status.Index.SearchWidth)
		}
		fmt.Printf("embedding_model:  %s\n", status.Index.EmbeddingModel)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func postViaHTTP(url string, body []byte, out any) error {
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Components holds initialized services.
type Components struct {
	Store       sessions.Store
	Embedder    embedding.Embedder
	Manager     *retrieval.Manager
	Keyword     *keyword.Index
	Recommender *recommender.Recommender
	Bot         *chat.Bot
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Keyword != nil {
		_ = c.Keyword.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := sessions.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	probeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	embedder, err := embedding.NewWithFallback(
		probeCtx,
		logger,
		cfg.Embedding.Host,
		cfg.Embedding.Model,
		cfg.Embedding.FallbackModel,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Warn("no embedding model reachable, using mock embeddings", zap.Error(err))
		embedder = embedding.NewMockEmbedder(384)
	}

	manager := retrieval.NewManager(logger, embedder, retrieval.Options{
		IndexPath: cfg.Storage.VectorIndexPath,
		BatchSize: cfg.Embedding.BatchSize,
		Store: vector.Options{
			FlatThreshold:  cfg.Index.FlatThreshold,
			MaxPartitions:  cfg.Index.MaxPartitions,
			MaxSearchWidth: cfg.Index.MaxSearchWidth,
			TrainIters:     cfg.Index.TrainIters,
		},
	})

	kw, err := keyword.New(cfg.Storage.KeywordIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	rec := recommender.New(logger, manager, kw, store, recommender.Options{
		TopK:           cfg.Recommend.TopK,
		SemanticWeight: cfg.Recommend.SemanticWeight,
		MinQueryLength: cfg.Recommend.MinQueryLength,
	})

	generator := chat.NewOllamaClient(chat.OllamaOptions{
		Host:        cfg.Chat.Host,
		Model:       cfg.Chat.Model,
		MaxTokens:   cfg.Chat.MaxTokens,
		Temperature: cfg.Chat.Temperature,
	})
	bot := chat.NewBot(logger, generator, rec, cfg.Chat.HistoryLimit)

	return &Components{
		Store:       store,
		Embedder:    embedder,
		Manager:     manager,
		Keyword:     kw,
		Recommender: rec,
		Bot:         bot,
	}, nil
}

func printUsage() {
	fmt.Println(`asha - career guidance assistant with session recommendations

Usage:
  asha server [flags]              Start the HTTP server
  asha chat [flags] <message>      Send a chat message
  asha recommend [flags] <query>   Recommend sessions for a query
  asha import [flags] [file]       Import sessions from a JSON file and reindex
  asha reindex [flags]             Rebuild the search indexes
  asha status [flags]              Show store and index status
  asha version                     Show version
  asha help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/asha/config.yaml)
  --debug            Enable debug logging

Chat Flags:
  --server string    Server URL (default: http://localhost:8080)
  --user string      User id for history and recommendations

Recommend Flags:
  --server string    Server URL (default: http://localhost:8080)
  --user string      User id for the recommendation audit trail
  --top int          Number of recommendations (0 = server default)
  --output string    Output format: text or json (default: text)

Import Flags:
  --config string    Config file path; file argument defaults to storage.sessions_file

Reindex Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --config string    Config file path (direct mode)

Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Examples:
  asha server
  asha chat "how do I prepare for a salary negotiation?"
  asha recommend --top 5 leadership
  asha import data/sessions.json
  asha status --output json`)
}
