package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/docqa/internal/api"
	"github.com/kalambet/docqa/internal/assistant"
	"github.com/kalambet/docqa/internal/config"
	"github.com/kalambet/docqa/internal/engine"
	"github.com/kalambet/docqa/internal/reconcile"
	"github.com/kalambet/docqa/internal/retrieval"
	"github.com/kalambet/docqa/internal/storage"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and MCP over HTTP when server.mcp_port is set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPStdio()
	},
}

// app is the wired set of components shared by serve and mcp.
type app struct {
	cfg       config.Config
	store     *storage.Store
	engine    engine.Engine
	index     *retrieval.Index
	assistant *assistant.Assistant
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("closing storage", "error", err)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func newEngine(cfg config.Config) (engine.Engine, error) {
	return engine.Detect(engine.DetectConfig{
		Provider:        cfg.Engine.Provider,
		OllamaBaseURL:   cfg.Ollama.BaseURL,
		OpenAIBaseURL:   cfg.OpenAI.BaseURL,
		OpenAIAPIKey:    cfg.OpenAI.APIKey,
		EmbedDimensions: cfg.Engine.EmbedDim,
		RateLimit:       cfg.OpenAI.RateLimit,
		RequestTimeout:  cfg.Engine.Timeout + 5*time.Second,
	})
}

// openApp loads config and wires storage, the engine, the vector index and
// the assistant.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log.Level)

	eng, err := newEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("configuring inference engine: %w", err)
	}
	if err := engine.EnsureReady(ctx, eng, cfg.Engine.ChatModel, cfg.Engine.EmbedModel, os.Stderr); err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	embedder := retrieval.NewEmbedder(eng, cfg.Engine.EmbedModel, cfg.Engine.EmbedDim)
	index := retrieval.NewIndex(embedder, retrieval.NewSQLiteStore(store.DB(), cfg.Engine.EmbedDim))
	retriever := retrieval.NewRetriever(index, cfg.Retrieval.TopK)

	asst, err := assistant.New(store, index, retriever, eng, assistant.Options{
		ChatModel:         cfg.Engine.ChatModel,
		ModelTimeout:      cfg.Engine.Timeout,
		TopK:              cfg.Retrieval.TopK,
		ChunkSize:         cfg.Chunk.Size,
		ChunkOverlap:      cfg.Chunk.Overlap,
		MaxContextTokens:  cfg.Composer.MaxContextTokens,
		CondenseQuestions: cfg.Chat.CondenseQuestions,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: store, engine: eng, index: index, assistant: asst}, nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "docqa version %s\n", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	if cfg.Server.AuthToken == "" {
		slog.Warn("bearer auth disabled; set DOCQA_AUTH_TOKEN to enable it")
	}

	servers := []*http.Server{{
		Addr: cfg.Server.Addr(),
		Handler: api.NewHandler(api.Deps{
			Service:           a.assistant,
			Token:             cfg.Server.AuthToken,
			MaxUploadBytes:    cfg.Server.MaxUploadBytes(),
			SummarizeOnUpload: cfg.Upload.Summarize,
		}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}}
	if addr := cfg.Server.MCPAddr(); addr != "" {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Service: a.assistant, Version: version})
		servers = append(servers, &http.Server{
			Addr:        addr,
			Handler:     api.BearerAuth(cfg.Server.AuthToken)(server.NewStreamableHTTPServer(mcpSrv)),
			BaseContext: func(_ net.Listener) context.Context { return ctx },
		})
	}

	worker := reconcile.NewWorker(a.store, a.index, cfg.Reconcile.Interval).WithLocker(a.assistant)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	for _, srv := range servers {
		g.Go(func() error {
			slog.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

func runMCPStdio() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	mcpSrv := api.NewMCPServer(api.MCPDeps{Service: a.assistant, Version: version})
	slog.Info("MCP server started (stdio transport)")
	if err := server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}
