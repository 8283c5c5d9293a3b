package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/castellsqa/enxaneta/pkg/answerer"
	"github.com/castellsqa/enxaneta/pkg/config"
	"github.com/castellsqa/enxaneta/pkg/embedders"
	"github.com/castellsqa/enxaneta/pkg/entities"
	"github.com/castellsqa/enxaneta/pkg/llms"
	"github.com/castellsqa/enxaneta/pkg/logger"
	"github.com/castellsqa/enxaneta/pkg/pipeline"
	"github.com/castellsqa/enxaneta/pkg/rag"
	"github.com/castellsqa/enxaneta/pkg/router"
	"github.com/castellsqa/enxaneta/pkg/sqlgen"
	"github.com/castellsqa/enxaneta/pkg/store"
	"github.com/castellsqa/enxaneta/pkg/utils"
	"github.com/castellsqa/enxaneta/pkg/vocab"
)

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Host string `help:"Listen host." default:"0.0.0.0"`
	Port int    `help:"Listen port." default:"8080"`
}

// RouteCmd routes one question and prints the decision as JSON.
type RouteCmd struct {
	Question string `arg:"" help:"Question to route."`
}

// app bundles the wired pipeline with everything that needs closing.
type app struct {
	pipeline *pipeline.Pipeline
	store    *store.Store
	registry *llms.Registry
	embedder embedders.Embedder
	metrics  *pipeline.Metrics
}

func (a *app) close() {
	a.store.Close()
	a.registry.Close()
	a.embedder.Close()
}

// buildApp constructs every stage: store, vocabularies, providers,
// retriever, answerer, router, orchestrator. Vocabularies are prewarmed so
// the first question does not pay the load.
func buildApp(ctx context.Context, cfg *config.Config, withMetrics bool) (*app, error) {
	log := logger.GetLogger()

	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	catalog := vocab.NewCatalog(st)
	if err := catalog.Reload(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("prewarming vocabularies: %w", err)
	}

	registry := llms.NewRegistry()
	routerProvider, err := registry.Resolve(cfg.Pipeline.RouterModel)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("resolving router model: %w", err)
	}
	answerProvider, err := registry.Resolve(cfg.Pipeline.AnswerModel)
	if err != nil {
		st.Close()
		registry.Close()
		return nil, fmt.Errorf("resolving answer model: %w", err)
	}

	embedder, err := embedders.NewOpenAIEmbedder(cfg.Embedder)
	if err != nil {
		st.Close()
		registry.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	extractor := entities.NewExtractor(catalog, entities.DefaultTopN)
	rt, err := router.New(routerProvider, extractor, catalog, cfg.Pipeline.HybridEnabled, log)
	if err != nil {
		st.Close()
		registry.Close()
		embedder.Close()
		return nil, err
	}

	retriever := rag.NewRetriever(embedder,
		rag.NewStore(st.Pool(), cfg.RAG.Probes), cfg.RAG, log)
	ans := answerer.New(answerProvider, log)
	custom := sqlgen.NewCustomGenerator(answerProvider, cfg.Pipeline.ResultLimitUI)

	tokens, err := utils.NewTokenCounter(answerProvider.ModelName())
	if err != nil {
		log.Warn("token counter unavailable, contexts will not be capped", "error", err)
		tokens = nil
	}

	var metrics *pipeline.Metrics
	if withMetrics {
		metrics = pipeline.NewMetrics(prometheus.DefaultRegisterer)
	}

	return &app{
		pipeline: pipeline.New(rt, st, retriever, ans, custom, tokens, cfg.Pipeline, metrics, log),
		store:    st,
		registry: registry,
		embedder: embedder,
		metrics:  metrics,
	}, nil
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	if err := initLogging(cli, cfg); err != nil {
		return err
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Post("/ask", handleAsk(a.pipeline))
	r.Post("/route", handleRoute(a.pipeline))
	r.Get("/healthz", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", c.Host, c.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

func (c *RouteCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	if err := initLogging(cli, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	preview, err := a.pipeline.GetRoute(ctx, pipeline.Request{Content: c.Question})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(preview)
}

func handleAsk(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pipeline.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		resp := p.ProcessQuestion(r.Context(), req)
		writeJSON(w, resp)
	}
}

func handleRoute(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pipeline.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		preview, err := p.GetRoute(r.Context(), req)
		if err != nil {
			logger.GetLogger().Error("route preview failed", "error", err)
			http.Error(w, `{"error":"routing failed"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, preview)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok", "version": Version})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.GetLogger().Error("encoding response", "error", err)
	}
}
