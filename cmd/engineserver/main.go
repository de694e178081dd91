// Command engineserver is the HTTP surface around the workflow engine: it
// accepts blueprint submissions, runs them synchronously or asynchronously,
// serves completed results, and applies JSON Patch updates to a stored
// blueprint. Adapted from cmd/runner's bootstrap skeleton and
// cmd/orchestrator's echo setup, repointed at this module's own
// pkg/config/pkg/logger/pkg/store/pkg/cache rather than the teacher's
// common/* equivalents.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/lyzr/orchestrator/pkg/cache"
	"github.com/lyzr/orchestrator/pkg/config"
	"github.com/lyzr/orchestrator/pkg/contextstore"
	"github.com/lyzr/orchestrator/pkg/engine"
	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/executors"
	"github.com/lyzr/orchestrator/pkg/logger"
	"github.com/lyzr/orchestrator/pkg/ratelimit"
	"github.com/lyzr/orchestrator/pkg/rundispatch"
	"github.com/lyzr/orchestrator/pkg/store"
	"github.com/lyzr/orchestrator/pkg/tools"
)

func main() {
	cfg, err := config.Load("engineserver")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)

	blueprintStore := store.BlueprintStore(store.NewInMemory())
	resultStore := store.ResultStore(blueprintStore.(*store.InMemory))

	var engCache enginetypes.Cache
	var rdb *redis.Client
	if cfg.Cache.Enabled && cfg.Cache.Backend == "redis" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Cache.Addr})
		engCache = cache.NewRedisCache(rdb, cfg.Cache.DefaultTTL, log)
		log.Info("using redis-backed cache", "addr", cfg.Cache.Addr)
	} else {
		engCache = cache.NewMemoryCache(cfg.Cache.DefaultTTL, log)
		log.Info("using in-memory cache")
	}

	toolRegistry := tools.NewRegistry()
	toolRegistry.Register(tools.NewHTTPFetch(15 * time.Second))

	agentRegistry := tools.NewAgentRegistry()
	agentRegistry.Register(executors.NewDefaultAgent("default"))

	deps := engine.Dependencies{
		ContextStore:  contextstore.New(),
		Cache:         engCache,
		ToolRegistry:  toolRegistry,
		AgentRegistry: agentRegistry,
		LLMService:    &unconfiguredLLMService{},
		Logger:        log,
		Registry:      blueprintStore,
	}
	eng := engine.New(cfg.Engine, deps, executors.BuildRegistry())

	runQueue := rundispatch.New(256, log)
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()
	runQueue.Start(runCtx, func(ctx context.Context, req rundispatch.RunRequest) error {
		result, err := eng.Run(ctx, req.Workflow, req.InitialContext)
		if err != nil {
			return resultStore.SaveResult(ctx, req.ExecutionID, &enginetypes.WorkflowResult{Success: false, Error: err.Error()})
		}
		return resultStore.SaveResult(ctx, req.ExecutionID, result)
	})

	var limiter *ratelimit.Limiter
	if rdb != nil {
		limiter = ratelimit.New(rdb, log)
	}

	h := &handlers{
		eng:        eng,
		blueprints: blueprintStore,
		results:    resultStore,
		runQueue:   runQueue,
		limiter:    limiter,
		log:        log,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	e.POST("/workflows", h.SubmitWorkflow)
	e.GET("/workflows/:id", h.GetWorkflow)
	e.PATCH("/workflows/:id", h.PatchWorkflow)
	e.POST("/workflows/:id/run", h.RunWorkflow)
	e.GET("/runs/:id", h.GetRun)

	addr := fmt.Sprintf(":%d", cfg.Service.Port)
	go func() {
		log.Info("engineserver starting", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown

	log.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// unconfiguredLLMService rejects every call with a clear error instead of
// silently returning empty completions, so an llm/agent node fails loudly
// until a real provider client is wired in.
// TODO: replace with a real provider client (e.g. OpenAI, Anthropic) read
// from cfg before deploying a workflow that uses llm or agent nodes.
type unconfiguredLLMService struct{}

func (s *unconfiguredLLMService) Generate(_ context.Context, _ enginetypes.LLMConfig, _ string, _ map[string]any, _ []enginetypes.ToolRef, _ time.Duration) (*enginetypes.GenerateResult, error) {
	return nil, fmt.Errorf("no LLM provider configured for this engineserver instance")
}
