// Command curricore serves a curriculum proposal draft to the wizard UI and
// submits it to the curriculum backend.
package main

import (
	"context"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"curricore/internal/adapters/drafts"
	"curricore/internal/blob"
	"curricore/internal/client"
	"curricore/internal/config"
	"curricore/internal/core"
	"curricore/internal/platform/logger"
	"curricore/internal/refcache"
	"curricore/internal/wizard"
	"curricore/pkg/domain"
)

var exitFunc = os.Exit

type options struct {
	envFile  string
	resource string
	recordID uint64
	seed     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.envFile, "env", ".env", "optional .env file with CURRICORE_* keys")
	flag.StringVar(&opts.resource, "resource", "curricula", "backend resource the draft is submitted to")
	flag.Uint64Var(&opts.recordID, "id", 0, "existing record to revise (0 starts a new proposal)")
	flag.BoolVar(&opts.seed, "seed", true, "seed an unmodified draft from the backend on startup")
	flag.Parse()

	cfg, err := config.Load(opts.envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		exitFunc(2)
		return
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		exitFunc(2)
		return
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, opts, log); err != nil {
		log.Error("curricore stopped", "error", err)
		exitFunc(1)
	}
}

func run(ctx context.Context, cfg config.Config, opts options, log *logger.Logger) error {
	store, err := core.OpenDraftStore(ctx, cfg, domain.NewDefaultRulesEngine(), log)
	if err != nil {
		return fmt.Errorf("open draft store: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMetrics, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		return err
	}
	svc := core.NewService(store,
		core.WithLogger(log.With("component", "DraftService")),
		core.WithMetrics(core.MultiMetricsRecorder{promMetrics, core.NewExpvarMetricsRecorder("curricore_draft_metrics")}),
	)

	api, err := client.New(client.Config{
		BaseURL:     cfg.APIBaseURL,
		Role:        cfg.APIRole,
		Tokens:      client.JWTTokenSource{Source: client.StaticToken(cfg.APIToken), Leeway: 30 * time.Second},
		ReadRetries: cfg.APIReadRetries,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	var backend refcache.Backend
	if cfg.RefCacheDriver == "redis" {
		rb, err := refcache.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() { _ = rb.Close() }()
		backend = rb
	}
	refs := refcache.New(backend, api, cfg.APIRole, refcache.WithTTL(cfg.RefCacheTTL), refcache.WithLogger(log))

	blobs, err := blob.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	submitter := core.NewSubmitter(svc, api, core.WithArchive(blob.NewArchive(blobs)))

	target := core.Target{Resource: opts.resource}
	if opts.recordID > 0 {
		target.ID = domain.Persisted(opts.recordID)
	}
	steps := wizard.ForCreation()
	if opts.seed && len(svc.ModifiedSections()) == 0 {
		seeded, err := seed(ctx, svc, api, refs, target, log)
		if err != nil {
			log.Warn("draft not seeded from backend", "error", err)
		} else {
			steps = seeded
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", gin.WrapH(core.MetricsHandler(reg)))
	router.GET("/debug/vars", gin.WrapH(expvar.Handler()))
	drafts.NewHandler(svc, submitter, drafts.WithWizard(steps), drafts.WithReferences(refs)).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("curricore listening", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "blob", blobs.Driver())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seed loads the record under revision (if any) and the reference lists
// into a fresh baseline, and returns the wizard steps for that record.
func seed(ctx context.Context, svc *core.Service, api *client.Client, refs *refcache.Cache, target core.Target, log *logger.Logger) (*wizard.Sequencer, error) {
	var baseline domain.State
	steps := wizard.ForCreation()
	if target.ID.IsPersisted() {
		if err := api.Get(ctx, target.Resource, target.ID, &baseline); err != nil {
			return nil, err
		}
		requests, err := api.Revisions(ctx, target.Resource, target.ID)
		if err != nil {
			return nil, err
		}
		revision, err := wizard.ForRevision(requests)
		switch {
		case err == nil:
			steps = revision
		case !errors.Is(err, wizard.ErrNoSteps):
			return nil, err
		}
	}
	missions, err := refcache.Decode[domain.Mission](ctx, refs, "missions")
	if err != nil {
		return nil, err
	}
	attributes, err := refcache.Decode[domain.GraduateAttribute](ctx, refs, "graduate-attributes")
	if err != nil {
		return nil, err
	}
	baseline.Missions = missions
	baseline.GraduateAttributes = attributes
	if err := svc.Initialize(ctx, baseline); err != nil {
		return nil, err
	}
	log.Info("draft seeded", "resource", target.Resource, "id", target.ID, "steps", steps.Steps())
	return steps, nil
}
