// pathsyncd es el agente de sincronización: construye el snapshot inicial
// del catálogo, consume el feed de eventos y empuja los cambios de paths al
// servicio de autorización remoto. Expone una superficie administrativa con
// status, dump de imagen, resync manual y métricas.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/pathsync/internal/catalog"
	catalogpg "github.com/dropDatabas3/pathsync/internal/catalog/pg"
	"github.com/dropDatabas3/pathsync/internal/config"
	httpx "github.com/dropDatabas3/pathsync/internal/http"
	"github.com/dropDatabas3/pathsync/internal/metrics"
	"github.com/dropDatabas3/pathsync/internal/notify"
	"github.com/dropDatabas3/pathsync/internal/observability/logger"
	"github.com/dropDatabas3/pathsync/internal/paths"
	"github.com/dropDatabas3/pathsync/internal/syncer"
	"github.com/dropDatabas3/pathsync/internal/util"
)

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func loadConfig() *config.Config {
	var (
		flagConfigPath = flag.String("config", "", "ruta a config.yaml (fallback: $CONFIG_PATH o configs/config.yaml)")
		flagEnvOnly    = flag.Bool("env", false, "usar SOLO env (y .env si se pasa -env-file)")
		flagEnvFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
	)
	flag.Parse()

	if *flagEnvFile != "" && (fileExists(*flagEnvFile) || *flagEnvOnly) {
		if err := godotenv.Load(*flagEnvFile); err == nil {
			log.Printf("dotenv: cargado %s", *flagEnvFile)
		}
	}

	var cfg *config.Config
	var err error
	if *flagEnvOnly {
		cfg, err = config.LoadFromEnv()
	} else {
		path := *flagConfigPath
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		if path == "" {
			if fileExists("configs/config.yaml") {
				path = "configs/config.yaml"
			} else {
				path = "configs/config.example.yaml"
			}
		}
		cfg, err = config.Load(path)
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func main() {
	cfg := loadConfig()

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "pathsyncd",
	})
	defer func() { _ = logger.Sync() }()
	lg := logger.Named("main")

	if cfg.Catalog.DSN == "" {
		lg.Fatal("catalog.dsn faltante: sin metastore no hay nada que sincronizar")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ───── catálogo: store + crawler ─────
	store, err := catalogpg.New(ctx, cfg.Catalog.DSN, catalogpg.Config{
		MaxOpenConns:    cfg.Catalog.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Catalog.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Catalog.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		lg.Fatal("no se pudo abrir el catálogo", logger.Err(err))
	}
	defer store.Close()

	parse := func(raw string) ([]string, error) {
		return paths.ParsePath(raw, cfg.Sync.Schemes...)
	}

	crawler, err := catalog.NewCrawler(catalog.CrawlerConfig{
		Store:       store,
		Parse:       parse,
		Concurrency: cfg.Catalog.CrawlConcurrency,
	})
	if err != nil {
		lg.Fatal("crawler", logger.Err(err))
	}

	// ───── controller de sincronización ─────
	ctrl, err := syncer.New(syncer.Config{
		Initializer: crawler,
		Remote: func() (notify.Client, error) {
			return notify.Dial(notify.HTTPConfig{
				BaseURL:      cfg.Remote.BaseURL,
				SharedSecret: cfg.Remote.SharedSecret,
				Timeout:      cfg.RemoteTimeout(),
				Subject:      "pathsyncd",
			})
		},
		Parse:        parse,
		Schemes:      cfg.Sync.Schemes,
		InitialDelay: cfg.SyncInitialDelay(),
		Period:       cfg.SyncPeriod(),
		AsyncInit:    cfg.Sync.AsyncInit,
	})
	if err != nil {
		lg.Fatal("controller", logger.Err(err))
	}
	defer func() { _ = ctrl.Close() }()

	// ───── feed de eventos del catálogo ─────
	feed, err := catalog.NewFeed(catalog.FeedConfig{
		DSN:      cfg.Catalog.DSN,
		Channel:  cfg.Catalog.Channel,
		Listener: ctrl,
	})
	if err != nil {
		lg.Fatal("feed", logger.Err(err))
	}
	go func() {
		if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
			// El agente sigue vivo para que status/metrics cuenten qué pasó.
			lg.Error("feed terminado", logger.Err(err))
		}
	}()

	// ───── superficie administrativa ─────
	if err := metrics.RegisterSync(prometheus.DefaultRegisterer); err != nil {
		lg.Fatal("metrics", logger.Err(err))
	}
	metricsHandler, err := httpx.RegisterMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		lg.Fatal("metrics http", logger.Err(err))
	}

	r := chi.NewRouter()
	r.Use(httpx.WithRequestID(), httpx.WithLogging(), httpx.WithRecover(), httpx.WithMetrics())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		st := ctrl.Status()
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "phase": st.Phase})
	})
	r.Handle("/metrics", metricsHandler)
	r.Get("/v1/admin/status", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, ctrl.Status())
	})
	r.Get("/v1/admin/image", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, ctrl.Dump())
	})
	r.Post("/v1/admin/resync", func(w http.ResponseWriter, req *http.Request) {
		rctx, cancel := context.WithTimeout(req.Context(), 30*time.Second)
		defer cancel()
		httpx.WriteJSON(w, http.StatusOK, ctrl.Resync(rctx))
	})

	lg.Info("pathsyncd arriba",
		logger.Addr(cfg.Agent.AdminAddr),
		logger.String("remote", cfg.Remote.BaseURL),
		logger.String("catalog", util.MaskDSN(cfg.Catalog.DSN)),
		logger.String("channel", cfg.Catalog.Channel),
		logger.Bool("async_init", cfg.Sync.AsyncInit))

	if err := httpx.Serve(ctx, cfg.Agent.AdminAddr, r); err != nil {
		lg.Fatal("http", logger.Err(err))
	}
	lg.Info("pathsyncd detenido")
}
