// authzd es el servicio de autorización: mantiene la réplica del cache de
// paths que le empuja el agente y contesta el último seq visto para que la
// reconciliación detecte divergencia. El estado puede persistirse en redis
// para sobrevivir reinicios sin esperar el próximo resync.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/pathsync/internal/cache"
	"github.com/dropDatabas3/pathsync/internal/config"
	httpx "github.com/dropDatabas3/pathsync/internal/http"
	"github.com/dropDatabas3/pathsync/internal/metrics"
	"github.com/dropDatabas3/pathsync/internal/observability/logger"
	"github.com/dropDatabas3/pathsync/internal/receiver"
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
		ServiceName: "authzd",
	})
	defer func() { _ = logger.Sync() }()
	lg := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ───── persistencia del estado ─────
	store, err := cache.New(cache.Config{
		Driver:   cfg.Receiver.Persistence.Driver,
		Addr:     cfg.Receiver.Persistence.Redis.Addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       cfg.Receiver.Persistence.Redis.DB,
		Prefix:   cfg.Receiver.Persistence.Redis.Prefix,
	})
	if err != nil {
		lg.Fatal("persistencia", logger.Err(err))
	}
	defer func() { _ = store.Close() }()

	svc := receiver.NewService(ctx, receiver.Config{Store: store})

	// ───── HTTP ─────
	if err := metrics.RegisterReceiver(prometheus.DefaultRegisterer); err != nil {
		lg.Fatal("metrics", logger.Err(err))
	}
	metricsHandler, err := httpx.RegisterMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		lg.Fatal("metrics http", logger.Err(err))
	}

	if cfg.Receiver.SharedSecret == "" {
		lg.Warn("receiver sin shared secret: requests sin autenticación (solo dev)")
	}

	r := chi.NewRouter()
	r.Use(httpx.WithRequestID(), httpx.WithLogging(), httpx.WithRecover(), httpx.WithMetrics())
	r.Handle("/metrics", metricsHandler)
	receiver.NewAPI(svc, cfg.Receiver.SharedSecret).Register(r)

	lg.Info("authzd arriba",
		logger.Addr(cfg.Receiver.Addr),
		logger.Driver(cfg.Receiver.Persistence.Driver),
		logger.RemoteSeq(svc.LastSeen()),
		logger.Int("objects", svc.Objects()))

	if err := httpx.Serve(ctx, cfg.Receiver.Addr, r); err != nil {
		lg.Fatal("http", logger.Err(err))
	}
	lg.Info("authzd detenido")
}
