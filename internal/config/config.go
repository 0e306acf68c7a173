package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de los binarios de pathsync. El mismo
// archivo sirve para el agente (pathsyncd) y para el receiver (authzd); cada
// binario lee solo los bloques que le conciernen.
type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		// debug | info | warn | error
		Level string `yaml:"level"`
	} `yaml:"log"`

	// Agent es la superficie administrativa del agente (status, resync,
	// métricas). No es el canal de sincronización: ese sale hacia remote.
	Agent struct {
		AdminAddr string `yaml:"admin_addr"`
	} `yaml:"agent"`

	// Sync gobierna el protocolo: cadencia de reconciliación y modo de
	// inicialización del cache.
	Sync struct {
		// InitialDelay antes de la primera ronda de reconciliación.
		InitialDelay string `yaml:"initial_delay"`
		// Period es la cadencia fija de reconciliación (y la única cadencia
		// de reintento de conexión al remoto).
		Period string `yaml:"period"`
		// AsyncInit construye el snapshot inicial en background; el agente
		// encola eventos hasta que el crawl termina.
		AsyncInit bool `yaml:"async_init"`
		// Schemes de URI aceptados por el normalizador de paths.
		Schemes []string `yaml:"schemes"`
	} `yaml:"sync"`

	// Remote es el servicio de autorización al que el agente empuja updates.
	Remote struct {
		BaseURL      string `yaml:"base_url"`
		SharedSecret string `yaml:"shared_secret"`
		Timeout      string `yaml:"timeout"`
	} `yaml:"remote"`

	// Catalog es el metadata store fuente de verdad (crawl + feed de eventos).
	Catalog struct {
		DSN string `yaml:"dsn"`
		// Channel de LISTEN/NOTIFY con los eventos de catálogo.
		Channel string `yaml:"channel"`
		// CrawlConcurrency limita cuántas bases se enumeran en paralelo
		// durante el snapshot inicial.
		CrawlConcurrency int `yaml:"crawl_concurrency"`
		Postgres         struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"catalog"`

	// Receiver configura authzd, el lado remoto del protocolo.
	Receiver struct {
		Addr         string `yaml:"addr"`
		SharedSecret string `yaml:"shared_secret"`
		Persistence  struct {
			// memory | redis
			Driver string `yaml:"driver"`
			Redis  struct {
				Addr   string `yaml:"addr"`
				DB     int    `yaml:"db"`
				Prefix string `yaml:"prefix"`
			} `yaml:"redis"`
		} `yaml:"persistence"`
	} `yaml:"receiver"`
}

// Load lee el YAML, aplica defaults, pisa con variables de entorno y valida
// las duraciones. El path puede no existir si todo viene por env: en ese caso
// usar LoadFromEnv.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFromEnv arma la config solo desde el entorno (modo -env de los
// binarios), con los mismos defaults y validación que Load.
func LoadFromEnv() (*Config, error) {
	var c Config
	c.applyDefaults()
	c.applyEnvOverrides()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Agent.AdminAddr == "" {
		c.Agent.AdminAddr = ":8084"
	}
	if c.Sync.InitialDelay == "" {
		c.Sync.InitialDelay = "10s"
	}
	if c.Sync.Period == "" {
		c.Sync.Period = "60s"
	}
	if len(c.Sync.Schemes) == 0 {
		c.Sync.Schemes = []string{"hdfs"}
	}
	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = "http://localhost:8085"
	}
	if c.Remote.Timeout == "" {
		c.Remote.Timeout = "10s"
	}
	if c.Catalog.Channel == "" {
		c.Catalog.Channel = "catalog_events"
	}
	if c.Catalog.CrawlConcurrency <= 0 {
		c.Catalog.CrawlConcurrency = 4
	}
	if c.Catalog.Postgres.MaxOpenConns <= 0 {
		c.Catalog.Postgres.MaxOpenConns = 5
	}
	if c.Catalog.Postgres.MaxIdleConns <= 0 {
		c.Catalog.Postgres.MaxIdleConns = 2
	}
	if c.Catalog.Postgres.ConnMaxLifetime == "" {
		c.Catalog.Postgres.ConnMaxLifetime = "30m"
	}
	if c.Receiver.Addr == "" {
		c.Receiver.Addr = ":8085"
	}
	if c.Receiver.Persistence.Driver == "" {
		c.Receiver.Persistence.Driver = "memory"
	}
	if c.Receiver.Persistence.Redis.Addr == "" {
		c.Receiver.Persistence.Redis.Addr = "localhost:6379"
	}
	if c.Receiver.Persistence.Redis.Prefix == "" {
		c.Receiver.Persistence.Redis.Prefix = "authzd"
	}
}

// validate chequea que todas las duraciones expresadas como string parseen.
func (c *Config) validate() error {
	for _, d := range []struct{ name, val string }{
		{"sync.initial_delay", c.Sync.InitialDelay},
		{"sync.period", c.Sync.Period},
		{"remote.timeout", c.Remote.Timeout},
		{"catalog.postgres.conn_max_lifetime", c.Catalog.Postgres.ConnMaxLifetime},
	} {
		if d.val == "" {
			continue
		}
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("config: %s: %w", d.name, err)
		}
	}
	return nil
}

// ---- getters de duración (ya validadas en Load) ----

func (c *Config) SyncInitialDelay() time.Duration { return mustDur(c.Sync.InitialDelay, 10*time.Second) }
func (c *Config) SyncPeriod() time.Duration       { return mustDur(c.Sync.Period, 60*time.Second) }
func (c *Config) RemoteTimeout() time.Duration    { return mustDur(c.Remote.Timeout, 10*time.Second) }

func mustDur(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP / LOG
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}

	// AGENT
	if v, ok := getEnvStr("AGENT_ADMIN_ADDR"); ok {
		c.Agent.AdminAddr = v
	}

	// SYNC
	if v, ok := getEnvStr("SYNC_INITIAL_DELAY"); ok {
		c.Sync.InitialDelay = v
	}
	if v, ok := getEnvStr("SYNC_PERIOD"); ok {
		c.Sync.Period = v
	}
	if v, ok := getEnvBool("SYNC_ASYNC_INIT"); ok {
		c.Sync.AsyncInit = v
	}
	if v, ok := getEnvCSV("SYNC_SCHEMES"); ok && len(v) > 0 {
		c.Sync.Schemes = v
	}

	// REMOTE
	if v, ok := getEnvStr("REMOTE_BASE_URL"); ok {
		c.Remote.BaseURL = v
	}
	if v, ok := getEnvStr("REMOTE_SHARED_SECRET"); ok {
		c.Remote.SharedSecret = v
	}
	if v, ok := getEnvStr("REMOTE_TIMEOUT"); ok {
		c.Remote.Timeout = v
	}

	// CATALOG
	if v, ok := getEnvStr("CATALOG_DSN"); ok {
		c.Catalog.DSN = v
	}
	if v, ok := getEnvStr("CATALOG_CHANNEL"); ok {
		c.Catalog.Channel = v
	}
	if v, ok := getEnvInt("CATALOG_CRAWL_CONCURRENCY"); ok {
		c.Catalog.CrawlConcurrency = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Catalog.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Catalog.Postgres.MaxIdleConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Catalog.Postgres.ConnMaxLifetime = v
	}

	// RECEIVER
	if v, ok := getEnvStr("RECEIVER_ADDR"); ok {
		c.Receiver.Addr = v
	}
	if v, ok := getEnvStr("RECEIVER_SHARED_SECRET"); ok {
		c.Receiver.SharedSecret = v
	}
	if v, ok := getEnvStr("RECEIVER_PERSISTENCE_DRIVER"); ok {
		c.Receiver.Persistence.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Receiver.Persistence.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Receiver.Persistence.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Receiver.Persistence.Redis.Prefix = v
	}
}
