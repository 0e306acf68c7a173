package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(writeTemp(t, "app:\n  env: dev\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Sync.Period != "60s" || c.Sync.InitialDelay != "10s" {
		t.Fatalf("sync defaults = %q/%q", c.Sync.InitialDelay, c.Sync.Period)
	}
	if got := c.SyncPeriod(); got != 60*time.Second {
		t.Fatalf("SyncPeriod() = %v", got)
	}
	if len(c.Sync.Schemes) != 1 || c.Sync.Schemes[0] != "hdfs" {
		t.Fatalf("schemes = %v", c.Sync.Schemes)
	}
	if c.Catalog.Channel != "catalog_events" {
		t.Fatalf("channel = %q", c.Catalog.Channel)
	}
	if c.Receiver.Persistence.Driver != "memory" {
		t.Fatalf("persistence driver = %q", c.Receiver.Persistence.Driver)
	}
}

func TestLoadYAMLValues(t *testing.T) {
	yaml := `
app:
  env: prod
log:
  level: warn
sync:
  initial_delay: 3s
  period: 30s
  async_init: true
  schemes: [hdfs, viewfs]
remote:
  base_url: http://authzd:9000
  shared_secret: s3cret
catalog:
  dsn: postgres://u:p@localhost/catalog
  crawl_concurrency: 8
receiver:
  persistence:
    driver: redis
    redis:
      addr: redis:6379
      db: 2
`
	c, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.App.Env != "prod" || c.Log.Level != "warn" {
		t.Fatalf("app/log = %q/%q", c.App.Env, c.Log.Level)
	}
	if !c.Sync.AsyncInit || c.SyncInitialDelay() != 3*time.Second || c.SyncPeriod() != 30*time.Second {
		t.Fatalf("sync = %+v", c.Sync)
	}
	if len(c.Sync.Schemes) != 2 {
		t.Fatalf("schemes = %v", c.Sync.Schemes)
	}
	if c.Remote.BaseURL != "http://authzd:9000" || c.Remote.SharedSecret != "s3cret" {
		t.Fatalf("remote = %+v", c.Remote)
	}
	if c.Catalog.CrawlConcurrency != 8 {
		t.Fatalf("crawl_concurrency = %d", c.Catalog.CrawlConcurrency)
	}
	if c.Receiver.Persistence.Driver != "redis" || c.Receiver.Persistence.Redis.DB != 2 {
		t.Fatalf("persistence = %+v", c.Receiver.Persistence)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SYNC_PERIOD", "5s")
	t.Setenv("SYNC_ASYNC_INIT", "true")
	t.Setenv("SYNC_SCHEMES", "hdfs, s3a")
	t.Setenv("REMOTE_BASE_URL", "http://override:1234")
	t.Setenv("CATALOG_DSN", "postgres://env")
	t.Setenv("REDIS_DB", "7")

	c, err := Load(writeTemp(t, "sync:\n  period: 60s\nremote:\n  base_url: http://yaml\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.SyncPeriod() != 5*time.Second {
		t.Fatalf("period = %v, el env tiene que pisar al yaml", c.SyncPeriod())
	}
	if !c.Sync.AsyncInit {
		t.Fatalf("async_init no tomó el override")
	}
	if len(c.Sync.Schemes) != 2 || c.Sync.Schemes[1] != "s3a" {
		t.Fatalf("schemes = %v", c.Sync.Schemes)
	}
	if c.Remote.BaseURL != "http://override:1234" {
		t.Fatalf("base_url = %q", c.Remote.BaseURL)
	}
	if c.Catalog.DSN != "postgres://env" {
		t.Fatalf("dsn = %q", c.Catalog.DSN)
	}
	if c.Receiver.Persistence.Redis.DB != 7 {
		t.Fatalf("redis db = %d", c.Receiver.Persistence.Redis.DB)
	}
}

func TestInvalidDurationFails(t *testing.T) {
	if _, err := Load(writeTemp(t, "sync:\n  period: luego\n")); err == nil {
		t.Fatalf("esperaba error con duración inválida")
	}
	t.Setenv("REMOTE_TIMEOUT", "not-a-duration")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("esperaba error con REMOTE_TIMEOUT inválido")
	}
}
