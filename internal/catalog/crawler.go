package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/pathsync/internal/observability/logger"
	"github.com/dropDatabas3/pathsync/internal/paths"
)

// defaultCrawlConcurrency limita las databases consultadas en paralelo
// cuando la config no dice otra cosa.
const defaultCrawlConcurrency = 4

// CrawlerConfig arma un Crawler.
type CrawlerConfig struct {
	Store Store
	// Parse normaliza una location cruda a segmentos. Obligatorio: el
	// crawler no decide esquemas por su cuenta.
	Parse func(raw string) ([]string, error)
	// Concurrency acota cuántas databases se recorren en paralelo.
	// Default: 4.
	Concurrency int
}

// Crawler recorre el catálogo completo y construye el snapshot inicial del
// cache de paths. Implementa la fase de arranque del agente: una pasada
// masiva database → tablas → particiones.
type Crawler struct {
	store   Store
	parse   func(string) ([]string, error)
	workers int
	log     *zap.Logger
}

// NewCrawler valida la config y devuelve el crawler listo para usar.
func NewCrawler(cfg CrawlerConfig) (*Crawler, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("catalog: CrawlerConfig.Store es obligatorio")
	}
	if cfg.Parse == nil {
		return nil, fmt.Errorf("catalog: CrawlerConfig.Parse es obligatorio")
	}
	workers := cfg.Concurrency
	if workers <= 0 {
		workers = defaultCrawlConcurrency
	}
	return &Crawler{
		store:   cfg.Store,
		parse:   cfg.Parse,
		workers: workers,
		log:     logger.Named("catalog.crawler"),
	}, nil
}

// BuildSnapshot enumera todas las databases, tablas y particiones y arma el
// árbol de paths. Un error de enumeración aborta el snapshot entero (el
// caller decide qué hacer con un arranque fallido); una location que no
// normaliza solo se omite con un warning, igual que en el flujo de eventos.
func (c *Crawler) BuildSnapshot(ctx context.Context) (*paths.Tree, error) {
	start := time.Now()

	dbs, err := c.store.Databases(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: enumerando databases: %w", err)
	}

	tree := paths.NewTree()
	var mu sync.Mutex // el árbol no es concurrente; serializamos las altas

	add := func(object, raw string) {
		segs, err := c.parse(raw)
		if err != nil {
			c.log.Warn("location no normalizable; se omite del snapshot",
				logger.Object(object), logger.CatalogPath(raw), logger.Err(err))
			return
		}
		mu.Lock()
		tree.AddObjectPath(object, segs)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, db := range dbs {
		db := db
		add(db.Name, db.Location)
		g.Go(func() error {
			tables, err := c.store.Tables(gctx, db.Name)
			if err != nil {
				return fmt.Errorf("catalog: enumerando tablas de %q: %w", db.Name, err)
			}
			for _, t := range tables {
				add(t.Object(), t.Location)
				parts, err := c.store.Partitions(gctx, t.Database, t.Name)
				if err != nil {
					return fmt.Errorf("catalog: enumerando particiones de %q: %w", t.Object(), err)
				}
				for _, p := range parts {
					add(p.Object(), p.Location)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.log.Info("snapshot del catálogo construido",
		logger.Int("databases", len(dbs)),
		logger.Int("objects", tree.Len()),
		logger.Duration(time.Since(start)))
	return tree, nil
}
