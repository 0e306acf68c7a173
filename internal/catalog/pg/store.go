// Package pg implementa catalog.Store sobre Postgres con pgx.
package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/pathsync/internal/catalog"
	"github.com/dropDatabas3/pathsync/internal/observability/logger"
)

// Config afina el pool. Los ceros usan los defaults de pgxpool.
type Config struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

// Store consulta las tablas de catálogo. Seguro para uso concurrente: el
// pool de pgx maneja las conexiones.
type Store struct{ pool *pgxpool.Pool }

// New abre el pool contra el DSN. El ping inicial es best-effort: si la DB
// está caída el proceso arranca igual y el pool reintenta al primer uso.
func New(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	// pgxpool no tiene idle conns; MinConns es el equivalente práctico.
	if cfg.MaxIdleConns > 0 {
		pcfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
			pcfg.MaxConnIdleTime = d
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	log := logger.Named("catalog.pg")
	if err := pool.Ping(ctx); err != nil {
		log.Warn("ping inicial a postgres falló; se sigue igual", logger.Err(err))
	} else {
		log.Info("pool de postgres listo", logger.Int("max_conns", int(pcfg.MaxConns)))
	}
	return &Store{pool: pool}, nil
}

// Pool expone el pool interno (migraciones, health checks).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Ping verifica la conexión.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Databases devuelve todas las bases del catálogo ordenadas por nombre.
func (s *Store) Databases(ctx context.Context) ([]catalog.Database, error) {
	const q = `
SELECT name, location
FROM catalog_databases
ORDER BY name;`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Database
	for rows.Next() {
		var d catalog.Database
		if err := rows.Scan(&d.Name, &d.Location); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Tables devuelve las tablas de una base ordenadas por nombre.
func (s *Store) Tables(ctx context.Context, db string) ([]catalog.Table, error) {
	const q = `
SELECT database_name, name, location
FROM catalog_tables
WHERE database_name = $1
ORDER BY name;`
	rows, err := s.pool.Query(ctx, q, db)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Table
	for rows.Next() {
		var t catalog.Table
		if err := rows.Scan(&t.Database, &t.Name, &t.Location); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Partitions devuelve las particiones de una tabla ordenadas por nombre.
func (s *Store) Partitions(ctx context.Context, db, table string) ([]catalog.Partition, error) {
	const q = `
SELECT database_name, table_name, name, location
FROM catalog_partitions
WHERE database_name = $1 AND table_name = $2
ORDER BY name;`
	rows, err := s.pool.Query(ctx, q, db, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Partition
	for rows.Next() {
		var p catalog.Partition
		if err := rows.Scan(&p.Database, &p.Table, &p.Name, &p.Location); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
