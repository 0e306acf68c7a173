// seed carga un catálogo demo (databases, tablas y particiones) para probar
// el agente de punta a punta. Los inserts disparan los triggers del feed:
// un pathsyncd corriendo los ve llegar como eventos.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dropDatabas3/pathsync/internal/config"
)

func strEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.example.yaml", "Path al YAML de config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if cfg.Catalog.DSN == "" {
		log.Fatal("catalog.dsn vacío: seteá CATALOG_DSN o el bloque catalog del YAML")
	}

	root := strings.TrimRight(strEnv("SEED_WAREHOUSE_ROOT", "hdfs://nn:8020/warehouse"), "/")

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Catalog.DSN)
	if err != nil {
		log.Fatalf("pgxpool: %v", err)
	}
	defer pool.Close()

	databases := []struct {
		name   string
		tables []string
	}{
		{"ventas", []string{"ordenes", "clientes"}},
		{"analytics", []string{"eventos"}},
	}

	tablesSeeded := 0
	for _, db := range databases {
		loc := fmt.Sprintf("%s/%s.db", root, db.name)
		if _, err := pool.Exec(ctx, `
			INSERT INTO catalog_databases (name, location)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET location = EXCLUDED.location
		`, db.name, loc); err != nil {
			log.Fatalf("seed database %s: %v", db.name, err)
		}

		for _, tbl := range db.tables {
			tloc := fmt.Sprintf("%s/%s", loc, tbl)
			if _, err := pool.Exec(ctx, `
				INSERT INTO catalog_tables (database_name, name, location)
				VALUES ($1, $2, $3)
				ON CONFLICT (database_name, name) DO UPDATE SET location = EXCLUDED.location
			`, db.name, tbl, tloc); err != nil {
				log.Fatalf("seed table %s.%s: %v", db.name, tbl, err)
			}
			tablesSeeded++

			for day := 1; day <= 2; day++ {
				pname := fmt.Sprintf("dt=2025-08-%02d", day)
				ploc := fmt.Sprintf("%s/%s", tloc, pname)
				if _, err := pool.Exec(ctx, `
					INSERT INTO catalog_partitions (database_name, table_name, name, location)
					VALUES ($1, $2, $3, $4)
					ON CONFLICT (database_name, table_name, name) DO UPDATE SET location = EXCLUDED.location
				`, db.name, tbl, pname, ploc); err != nil {
					log.Fatalf("seed partition %s.%s/%s: %v", db.name, tbl, pname, err)
				}
			}
		}
	}

	log.Printf("seed listo: %d databases, %d tablas (root=%s). Los triggers ya publicaron los eventos.",
		len(databases), tablesSeeded, root)
}
