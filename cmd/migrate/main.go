// migrate aplica las migraciones del catálogo contra Postgres.
//
// Uso: migrate [-config configs/config.yaml] [-dir migrations/postgres] [up|down] [steps]
// Si el directorio no existe en disco usa las migraciones embebidas en el
// binario.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/pathsync/internal/config"
	"github.com/dropDatabas3/pathsync/internal/util"
	migrations "github.com/dropDatabas3/pathsync/migrations/postgres"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.example.yaml", "Path al YAML de config")
		dir        = flag.String("dir", "migrations/postgres", "Directorio de migraciones (*_up.sql y *_down.sql)")
	)
	flag.Parse()

	// Posicionales: [action] [steps]
	action := "up"
	steps := 0
	args := flag.Args()
	if len(args) >= 1 && args[0] != "" {
		action = strings.ToLower(args[0])
	}
	if len(args) >= 2 {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			steps = n
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if cfg.Catalog.DSN == "" {
		log.Fatal("catalog.dsn vacío: seteá CATALOG_DSN o el bloque catalog del YAML")
	}

	var fsys fs.FS
	if st, err := os.Stat(*dir); err == nil && st.IsDir() {
		fsys = os.DirFS(*dir)
	} else {
		log.Printf("directorio %s no encontrado; uso migraciones embebidas", *dir)
		fsys = migrations.FS
	}

	ctx := context.Background()
	log.Printf("destino: %s", util.MaskDSN(cfg.Catalog.DSN))
	pool, err := pgxpool.New(ctx, cfg.Catalog.DSN)
	if err != nil {
		log.Fatalf("pgxpool: %v", err)
	}
	defer pool.Close()

	switch action {
	case "up":
		upFiles, err := listSQL(fsys, "_up.sql")
		if err != nil {
			log.Fatalf("list up: %v", err)
		}
		if len(upFiles) == 0 {
			log.Println("No hay *_up.sql. Nada que hacer.")
			return
		}
		sort.Strings(upFiles)
		if steps > 0 && steps < len(upFiles) {
			upFiles = upFiles[:steps]
		}
		log.Printf("Aplicando %d migración(es) up...", len(upFiles))
		for _, f := range upFiles {
			if err := execSQLFile(ctx, pool, fsys, f); err != nil {
				log.Fatalf("exec %s: %v", f, err)
			}
		}
		log.Println("Migraciones up completadas.")

	case "down":
		downFiles, err := listSQL(fsys, "_down.sql")
		if err != nil {
			log.Fatalf("list down: %v", err)
		}
		if len(downFiles) == 0 {
			log.Println("No hay *_down.sql. Nada que hacer.")
			return
		}
		sort.Strings(downFiles)
		reverseInPlace(downFiles) // se corren de la más nueva a la más vieja
		if steps > 0 && steps < len(downFiles) {
			downFiles = downFiles[:steps]
		}
		log.Printf("Aplicando %d migración(es) down...", len(downFiles))
		for _, f := range downFiles {
			if err := execSQLFile(ctx, pool, fsys, f); err != nil {
				log.Fatalf("exec %s: %v", f, err)
			}
		}
		log.Println("Migraciones down completadas.")

	default:
		log.Fatalf("acción desconocida %q. Uso: up | down [steps]", action)
	}
}

func listSQL(fsys fs.FS, suffix string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			name := e.Name()
			if strings.HasSuffix(strings.ToLower(name), strings.ToLower(suffix)) {
				out = append(out, name)
			}
		}
	}
	return out, nil
}

func reverseInPlace(ss []string) {
	for i, j := 0, len(ss)-1; i < j; i, j = i+1, j-1 {
		ss[i], ss[j] = ss[j], ss[i]
	}
}

func execSQLFile(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, name string) error {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	start := time.Now()
	if _, err := pool.Exec(ctx, string(b)); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	log.Printf("OK %s (%s)", filepath.Base(name), time.Since(start).Truncate(time.Millisecond))
	return nil
}
