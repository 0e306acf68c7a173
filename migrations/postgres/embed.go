// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contiene las migraciones del catálogo para Postgres. cmd/migrate las
// usa como fallback cuando el directorio no está en el filesystem (binarios
// desplegados sin el árbol de fuentes).
//
//go:embed *.sql
var FS embed.FS
