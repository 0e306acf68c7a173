// mkevent publica un evento de catálogo a mano en el canal NOTIFY, sin
// tocar las tablas. Sirve para probar el feed del agente en desarrollo.
//
// Uso: go run tools/mkevent.go <op> <object> [path] [new_object] [new_path]
// Ejemplos:
//
//	go run tools/mkevent.go add db1.t1 hdfs://nn/warehouse/db1/t1
//	go run tools/mkevent.go remove_all db1
//	go run tools/mkevent.go rename db1.t1 /w/db1/t1 db1.t2 /w/db1/t2
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Uso: go run mkevent.go <op> <object> [path] [new_object] [new_path]")
	}

	dsn := os.Getenv("CATALOG_DSN")
	if dsn == "" {
		log.Fatal("CATALOG_DSN faltante")
	}
	channel := os.Getenv("CATALOG_CHANNEL")
	if channel == "" {
		channel = "catalog_events"
	}

	ev := map[string]any{
		"id":     uuid.NewString(),
		"op":     os.Args[1],
		"object": os.Args[2],
	}
	if len(os.Args) > 3 {
		ev["path"] = os.Args[3]
	}
	if len(os.Args) > 5 {
		ev["new_object"] = os.Args[4]
		ev["new_path"] = os.Args[5]
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "SELECT pg_notify($1, $2)", channel, string(payload)); err != nil {
		log.Fatalf("pg_notify: %v", err)
	}
	fmt.Printf("publicado en %s: %s\n", channel, payload)
}
