// Package notify define el boundary con el servicio de autorización remoto:
// push de envelopes y consulta del último seq reconocido. El controller no
// conoce el transporte; habla contra Client y rearma el handle via Factory
// cuando una ronda de reconciliación lo invalida.
package notify

import (
	"context"

	"github.com/dropDatabas3/pathsync/internal/paths"
)

// Client es el handle hacia el servicio remoto.
type Client interface {
	// Push envía un envelope. Best effort: el caller loguea y sigue.
	Push(ctx context.Context, u *paths.Update) error

	// LastSeen devuelve el último número de secuencia que el remoto
	// reconoció haber aplicado.
	LastSeen(ctx context.Context) (int64, error)

	// Close libera el handle. Seguro de llamar más de una vez.
	Close() error
}

// Factory crea un Client nuevo. El controller la invoca lazy en el primer
// uso y de nuevo después de invalidar un handle que falló; la cadencia de
// reintento es el período de reconciliación (sin backoff propio).
type Factory func() (Client, error)

// Ack es la respuesta de wire de push y last-seen.
type Ack struct {
	LastSeen int64 `json:"last_seen"`
}
