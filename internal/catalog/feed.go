package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/pathsync/internal/observability/logger"
	"github.com/dropDatabas3/pathsync/internal/syncer"
)

// Operaciones que puede traer un evento del canal.
const (
	OpAdd       = "add"
	OpRemove    = "remove"
	OpRemoveAll = "remove_all"
	OpRename    = "rename"
)

// defaultFeedRetry es la espera entre reintentos de conexión del feed.
const defaultFeedRetry = 5 * time.Second

// Event es el payload JSON que publica el catálogo en el canal NOTIFY.
type Event struct {
	ID       string   `json:"id"`
	Op       string   `json:"op"`
	Object   string   `json:"object"`
	Path     string   `json:"path,omitempty"`
	Children []string `json:"children,omitempty"`
	// Solo para op=rename: destino del objeto/path.
	NewObject string `json:"new_object,omitempty"`
	NewPath   string `json:"new_path,omitempty"`
}

// decodeEvent parsea y valida un payload del canal. Un payload inválido se
// reporta como error para que el caller lo descarte sin cortar el feed.
func decodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("catalog: payload no es JSON: %w", err)
	}
	if ev.Object == "" {
		return Event{}, errors.New("catalog: evento sin object")
	}
	switch ev.Op {
	case OpAdd, OpRemove:
		if ev.Path == "" {
			return Event{}, fmt.Errorf("catalog: evento %s sin path", ev.Op)
		}
	case OpRemoveAll:
		// children puede venir vacío: borra solo el objeto.
	case OpRename:
		if ev.Path == "" || ev.NewObject == "" || ev.NewPath == "" {
			return Event{}, errors.New("catalog: rename incompleto")
		}
	default:
		return Event{}, fmt.Errorf("catalog: op desconocida %q", ev.Op)
	}
	if ev.ID == "" {
		// Correlación en logs aunque el emisor no mande id.
		ev.ID = uuid.NewString()
	}
	return ev, nil
}

// FeedConfig arma un Feed.
type FeedConfig struct {
	// DSN de Postgres; el feed abre su propia conexión dedicada (LISTEN
	// no funciona sobre un pool).
	DSN string
	// Channel del NOTIFY. Default: "catalog_events".
	Channel string
	// Listener recibe los eventos decodificados.
	Listener syncer.Listener
	// Retry entre reintentos de conexión. Default: 5s.
	Retry time.Duration
}

// Feed consume el canal LISTEN/NOTIFY del catálogo y traduce cada evento en
// una llamada al Listener. Corre hasta que el contexto se cancela; las
// caídas de conexión se reintentan solas. Solo se detiene por sí mismo si
// el controlador quedó en estado terminal.
type Feed struct {
	dsn      string
	channel  string
	listener syncer.Listener
	retry    time.Duration
	log      *zap.Logger
}

// NewFeed valida la config y devuelve el feed listo para Run.
func NewFeed(cfg FeedConfig) (*Feed, error) {
	if cfg.DSN == "" {
		return nil, errors.New("catalog: FeedConfig.DSN es obligatorio")
	}
	if cfg.Listener == nil {
		return nil, errors.New("catalog: FeedConfig.Listener es obligatorio")
	}
	ch := cfg.Channel
	if ch == "" {
		ch = "catalog_events"
	}
	retry := cfg.Retry
	if retry <= 0 {
		retry = defaultFeedRetry
	}
	return &Feed{
		dsn:      cfg.DSN,
		channel:  ch,
		listener: cfg.Listener,
		retry:    retry,
		log:      logger.Named("catalog.feed"),
	}, nil
}

// Run bloquea consumiendo el canal hasta que ctx se cancele. Devuelve
// ctx.Err() en shutdown normal, o el error terminal del listener.
func (f *Feed) Run(ctx context.Context) error {
	for {
		err := f.consume(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, syncer.ErrInitFailed):
			f.log.Error("listener en estado terminal; feed detenido", logger.Err(err))
			return err
		}
		f.log.Warn("conexión del feed caída; se reintenta",
			logger.Err(err), logger.Duration(f.retry))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.retry):
		}
	}
}

// consume abre una conexión dedicada, se suscribe al canal y despacha
// notificaciones hasta el primer error.
func (f *Feed) consume(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, f.dsn)
	if err != nil {
		return fmt.Errorf("catalog: conectando feed: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		return fmt.Errorf("catalog: LISTEN %s: %w", f.channel, err)
	}
	f.log.Info("feed suscripto al canal de eventos", logger.String("channel", f.channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ev, err := decodeEvent(n.Payload)
		if err != nil {
			f.log.Warn("payload de evento inválido; se descarta",
				logger.Err(err), logger.String("payload", n.Payload))
			continue
		}
		if err := f.dispatch(ev); err != nil {
			return err
		}
	}
}

// dispatch traduce un evento ya validado en la llamada correspondiente del
// Listener. El error del listener (solo init fallida) se propaga tal cual.
func (f *Feed) dispatch(ev Event) error {
	f.log.Debug("evento de catálogo",
		logger.String("event_id", ev.ID), logger.Op(ev.Op), logger.Object(ev.Object))
	switch ev.Op {
	case OpAdd:
		return f.listener.OnPathAdded(ev.Object, ev.Path)
	case OpRemove:
		return f.listener.OnPathRemoved(ev.Object, ev.Path)
	case OpRemoveAll:
		return f.listener.OnPathsRemoved(ev.Object, ev.Children)
	case OpRename:
		return f.listener.OnRenamed(ev.Object, ev.Path, ev.NewObject, ev.NewPath)
	}
	return nil
}
