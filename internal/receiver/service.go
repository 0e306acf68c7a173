// Package receiver implementa el lado autorización del protocolo: recibe
// envelopes numerados del agente, mantiene la réplica del cache de paths y
// contesta el último seq visto para la reconciliación.
package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dropDatabas3/pathsync/internal/cache"
	"github.com/dropDatabas3/pathsync/internal/metrics"
	"github.com/dropDatabas3/pathsync/internal/observability/logger"
	"github.com/dropDatabas3/pathsync/internal/paths"
)

// stateKey es la clave del estado persistido (el cache.Client ya aplica su
// prefijo por servicio).
const stateKey = "sync:state"

// ErrNilUpdate: el body no trajo un envelope.
var ErrNilUpdate = errors.New("receiver: update nulo")

// persistedState es el snapshot que sobrevive reinicios: el último seq
// visto y la imagen completa del cache como envelope.
type persistedState struct {
	LastSeen int64         `json:"last_seen"`
	Image    *paths.Update `json:"image"`
}

// Config arma un Service.
type Config struct {
	// Store persiste imagen y last seen entre reinicios. Nil = el estado
	// vive solo en memoria (un reinicio vuelve a last seen 0 y fuerza el
	// resync de imagen completa en la próxima reconciliación del agente).
	Store cache.Client
}

// Service mantiene la réplica del cache de paths y el contrato de
// idempotencia del protocolo: los envelopes incrementales con seq viejo se
// descartan, las imágenes completas reemplazan el contenido siempre.
type Service struct {
	mu       sync.RWMutex
	tree     *paths.Tree
	lastSeen int64

	store cache.Client
	log   *zap.Logger
}

// NewService crea el servicio y, si hay store, restaura el último estado
// persistido. Un estado ilegible no impide el arranque: se parte de cero y
// la reconciliación del agente repara.
func NewService(ctx context.Context, cfg Config) *Service {
	s := &Service{
		tree:  paths.NewTree(),
		store: cfg.Store,
		log:   logger.Named("receiver"),
	}
	if s.store != nil {
		s.restore(ctx)
	}
	return s
}

// Apply procesa un envelope y devuelve el last seen resultante (el ack).
// Incremental con seq <= lastSeen: descartado sin tocar el cache (retry del
// agente tras un fallo de red, o un agente atrasado). Imagen completa:
// reemplaza el contenido y adopta su seq aunque sea menor, porque la
// reconciliación la estampa con el lastSent vigente, no con un seq nuevo.
func (s *Service) Apply(ctx context.Context, u *paths.Update) (int64, error) {
	if u == nil {
		return 0, ErrNilUpdate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !u.FullImage && u.Seq <= s.lastSeen {
		metrics.ReceiverStaleDropped.Inc()
		s.log.Debug("envelope viejo descartado",
			logger.Seq(u.Seq), logger.RemoteSeq(s.lastSeen))
		return s.lastSeen, nil
	}

	s.tree.Apply(u)
	s.lastSeen = u.Seq
	if u.FullImage {
		metrics.ReceiverApplied.WithLabelValues("full").Inc()
		s.log.Info("imagen completa aplicada",
			logger.Seq(u.Seq), logger.Int("objects", s.tree.Len()))
	} else {
		metrics.ReceiverApplied.WithLabelValues("partial").Inc()
		s.log.Debug("envelope aplicado",
			logger.Seq(u.Seq), logger.Count(len(u.Changes)))
	}
	metrics.ReceiverLastSeen.Set(float64(s.lastSeen))
	metrics.ReceiverObjects.Set(float64(s.tree.Len()))

	s.persistLocked(ctx)
	return s.lastSeen, nil
}

// LastSeen devuelve el último seq aplicado.
func (s *Service) LastSeen() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// Image devuelve el contenido completo de la réplica (objeto -> paths).
func (s *Service) Image() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Dump()
}

// Objects devuelve cuántos objetos tiene la réplica.
func (s *Service) Objects() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// PathsFor devuelve los paths del objeto como strings "/a/b". Nil si no
// tiene entradas.
func (s *Service) PathsFor(object string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	segs := s.tree.PathsFor(object)
	if segs == nil {
		return nil
	}
	out := make([]string, len(segs))
	for i, p := range segs {
		out[i] = "/" + strings.Join(p, "/")
	}
	return out
}

// persistLocked guarda el estado actual. Best-effort: un fallo del store se
// loguea y no corta el request; la verdad autoritativa vive en el agente.
func (s *Service) persistLocked(ctx context.Context) {
	if s.store == nil {
		return
	}
	st := persistedState{
		LastSeen: s.lastSeen,
		Image:    s.tree.FullImageUpdate(s.lastSeen),
	}
	raw, err := json.Marshal(st)
	if err != nil {
		s.log.Warn("no se pudo serializar el estado", logger.Err(err))
		return
	}
	if err := s.store.Set(ctx, stateKey, raw, 0); err != nil {
		s.log.Warn("no se pudo persistir el estado", logger.Err(err))
	}
}

// restore carga el estado persistido si existe.
func (s *Service) restore(ctx context.Context) {
	raw, err := s.store.Get(ctx, stateKey)
	if cache.IsNotFound(err) {
		s.log.Info("sin estado previo; réplica arranca vacía")
		return
	}
	if err != nil {
		s.log.Warn("no se pudo leer el estado persistido; réplica arranca vacía",
			logger.Err(err))
		return
	}
	var st persistedState
	if err := json.Unmarshal(raw, &st); err != nil {
		s.log.Warn("estado persistido corrupto; réplica arranca vacía",
			logger.Err(err))
		return
	}
	if st.Image != nil {
		s.tree.Apply(st.Image)
	}
	s.lastSeen = st.LastSeen
	metrics.ReceiverLastSeen.Set(float64(s.lastSeen))
	metrics.ReceiverObjects.Set(float64(s.tree.Len()))
	s.log.Info("estado restaurado",
		logger.RemoteSeq(s.lastSeen), logger.Int("objects", s.tree.Len()))
}
