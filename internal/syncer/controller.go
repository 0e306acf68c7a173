package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/pathsync/internal/metrics"
	"github.com/dropDatabas3/pathsync/internal/notify"
	"github.com/dropDatabas3/pathsync/internal/observability/logger"
	"github.com/dropDatabas3/pathsync/internal/paths"
)

// ErrInitFailed marca el estado terminal: el snapshot inicial falló y el
// controlador rechaza todo evento posterior. Los callers pueden detectarlo
// con errors.Is para dejar de entregar eventos.
var ErrInitFailed = errors.New("syncer: snapshot inicial falló")

// =================================================================================
// FRONTERAS DE COLABORACIÓN
// =================================================================================

// Listener es la superficie que el origen de eventos de catálogo invoca.
// Las llamadas devuelven nil en operación normal (los fallos de push se
// absorben); solo devuelven error cuando la inicialización falló.
type Listener interface {
	// OnPathAdded registra un path nuevo para el objeto.
	OnPathAdded(object, path string) error
	// OnPathRemoved quita un path del objeto. El path "*" equivale a
	// quitar el objeto entero.
	OnPathRemoved(object, path string) error
	// OnPathsRemoved quita el objeto entero y los hijos nombrados
	// (se registran como "objeto.hijo").
	OnPathsRemoved(object string, children []string) error
	// OnRenamed mueve un path de un objeto a otro en un solo envelope.
	OnRenamed(oldObject, oldPath, newObject, newPath string) error
}

// Initializer construye el snapshot inicial del cache (el crawl masivo del
// catálogo). Puede tardar lo que necesite; el controlador no impone timeout
// ni cancela una construcción en curso.
type Initializer interface {
	BuildSnapshot(ctx context.Context) (*paths.Tree, error)
}

// Config arma un Controller.
type Config struct {
	Initializer Initializer
	// Remote abre la conexión al servicio remoto. Se invoca lazy en el
	// primer uso y de nuevo tras invalidar un handle que falló.
	Remote notify.Factory
	// Parse normaliza un path crudo a segmentos. Si es nil se usa
	// paths.ParsePath con Schemes.
	Parse func(raw string) ([]string, error)
	// Schemes permitidos por el parser por defecto.
	Schemes []string
	// InitialDelay espera antes de la primera ronda de reconciliación.
	// Default: 10s.
	InitialDelay time.Duration
	// Period es la cadencia fija de reconciliación y la única cadencia de
	// reintento de conexión. Default: 60s.
	Period time.Duration
	// AsyncInit construye el snapshot en una goroutine propia; el
	// controlador acepta eventos de inmediato y los encola hasta el drain.
	AsyncInit bool
}

// =================================================================================
// ESTADOS DE INICIALIZACIÓN
// =================================================================================

type phase int

const (
	phaseInitializing phase = iota
	phaseReady
	phaseFailed
)

func (p phase) String() string {
	switch p {
	case phaseInitializing:
		return "initializing"
	case phaseReady:
		return "ready"
	case phaseFailed:
		return "failed"
	}
	return "unknown"
}

// =================================================================================
// CONTROLLER
// =================================================================================

// Controller serializa aplicar-al-cache + push-remoto por envelope y corre
// la reconciliación periódica. Una instancia por proceso agente; todo el
// estado mutable vive acá, no hay globales.
type Controller struct {
	cfg   Config
	log   *zap.Logger
	parse func(string) ([]string, error)

	seq *paths.Sequence

	// mu serializa mutación del cache, push remoto y reconciliación.
	mu            sync.Mutex
	tree          *paths.Tree
	client        notify.Client
	lastSent      int64
	lastRemoteAck int64
	syncConfirmed bool

	// queueMu protege fase y cola pendiente. Es un lock separado porque la
	// cola tiene que poder usarse mientras el crawl inicial sigue corriendo.
	// Orden de adquisición: queueMu antes que mu, nunca al revés.
	queueMu sync.Mutex
	phase   phase
	pending []*paths.Update
	initErr error

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New construye el controlador y dispara la inicialización del cache. En
// modo inline un snapshot fallido hace fallar la construcción; en modo
// async el controlador arranca aceptando eventos (los encola) y un fallo
// posterior lo deja en estado terminal.
func New(cfg Config) (*Controller, error) {
	if cfg.Initializer == nil {
		return nil, fmt.Errorf("syncer: config requiere Initializer")
	}
	if cfg.Remote == nil {
		return nil, fmt.Errorf("syncer: config requiere Remote")
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 10 * time.Second
	}
	if cfg.Period <= 0 {
		cfg.Period = 60 * time.Second
	}
	c := &Controller{
		cfg:      cfg,
		log:      logger.Named("syncer"),
		seq:      paths.NewSequence(paths.SeqBase),
		lastSent: paths.SeqBase,
		phase:    phaseInitializing,
		done:     make(chan struct{}),
	}
	c.parse = cfg.Parse
	if c.parse == nil {
		c.parse = func(raw string) ([]string, error) {
			return paths.ParsePath(raw, cfg.Schemes...)
		}
	}

	if cfg.AsyncInit {
		go c.initialize()
	} else {
		c.initialize()
		if err := c.initFailure(); err != nil {
			return nil, err
		}
	}

	c.wg.Add(1)
	go c.reconcileLoop()
	return c, nil
}

// Close detiene la goroutine de reconciliación y cierra la conexión remota
// si estaba abierta. No cancela un snapshot inicial en curso: ese corre
// hasta completarse o fallar.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	c.wg.Wait()
	c.mu.Lock()
	c.invalidateLocked()
	c.mu.Unlock()
	return nil
}

// =================================================================================
// EVENTOS DE CATÁLOGO
// =================================================================================

// OnPathAdded implementa Listener. Un path que el parser rechaza se
// descarta sin consumir secuencia, igual que en el resto de los hooks.
func (c *Controller) OnPathAdded(object, path string) error {
	segs, err := c.parse(path)
	if err != nil {
		c.dropChange("add_path", object, path, err)
		return nil
	}
	c.log.Debug("evento add_path", logger.Object(object), logger.CatalogPath(path))
	return c.submit("add_path", func(u *paths.Update) {
		u.ChangeFor(object).Add(segs)
	})
}

// OnPathRemoved implementa Listener.
func (c *Controller) OnPathRemoved(object, path string) error {
	if path == "*" {
		return c.OnPathsRemoved(object, nil)
	}
	segs, err := c.parse(path)
	if err != nil {
		c.dropChange("remove_path", object, path, err)
		return nil
	}
	c.log.Debug("evento remove_path", logger.Object(object), logger.CatalogPath(path))
	return c.submit("remove_path", func(u *paths.Update) {
		u.ChangeFor(object).Del(segs)
	})
}

// OnPathsRemoved implementa Listener. Emite un delete-sentinel por cada
// hijo nombrado y al final uno para el objeto mismo, en ese orden, todo
// dentro de un único envelope.
func (c *Controller) OnPathsRemoved(object string, children []string) error {
	c.log.Debug("evento remove_all", logger.Object(object), logger.Count(len(children)))
	return c.submit("remove_all", func(u *paths.Update) {
		for _, child := range children {
			u.ChangeFor(object + "." + child).DelAll()
		}
		u.ChangeFor(object).DelAll()
	})
}

// OnRenamed implementa Listener. Un rename es un único envelope con el alta
// del nombre nuevo y la baja del viejo, así el orden que ve el remoto
// coincide con el orden de generación local. Si una de las dos mitades no
// normaliza, la otra se aplica igual.
func (c *Controller) OnRenamed(oldObject, oldPath, newObject, newPath string) error {
	newSegs, err := c.parse(newPath)
	if err != nil {
		c.dropChange("rename", newObject, newPath, err)
		newSegs = nil
	}
	oldSegs, err := c.parse(oldPath)
	if err != nil {
		c.dropChange("rename", oldObject, oldPath, err)
		oldSegs = nil
	}
	c.log.Debug("evento rename",
		logger.Object(oldObject), logger.CatalogPath(oldPath),
		logger.String("new_object", newObject), logger.String("new_path", newPath))
	return c.submit("rename", func(u *paths.Update) {
		if newSegs != nil {
			u.ChangeFor(newObject).Add(newSegs)
		}
		if oldSegs != nil {
			u.ChangeFor(oldObject).Del(oldSegs)
		}
	})
}

func (c *Controller) dropChange(op, object, path string, err error) {
	c.log.Warn("cambio descartado: path no normalizable",
		logger.Op(op), logger.Object(object), logger.CatalogPath(path), logger.Err(err))
}

// =================================================================================
// RUTEO DE ENVELOPES
// =================================================================================

// submit crea el envelope bajo queueMu y lo rutea según la fase: encolado
// durante la inicialización, aplicado+push directo una vez lista, error
// almacenado si la inicialización falló. Asignar la secuencia bajo el mismo
// lock que decide el ruteo garantiza que los envelopes se aplican en orden
// de secuencia estricto.
func (c *Controller) submit(op string, build func(*paths.Update)) error {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()

	if c.phase == phaseFailed {
		return c.initErr
	}

	u := paths.NewUpdate(c.seq.Next(), false)
	build(u)
	metrics.UpdatesCreated.WithLabelValues(op).Inc()
	if u.Empty() {
		// Se envía igual: saltear el número dejaría al remoto atrás y la
		// próxima ronda dispararía un resync innecesario.
		c.log.Warn("envelope sin cambios tras la normalización",
			logger.Seq(u.Seq), logger.Op(op))
	}

	if c.phase == phaseInitializing {
		c.pending = append(c.pending, u)
		metrics.UpdatesQueued.Inc()
		metrics.QueueDepth.Set(float64(len(c.pending)))
		c.log.Info("cache inicializando; envelope encolado",
			logger.Seq(u.Seq), logger.Op(op), logger.Int("queue_len", len(c.pending)))
		return nil
	}

	c.mu.Lock()
	c.processLocked(context.Background(), u)
	c.mu.Unlock()
	return nil
}

// initFailure devuelve el error terminal de inicialización, o nil.
func (c *Controller) initFailure() error {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	if c.phase == phaseFailed {
		return c.initErr
	}
	return nil
}

// =================================================================================
// INICIALIZACIÓN Y DRAIN
// =================================================================================

func (c *Controller) initialize() {
	log := c.log.Named("init")
	start := time.Now()
	tree, err := c.cfg.Initializer.BuildSnapshot(context.Background())
	if err != nil {
		c.queueMu.Lock()
		c.phase = phaseFailed
		c.initErr = fmt.Errorf("%w: %w", ErrInitFailed, err)
		dropped := len(c.pending)
		c.pending = nil
		metrics.QueueDepth.Set(0)
		c.queueMu.Unlock()
		log.Error("snapshot inicial falló; el controlador queda terminal",
			logger.Err(err), logger.Int("queued_dropped", dropped))
		return
	}

	// Instala el cache y drena la cola reteniendo queueMu todo el tiempo:
	// la transición a ready y el drain son un solo paso atómico para los
	// productores, que bloquean en submit y al despertar van directo.
	c.queueMu.Lock()
	c.mu.Lock()
	c.tree = tree
	c.mu.Unlock()

	queued := c.pending
	c.pending = nil
	for i, u := range queued {
		c.mu.Lock()
		c.processLocked(context.Background(), u)
		c.mu.Unlock()
		metrics.QueueDepth.Set(float64(len(queued) - i - 1))
	}
	metrics.QueueDepth.Set(0)
	c.phase = phaseReady
	c.queueMu.Unlock()

	log.Info("cache inicializado",
		logger.Int("objects", tree.Len()),
		logger.Int("drained", len(queued)),
		logger.Duration(time.Since(start)))
}

// =================================================================================
// APLICAR + NOTIFICAR
// =================================================================================

// processLocked ejecuta el contrato por-envelope. Asume c.mu tomado.
// El orden importa: bootstrap lazy de sincronía, aplicar al cache, push
// best-effort, y recién al final avanzar lastSent. lastSent registra
// "aplicado localmente", no "confirmado remoto", por eso avanza incluso
// cuando el push falló.
func (c *Controller) processLocked(ctx context.Context, u *paths.Update) {
	if !c.syncConfirmed {
		c.reconcileLocked(ctx)
	}

	start := time.Now()
	c.tree.Apply(u)
	metrics.ApplyDuration.Observe(float64(time.Since(start).Milliseconds()))
	metrics.UpdatesApplied.Inc()

	c.pushLocked(ctx, u)

	c.lastSent = u.Seq
	metrics.LastSentSeq.Set(float64(c.lastSent))
	c.log.Debug("envelope aplicado", logger.Seq(u.Seq), logger.FullImage(u.FullImage))
}

// pushLocked empuja el envelope al remoto. Los fallos se loguean y se
// absorben; no invalidan el handle ni bloquean al caller. La divergencia
// resultante la detecta y sana la reconciliación.
func (c *Controller) pushLocked(ctx context.Context, u *paths.Update) {
	cl, err := c.clientLocked()
	if err != nil {
		metrics.PushFailures.Inc()
		c.log.Warn("remoto no disponible; envelope no enviado",
			logger.Seq(u.Seq), logger.Err(err))
		return
	}
	if err := cl.Push(ctx, u); err != nil {
		metrics.PushFailures.Inc()
		c.log.Warn("push al remoto falló",
			logger.Seq(u.Seq), logger.FullImage(u.FullImage), logger.Err(err))
	}
}

// =================================================================================
// CONEXIÓN REMOTA
// =================================================================================

// clientLocked devuelve el handle remoto, marcándolo lazy si hace falta.
// Asume c.mu tomado. No hay pool ni backoff: si la marcación falla, el
// próximo intento lo decide el período fijo de reconciliación.
func (c *Controller) clientLocked() (notify.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	cl, err := c.cfg.Remote()
	if err != nil {
		return nil, err
	}
	c.client = cl
	return cl, nil
}

// invalidateLocked descarta el handle remoto; el próximo uso reconecta.
// Asume c.mu tomado.
func (c *Controller) invalidateLocked() {
	if c.client != nil {
		_ = c.client.Close()
		c.client = nil
	}
}

// =================================================================================
// ESTADO OBSERVABLE
// =================================================================================

// Status es la foto del controlador que expone el endpoint de admin.
type Status struct {
	Phase         string `json:"phase"`
	LastSent      int64  `json:"last_sent"`
	LastRemoteAck int64  `json:"last_remote_ack"`
	SyncConfirmed bool   `json:"sync_confirmed"`
	QueueLen      int    `json:"queue_len"`
	Objects       int    `json:"objects"`
	RemoteOpen    bool   `json:"remote_open"`
	InitError     string `json:"init_error,omitempty"`
}

// Status devuelve una foto consistente del estado del protocolo.
func (c *Controller) Status() Status {
	c.queueMu.Lock()
	st := Status{
		Phase:    c.phase.String(),
		QueueLen: len(c.pending),
	}
	if c.initErr != nil {
		st.InitError = c.initErr.Error()
	}
	c.queueMu.Unlock()

	c.mu.Lock()
	st.LastSent = c.lastSent
	st.LastRemoteAck = c.lastRemoteAck
	st.SyncConfirmed = c.syncConfirmed
	st.RemoteOpen = c.client != nil
	if c.tree != nil {
		st.Objects = c.tree.Len()
	}
	c.mu.Unlock()
	return st
}

// Dump devuelve el contenido actual del cache (objeto → paths). Pensado
// para debugging; toma el lock principal.
func (c *Controller) Dump() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		return map[string][]string{}
	}
	return c.tree.Dump()
}
