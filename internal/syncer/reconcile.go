package syncer

import (
	"context"
	"time"

	"github.com/dropDatabas3/pathsync/internal/metrics"
	"github.com/dropDatabas3/pathsync/internal/observability/logger"
)

// reconcileLoop corre las rondas periódicas: espera el delay inicial y
// después dispara con el período fijo hasta Close.
func (c *Controller) reconcileLoop() {
	defer c.wg.Done()
	timer := time.NewTimer(c.cfg.InitialDelay)
	defer timer.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-timer.C:
		}
		c.reconcileRound()
		timer.Reset(c.cfg.Period)
	}
}

// reconcileRound es la entrada del timer. Intenta el lock sin bloquear:
// si hay un apply u otra ronda en curso, esta ronda se saltea y el timer
// queda libre para el próximo tick.
func (c *Controller) reconcileRound() {
	if !c.mu.TryLock() {
		metrics.ReconcileRounds.WithLabelValues("skipped").Inc()
		return
	}
	defer c.mu.Unlock()
	if c.tree == nil {
		// El cache todavía no terminó de inicializar; nada que reconciliar.
		metrics.ReconcileRounds.WithLabelValues("skipped").Inc()
		return
	}
	c.reconcileLocked(context.Background())
}

// reconcileLocked ejecuta una ronda de reconciliación. Asume c.mu tomado y
// c.tree instalado (los callers lo garantizan).
//
// Compara el último seq visto por el remoto contra lastSent. Si coinciden,
// la sincronía queda confirmada. Si no, reenvía una única imagen completa
// sellada con el lastSent vigente; la reconciliación nunca avanza la
// secuencia ni repite deltas históricos. Cualquier fallo de comunicación
// invalida el handle remoto y deja la ronda sin confirmar: el próximo tick
// reintenta.
func (c *Controller) reconcileLocked(ctx context.Context) {
	cl, err := c.clientLocked()
	if err != nil {
		metrics.ReconcileRounds.WithLabelValues("error").Inc()
		c.log.Warn("reconciliación sin conexión al remoto", logger.Err(err))
		return
	}

	remote, err := cl.LastSeen(ctx)
	if err != nil {
		c.invalidateLocked()
		metrics.ReconcileRounds.WithLabelValues("error").Inc()
		c.log.Warn("no se pudo consultar el seq del remoto", logger.Err(err))
		return
	}
	c.lastRemoteAck = remote

	if remote == c.lastSent {
		c.syncConfirmed = true
		metrics.ReconcileRounds.WithLabelValues("in_sync").Inc()
		c.log.Debug("remoto en sincronía", logger.Seq(c.lastSent))
		return
	}

	c.log.Warn("remoto fuera de sincronía; reenviando imagen completa",
		logger.RemoteSeq(remote), logger.Seq(c.lastSent))
	full := c.tree.FullImageUpdate(c.lastSent)
	if err := cl.Push(ctx, full); err != nil {
		c.invalidateLocked()
		metrics.ReconcileRounds.WithLabelValues("error").Inc()
		c.log.Warn("reenvío de imagen completa falló", logger.Err(err))
		return
	}
	c.lastRemoteAck = c.lastSent
	c.syncConfirmed = true
	metrics.FullImageResyncs.Inc()
	metrics.ReconcileRounds.WithLabelValues("resync").Inc()
	c.log.Info("remoto resincronizado",
		logger.Seq(c.lastSent), logger.Int("objects", c.tree.Len()))
}

// Resync fuerza una ronda de reconciliación fuera del timer, descartando la
// confirmación previa para que la divergencia se verifique contra el remoto
// ahora. Bloquea hasta que la ronda termina y devuelve la foto resultante.
// Lo usa el endpoint de admin.
func (c *Controller) Resync(ctx context.Context) Status {
	c.mu.Lock()
	if c.tree != nil {
		c.syncConfirmed = false
		c.reconcileLocked(ctx)
	}
	c.mu.Unlock()
	return c.Status()
}
