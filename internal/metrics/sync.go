package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas Prometheus del protocolo de sincronización. Viven en un paquete
// propio para evitar ciclos de import entre el syncer y los paquetes HTTP.

var (
	UpdatesCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pathsync_updates_created_total",
		Help: "Envelopes creados por operación de catálogo",
	}, []string{"op"}) // op: add_path|remove_path|remove_all|rename

	UpdatesApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pathsync_updates_applied_total",
		Help: "Envelopes aplicados al cache local",
	})

	UpdatesQueued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pathsync_updates_queued_total",
		Help: "Envelopes encolados durante la inicialización del cache",
	})

	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pathsync_pending_queue_depth",
		Help: "Envelopes esperando el drain de inicialización",
	})

	PushFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pathsync_push_failures_total",
		Help: "Pushes al servicio remoto que fallaron (no se reintentan inline)",
	})

	ReconcileRounds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pathsync_reconcile_rounds_total",
		Help: "Rondas de reconciliación por resultado",
	}, []string{"result"}) // result: in_sync|resync|skipped|error

	FullImageResyncs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pathsync_full_image_resyncs_total",
		Help: "Imágenes completas reenviadas al detectar divergencia",
	})

	ApplyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pathsync_apply_duration_ms",
		Help:    "Latencia de aplicar+push de un envelope en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	LastSentSeq = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pathsync_last_sent_seq",
		Help: "Último número de secuencia aplicado localmente",
	})
)

// RegisterSync registers the sync metrics on the given registry (or default if nil).
func RegisterSync(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		UpdatesCreated, UpdatesApplied, UpdatesQueued, QueueDepth,
		PushFailures, ReconcileRounds, FullImageResyncs, ApplyDuration,
		LastSentSeq,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
