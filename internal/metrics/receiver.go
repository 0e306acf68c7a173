package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del lado receiver (authzd).

var (
	ReceiverApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authzd_updates_applied_total",
		Help: "Updates aplicados a la imagen del receiver por tipo",
	}, []string{"kind"}) // kind: partial|full

	ReceiverStaleDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authzd_stale_updates_dropped_total",
		Help: "Updates incrementales descartados por seq viejo",
	})

	ReceiverLastSeen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "authzd_last_seen_seq",
		Help: "Último número de secuencia reconocido por el receiver",
	})

	ReceiverObjects = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "authzd_image_objects",
		Help: "Objetos de catálogo presentes en la imagen",
	})
)

// RegisterReceiver registers the receiver metrics on the given registry
// (or default if nil).
func RegisterReceiver(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		ReceiverApplied, ReceiverStaleDropped, ReceiverLastSeen, ReceiverObjects,
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
