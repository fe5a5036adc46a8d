package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	CycleInstruments = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "finsignal",
			Subsystem: "cycle",
			Name:      "instruments",
			Help:      "Instruments per cycle by outcome",
		},
		[]string{"outcome"},
	)

	ModelsTracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finsignal",
			Subsystem: "models",
			Name:      "tracked",
			Help:      "Instruments holding a learned model instance",
		},
	)

	ModelsEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "finsignal",
			Subsystem: "models",
			Name:      "evicted_total",
			Help:      "Model instances evicted after leaving the universe",
		},
	)

	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finsignal",
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected websocket clients",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(CycleInstruments, ModelsTracked, ModelsEvicted, StreamClients)
	})
}
