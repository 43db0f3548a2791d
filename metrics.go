package rover

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	actionsTotal      *prometheus.CounterVec
	pipelineFailures  *prometheus.CounterVec
	liquidationsTotal prometheus.Counter
	accountsCreated   prometheus.Counter
	accountsBurned    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rover_actions_total",
			Help: "Count of executed credit account actions by type.",
		}, []string{"action"}),
		pipelineFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rover_pipeline_failures_total",
			Help: "Count of aborted pipeline invocations by first action.",
		}, []string{"action"}),
		liquidationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rover_liquidations_total",
			Help: "Count of settled liquidations.",
		}),
		accountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rover_accounts_created_total",
			Help: "Count of credit accounts minted.",
		}),
		accountsBurned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rover_accounts_burned_total",
			Help: "Count of credit accounts burned.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.actionsTotal,
			m.pipelineFailures,
			m.liquidationsTotal,
			m.accountsCreated,
			m.accountsBurned,
		)
	}
	return m
}
