// Package metrics exposes sampler progress as Prometheus metrics.
package metrics

import (
	"math"
	"sync"

	"github.com/jmccarv/decipher/internal/solver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sampler implements solver.Observer. It is safe for concurrent use.
type Sampler struct {
	proposals  *prometheus.CounterVec
	chains     *prometheus.CounterVec
	acceptance prometheus.Histogram
	best       prometheus.Gauge

	mu      sync.Mutex
	bestVal float64
}

var _ solver.Observer = (*Sampler)(nil)

// New registers the sampler metrics with reg.
func New(reg prometheus.Registerer) *Sampler {
	f := promauto.With(reg)
	return &Sampler{
		proposals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "decipher_proposals_total",
			Help: "Proposed key swaps by outcome.",
		}, []string{"outcome"}),
		chains: f.NewCounterVec(prometheus.CounterOpts{
			Name: "decipher_chains_total",
			Help: "Finished restarts by stop reason.",
		}, []string{"reason"}),
		acceptance: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "decipher_window_acceptance_rate",
			Help:    "Acceptance rate of each convergence-check window.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1},
		}),
		best: f.NewGauge(prometheus.GaugeOpts{
			Name: "decipher_best_log_likelihood",
			Help: "Highest log-likelihood recorded by any restart.",
		}),
		bestVal: math.Inf(-1),
	}
}

func (s *Sampler) OnStep(_ int, accepted bool) {
	if accepted {
		s.proposals.WithLabelValues("accepted").Inc()
	} else {
		s.proposals.WithLabelValues("rejected").Inc()
	}
}

func (s *Sampler) OnCheck(_, _ int, rate, best float64) {
	s.acceptance.Observe(rate)
	s.raise(best)
}

func (s *Sampler) OnChainDone(t *solver.Trajectory) {
	s.chains.WithLabelValues(t.Reason.String()).Inc()
	s.raise(t.Best.LogLik)
}

func (s *Sampler) raise(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v > s.bestVal {
		s.bestVal = v
		s.best.Set(v)
	}
}
