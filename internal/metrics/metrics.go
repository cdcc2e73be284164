package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spigell/mentor-match/internal/matching"
)

// Metrics holds the collectors of matching runs on a dedicated registry.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal         *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	Pairs             *prometheus.GaugeVec
	Mentees           *prometheus.GaugeVec
	RecommendedScores prometheus.Histogram
	EmbeddingFallback prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mentor_match_runs_total",
				Help: "Total number of matching runs",
			},
			[]string{"mode", "status"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "mentor_match_run_duration_seconds",
				Help: "Duration of matching runs in seconds",
			},
			[]string{"mode"},
		),
		Pairs: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mentor_match_pairs",
				Help: "Pairs of the last run per pipeline stage",
			},
			[]string{"stage"},
		),
		Mentees: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mentor_match_mentees",
				Help: "Mentees of the last run per assignment state",
			},
			[]string{"state"},
		),
		RecommendedScores: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mentor_match_recommendation_score",
				Help:    "Total score of recommended pairs",
				Buckets: prometheus.LinearBuckets(10, 10, 9),
			},
		),
		EmbeddingFallback: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mentor_match_embedding_fallback_total",
				Help: "Runs that fell back to lexical similarity",
			},
		),
	}
}

// ObserveRun records a successful run.
func (m *Metrics) ObserveRun(out *matching.MatchingOutput, duration time.Duration) {
	mode := string(out.Mode)
	m.RunsTotal.WithLabelValues(mode, "success").Inc()
	m.RunDuration.WithLabelValues(mode).Observe(duration.Seconds())

	s := out.Stats
	m.Pairs.WithLabelValues("evaluated").Set(float64(s.PairsEvaluated))
	m.Pairs.WithLabelValues("after_filters").Set(float64(s.AfterFilters))
	m.Pairs.WithLabelValues("rule_excluded").Set(float64(s.RuleExcluded))
	m.Pairs.WithLabelValues("errors").Set(float64(s.EvaluationErrors))

	m.Mentees.WithLabelValues("assigned").Set(float64(s.Assigned))
	m.Mentees.WithLabelValues("unassigned").Set(float64(s.Unassigned))
	m.Mentees.WithLabelValues("needs_approval").Set(float64(s.NeedsApproval))

	for _, r := range out.Results {
		for _, rec := range r.Recommendations {
			m.RecommendedScores.Observe(rec.Score.TotalScore)
		}
	}

	if len(out.Warnings) > 0 {
		m.EmbeddingFallback.Inc()
	}
}

// ObserveFailure records a run that returned an error.
func (m *Metrics) ObserveFailure(mode matching.Mode, duration time.Duration) {
	m.RunsTotal.WithLabelValues(string(mode), "failure").Inc()
	m.RunDuration.WithLabelValues(string(mode)).Observe(duration.Seconds())
}

// WriteTextfile exports the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
