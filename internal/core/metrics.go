package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	leadsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_ingested_total",
			Help: "Total number of leads inserted by committed bulk ingestions",
		},
	)

	leadsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_skipped_total",
			Help: "Total number of rows skipped by committed bulk ingestions",
		},
		[]string{"reason"},
	)

	leadIngestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_ingestions_total",
			Help: "Total number of bulk lead ingestions by source and result",
		},
		[]string{"source", "result"},
	)
)

// Import sources.
const (
	SourceCSV   = "csv"
	SourceSheet = "sheet"
)

func recordIngestion(r IngestResult) {
	leadsIngested.Add(float64(r.Inserted))
	leadsSkipped.WithLabelValues("invalid").Add(float64(r.SkippedInvalid))
	leadsSkipped.WithLabelValues("duplicate").Add(float64(r.SkippedDuplicate))
}

func recordImport(source string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	leadIngestions.WithLabelValues(source, result).Inc()
}
