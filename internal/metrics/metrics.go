// Package metrics exposes Prometheus instrumentation for the crawl pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// KeywordsProcessed counts keywords the job loop finished, failures included.
	KeywordsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bidcrawler_keywords_processed_total",
		Help: "The total number of keywords processed, including failed ones.",
	})
	// KeywordErrors counts keyword-scoped failures recorded in the error log.
	KeywordErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bidcrawler_keyword_errors_total",
		Help: "The total number of keyword-scoped failures.",
	})
	// CandidatesSeen counts rows extracted from result grids.
	CandidatesSeen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bidcrawler_candidates_total",
		Help: "The total number of candidate rows extracted.",
	})
	// RecordsAdmitted counts candidates that passed every acceptance predicate.
	RecordsAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bidcrawler_admitted_total",
		Help: "The total number of records admitted past filtering and dedup.",
	})
	// OracleFallbacks counts detail extractions that escalated to the AI tier.
	OracleFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bidcrawler_oracle_fallbacks_total",
		Help: "The total number of detail extractions that invoked the AI oracle.",
	})
	// DetailDuration observes wall time per detail page extraction.
	DetailDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bidcrawler_detail_duration_seconds",
		Help:    "Detail page extraction latency.",
		Buckets: prometheus.DefBuckets,
	})
)
