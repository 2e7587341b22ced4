package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artstory_image_analyses_total",
			Help: "Total number of artwork analyses by result.",
		},
		[]string{"status"},
	)
	imageFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "artstory_image_fetch_duration_seconds",
			Help:    "Histogram of image download durations.",
			Buckets: prometheus.DefBuckets,
		},
	)
	storiesGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artstory_stories_generated_total",
			Help: "Total number of one-shot story generations by result.",
		},
		[]string{"status"},
	)
	segmentsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artstory_story_segments_generated_total",
			Help: "Total number of generated story segments by operation and result.",
		},
		[]string{"operation", "status"},
	)
	segmentMemoHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artstory_story_segment_memo_hits_total",
			Help: "Choices resolved to an already generated segment.",
		},
	)
)
