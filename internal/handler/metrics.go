package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	captionsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artstory_captions_generated_total",
		Help: "Total number of captions returned by /generate.",
	})

	storySessionsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artstory_story_sessions_started_total",
		Help: "Total number of started interactive story sessions.",
	})

	storyChoicesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artstory_story_choices_total",
			Help: "Total number of handled story choices by operation.",
		},
		[]string{"operation"},
	)

	rateLimitedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artstory_rate_limited_requests_total",
			Help: "Total number of requests rejected by the rate limiter.",
		},
		[]string{"route"},
	)
)
