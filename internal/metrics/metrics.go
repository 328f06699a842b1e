// Package metrics exposes the bot's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Searches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "musicbot_searches_total",
		Help: "Search requests by outcome.",
	}, []string{"outcome"}) // ok, empty, too_short, error

	Selections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "musicbot_selections_total",
		Help: "Result-button presses received.",
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "musicbot_cache_hits_total",
		Help: "Deliveries served from the download cache.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "musicbot_cache_misses_total",
		Help: "Deliveries that required a fetch.",
	})

	Fetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "musicbot_fetches_total",
		Help: "Audio fetches by outcome.",
	}, []string{"outcome"}) // ok, error

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "musicbot_deliveries_total",
		Help: "Audio messages sent by outcome.",
	}, []string{"outcome"}) // ok, error
)
