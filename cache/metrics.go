package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "page_cache_requests_total",
		Help: "Page cache lookups by result (hit or miss)",
	},
	[]string{"cache", "result"},
)
