package throttle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var enforceCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardrail_throttle_enforce_total",
	Help: "Number of throttle enforcement checks",
}, []string{"context"})

var rejectedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardrail_throttle_rejected_total",
	Help: "Number of submissions rejected by throttling",
}, []string{"context", "reason"})

var counterErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardrail_throttle_counter_errors",
	Help: "Number of counter store failures (checks fail open)",
}, []string{"context"})
