package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var precheckCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardrail_precheck_total",
	Help: "Number of pre-submission checks, by outcome",
}, []string{"outcome"})

var blockedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardrail_blocked_total",
	Help: "Number of submissions hard-blocked, by reason code",
}, []string{"reason"})

var classificationCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "guardrail_classifications_total",
	Help: "Number of content classification records persisted",
})

var labelAppliedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardrail_labels_applied_total",
	Help: "Number of sensitivity labels applied to content",
}, []string{"label"})
