package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage labels.
const (
	StageAuthorize = "authorize"
	StageConsent   = "consent"
	StageCallback  = "callback"
)

// Bridge counts authorization outcomes per stage.
type Bridge struct {
	authorizations *prometheus.CounterVec
}

// NewBridge registers the bridge counters with reg.
func NewBridge(reg prometheus.Registerer) *Bridge {
	return &Bridge{
		authorizations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "colorme_bridge_authorizations_total",
			Help: "Authorization bridge requests by stage and outcome.",
		}, []string{"stage", "outcome"}),
	}
}

// Observe increments the counter. A nil receiver is a no-op.
func (b *Bridge) Observe(stage, outcome string) {
	if b == nil {
		return
	}
	b.authorizations.WithLabelValues(stage, outcome).Inc()
}

// Tools counts tool invocations.
type Tools struct {
	calls *prometheus.CounterVec
}

func NewTools(reg prometheus.Registerer) *Tools {
	return &Tools{
		calls: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "colorme_tool_calls_total",
			Help: "MCP tool calls by tool and result.",
		}, []string{"tool", "result"}),
	}
}

func (t *Tools) Observe(tool string, failed bool) {
	if t == nil {
		return
	}
	result := "ok"
	if failed {
		result = "error"
	}
	t.calls.WithLabelValues(tool, result).Inc()
}
