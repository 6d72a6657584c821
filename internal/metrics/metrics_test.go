package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBridgeObserve(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	b := NewBridge(reg)
	b.Observe(StageCallback, "completed")
	b.Observe(StageCallback, "completed")
	b.Observe(StageCallback, "upstream_exchange")

	assert.Equal(t, 2.0, testutil.ToFloat64(b.authorizations.WithLabelValues(StageCallback, "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.authorizations.WithLabelValues(StageCallback, "upstream_exchange")))

	var nilBridge *Bridge
	nilBridge.Observe(StageAuthorize, "x")
}

func TestToolsObserve(t *testing.T) {
	t.Parallel()

	tools := NewTools(prometheus.NewRegistry())
	tools.Observe("get_shop", false)
	tools.Observe("get_shop", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(tools.calls.WithLabelValues("get_shop", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tools.calls.WithLabelValues("get_shop", "error")))
}
