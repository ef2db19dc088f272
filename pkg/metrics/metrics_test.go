package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorsRegistered(t *testing.T) {
	LobbySize.Set(3)
	HallSize.Set(7)
	Evictions.Inc()
	BroadcastsSent.WithLabelValues("participant-joined", "ok").Inc()
	DiscardedMessages.WithLabelValues("unknown-kind").Inc()

	assert.Equal(t, float64(3), testutil.ToFloat64(LobbySize))
	assert.Equal(t, float64(7), testutil.ToFloat64(HallSize))
	assert.GreaterOrEqual(t, testutil.ToFloat64(Evictions), float64(1))
	assert.Equal(t, float64(1), testutil.ToFloat64(BroadcastsSent.WithLabelValues("participant-joined", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(DiscardedMessages.WithLabelValues("unknown-kind")))
}
