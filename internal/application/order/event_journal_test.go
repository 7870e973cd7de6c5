package order

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilmanziegler21-create/boyboy/pkg/metrics"
	"github.com/tilmanziegler21-create/boyboy/pkg/mq"
)

// TestEventJournal_Handle 正常事件计数并确认
func TestEventJournal_Handle(t *testing.T) {
	j := NewEventJournal()

	body, err := json.Marshal(mq.OrderEvent{
		EventID:   "evt-1",
		OrderID:   3,
		CourierID: 7,
		Status:    "已送达",
		Total:     1250,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	counter := metrics.OrderEventsConsumedTotal.WithLabelValues("order.delivered")
	before := testutil.ToFloat64(counter)

	require.NoError(t, j.Handle("order.delivered", body))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

// TestEventJournal_Handle_BadPayload 损坏载荷丢弃而非重新入队
func TestEventJournal_Handle_BadPayload(t *testing.T) {
	j := NewEventJournal()

	counter := metrics.OrderEventsConsumedTotal.WithLabelValues("order.placed")
	before := testutil.ToFloat64(counter)

	assert.NoError(t, j.Handle("order.placed", []byte("not-json")),
		"返回错误会Nack重入队,损坏载荷只能丢弃")
	assert.Equal(t, before, testutil.ToFloat64(counter))
}
