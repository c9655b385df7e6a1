package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchSumsDuplicateSeries(t *testing.T) {
	at := time.Unix(1700000000, 0)
	batch := NewBatch(at)
	require.NoError(t, batch.Add("cb_quest_complete", "QuestComplete", 1, Label{"network", "bsc"}, Label{"quest", "7"}))
	require.NoError(t, batch.Add("cb_quest_complete", "QuestComplete", 1, Label{"network", "bsc"}, Label{"quest", "7"}))
	require.NoError(t, batch.Add("cb_quest_complete", "QuestComplete", 1, Label{"network", "bsc"}, Label{"quest", "8"}))

	assert.Equal(t, 2, batch.Len())
	assert.Equal(t, 2, testutil.CollectAndCount(batch, "cb_quest_complete"))

	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(batch))
	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)

	values := map[string]float64{}
	for _, metric := range families[0].GetMetric() {
		assert.Equal(t, at.UnixMilli(), metric.GetTimestampMs())
		for _, label := range metric.GetLabel() {
			if label.GetName() == "quest" {
				values[label.GetValue()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, map[string]float64{"7": 2, "8": 1}, values)
}

func TestBatchRejectsMismatchedLabels(t *testing.T) {
	batch := NewBatch(time.Now())
	require.NoError(t, batch.Add("cb_pvp_queue", "getDuelQueue", 3, Label{"network", "bsc"}))
	err := batch.Add("cb_pvp_queue", "getDuelQueue", 3, Label{"chain", "bsc"})
	assert.Error(t, err)
	assert.Equal(t, 1, batch.Len())
}

func TestBatchNames(t *testing.T) {
	batch := NewBatch(time.Now())
	require.NoError(t, batch.Add("cb_b", "", 1))
	require.NoError(t, batch.Add("cb_a", "", 1))
	assert.Equal(t, []string{"cb_a", "cb_b"}, batch.Names())
}
