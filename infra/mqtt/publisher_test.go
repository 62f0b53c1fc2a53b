package mqtt

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/dispatchsim/core/metrics"
)

func TestPublisherTopicsAndQoS(t *testing.T) {
	mc := useMock(t)
	pub, err := NewPublisher(Config{
		Broker:      "tcp://localhost:1883",
		TopicPrefix: "fleet",
		QoS:         map[string]byte{"task": 1, "state": 0, "summary": 2},
	})
	require.NoError(t, err)

	require.NoError(t, pub.RecordCompletion(coremetrics.CompletionEvent{RunID: "r", TaskID: 5, Actor: 1, Wait: 2.5}))
	require.NoError(t, pub.RecordActorState(coremetrics.ActorStateEvent{RunID: "r", Actor: 1, X: 1, Y: 2, Busy: true}))
	require.NoError(t, pub.RecordRunSummary(coremetrics.RunSummary{RunID: "r", Policy: "tsp", Serviced: 9}))

	require.Len(t, mc.published, 3)
	require.Equal(t, "fleet/r/task/serviced", mc.published[0].topic)
	require.Equal(t, byte(1), mc.published[0].qos)
	require.False(t, mc.published[0].retained)
	require.Equal(t, "fleet/r/actor/1/state", mc.published[1].topic)
	require.True(t, mc.published[1].retained)
	require.Equal(t, "fleet/r/summary", mc.published[2].topic)
	require.Equal(t, byte(2), mc.published[2].qos)

	var task map[string]any
	require.NoError(t, json.Unmarshal(mc.published[0].payload, &task))
	require.Equal(t, 5.0, task["task_id"])
	require.Equal(t, 2.5, task["wait"])

	var sum map[string]any
	require.NoError(t, json.Unmarshal(mc.published[2].payload, &sum))
	require.Equal(t, "tsp", sum["policy"])
	require.Equal(t, 9.0, sum["serviced"])
}

func TestPublisherRetry(t *testing.T) {
	mc := useMock(t)
	mc.publishErrs = []error{fmt.Errorf("net fail"), nil}
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)

	require.NoError(t, pub.RecordCompletion(coremetrics.CompletionEvent{RunID: "r"}))
	require.Len(t, mc.published, 2)
}

func TestPublisherStateRateLimit(t *testing.T) {
	mc := useMock(t)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", StateRate: 0.001, StateBurst: 2})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, pub.RecordActorState(coremetrics.ActorStateEvent{RunID: "r", Actor: i}))
	}
	require.Len(t, mc.published, 2)
	require.Equal(t, uint64(3), pub.Dropped())

	// completions are never throttled
	require.NoError(t, pub.RecordCompletion(coremetrics.CompletionEvent{RunID: "r"}))
	require.Len(t, mc.published, 3)
}

func TestRegistryHasMQTT(t *testing.T) {
	require.Contains(t, coremetrics.Registry.Names(), "mqtt")
}
