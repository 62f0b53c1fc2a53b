package metrics

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/dispatchsim/core/metrics"
)

func TestPromSink_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordCompletion(coremetrics.CompletionEvent{Actor: 2, Sector: 1, Wait: 3}))
	require.NoError(t, sink.RecordCompletion(coremetrics.CompletionEvent{Actor: 2, Sector: 0, Wait: 1}))
	require.NoError(t, sink.RecordReplan(coremetrics.ReplanEvent{Policy: "tsp", Stop: "time"}))
	require.NoError(t, sink.RecordReplan(coremetrics.ReplanEvent{Policy: "tsp"}))
	require.NoError(t, sink.RecordRunSummary(coremetrics.RunSummary{Policy: "tsp", AvgWait: 2, MaxWait: 3, TotalTravel: 9}))

	require.Equal(t, 2.0, testutil.ToFloat64(sink.completions.WithLabelValues("2")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.replans.WithLabelValues("tsp", "time")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.replans.WithLabelValues("tsp", "none")))
	require.Equal(t, 2.0, testutil.ToFloat64(sink.avgWait.WithLabelValues("tsp")))
	require.Equal(t, 9.0, testutil.ToFloat64(sink.travel.WithLabelValues("tsp")))
	require.Equal(t, 2, testutil.CollectAndCount(sink.wait))
}

func TestPromSink_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, a.RecordCompletion(coremetrics.CompletionEvent{Actor: 0}))
	require.NoError(t, b.RecordCompletion(coremetrics.CompletionEvent{Actor: 0}))
	require.Equal(t, 2.0, testutil.ToFloat64(a.completions.WithLabelValues("0")))
}

func TestStartPromServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, sink.RecordCompletion(coremetrics.CompletionEvent{Actor: 4}))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- StartPromServer(ctx, addr, reg) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	require.Contains(t, body, `dispatchsim_completions_total{actor="4"} 1`)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRegistryHasBuiltins(t *testing.T) {
	names := coremetrics.Registry.Names()
	require.Contains(t, names, "prometheus")
	require.Contains(t, names, "influx")
	require.Contains(t, names, "nop")
}
