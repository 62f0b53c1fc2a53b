package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	coremetrics "github.com/kilianp07/dispatchsim/core/metrics"
)

// TestIntegration publishes a run summary to a real NATS server and reads it back.
func TestIntegration(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "nats:2.10-alpine",
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForListeningPort("4222/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	defer container.Terminate(ctx) //nolint:errcheck
	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "4222")
	url := fmt.Sprintf("nats://%s:%s", host, port.Port())

	sub, err := natsgo.Connect(url)
	if err != nil {
		t.Fatalf("subscriber connect: %v", err)
	}
	defer sub.Close()
	got := make(chan *natsgo.Msg, 1)
	if _, err := sub.ChanSubscribe("dispatchsim.*.summary", got); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	s, err := NewSink(Config{URL: url})
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer s.Close()
	if err := s.RecordRunSummary(coremetrics.RunSummary{RunID: "run-1", Serviced: 5}); err != nil {
		t.Fatalf("record: %v", err)
	}

	select {
	case msg := <-got:
		var m summaryMessage
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if msg.Subject != "dispatchsim.run-1.summary" || m.Serviced != 5 {
			t.Fatalf("unexpected message %s %+v", msg.Subject, m)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for summary")
	}
}
