package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/dispatchsim/core/sim"
)

func TestIntegration(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	defer container.Terminate(ctx) //nolint:errcheck
	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "6379")
	url := fmt.Sprintf("redis://%s:%s/0", host, port.Port())

	opt, _ := redis.ParseURL(url)
	sub := redis.NewClient(opt)
	defer sub.Close()
	ps := sub.Subscribe(ctx, "dispatchsim:run-1")
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	r, err := New(Config{URL: url})
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	defer r.Close()
	if err := r.Publish(ctx, sim.Event{Kind: sim.TaskServiced, RunID: "run-1", TaskID: 9}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-ps.Channel():
		var ev sim.Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if ev.TaskID != 9 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}
