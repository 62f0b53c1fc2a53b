package monitoring

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/dispatchsim/core/model"
)

type captureMonitor struct {
	errs []error
	tags []map[string]string
}

func (c *captureMonitor) CaptureException(err error, tags map[string]string) {
	c.errs = append(c.errs, err)
	c.tags = append(c.tags, tags)
}
func (c *captureMonitor) Recover()            {}
func (c *captureMonitor) Flush(time.Duration) {}

func TestTagsInvariant(t *testing.T) {
	inv := &model.InvariantError{TaskID: 4, ActorID: 1, SimTime: 2.5, Op: "begin",
		From: model.TaskServiced, To: model.TaskInService}
	tags := Tags(fmt.Errorf("tick: %w", inv), "run-1")
	assert.Equal(t, "invariant", tags["kind"])
	assert.Equal(t, "4", tags["task_id"])
	assert.Equal(t, "1", tags["actor_id"])
	assert.Equal(t, "begin", tags["op"])
	assert.Equal(t, "2.500", tags["sim_time"])
	assert.Equal(t, "run-1", tags["run_id"])

	plain := Tags(errors.New("x"), "")
	assert.Empty(t, plain)
}

func TestInitAndCapture(t *testing.T) {
	prev := current
	defer func() { current = prev }()
	current = NopMonitor{}
	m := &captureMonitor{}
	Init(nil)
	assert.IsType(t, NopMonitor{}, Current())
	Init(m)
	CaptureException(errors.New("boom"), map[string]string{"a": "b"})
	assert.Len(t, m.errs, 1)
	assert.Equal(t, "b", m.tags[0]["a"])
	Flush(time.Millisecond)
}
