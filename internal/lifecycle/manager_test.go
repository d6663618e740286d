package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	events []string
}

type fakeComponent struct {
	name     string
	rec      *recorder
	startErr error
	stopErr  error
	block    bool
}

func (f *fakeComponent) Start(context.Context) error {
	f.rec.events = append(f.rec.events, "start "+f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(ctx context.Context) error {
	f.rec.events = append(f.rec.events, "stop "+f.name)
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.stopErr
}

func (f *fakeComponent) Name() string { return f.name }

func TestManager_StartStopOrder(t *testing.T) {
	rec := &recorder{}
	m := NewManager()
	require.NoError(t, m.Register(&fakeComponent{name: "tracing", rec: rec}))
	require.NoError(t, m.Register(&fakeComponent{name: "watcher", rec: rec}))
	require.NoError(t, m.Register(&fakeComponent{name: "http", rec: rec}))

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop(context.Background()))

	assert.Equal(t, []string{
		"start tracing", "start watcher", "start http",
		"stop http", "stop watcher", "stop tracing",
	}, rec.events)
}

func TestManager_StartFailureRollsBack(t *testing.T) {
	rec := &recorder{}
	m := NewManager()
	require.NoError(t, m.Register(&fakeComponent{name: "a", rec: rec}))
	require.NoError(t, m.Register(&fakeComponent{name: "b", rec: rec, startErr: errors.New("port in use")}))
	require.NoError(t, m.Register(&fakeComponent{name: "c", rec: rec}))

	err := m.Start(context.Background())
	assert.ErrorContains(t, err, "start b: port in use")
	assert.Equal(t, []string{"start a", "start b", "stop a"}, rec.events)

	require.NoError(t, m.Stop(context.Background()), "nothing left to stop")
}

func TestManager_StopTimeout(t *testing.T) {
	rec := &recorder{}
	m := NewManager()
	m.SetShutdownTimeout(10 * time.Millisecond)
	require.NoError(t, m.Register(&fakeComponent{name: "slow", rec: rec, block: true}))
	require.NoError(t, m.Register(&fakeComponent{name: "broken", rec: rec, stopErr: errors.New("boom")}))
	require.NoError(t, m.Start(context.Background()))

	err := m.Stop(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorContains(t, err, "stop broken: boom")
	assert.Equal(t, []string{"start slow", "start broken", "stop broken", "stop slow"}, rec.events)
}

func TestManager_RegisterValidation(t *testing.T) {
	m := NewManager()
	assert.Error(t, m.Register(nil))
	assert.Error(t, m.Register(&fakeComponent{rec: &recorder{}}))

	c := &fakeComponent{name: "x", rec: &recorder{}}
	require.NoError(t, m.Register(c))
	assert.ErrorContains(t, m.Register(c), "already registered")
}
