package trooper_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-trooper/framework/container"
	"github.com/km-arc/go-trooper/framework/trooper"
)

// ── Fakes ─────────────────────────────────────────────────────────────────────

type journal struct{ events []string }

func (j *journal) add(format string, args ...any) {
	j.events = append(j.events, fmt.Sprintf(format, args...))
}

type fakeTrooper struct {
	name       string
	j          *journal
	prepareErr error
	stopErr    error
}

func (f *fakeTrooper) Name() string { return f.name }

func (f *fakeTrooper) Prepare() error {
	f.j.add("prepare:%s", f.name)
	return f.prepareErr
}

func (f *fakeTrooper) Stop() error {
	f.j.add("stop:%s", f.name)
	return f.stopErr
}

type fakeListener struct {
	name     string
	j        *journal
	startErr error
	stopErr  error
}

func (f *fakeListener) Name() string { return f.name }

func (f *fakeListener) PreStart() error {
	f.j.add("pre-start:%s", f.name)
	return f.startErr
}

func (f *fakeListener) PreStop() error {
	f.j.add("pre-stop:%s", f.name)
	return f.stopErr
}

type counted struct {
	n int
}

func (c *counted) Initialize() error {
	c.n++
	return nil
}

type disposer struct {
	id  string
	j   *journal
	err error
}

func (d *disposer) Dispose() error {
	d.j.add("dispose:%s", d.id)
	return d.err
}

func singleton(name string, build func() any) *container.Namespace {
	return container.NewNamespace(name).Component(container.Descriptor{
		Value:     name,
		NamedOnly: true,
		Singleton: true,
		Factory:   func(container.Resolver) (any, error) { return build(), nil },
	})
}

var errBoom = errors.New("boom")

// ── Scenarios ─────────────────────────────────────────────────────────────────

func TestSupervisor_StartConstructsOnce(t *testing.T) {
	builds := map[string]int{}
	newContainer := func(name string) *container.Container {
		return container.New(name).Scan(singleton(name, func() any {
			builds[name]++
			return &counted{}
		}))
	}
	a, b := newContainer("a"), newContainer("b")
	sup := trooper.New().Register(a).Register(b)

	require.NoError(t, sup.Start())
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, builds)

	require.NoError(t, sup.Start())
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, builds)
	assert.Equal(t, trooper.Started, sup.State())

	for _, c := range []*container.Container{a, b} {
		l, err := c.Lookup()
		require.NoError(t, err)
		assert.Equal(t, 1, l.Named(c.Name()).(*counted).n)
	}
}

func TestSupervisor_StartFailurePropagatesAfterListeners(t *testing.T) {
	j := &journal{}
	failing := container.New("broken").Scan(container.NewNamespace("broken").Component(container.Descriptor{
		Value: "broken", NamedOnly: true, Singleton: true,
		Factory: func(container.Resolver) (any, error) {
			j.add("build:broken")
			return nil, errBoom
		},
	}))
	sup := trooper.New().RegisterListener(&fakeListener{name: "L", j: j}).Register(failing)

	err := sup.Start()

	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, err, container.ErrStartupFailed)
	assert.Equal(t, []string{"pre-start:L", "build:broken"}, j.events)
	assert.Equal(t, trooper.Unstarted, sup.State())
}

func TestSupervisor_StopAggregatesDisposalFailures(t *testing.T) {
	j := &journal{}
	x := container.New("x").Scan(singleton("x", func() any { return &disposer{id: "x", j: j, err: errBoom} }))
	y := container.New("y").Scan(singleton("y", func() any { return &disposer{id: "y", j: j} }))
	sup := trooper.New().Register(x).Register(y)
	require.NoError(t, sup.Start())

	err := sup.Stop()

	require.Error(t, err)
	assert.Equal(t, []string{"dispose:x", "dispose:y"}, j.events)

	var le *trooper.LifecycleError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, []string{"x"}, le.Names(trooper.KindTrooper))
	assert.Empty(t, le.Names(trooper.KindListener))
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, err, trooper.ErrTeardownFailed)
	assert.Contains(t, err.Error(), "trooper x")
	assert.NotContains(t, err.Error(), "trooper y")
}

// ── Ordering and idempotence ──────────────────────────────────────────────────

func TestSupervisor_ListenersRunBeforeTroopers(t *testing.T) {
	j := &journal{}
	sup := trooper.New().
		Register(&fakeTrooper{name: "t1", j: j}).
		RegisterListener(&fakeListener{name: "l1", j: j}).
		Register(&fakeTrooper{name: "t2", j: j}).
		RegisterListener(&fakeListener{name: "l2", j: j})

	require.NoError(t, sup.Start())
	require.NoError(t, sup.Stop())

	assert.Equal(t, []string{
		"pre-start:l1", "pre-start:l2", "prepare:t1", "prepare:t2",
		"pre-stop:l1", "pre-stop:l2", "stop:t1", "stop:t2",
	}, j.events)
}

func TestSupervisor_ListenerStartFailureIsFailFast(t *testing.T) {
	j := &journal{}
	sup := trooper.New().
		RegisterListener(&fakeListener{name: "l1", j: j, startErr: errBoom}).
		RegisterListener(&fakeListener{name: "l2", j: j}).
		Register(&fakeTrooper{name: "t1", j: j})

	err := sup.Start()

	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "listener l1")
	assert.Equal(t, []string{"pre-start:l1"}, j.events)
}

func TestSupervisor_StopIsBestEffort(t *testing.T) {
	j := &journal{}
	sup := trooper.New().
		RegisterListener(&fakeListener{name: "l1", j: j, stopErr: errBoom}).
		RegisterListener(&fakeListener{name: "l2", j: j}).
		Register(&fakeTrooper{name: "t1", j: j, stopErr: errors.New("disk full")}).
		Register(&fakeTrooper{name: "t2", j: j})
	require.NoError(t, sup.Start())
	j.events = nil

	err := sup.Stop()

	assert.Equal(t, []string{"pre-stop:l1", "pre-stop:l2", "stop:t1", "stop:t2"}, j.events)
	var le *trooper.LifecycleError
	require.True(t, errors.As(err, &le))
	require.Len(t, le.Failures, 2)
	assert.Equal(t, trooper.Failure{Kind: trooper.KindListener, Name: "l1", Err: errBoom}, le.Failures[0])
	assert.Equal(t, "t1", le.Failures[1].Name)
	assert.Len(t, le.Unwrap(), 2)
	assert.Equal(t, trooper.Stopped, sup.State())

	// the failed stop cannot be retried, nor the supervisor restarted
	j.events = nil
	assert.NoError(t, sup.Stop())
	assert.ErrorIs(t, sup.Start(), trooper.ErrRestartAfterFailedStop)
	assert.Empty(t, j.events)
}

func TestSupervisor_StopBeforeStartTouchesNothing(t *testing.T) {
	j := &journal{}
	sup := trooper.New().
		RegisterListener(&fakeListener{name: "l1", j: j}).
		Register(&fakeTrooper{name: "t1", j: j})

	assert.NoError(t, sup.Stop())
	assert.Empty(t, j.events)
	assert.Equal(t, trooper.Unstarted, sup.State())
}

func TestSupervisor_CleanStopAllowsRestart(t *testing.T) {
	j := &journal{}
	sup := trooper.New().Register(&fakeTrooper{name: "t1", j: j})

	require.NoError(t, sup.Start())
	require.NoError(t, sup.Stop())
	require.NoError(t, sup.Start())

	assert.Equal(t, []string{"prepare:t1", "stop:t1", "prepare:t1"}, j.events)
	assert.Equal(t, trooper.Started, sup.State())
}

func TestSupervisor_RegisterOrdered(t *testing.T) {
	j := &journal{}
	late := &fakeTrooper{name: "late", j: j}
	first := &fakeTrooper{name: "first", j: j}
	second := &fakeTrooper{name: "second", j: j}
	plain := &fakeTrooper{name: "plain", j: j}

	sup := trooper.New().
		Register(late).
		RegisterOrdered(second, 2).
		Register(plain).
		RegisterOrdered(first, 1)

	names := func() []string {
		var out []string
		for _, tr := range sup.Troopers() {
			out = append(out, tr.Name())
		}
		return out
	}
	assert.Equal(t, []string{"first", "second", "late", "plain"}, names())

	require.NoError(t, sup.Start())
	assert.Equal(t, []string{"prepare:first", "prepare:second", "prepare:late", "prepare:plain"}, j.events)
}

func TestSupervisor_DuplicateRegistrationsIgnored(t *testing.T) {
	j := &journal{}
	tr := &fakeTrooper{name: "t1", j: j}
	l := &fakeListener{name: "l1", j: j}

	sup := trooper.New().Register(tr).Register(tr).RegisterListener(l).RegisterListener(l)
	require.NoError(t, sup.Start())

	assert.Equal(t, []string{"pre-start:l1", "prepare:t1"}, j.events)
	assert.Len(t, sup.Troopers(), 1)
}

type panickingTrooper struct{ fakeTrooper }

func (p *panickingTrooper) Stop() error { panic("stop exploded") }

func TestSupervisor_PanicsBecomeFailures(t *testing.T) {
	j := &journal{}
	sup := trooper.New().
		Register(&panickingTrooper{fakeTrooper{name: "p", j: j}}).
		Register(&fakeTrooper{name: "t2", j: j})
	require.NoError(t, sup.Start())

	var err error
	require.NotPanics(t, func() { err = sup.Stop() })

	var le *trooper.LifecycleError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, []string{"p"}, le.Names(trooper.KindTrooper))
	assert.Contains(t, j.events, "stop:t2")
}
