package app_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-trooper/framework/app"
	"github.com/km-arc/go-trooper/framework/config"
	"github.com/km-arc/go-trooper/framework/container"
	"github.com/km-arc/go-trooper/framework/trooper"
)

type Clock interface{ Now() time.Time }

type fixedClock struct {
	Zone string `config:"clock.zone"`
	at   time.Time
}

func (c *fixedClock) Initialize() error {
	c.at = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return nil
}

func (c *fixedClock) Now() time.Time { return c.at }

func clockNamespace() *container.Namespace {
	return container.NewNamespace("clock").
		Bindable(container.TypeOf[Clock]()).
		Component(container.Descriptor{Type: container.TypeOf[*fixedClock](), Singleton: true})
}

func settings() *config.Settings {
	return &config.Settings{
		App:       config.AppSettings{Name: "test", Env: "testing"},
		Log:       config.LogSettings{Level: "error", Format: "text", Output: "stderr"},
		Container: config.ContainerSettings{EnvPrefix: "KERNEL_TEST"},
		Admin:     config.AdminSettings{Enabled: false, ShutdownTimeout: time.Second},
		Metrics:   config.MetricsSettings{Enabled: true},
	}
}

func TestNew_RejectsInvalidSettings(t *testing.T) {
	s := settings()
	s.Log.Format = "xml"

	_, err := app.New(s)

	var verr *config.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestNew_MissingConfigFile(t *testing.T) {
	s := settings()
	s.Container.ConfigFiles = []string{"testdata/missing.yaml"}

	_, err := app.New(s)

	assert.Error(t, err)
}

func TestApplication_ContainersShareProvidersAndMetrics(t *testing.T) {
	t.Setenv("KERNEL_TEST_CLOCK_ZONE", "Europe/Paris")

	a, err := app.New(settings())
	require.NoError(t, err)
	require.NotNil(t, a.Registry)
	assert.Nil(t, a.Admin)
	assert.Len(t, a.Providers(), 1)

	c := a.Container("clock", clockNamespace())
	assert.Equal(t, []trooper.Trooper{c}, a.Supervisor.Troopers())

	require.NoError(t, a.Start())
	clock, ok := container.Get[Clock](container.MustLookup(c))
	require.True(t, ok)
	assert.Equal(t, "Europe/Paris", clock.(*fixedClock).Zone)
	assert.Equal(t, 2024, clock.Now().Year())

	n, err := testutil.GatherAndCount(a.Registry, "trooper_component_initializations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, a.Stop())
	assert.Equal(t, container.Stopped, c.State())
}

func TestApplication_ContainerOrdered(t *testing.T) {
	s := settings()
	s.Metrics.Enabled = false
	a, err := app.New(s)
	require.NoError(t, err)
	assert.Nil(t, a.Metrics)

	api := a.Container("api")
	storage := a.ContainerOrdered("storage", 1)

	assert.Equal(t, []trooper.Trooper{storage, api}, a.Supervisor.Troopers())
}

func TestApplication_RunStopsWhenContextEnds(t *testing.T) {
	s := settings()
	s.Admin = config.AdminSettings{Enabled: true, Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}
	a, err := app.New(s)
	require.NoError(t, err)
	require.NotNil(t, a.Admin)
	c := a.Container("clock", clockNamespace())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return c.State() == container.Ready }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, trooper.Stopped, a.Supervisor.State())
	assert.Equal(t, container.Stopped, c.State())
}

type brokenClock struct{ fixedClock }

func (*brokenClock) Initialize() error { return errors.New("no time source") }

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestApplication_FailedStartShutsAdminDown(t *testing.T) {
	s := settings()
	addr := freeAddr(t)
	s.Admin = config.AdminSettings{Enabled: true, Addr: addr, ShutdownTimeout: time.Second}
	a, err := app.New(s)
	require.NoError(t, err)
	c := a.Container("clock", container.NewNamespace("clock").
		Component(container.Descriptor{Type: container.TypeOf[*brokenClock](), Value: "clock", Singleton: true}))

	err = a.Run(context.Background())

	assert.ErrorIs(t, err, container.ErrStartupFailed)
	assert.Contains(t, err.Error(), "no time source")
	assert.Equal(t, container.StartupFailed, c.State())
	assert.Equal(t, trooper.Unstarted, a.Supervisor.State())

	_, err = http.Get("http://" + addr + "/healthz")
	assert.Error(t, err)
}
