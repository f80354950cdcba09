// Package app is the process kernel. It turns Settings into a logger, a
// configuration provider chain, a Prometheus registry, a supervisor and the
// admin server, and hands out containers that share all of them.
//
//	application, err := app.New(config.Load())
//	if err != nil { ... }
//	application.Container("storage", storage.Namespace())
//	application.Container("api", api.Namespace())
//	return application.Run(ctx)
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/km-arc/go-trooper/framework/config"
	"github.com/km-arc/go-trooper/framework/container"
	"github.com/km-arc/go-trooper/framework/logger"
	"github.com/km-arc/go-trooper/framework/metrics"
	"github.com/km-arc/go-trooper/framework/trooper"
	"github.com/km-arc/go-trooper/framework/web"
)

// Application owns the supervisor and everything containers share.
type Application struct {
	Settings   *config.Settings
	Supervisor *trooper.Supervisor
	Registry   *prometheus.Registry // nil when metrics are disabled
	Metrics    *metrics.Processor   // nil when metrics are disabled
	Admin      *web.Admin           // nil when the admin server is disabled

	providers []container.ConfigurationProvider
}

// New validates settings and builds the kernel. Nothing is started.
func New(settings *config.Settings) (*Application, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := logger.Init(logger.Config{
		Level:  settings.Log.Level,
		Format: settings.Log.Format,
		Output: settings.Log.Output,
	}); err != nil {
		return nil, fmt.Errorf("app: logger: %w", err)
	}

	a := &Application{
		Settings:   settings,
		Supervisor: trooper.New(),
	}

	// Environment first: it overrides every file.
	env, err := config.NewEnvProvider(settings.Container.EnvPrefix)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.providers = append(a.providers, env)
	if len(settings.Container.ConfigFiles) > 0 {
		files, err := config.NewFileProvider(settings.Container.ConfigFiles...)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.providers = append(a.providers, files)
	}

	var gatherer prometheus.Gatherer
	if settings.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewProcessor(a.Registry)
		gatherer = a.Registry
	}

	if settings.Admin.Enabled {
		a.Admin = web.NewAdmin(settings.Admin.Addr, a.Supervisor, gatherer, settings.Admin.ShutdownTimeout)
		a.Supervisor.RegisterListener(a.Admin)
	}

	logger.Info("application bootstrapped",
		"app", settings.App.Name,
		"env", settings.App.Env,
		"providers", len(a.providers),
		"metrics", settings.Metrics.Enabled,
		"admin", settings.Admin.Enabled,
	)
	return a, nil
}

// Providers returns the shared configuration provider chain.
func (a *Application) Providers() []container.ConfigurationProvider {
	return append([]container.ConfigurationProvider(nil), a.providers...)
}

// Container creates a container scanning namespaces, wires the shared
// providers and metrics into it, and registers it with the supervisor.
func (a *Application) Container(name string, namespaces ...*container.Namespace) *container.Container {
	return a.ContainerOrdered(name, trooper.DefaultOrder, namespaces...)
}

// ContainerOrdered is Container with an explicit supervisor order.
func (a *Application) ContainerOrdered(name string, order int, namespaces ...*container.Namespace) *container.Container {
	c := container.New(name).Strict(a.Settings.Container.StrictBindings)
	for _, p := range a.providers {
		c.RegisterConfigurationProvider(p)
	}
	if a.Metrics != nil {
		c.Scan(metrics.Namespace(a.Metrics))
	}
	c.Scan(namespaces...)
	a.Supervisor.RegisterOrdered(c, order)
	return c
}

// Start starts the supervisor. When it fails the admin server, which is
// already listening by then, is shut down again; troopers that were
// prepared are left as they are.
func (a *Application) Start() error {
	err := a.Supervisor.Start()
	if err == nil || a.Admin == nil {
		return err
	}
	if stopErr := a.Admin.PreStop(); stopErr != nil {
		logger.Error("admin shutdown after failed start", "error", stopErr)
		err = multierr.Append(err, stopErr)
	}
	return err
}

// Stop stops the supervisor.
func (a *Application) Stop() error { return a.Supervisor.Stop() }

// Run starts the supervisor, blocks until ctx is done or the process gets
// SIGINT or SIGTERM, then stops it.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(); err != nil {
		return err
	}
	logger.Info("application running", "app", a.Settings.App.Name)

	<-ctx.Done()
	logger.Info("shutting down", "app", a.Settings.App.Name, "cause", context.Cause(ctx))
	return multierr.Append(a.Stop(), logger.Close())
}
