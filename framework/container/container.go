package container

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/km-arc/go-trooper/framework/logger"
)

// ── State ─────────────────────────────────────────────────────────────────────

// State is the lifecycle state of a Container.
type State int

const (
	Unprepared State = iota
	Preparing
	Ready
	StartupFailed
	Stopped
)

func (s State) String() string {
	switch s {
	case Unprepared:
		return "unprepared"
	case Preparing:
		return "preparing"
	case Ready:
		return "ready"
	case StartupFailed:
		return "startup-failed"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is one trooper: a registration surface that, once prepared,
// owns a frozen binding table and the components built from it.
//
//	c := container.New("shapes").Scan(shapes)
//	c.RegisterExternal("clock", clock)
//	c.RegisterConfigurationProvider(config.NewMapProvider(values))
//	if err := c.Prepare(); err != nil { ... }
//	defer c.Stop()
//
//	l, _ := c.Lookup()
//	canvas := l.Named("canvas").(*Canvas)
//
// Registration calls made after Prepare are ignored with a warning.
type Container struct {
	mu sync.Mutex

	name       string
	strict     bool
	namespaces []*Namespace
	modules    []Module
	externals  *externalRegistry
	config     *configChain

	// state is readable without mu, also during Prepare.
	state atomic.Int32
	orch  *orchestrator
}

// New creates an unprepared container.
func New(name string) *Container {
	return &Container{
		name:      name,
		externals: newExternalRegistry(),
		config:    &configChain{},
	}
}

// Name returns the container name (the trooper name in supervisor output).
func (c *Container) Name() string { return c.name }

// State returns the current lifecycle state.
func (c *Container) State() State {
	return State(c.state.Load())
}

func (c *Container) setState(st State) { c.state.Store(int32(st)) }

// ── Registration ──────────────────────────────────────────────────────────────

// registering reports whether registrations still take effect.
func (c *Container) registering(what string) bool {
	if c.State() == Unprepared {
		return true
	}
	logger.Warn("registration ignored", "trooper", c.name, "registration", what, "state", c.State().String())
	return false
}

// Strict turns binding collisions into prepare errors.
func (c *Container) Strict(strict bool) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registering("strict") {
		c.strict = strict
	}
	return c
}

// Scan adds namespaces. Discovery order is the order of the calls.
func (c *Container) Scan(namespaces ...*Namespace) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registering("namespace") {
		c.namespaces = append(c.namespaces, namespaces...)
	}
	return c
}

// Modules adds supplemental binding modules.
func (c *Container) Modules(modules ...Module) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registering("module") {
		c.modules = append(c.modules, modules...)
	}
	return c
}

// RegisterExternal stores value under name for `external` markers.
func (c *Container) RegisterExternal(name string, value any) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registering("external") {
		c.externals.register(name, value)
	}
	return c
}

// RegisterEntity stores e wholesale under its ExternalName.
func (c *Container) RegisterEntity(e ExternalEntity) *Container {
	return c.RegisterExternal(e.ExternalName(), e)
}

// RegisterConfigurationProvider appends p to the provider chain.
func (c *Container) RegisterConfigurationProvider(p ConfigurationProvider) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registering("configuration provider") {
		c.config.register(p)
	}
	return c
}

// ── Lifecycle ─────────────────────────────────────────────────────────────────

// Prepare freezes registrations, resolves bindings, loads processors and
// preloads every singleton. It is all-or-nothing: on failure the container
// moves to StartupFailed and can never be prepared again. A second call on
// a prepared container is a no-op.
func (c *Container) Prepare() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case Unprepared:
	case StartupFailed:
		return fmt.Errorf("container %s: %w: prepare is not retried", c.name, ErrStartupFailed)
	default:
		logger.Warn("container already prepared", "trooper", c.name, "state", c.State().String())
		return nil
	}

	c.setState(Preparing)
	logger.Info("preparing container", "trooper", c.name)

	table, err := newBindingResolver(c.strict).resolve(c.namespaces, c.modules)
	if err != nil {
		c.setState(StartupFailed)
		logger.Error("binding resolution failed", "trooper", c.name, "error", err)
		return &StartupError{Trooper: c.name, Cause: err}
	}

	orch := newOrchestrator(c.name, table, c.config, c.externals)
	if err := orch.start(); err != nil {
		c.setState(StartupFailed)
		return err
	}

	c.orch = orch
	c.setState(Ready)
	logger.Info("container ready", "trooper", c.name)
	return nil
}

// Stop disposes every preloaded Disposable, best-effort. It is a no-op
// unless the container is Ready. The returned error combines every
// disposal failure.
func (c *Container) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() != Ready {
		logger.Debug("stop ignored", "trooper", c.name, "state", c.State().String())
		return nil
	}
	logger.Info("stopping container", "trooper", c.name)
	err := c.orch.stop()
	c.setState(Stopped)
	return err
}

// Lookup returns the lookup facade. It fails with ErrNotPrepared unless the
// container is Ready.
func (c *Container) Lookup() (Lookup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != Ready {
		return nil, fmt.Errorf("container %s is %s: %w", c.name, c.State(), ErrNotPrepared)
	}
	return c.orch.lookup, nil
}

// Bindings lists the keys of the frozen binding table, in registration
// order. Empty before Prepare.
func (c *Container) Bindings() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.orch == nil {
		return nil
	}
	var keys []Key
	for _, b := range c.orch.table.ordered {
		if c.orch.table.index[b.key] == b {
			keys = append(keys, b.key)
		}
	}
	return keys
}

// MustLookup is Lookup for wiring code that runs after a successful Prepare.
func MustLookup(c *Container) Lookup {
	l, err := c.Lookup()
	if err != nil {
		panic(err)
	}
	return l
}

// Bound reports whether capability (or name) has a binding. Useful in
// tests and admin output.
func (c *Container) Bound(capability reflect.Type, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.orch == nil {
		return false
	}
	_, ok := c.orch.table.lookup(Key{Capability: capability, Name: name})
	return ok
}
