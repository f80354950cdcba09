package container

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/multierr"

	"github.com/km-arc/go-trooper/framework/logger"
)

// orchestrator drives construction, phase A (after injection), phase B
// (initialization), singleton preload and disposal for one container.
//
// Component states: constructed → after-injected → initialized or
// skipped-init → possibly disposed.
type orchestrator struct {
	trooper   string
	table     *bindingTable
	config    *markerInjector
	externals *markerInjector

	// handle given to ContextAware components
	lookup Lookup

	processors  []Processor
	singletons  map[*Descriptor]any
	disposables []disposable
	collected   map[*Descriptor]bool

	// building holds the descriptors under construction while preloading,
	// across every build stack (lookups from hooks start their own).
	preloading bool
	building   map[*Descriptor]bool

	startupFailed bool
}

type disposable struct {
	desc *Descriptor
	d    Disposable
}

func newOrchestrator(trooper string, table *bindingTable, chain *configChain, externals *externalRegistry) *orchestrator {
	o := &orchestrator{
		trooper:    trooper,
		table:      table,
		config:     newConfigurationInjector(chain),
		externals:  newExternalValueInjector(externals),
		singletons: make(map[*Descriptor]any),
		collected:  make(map[*Descriptor]bool),
		building:   make(map[*Descriptor]bool),
	}
	o.lookup = &lookupFacade{o: o}
	return o
}

// ── Build state ───────────────────────────────────────────────────────────────

// buildState tracks the descriptors under construction for one top-level
// request. It is also the Resolver handed to factories, so nested
// resolutions share the stack.
type buildState struct {
	o     *orchestrator
	stack []*Descriptor
}

func (o *orchestrator) newBuild() *buildState { return &buildState{o: o} }

func (s *buildState) push(d *Descriptor) error {
	for i, on := range s.stack {
		if on == d {
			path := make([]string, 0, len(s.stack)-i+1)
			for _, p := range s.stack[i:] {
				path = append(path, p.String())
			}
			path = append(path, d.String())
			return fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(path, " -> "))
		}
	}
	s.stack = append(s.stack, d)
	return nil
}

func (s *buildState) pop() { s.stack = s.stack[:len(s.stack)-1] }

// Resolve builds (or returns the cached singleton of) the binding under
// (capability, name). A named request falls back to the name-only binding
// when its value satisfies capability.
func (s *buildState) Resolve(capability reflect.Type, name string) (any, error) {
	key := Key{Capability: capability, Name: name}
	b, ok := s.o.table.lookup(key)
	if !ok && capability != nil && name != "" {
		if nb, found := s.o.table.lookup(Key{Name: name}); found && satisfies(nb.desc, capability) {
			b, ok = nb, true
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoBinding, key)
	}
	v, err := s.construct(b)
	if err != nil {
		return nil, err
	}
	if capability != nil && !reflect.TypeOf(v).AssignableTo(capability) {
		return nil, fmt.Errorf("%w for %s: built %s", ErrNoBinding, key, typeName(reflect.TypeOf(v)))
	}
	return v, nil
}

// satisfies reports whether d could serve capability. Factory-only
// descriptors are checked after construction.
func satisfies(d *Descriptor, capability reflect.Type) bool {
	if d.Type == nil {
		return true
	}
	if capability.Kind() == reflect.Interface {
		return d.Type.Implements(capability)
	}
	return d.Type.AssignableTo(capability)
}

// ── Construction ──────────────────────────────────────────────────────────────

// construct returns the component for b, running phase A and (unless it is
// a processor) phase B on fresh instances.
func (s *buildState) construct(b *binding) (any, error) {
	o, d := s.o, b.desc
	if d.Singleton {
		if v, ok := o.singletons[d]; ok {
			return v, nil
		}
	}
	if err := s.push(d); err != nil {
		return nil, err
	}
	defer s.pop()
	if o.preloading {
		if o.building[d] {
			return nil, fmt.Errorf("%w: %s is requested again while it is being built", ErrCircularDependency, d)
		}
		o.building[d] = true
		defer delete(o.building, d)
	}

	logger.Debug("constructing component", "trooper", o.trooper, "key", b.key.String(), "type", typeName(d.Type))

	raw, err := s.instantiate(d)
	if err != nil {
		return nil, err
	}
	if err := s.injectDependencies(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", d, err)
	}
	if err := o.afterInjection(raw, d); err != nil {
		return nil, fmt.Errorf("%s: %w", d, err)
	}
	if !d.processor {
		if err := o.initialize(raw, d); err != nil {
			return nil, fmt.Errorf("%s: %w", d, err)
		}
	}
	if d.Singleton {
		o.singletons[d] = raw
	}
	return raw, nil
}

func (s *buildState) instantiate(d *Descriptor) (any, error) {
	if d.Factory == nil {
		return reflect.New(d.Type.Elem()).Interface(), nil
	}
	var raw any
	err := guard(d.String()+" factory", func() error {
		var ferr error
		raw, ferr = d.Factory(s)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("%s: factory: %w", d, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: factory returned nil", d)
	}
	return raw, nil
}

// injectDependencies fills `inject`-tagged fields from the binding table.
func (s *buildState) injectDependencies(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil
	}
	sv := rv.Elem()
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup(tagInject)
		if !ok {
			continue
		}
		spec := parseMarker(tag)
		v, err := s.Resolve(f.Type, spec.key())
		if err != nil {
			if spec.optional {
				logger.Warn("optional dependency skipped", "trooper", s.o.trooper,
					"component", st.String(), "field", f.Name, "error", err)
				continue
			}
			return &InjectionError{
				Component: st.String(),
				Target:    f.Name,
				Key:       Key{Capability: f.Type, Name: spec.key()}.String(),
				Required:  true,
				Reason:    err.Error(),
				Cause:     err,
			}
		}
		settable(sv.Field(i)).Set(reflect.ValueOf(v))
	}
	return nil
}

// ── Phase A / phase B ─────────────────────────────────────────────────────────

// afterInjection hands out the lookup, runs config and external injection,
// then every processor's AfterInjection in registration order.
func (o *orchestrator) afterInjection(c any, d *Descriptor) error {
	if ca, ok := c.(ContextAware); ok {
		err := guard("SetLookup", func() error {
			ca.SetLookup(o.lookup)
			return nil
		})
		if err != nil {
			return err
		}
	}
	if err := o.config.inject(c, d); err != nil {
		return err
	}
	if err := o.externals.inject(c, d); err != nil {
		return err
	}
	for _, p := range o.processors {
		if err := guard("AfterInjection", func() error { return p.AfterInjection(c) }); err != nil {
			return fmt.Errorf("processor %T: %w", p, err)
		}
	}
	return nil
}

// initialize runs phase B when c has something to initialize.
func (o *orchestrator) initialize(c any, d *Descriptor) error {
	init := initFunc(c, d)
	if init == nil {
		return nil
	}
	for _, p := range o.processors {
		if err := guard("BeforeInitialization", func() error { return p.BeforeInitialization(c) }); err != nil {
			return fmt.Errorf("processor %T: %w", p, err)
		}
	}
	if err := guard("initialize", init); err != nil {
		return err
	}
	for _, p := range o.processors {
		if err := guard("AfterInitialization", func() error { return p.AfterInitialization(c) }); err != nil {
			return fmt.Errorf("processor %T: %w", p, err)
		}
	}
	logger.Debug("component initialized", "trooper", o.trooper, "type", typeName(reflect.TypeOf(c)))
	return nil
}

// initFunc returns Initialize, the descriptor's InitMethod, or nil.
func initFunc(c any, d *Descriptor) func() error {
	if in, ok := c.(Initializable); ok {
		return in.Initialize
	}
	if d == nil || d.InitMethod == "" {
		return nil
	}
	mv := reflect.ValueOf(c).MethodByName(d.InitMethod)
	if !mv.IsValid() {
		logger.Warn("init method not found", "type", typeName(reflect.TypeOf(c)), "method", d.InitMethod)
		return nil
	}
	mt := mv.Type()
	errType := TypeOf[error]()
	switch {
	case mt.NumIn() != 0:
	case mt.NumOut() == 0:
		return func() error {
			mv.Call(nil)
			return nil
		}
	case mt.NumOut() == 1 && mt.Out(0) == errType:
		return func() error {
			if out := mv.Call(nil)[0]; !out.IsNil() {
				return out.Interface().(error)
			}
			return nil
		}
	}
	logger.Warn("init method must take no arguments and return nothing or an error",
		"type", typeName(reflect.TypeOf(c)), "method", d.InitMethod)
	return nil
}

// ── Preload / stop ────────────────────────────────────────────────────────────

// start loads processors, then force-builds every singleton key in order.
// The first failure aborts the preload.
func (o *orchestrator) start() error {
	o.preloading = true
	defer func() { o.preloading = false }()

	for _, k := range o.table.processors {
		b, ok := o.table.lookup(k)
		if !ok {
			continue
		}
		v, err := o.newBuild().construct(b)
		if err != nil {
			return o.abort(k, err)
		}
		p, ok := v.(Processor)
		if !ok {
			return o.abort(k, fmt.Errorf("%w: %s built %T, not a Processor", ErrInvalidDescriptor, b.desc, v))
		}
		o.processors = append(o.processors, p)
		logger.Debug("processor loaded", "trooper", o.trooper, "type", fmt.Sprintf("%T", p))
	}

	for _, k := range o.table.singletons {
		b, ok := o.table.lookup(k)
		if !ok {
			continue
		}
		v, err := o.newBuild().construct(b)
		if err != nil {
			return o.abort(k, err)
		}
		if dv, ok := v.(Disposable); ok && !o.collected[b.desc] {
			o.collected[b.desc] = true
			o.disposables = append(o.disposables, disposable{desc: b.desc, d: dv})
		}
	}
	logger.Debug("preload complete", "trooper", o.trooper,
		"singletons", len(o.singletons), "disposables", len(o.disposables))
	return nil
}

func (o *orchestrator) abort(k Key, err error) error {
	o.startupFailed = true
	logger.Error("startup failed", "trooper", o.trooper, "key", k.String(), "error", err)
	return &StartupError{Trooper: o.trooper, Key: k, Cause: err}
}

// stop disposes every collected component. Failures are logged and
// combined; they never stop the remaining disposals.
func (o *orchestrator) stop() error {
	var errs error
	for _, entry := range o.disposables {
		err := guard("Dispose", entry.d.Dispose)
		if err != nil {
			logger.Error("dispose failed", "trooper", o.trooper, "component", entry.desc.String(), "error", err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", entry.desc, err))
			continue
		}
		logger.Debug("disposed", "trooper", o.trooper, "component", entry.desc.String())
	}
	return errs
}

// inject runs dependency injection and phase A/B on a caller-built object.
func (o *orchestrator) inject(target any) error {
	if target == nil {
		return fmt.Errorf("%w: cannot inject nil", ErrInvalidDescriptor)
	}
	d := o.table.byType[reflect.TypeOf(target)]
	if err := o.newBuild().injectDependencies(target); err != nil {
		return err
	}
	if err := o.afterInjection(target, d); err != nil {
		return err
	}
	return o.initialize(target, d)
}
