package container

import (
	"reflect"
	"strings"
	"unsafe"

	"github.com/km-arc/go-trooper/framework/logger"
)

// ── Struct tag markers ────────────────────────────────────────────────────────
//
//	type Server struct {
//	    Addr    string        `config:"server.addr,required"`
//	    Timeout time.Duration `config:",value=server.timeout"`
//	    Clock   Clock         `external:"clock"`
//	    Store   Store         `inject:"primary"`
//	    Cache   Cache         `inject:",optional"`
//	}

const (
	tagConfig   = "config"
	tagExternal = "external"
	tagInject   = "inject"
)

// markerSpec is a parsed struct tag.
type markerSpec struct {
	name     string
	fallback string
	required bool
	optional bool
}

// key returns the explicit name, else the fallback attribute.
func (m markerSpec) key() string {
	if k := strings.TrimSpace(m.name); k != "" {
		return k
	}
	return strings.TrimSpace(m.fallback)
}

func parseMarker(tag string) markerSpec {
	parts := strings.Split(tag, ",")
	spec := markerSpec{name: parts[0]}
	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		switch {
		case opt == "required":
			spec.required = true
		case opt == "optional":
			spec.optional = true
		case strings.HasPrefix(opt, "value="):
			spec.fallback = strings.TrimPrefix(opt, "value=")
		}
	}
	return spec
}

// ── Value sources ─────────────────────────────────────────────────────────────

// valueSource answers "what is the value for key, as typ?".
type valueSource interface {
	lookup(key string, typ reflect.Type) (any, bool)
}

// configChain is the ordered ConfigurationProvider chain.
type configChain struct {
	providers []ConfigurationProvider
}

func (c *configChain) register(p ConfigurationProvider) {
	c.providers = append(c.providers, p)
	logger.Debug("registered configuration provider", "provider", typeName(reflect.TypeOf(p)))
}

// lookup asks the providers that contain key, in order. A provider that
// holds key but cannot produce it as typ passes to the next one.
func (c *configChain) lookup(key string, typ reflect.Type) (any, bool) {
	for _, p := range c.providers {
		if !p.Contains(key) {
			continue
		}
		if v, ok := p.Value(key, typ); ok {
			return v, true
		}
		logger.Debug("configuration value not convertible, trying next provider",
			"provider", typeName(reflect.TypeOf(p)), "key", key, "type", typeName(typ))
	}
	return nil, false
}

// externalRegistry is the flat name → value map.
type externalRegistry struct {
	values map[string]any
}

func newExternalRegistry() *externalRegistry {
	return &externalRegistry{values: make(map[string]any)}
}

func (e *externalRegistry) register(name string, value any) {
	e.values[name] = value
	logger.Debug("registered external", "name", name)
}

func (e *externalRegistry) lookup(key string, _ reflect.Type) (any, bool) {
	v, ok := e.values[key]
	return v, ok
}

// ── Marker injector ───────────────────────────────────────────────────────────

// markerInjector fills tagged fields, then descriptor setters, from one
// source. The configuration injector and the external value injector are
// two instances of it.
type markerInjector struct {
	tag    string
	source Source
	values valueSource
}

func newConfigurationInjector(chain *configChain) *markerInjector {
	return &markerInjector{tag: tagConfig, source: FromConfig, values: chain}
}

func newExternalValueInjector(reg *externalRegistry) *markerInjector {
	return &markerInjector{tag: tagExternal, source: FromExternal, values: reg}
}

// inject processes every marker on target. It returns an InjectionError
// for the first required marker that cannot be satisfied.
func (m *markerInjector) inject(target any, d *Descriptor) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
		if err := m.injectFields(rv.Elem()); err != nil {
			return err
		}
	}
	if d == nil {
		return nil
	}
	for _, s := range d.Setters {
		if s.Source != m.source {
			continue
		}
		if err := m.injectSetter(rv, s); err != nil {
			return err
		}
	}
	return nil
}

func (m *markerInjector) injectFields(sv reflect.Value) error {
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup(m.tag)
		if !ok {
			continue
		}
		spec := parseMarker(tag)
		key := spec.key()
		if key == "" {
			logger.Warn("marker has no key, skipping", "marker", m.tag, "component", st.String(), "field", f.Name)
			continue
		}
		fail := func(reason string) error {
			return m.fail(st.String(), f.Name, key, spec.required, reason)
		}

		value, found := m.values.lookup(key, f.Type)
		if !found || value == nil {
			if err := fail("value not found"); err != nil {
				return err
			}
			continue
		}
		if !reflect.TypeOf(value).AssignableTo(f.Type) {
			if err := fail("value of type " + typeName(reflect.TypeOf(value)) + " is not assignable to " + typeName(f.Type)); err != nil {
				return err
			}
			continue
		}
		settable(sv.Field(i)).Set(reflect.ValueOf(value))
		logger.Debug("injected field", "marker", m.tag, "component", st.String(), "field", f.Name, "key", key)
	}
	return nil
}

func (m *markerInjector) injectSetter(rv reflect.Value, s Setter) error {
	component := typeName(rv.Type())
	key := s.Key
	if key == "" {
		key = s.Fallback
	}
	if key == "" {
		logger.Warn("setter has no key, skipping", "marker", m.tag, "component", component, "method", s.Method)
		return nil
	}
	fail := func(reason string) error {
		return m.fail(component, s.Method, key, s.Required, reason)
	}

	mv := rv.MethodByName(s.Method)
	if !mv.IsValid() {
		return fail("method must exist and be exported")
	}
	mt := mv.Type()
	if mt.NumOut() != 0 {
		return fail("method must not return a value")
	}
	if mt.NumIn() != 1 || mt.IsVariadic() {
		return fail("method must take exactly one parameter")
	}

	value, found := m.values.lookup(key, mt.In(0))
	if !found || value == nil {
		return fail("value not found")
	}
	if !reflect.TypeOf(value).AssignableTo(mt.In(0)) {
		return fail("value of type " + typeName(reflect.TypeOf(value)) + " is not assignable to " + typeName(mt.In(0)))
	}
	err := guard(component+"#"+s.Method, func() error {
		mv.Call([]reflect.Value{reflect.ValueOf(value)})
		return nil
	})
	if err != nil {
		return fail(err.Error())
	}
	logger.Debug("injected setter", "marker", m.tag, "component", component, "method", s.Method, "key", key)
	return nil
}

// fail returns an InjectionError for required markers and logs the rest.
func (m *markerInjector) fail(component, target, key string, required bool, reason string) error {
	ie := &InjectionError{Component: component, Target: target, Key: key, Required: required, Reason: reason}
	if required {
		return ie
	}
	logger.Warn("optional injection skipped", "marker", m.tag, "component", component,
		"target", target, "key", key, "reason", reason)
	return nil
}

// settable returns a writable view of f, including unexported fields.
func settable(f reflect.Value) reflect.Value {
	if f.CanSet() {
		return f
	}
	return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
}
