package container_test

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/km-arc/go-trooper/framework/container"
)

// ── Shapes ────────────────────────────────────────────────────────────────────

type Shape interface{ Kind() string }

type Triangle struct{ sides int }

func (*Triangle) Kind() string { return "triangle" }

type Square struct{ sides int }

func (*Square) Kind() string { return "square" }

type Circle struct{ radius float64 }

func (*Circle) Kind() string { return "circle" }

type Canvas struct {
	Triangle Shape `inject:"triangle"`
	Square   Shape `inject:"square"`
	Circle   Shape `inject:"circle"`
}

func shapesNamespace() *container.Namespace {
	return container.NewNamespace("shapes").
		Bindable(container.TypeOf[Shape]()).
		Component(container.Descriptor{Type: container.TypeOf[*Triangle](), Value: "triangle"}).
		Component(container.Descriptor{Type: container.TypeOf[*Square](), Value: "square"}).
		Component(container.Descriptor{Type: container.TypeOf[*Circle](), Value: "circle"}).
		Component(container.Descriptor{
			Type:      container.TypeOf[*Canvas](),
			Value:     "canvas",
			NamedOnly: true,
			Singleton: true,
		})
}

// ── Greeters ──────────────────────────────────────────────────────────────────

type Greeter interface{ Greet() string }

type Namer interface{ Name() string }

type English struct{ id int }

func (*English) Greet() string { return "hello" }
func (*English) Name() string  { return "english" }

// ── Configuration ─────────────────────────────────────────────────────────────

// mapProvider is a minimal ConfigurationProvider.
type mapProvider map[string]any

func (m mapProvider) Contains(key string) bool {
	_, ok := m[key]
	return ok
}

func (m mapProvider) Value(key string, _ reflect.Type) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// typedProvider only answers values already of the requested type.
type typedProvider map[string]any

func (m typedProvider) Contains(key string) bool {
	_, ok := m[key]
	return ok
}

func (m typedProvider) Value(key string, typ reflect.Type) (any, bool) {
	v, ok := m[key]
	if !ok || !reflect.TypeOf(v).AssignableTo(typ) {
		return nil, false
	}
	return v, true
}

// ── Recording fakes ───────────────────────────────────────────────────────────

type recorder struct{ events []string }

func (r *recorder) add(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

type identified interface{ ID() string }

// recProcessor records every hook for identified components.
type recProcessor struct {
	id  string
	rec *recorder
}

func (p *recProcessor) ID() string { return p.id }

func (p *recProcessor) AfterInjection(c any) error {
	if i, ok := c.(identified); ok {
		p.rec.add("%s:after-injection:%s", p.id, i.ID())
	}
	return nil
}

func (p *recProcessor) BeforeInitialization(c any) error {
	if i, ok := c.(identified); ok {
		p.rec.add("%s:before-init:%s", p.id, i.ID())
	}
	return nil
}

func (p *recProcessor) AfterInitialization(c any) error {
	if i, ok := c.(identified); ok {
		p.rec.add("%s:after-init:%s", p.id, i.ID())
	}
	return nil
}

// Initialize must never run: processors skip phase B.
func (p *recProcessor) Initialize() error {
	p.rec.add("%s:initialize", p.id)
	return nil
}

func processorDescriptor(id string, rec *recorder) container.Descriptor {
	return container.Descriptor{
		Type: container.TypeOf[*recProcessor](),
		Factory: func(container.Resolver) (any, error) {
			return &recProcessor{id: id, rec: rec}, nil
		},
	}
}

// tracked records its lifecycle and can be told to fail.
type tracked struct {
	id         string
	rec        *recorder
	Port       int `config:"port"`
	initErr    error
	disposeErr error
	lookup     container.Lookup
}

func (t *tracked) ID() string { return t.id }

func (t *tracked) SetLookup(l container.Lookup) {
	t.lookup = l
	t.rec.add("%s:set-lookup", t.id)
}

func (t *tracked) Initialize() error {
	t.rec.add("%s:initialize(port=%d)", t.id, t.Port)
	return t.initErr
}

func (t *tracked) Dispose() error {
	t.rec.add("%s:dispose", t.id)
	return t.disposeErr
}

func trackedDescriptor(id string, rec *recorder, initErr, disposeErr error) container.Descriptor {
	return container.Descriptor{
		Type:      container.TypeOf[*tracked](),
		Value:     id,
		NamedOnly: true,
		Singleton: true,
		Factory: func(container.Resolver) (any, error) {
			return &tracked{id: id, rec: rec, initErr: initErr, disposeErr: disposeErr}, nil
		},
	}
}

var errBoom = errors.New("boom")
