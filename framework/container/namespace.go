package container

import (
	"fmt"
	"reflect"
)

// Factory builds the raw component. Dependencies are pulled from r; any
// error aborts the construction.
type Factory func(r Resolver) (any, error)

// Source selects the registry a Setter reads from.
type Source int

const (
	FromConfig Source = iota
	FromExternal
)

func (s Source) String() string {
	if s == FromExternal {
		return "external"
	}
	return "config"
}

// Setter is a method injection point: a one-argument, no-result exported
// method fed from the configuration chain or the external registry.
type Setter struct {
	Method   string
	Source   Source
	Key      string
	Fallback string // used when Key is empty
	Required bool
}

// Descriptor describes one component (or processor) type.
type Descriptor struct {
	// Type is the concrete type identity, usually a pointer to a struct.
	Type reflect.Type

	// Value is the explicit name; it takes priority over Name.
	Value string
	Name  string

	// NamedOnly binds only under (no capability, name).
	NamedOnly bool

	// Singleton components are constructed once and preloaded at prepare.
	Singleton bool

	// Implements lists the capability interfaces the component declares.
	// Empty means "every capability known to the container that Type
	// implements".
	Implements []reflect.Type

	// Factory builds the raw value. Nil means reflect.New of Type's element.
	Factory Factory

	// InitMethod names a zero-argument method run in phase B when the
	// component is not Initializable.
	InitMethod string

	Setters []Setter

	processor bool
}

// name resolves the explicit binding name ("" when none).
func (d *Descriptor) name() string {
	if d.Value != "" {
		return d.Value
	}
	return d.Name
}

// String is used in log lines and error messages.
func (d *Descriptor) String() string {
	if d.Type == nil {
		if n := d.name(); n != "" {
			return n
		}
		return "factory"
	}
	if n := d.name(); n != "" {
		return fmt.Sprintf("%s(%s)", typeName(d.Type), n)
	}
	return typeName(d.Type)
}

// validate checks what can be checked before construction.
func (d *Descriptor) validate() error {
	if d.Type == nil && d.Factory == nil {
		return fmt.Errorf("%w: descriptor has neither Type nor Factory", ErrInvalidDescriptor)
	}
	if d.Factory == nil && (d.Type.Kind() != reflect.Pointer || d.Type.Elem().Kind() != reflect.Struct) {
		return fmt.Errorf("%w: %s needs a Factory (only *struct types are built automatically)",
			ErrInvalidDescriptor, typeName(d.Type))
	}
	for _, iface := range d.Implements {
		if iface == nil || iface.Kind() != reflect.Interface {
			return fmt.Errorf("%w: %s declares non-interface capability %s",
				ErrInvalidDescriptor, d, typeName(iface))
		}
		if d.Type != nil && !d.Type.Implements(iface) {
			return fmt.Errorf("%w: %s does not implement %s",
				ErrInvalidDescriptor, d, typeName(iface))
		}
	}
	return nil
}

// ── Capability markers ────────────────────────────────────────────────────────

type marker int

const (
	unmarked marker = iota
	bindable
	nonBindable
)

type capability struct {
	typ    reflect.Type
	marker marker
}

// ── Namespace ─────────────────────────────────────────────────────────────────

// Namespace is a named registration table: the set of components,
// processors and capability markers a container discovers when it scans it.
//
//	shapes := container.NewNamespace("shapes").
//	    Bindable(container.TypeOf[Shape]()).
//	    Component(container.Descriptor{Type: container.TypeOf[*Triangle](), Value: "triangle"}).
//	    Component(container.Descriptor{Type: container.TypeOf[*Canvas](), Value: "canvas", Singleton: true})
type Namespace struct {
	name         string
	capabilities []capability
	components   []*Descriptor
	processors   []*Descriptor
}

// NewNamespace creates an empty namespace.
func NewNamespace(name string) *Namespace {
	return &Namespace{name: name}
}

// Name returns the namespace name.
func (ns *Namespace) Name() string { return ns.name }

// Capability makes interface types known without marking them.
func (ns *Namespace) Capability(types ...reflect.Type) *Namespace {
	return ns.mark(unmarked, types)
}

// Bindable marks interface types as preferred binding capabilities.
func (ns *Namespace) Bindable(types ...reflect.Type) *Namespace {
	return ns.mark(bindable, types)
}

// NonBindable marks interface types that must never become bindings.
func (ns *Namespace) NonBindable(types ...reflect.Type) *Namespace {
	return ns.mark(nonBindable, types)
}

func (ns *Namespace) mark(m marker, types []reflect.Type) *Namespace {
	for _, t := range types {
		ns.capabilities = append(ns.capabilities, capability{typ: t, marker: m})
	}
	return ns
}

// Component adds a component descriptor.
func (ns *Namespace) Component(d Descriptor) *Namespace {
	ns.components = append(ns.components, &d)
	return ns
}

// Processor adds a processor descriptor. The built value must implement
// Processor.
func (ns *Namespace) Processor(d Descriptor) *Namespace {
	d.processor = true
	ns.processors = append(ns.processors, &d)
	return ns
}
