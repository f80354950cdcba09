package container

import "reflect"

// ── Lifecycle capabilities ────────────────────────────────────────────────────

// Initializable components run Initialize exactly once, during phase B.
type Initializable interface {
	Initialize() error
}

// Disposable components take part in best-effort teardown. Only preloaded
// singletons are disposed.
type Disposable interface {
	Dispose() error
}

// ContextAware components receive the lookup facade at the start of phase A.
type ContextAware interface {
	SetLookup(l Lookup)
}

// Processor hooks run around every component's phase A and phase B, in
// processor registration order. Processors themselves only get phase A.
type Processor interface {
	AfterInjection(component any) error
	BeforeInitialization(component any) error
	AfterInitialization(component any) error
}

// BaseProcessor provides no-op hooks. Embed it and override what you need.
//
//	type auditProcessor struct{ container.BaseProcessor }
//
//	func (p *auditProcessor) AfterInitialization(c any) error {
//	    log.Printf("ready: %T", c)
//	    return nil
//	}
type BaseProcessor struct{}

func (BaseProcessor) AfterInjection(_ any) error       { return nil }
func (BaseProcessor) BeforeInitialization(_ any) error { return nil }
func (BaseProcessor) AfterInitialization(_ any) error  { return nil }

// ── Collaborators ─────────────────────────────────────────────────────────────

// ConfigurationProvider is a source of named, typed configuration values.
// Providers are queried in registration order; the first one that Contains
// a key supplies its value.
type ConfigurationProvider interface {
	Contains(key string) bool
	Value(key string, typ reflect.Type) (any, bool)
}

// ExternalEntity is a pre-built value registered wholesale under its name.
type ExternalEntity interface {
	ExternalName() string
}

// ── Lookup facade ─────────────────────────────────────────────────────────────

// Lookup is the read-only view of a prepared container. Lookups never fail
// loudly: a missing or broken binding yields nil (and a warning in the log).
type Lookup interface {
	// Instance returns the component bound to capability with no name.
	Instance(capability reflect.Type) any
	// Named returns the component bound under name with no capability.
	Named(name string) any
	// NamedInstance returns the component bound to (capability, name).
	NamedInstance(name string, capability reflect.Type) any
	// Instances returns every component bound to capability, named or not,
	// in binding registration order.
	Instances(capability reflect.Type) []any
	// Inject runs dependency, configuration and external injection plus
	// phase A and B on an object the caller built itself.
	Inject(target any) error
}

// Resolver is handed to factories so they can pull their dependencies.
// Unlike Lookup it reports failures, which abort the owning construction.
type Resolver interface {
	Resolve(capability reflect.Type, name string) (any, error)
}

// ── Generic helpers ───────────────────────────────────────────────────────────

// TypeOf returns the reflect.Type of T. For interfaces it is the interface
// type itself, which is what capabilities are keyed by.
//
//	container.TypeOf[Shape]()     // capability
//	container.TypeOf[*Canvas]()   // concrete component type
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Need resolves the unnamed binding of capability T from a factory.
func Need[T any](r Resolver) (T, error) {
	return NeedNamed[T](r, "")
}

// NeedNamed resolves (T, name) from a factory.
//
//	tri, err := container.NeedNamed[Shape](r, "triangle")
func NeedNamed[T any](r Resolver, name string) (T, error) {
	var zero T
	v, err := r.Resolve(TypeOf[T](), name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &InjectionError{
			Component: typeName(reflect.TypeOf(v)),
			Target:    "factory",
			Key:       name,
			Required:  true,
			Reason:    "resolved value is not a " + typeName(TypeOf[T]()),
		}
	}
	return typed, nil
}

// Get returns the unnamed instance of capability T, or false.
func Get[T any](l Lookup) (T, bool) {
	typed, ok := l.Instance(TypeOf[T]()).(T)
	return typed, ok
}

// GetNamed returns the instance bound to (T, name), or false.
func GetNamed[T any](l Lookup, name string) (T, bool) {
	typed, ok := l.NamedInstance(name, TypeOf[T]()).(T)
	return typed, ok
}

// GetAll returns every instance bound to capability T.
func GetAll[T any](l Lookup) []T {
	all := l.Instances(TypeOf[T]())
	out := make([]T, 0, len(all))
	for _, v := range all {
		if typed, ok := v.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

// lifecycleCapabilities are never bindable.
var lifecycleCapabilities = []reflect.Type{
	TypeOf[Initializable](),
	TypeOf[Disposable](),
	TypeOf[ContextAware](),
	TypeOf[Processor](),
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
