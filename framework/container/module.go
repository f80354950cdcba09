package container

import "reflect"

// ── Module ────────────────────────────────────────────────────────────────────

// Module contributes supplemental bindings that are not part of any scanned
// namespace: third-party values, hand-written factories, overrides.
//
// Configure runs once, during prepare, after every namespace has been
// resolved, so its bindings win collisions under the default policy.
//
//	type storageModule struct{ db *sql.DB }
//
//	func (m *storageModule) Configure(b *container.Binder) {
//	    b.Instance(container.TypeOf[Querier](), "primary", m.db)
//	}
type Module interface {
	Configure(b *Binder)
}

// ModuleFunc adapts a plain function to Module.
type ModuleFunc func(b *Binder)

func (f ModuleFunc) Configure(b *Binder) { f(b) }

// ── Binder ────────────────────────────────────────────────────────────────────

// Binder is the registration surface handed to modules.
type Binder struct {
	descriptors []*Descriptor
}

// Bind adds a descriptor resolved exactly like a namespace component.
func (b *Binder) Bind(d Descriptor) *Binder {
	b.descriptors = append(b.descriptors, &d)
	return b
}

// Instance binds a pre-built value under (capability, name). Either may be
// empty but not both. The value goes through phase A and B when first
// resolved and is preloaded like any singleton.
func (b *Binder) Instance(capability reflect.Type, name string, value any) *Binder {
	d := Descriptor{
		Type:      reflect.TypeOf(value),
		Name:      name,
		NamedOnly: capability == nil,
		Singleton: true,
		Factory:   func(Resolver) (any, error) { return value, nil },
	}
	if capability != nil {
		d.Implements = []reflect.Type{capability}
	}
	return b.Bind(d)
}
