package container

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/km-arc/go-trooper/framework/logger"
)

// ── Binding keys ──────────────────────────────────────────────────────────────

// Key identifies a binding: a capability, a name, or both.
type Key struct {
	Capability reflect.Type
	Name       string
}

func (k Key) String() string {
	switch {
	case k.Capability != nil && k.Name != "":
		return fmt.Sprintf("%s[%s]", typeName(k.Capability), k.Name)
	case k.Capability != nil:
		return typeName(k.Capability)
	default:
		return fmt.Sprintf("[%s]", k.Name)
	}
}

// binding maps a key to the descriptor that builds it.
type binding struct {
	key  Key
	desc *Descriptor
}

// bindingTable is the frozen output of the resolver.
type bindingTable struct {
	ordered    []*binding          // registration order, superseded entries included
	index      map[Key]*binding    // winner per key
	singletons []Key               // preload order
	processors []Key               // processor bindings, discovery order
	byType     map[reflect.Type]*Descriptor
}

func newBindingTable() *bindingTable {
	return &bindingTable{
		index:  make(map[Key]*binding),
		byType: make(map[reflect.Type]*Descriptor),
	}
}

// lookup returns the winning binding for k.
func (t *bindingTable) lookup(k Key) (*binding, bool) {
	b, ok := t.index[k]
	return b, ok
}

// byCapability returns the live bindings of capability in registration order.
func (t *bindingTable) byCapability(capability reflect.Type) []*binding {
	var out []*binding
	for _, b := range t.ordered {
		if b.key.Capability != capability {
			continue
		}
		if t.index[b.key] == b {
			out = append(out, b)
		}
	}
	return out
}

// ── Resolver ──────────────────────────────────────────────────────────────────

// bindingResolver turns namespaces and modules into a bindingTable.
type bindingResolver struct {
	strict   bool
	universe []capability
	table    *bindingTable
}

func newBindingResolver(strict bool) *bindingResolver {
	return &bindingResolver{strict: strict, table: newBindingTable()}
}

// resolve scans processors of every namespace, then components, then the
// bindings contributed by modules.
func (r *bindingResolver) resolve(namespaces []*Namespace, modules []Module) (*bindingTable, error) {
	logger.Debug("binding resolution started", "namespaces", len(namespaces), "modules", len(modules))

	r.buildUniverse(namespaces)

	for _, ns := range namespaces {
		for _, d := range ns.processors {
			if err := r.bindProcessor(d); err != nil {
				return nil, fmt.Errorf("namespace %s: %w", ns.name, err)
			}
		}
	}
	for _, ns := range namespaces {
		logger.Debug("scanning namespace", "namespace", ns.name, "components", len(ns.components))
		for _, d := range ns.components {
			if err := r.bindComponent(d); err != nil {
				return nil, fmt.Errorf("namespace %s: %w", ns.name, err)
			}
		}
	}
	for _, m := range modules {
		b := &Binder{}
		m.Configure(b)
		for _, d := range b.descriptors {
			if err := r.bindComponent(d); err != nil {
				return nil, fmt.Errorf("module %T: %w", m, err)
			}
		}
	}

	logger.Debug("binding resolution finished",
		"bindings", len(r.table.index), "singletons", len(r.table.singletons),
		"processors", len(r.table.processors))
	return r.table, nil
}

// buildUniverse collects every known capability. NonBindable wins over
// Bindable when a type is marked both ways.
func (r *bindingResolver) buildUniverse(namespaces []*Namespace) {
	pos := make(map[reflect.Type]int)
	add := func(c capability) {
		if c.typ == nil || c.typ.Kind() != reflect.Interface {
			return
		}
		if i, ok := pos[c.typ]; ok {
			if c.marker > r.universe[i].marker {
				r.universe[i].marker = c.marker
			}
			return
		}
		pos[c.typ] = len(r.universe)
		r.universe = append(r.universe, c)
	}
	for _, t := range lifecycleCapabilities {
		add(capability{typ: t, marker: nonBindable})
	}
	for _, ns := range namespaces {
		for _, c := range ns.capabilities {
			add(c)
		}
	}
}

func (r *bindingResolver) markerOf(t reflect.Type) marker {
	for _, c := range r.universe {
		if c.typ == t {
			return c.marker
		}
	}
	return unmarked
}

func (r *bindingResolver) bindProcessor(d *Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}
	if d.Type != nil && !d.Type.Implements(TypeOf[Processor]()) {
		return fmt.Errorf("%w: processor %s does not implement container.Processor", ErrInvalidDescriptor, d)
	}
	key := Key{Name: syntheticName(d)}
	if err := r.add(key, d); err != nil {
		return err
	}
	r.table.processors = append(r.table.processors, key)
	if d.Singleton {
		r.table.singletons = append(r.table.singletons, key)
	}
	logger.Debug("bound processor", "type", typeName(d.Type), "key", key.String())
	return nil
}

func (r *bindingResolver) bindComponent(d *Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}
	logger.Debug("binding component", "type", typeName(d.Type), "name", d.name(),
		"namedOnly", d.NamedOnly, "singleton", d.Singleton)

	if d.Type != nil {
		r.table.byType[d.Type] = d
	}
	if d.NamedOnly {
		return r.createBindings(d, nil)
	}
	ifaces := r.closure(d)
	var preferred []reflect.Type
	for _, t := range ifaces {
		if r.markerOf(t) == bindable {
			preferred = append(preferred, t)
		}
	}
	if len(preferred) > 0 {
		return r.createBindings(d, preferred)
	}
	return r.createBindings(d, ifaces)
}

// closure returns the bindable-or-unmarked capabilities of d: the declared
// (or discovered) interfaces plus every known interface they imply.
func (r *bindingResolver) closure(d *Descriptor) []reflect.Type {
	base := d.Implements
	if len(base) == 0 && d.Type != nil {
		for _, c := range r.universe {
			if d.Type.Implements(c.typ) {
				base = append(base, c.typ)
			}
		}
	}

	seen := make(map[reflect.Type]bool)
	var out []reflect.Type
	keep := func(t reflect.Type) {
		if seen[t] {
			return
		}
		seen[t] = true
		if r.markerOf(t) != nonBindable {
			out = append(out, t)
		}
	}
	for _, t := range base {
		keep(t)
	}
	for _, c := range r.universe {
		for _, t := range base {
			if t != c.typ && t.Implements(c.typ) {
				keep(c.typ)
				break
			}
		}
	}
	return out
}

// createBindings binds d under every capability (sharing d's name), or under
// its name alone, or under a synthetic name when it has neither.
func (r *bindingResolver) createBindings(d *Descriptor, ifaces []reflect.Type) error {
	var keys []Key
	switch {
	case len(ifaces) > 0:
		for _, t := range ifaces {
			keys = append(keys, Key{Capability: t, Name: d.name()})
		}
	case d.name() != "":
		keys = append(keys, Key{Name: d.name()})
	default:
		keys = append(keys, Key{Name: syntheticName(d)})
	}

	for _, k := range keys {
		if err := r.add(k, d); err != nil {
			return err
		}
		if d.Singleton {
			r.table.singletons = append(r.table.singletons, k)
		}
		logger.Debug("bound component", "key", k.String(), "type", typeName(d.Type))
	}
	return nil
}

// add registers k → d. Collisions are last-registration-wins unless strict.
func (r *bindingResolver) add(k Key, d *Descriptor) error {
	if prev, ok := r.table.index[k]; ok {
		if r.strict {
			return fmt.Errorf("%w: %s bound to both %s and %s", ErrDuplicateBinding, k, prev.desc, d)
		}
		logger.Debug("binding replaced", "key", k.String(), "previous", prev.desc.String(), "type", typeName(d.Type))
	}
	b := &binding{key: k, desc: d}
	r.table.ordered = append(r.table.ordered, b)
	r.table.index[k] = b
	return nil
}

// syntheticName builds a globally unique binding name.
func syntheticName(d *Descriptor) string {
	return typeName(d.Type) + "#" + uuid.NewString()
}
