// Package container is a component-lifecycle container. A Container (one
// "trooper") is fed namespaces of component descriptors, resolves which
// capability interfaces each component is bound under, builds and wires the
// components, and drives them through a two-phase protocol.
//
// # Lifecycle
//
//  1. Create: c := container.New("orders")
//  2. Register: c.Scan(ns), c.Modules(m), c.RegisterExternal(...),
//     c.RegisterConfigurationProvider(p)
//  3. Prepare: c.Prepare() resolves bindings, loads processors and
//     preloads every singleton. The first failure aborts it for good.
//  4. Look up: l, _ := c.Lookup()
//  5. Stop: c.Stop() disposes preloaded Disposables, best-effort.
//
// # Bindings
//
// A component is bound under every capability it implements that is marked
// Bindable. When none is, it falls back to every capability it implements.
// NamedOnly components are bound under their name alone.
//
//	ns := container.NewNamespace("shapes").
//	    Bindable(container.TypeOf[Shape]()).
//	    Component(container.Descriptor{Type: container.TypeOf[*Circle](), Value: "circle"}).
//	    Component(container.Descriptor{Type: container.TypeOf[*Canvas](), Value: "canvas",
//	        NamedOnly: true, Singleton: true})
//
// # Injection
//
// Phase A runs on every freshly built component: SetLookup for ContextAware
// components, `config` markers, `external` markers, then every processor's
// AfterInjection. Phase B runs only for Initializable components (or those
// with an InitMethod): BeforeInitialization hooks, Initialize, then
// AfterInitialization hooks. Processors never get phase B.
//
//	type Canvas struct {
//	    Triangle Shape         `inject:"triangle"`
//	    Width    int           `config:"canvas.width,required"`
//	    Refresh  time.Duration `config:"canvas.refresh"`
//	    Clock    Clock         `external:"clock"`
//	}
package container
