package container_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-trooper/framework/container"
)

func prepared(t *testing.T, c *container.Container) container.Lookup {
	t.Helper()
	require.NoError(t, c.Prepare())
	l, err := c.Lookup()
	require.NoError(t, err)
	return l
}

func TestBinding_FallsBackToEveryCapability(t *testing.T) {
	ns := container.NewNamespace("greeters").
		Capability(container.TypeOf[Greeter](), container.TypeOf[Namer]()).
		Component(container.Descriptor{Type: container.TypeOf[*English]()})

	l := prepared(t, container.New("fallback").Scan(ns))

	g, ok := container.Get[Greeter](l)
	require.True(t, ok)
	assert.Equal(t, "hello", g.Greet())

	n, ok := container.Get[Namer](l)
	require.True(t, ok)
	assert.Equal(t, "english", n.Name())
}

func TestBinding_BindableFilter(t *testing.T) {
	ns := container.NewNamespace("greeters").
		Bindable(container.TypeOf[Greeter]()).
		Capability(container.TypeOf[Namer]()).
		Component(container.Descriptor{Type: container.TypeOf[*English]()})

	l := prepared(t, container.New("bindable").Scan(ns))

	assert.NotNil(t, l.Instance(container.TypeOf[Greeter]()))
	assert.Nil(t, l.Instance(container.TypeOf[Namer]()))
}

func TestBinding_NonBindableExcluded(t *testing.T) {
	ns := container.NewNamespace("greeters").
		NonBindable(container.TypeOf[Greeter]()).
		Capability(container.TypeOf[Namer]()).
		Component(container.Descriptor{Type: container.TypeOf[*English]()})

	l := prepared(t, container.New("nonbindable").Scan(ns))

	assert.Nil(t, l.Instance(container.TypeOf[Greeter]()))
	assert.NotNil(t, l.Instance(container.TypeOf[Namer]()))
}

func TestBinding_NonBindableWinsOverBindable(t *testing.T) {
	ns := container.NewNamespace("greeters").
		Bindable(container.TypeOf[Greeter](), container.TypeOf[Namer]()).
		NonBindable(container.TypeOf[Greeter]()).
		Component(container.Descriptor{Type: container.TypeOf[*English]()})

	l := prepared(t, container.New("marks").Scan(ns))

	assert.Nil(t, l.Instance(container.TypeOf[Greeter]()))
	assert.NotNil(t, l.Instance(container.TypeOf[Namer]()))
}

func TestBinding_DeclaredCapabilities(t *testing.T) {
	ns := container.NewNamespace("greeters").
		Capability(container.TypeOf[Greeter](), container.TypeOf[Namer]()).
		Component(container.Descriptor{
			Type:       container.TypeOf[*English](),
			Implements: []reflect.Type{container.TypeOf[Namer]()},
		})

	l := prepared(t, container.New("declared").Scan(ns))

	assert.Nil(t, l.Instance(container.TypeOf[Greeter]()))
	assert.NotNil(t, l.Instance(container.TypeOf[Namer]()))
}

func TestBinding_NamedOnly(t *testing.T) {
	ns := container.NewNamespace("greeters").
		Bindable(container.TypeOf[Greeter]()).
		Component(container.Descriptor{Type: container.TypeOf[*English](), Value: "en", NamedOnly: true})

	l := prepared(t, container.New("named").Scan(ns))

	assert.NotNil(t, l.Named("en"))
	assert.Nil(t, l.NamedInstance("en", container.TypeOf[Greeter]()))
	assert.Nil(t, l.Instance(container.TypeOf[Greeter]()))
}

func TestBinding_ValueWinsOverName(t *testing.T) {
	ns := container.NewNamespace("greeters").
		Component(container.Descriptor{Type: container.TypeOf[*English](), Value: "a", Name: "b", NamedOnly: true})

	l := prepared(t, container.New("value").Scan(ns))

	assert.NotNil(t, l.Named("a"))
	assert.Nil(t, l.Named("b"))
}

func TestBinding_NamedCapability(t *testing.T) {
	l := prepared(t, container.New("shapes").Scan(shapesNamespace()))

	tri, ok := container.GetNamed[Shape](l, "triangle")
	require.True(t, ok)
	assert.Equal(t, "triangle", tri.Kind())

	// named bindings are not reachable without their name
	assert.Nil(t, l.Instance(container.TypeOf[Shape]()))
}

func TestBinding_InstancesInRegistrationOrder(t *testing.T) {
	l := prepared(t, container.New("shapes").Scan(shapesNamespace()))

	var kinds []string
	for _, s := range container.GetAll[Shape](l) {
		kinds = append(kinds, s.Kind())
	}
	assert.Equal(t, []string{"triangle", "square", "circle"}, kinds)
}

func TestBinding_SingletonSharedAcrossCapabilities(t *testing.T) {
	ns := container.NewNamespace("greeters").
		Bindable(container.TypeOf[Greeter](), container.TypeOf[Namer]()).
		Component(container.Descriptor{Type: container.TypeOf[*English](), Singleton: true})

	l := prepared(t, container.New("singleton").Scan(ns))

	g := l.Instance(container.TypeOf[Greeter]())
	n := l.Instance(container.TypeOf[Namer]())
	require.NotNil(t, g)
	assert.Same(t, g, n)
	assert.Same(t, g, l.Instance(container.TypeOf[Greeter]()))
}

func TestBinding_NonSingletonIsTransient(t *testing.T) {
	ns := container.NewNamespace("greeters").
		Bindable(container.TypeOf[Greeter]()).
		Component(container.Descriptor{Type: container.TypeOf[*English]()})

	l := prepared(t, container.New("transient").Scan(ns))

	a := l.Instance(container.TypeOf[Greeter]())
	b := l.Instance(container.TypeOf[Greeter]())
	require.NotNil(t, a)
	assert.NotSame(t, a, b)
}

func TestBinding_CollisionLastWins(t *testing.T) {
	ns := container.NewNamespace("collide").
		Component(container.Descriptor{Type: container.TypeOf[*Triangle](), Value: "shape", NamedOnly: true}).
		Component(container.Descriptor{Type: container.TypeOf[*Circle](), Value: "shape", NamedOnly: true})

	l := prepared(t, container.New("collide").Scan(ns))

	assert.IsType(t, &Circle{}, l.Named("shape"))
}

func TestBinding_CollisionStrict(t *testing.T) {
	ns := container.NewNamespace("collide").
		Component(container.Descriptor{Type: container.TypeOf[*Triangle](), Value: "shape", NamedOnly: true}).
		Component(container.Descriptor{Type: container.TypeOf[*Circle](), Value: "shape", NamedOnly: true})

	c := container.New("strict").Strict(true).Scan(ns)
	err := c.Prepare()

	require.Error(t, err)
	assert.ErrorIs(t, err, container.ErrDuplicateBinding)
	assert.ErrorIs(t, err, container.ErrStartupFailed)
	assert.Equal(t, container.StartupFailed, c.State())
}

func TestBinding_ModulesResolvedAfterNamespaces(t *testing.T) {
	override := &Circle{radius: 2}
	c := container.New("modules").
		Scan(shapesNamespace()).
		Modules(container.ModuleFunc(func(b *container.Binder) {
			b.Instance(container.TypeOf[Shape](), "circle", override)
		}))

	l := prepared(t, c)

	assert.Same(t, override, l.NamedInstance("circle", container.TypeOf[Shape]()))
}

func TestBinding_InvalidDescriptor(t *testing.T) {
	tests := []struct {
		name string
		d    container.Descriptor
	}{
		{"no type or factory", container.Descriptor{Value: "x"}},
		{"non struct type", container.Descriptor{Type: container.TypeOf[string]()}},
		{"capability not implemented", container.Descriptor{
			Type:       container.TypeOf[*Triangle](),
			Implements: []reflect.Type{container.TypeOf[Greeter]()},
		}},
		{"capability not an interface", container.Descriptor{
			Type:       container.TypeOf[*Triangle](),
			Implements: []reflect.Type{container.TypeOf[*Circle]()},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := container.New("invalid").Scan(container.NewNamespace("bad").Component(tt.d))
			assert.ErrorIs(t, c.Prepare(), container.ErrInvalidDescriptor)
		})
	}
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "container_test.Shape[circle]",
		container.Key{Capability: container.TypeOf[Shape](), Name: "circle"}.String())
	assert.Equal(t, "container_test.Shape", container.Key{Capability: container.TypeOf[Shape]()}.String())
	assert.Equal(t, "[canvas]", container.Key{Name: "canvas"}.String())
}
