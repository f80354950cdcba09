// Package shapes is the demo component set served by trooperd. It
// exercises every wiring style: named bindings, configuration and external
// markers, dependency injection, a factory, init methods and disposal.
package shapes

import (
	"fmt"
	"math"
	"net/http"
	"reflect"
	"sort"
	"time"

	"github.com/km-arc/go-trooper/framework/container"
	"github.com/km-arc/go-trooper/framework/logger"
	"github.com/km-arc/go-trooper/framework/web"
)

// Shape is the bindable capability.
type Shape interface {
	Kind() string
	Area() float64
}

type Circle struct {
	Radius float64 `config:"shapes.circle.radius"`
}

func (c *Circle) Initialize() error { return positive(&c.Radius, "circle radius") }

func (*Circle) Kind() string    { return "circle" }
func (c *Circle) Area() float64 { return math.Pi * c.Radius * c.Radius }

type Square struct {
	Side float64 `config:"shapes.square.side"`
}

func (s *Square) Initialize() error { return positive(&s.Side, "square side") }

// positive defaults an unset dimension to 1 and rejects negative ones.
func positive(v *float64, what string) error {
	switch {
	case *v == 0:
		*v = 1
	case *v < 0:
		return fmt.Errorf("shapes: %s must be positive, got %v", what, *v)
	}
	return nil
}

func (*Square) Kind() string    { return "square" }
func (s *Square) Area() float64 { return s.Side * s.Side }

// Triangle is equilateral; it is built by a factory.
type Triangle struct {
	Side float64
}

func (*Triangle) Kind() string    { return "triangle" }
func (t *Triangle) Area() float64 { return math.Sqrt(3) / 4 * t.Side * t.Side }

// Owner is registered as an external entity by the host.
type Owner struct {
	Team string
}

func (Owner) ExternalName() string { return "owner" }

// Canvas collects every Shape once injected. The owner is optional.
type Canvas struct {
	Circle Shape  `inject:"circle"`
	Square Shape  `inject:"square"`
	Owner  *Owner `external:"owner,optional"`
	Title  string `config:"shapes.canvas.title"`

	refresh time.Duration
	lookup  container.Lookup
	shapes  map[string]Shape
	opened  time.Time
}

func (c *Canvas) SetLookup(l container.Lookup) { c.lookup = l }

// SetRefresh is a configuration setter.
func (c *Canvas) SetRefresh(d time.Duration) { c.refresh = d }

// Open is the canvas init method.
func (c *Canvas) Open() error {
	if c.Title == "" {
		c.Title = "canvas"
	}
	if c.refresh == 0 {
		c.refresh = 30 * time.Second
	}
	c.shapes = make(map[string]Shape)
	for _, s := range container.GetAll[Shape](c.lookup) {
		c.shapes[s.Kind()] = s
	}
	if len(c.shapes) == 0 {
		return fmt.Errorf("shapes: canvas %q has nothing to draw", c.Title)
	}
	c.opened = time.Now()
	logger.Info("canvas opened", "title", c.Title, "shapes", len(c.shapes), "refresh", c.refresh)
	return nil
}

func (c *Canvas) Dispose() error {
	logger.Info("canvas closed", "title", c.Title, "open_for", time.Since(c.opened).Round(time.Millisecond))
	return nil
}

// Kinds lists the shapes on the canvas, sorted.
func (c *Canvas) Kinds() []string {
	kinds := make([]string, 0, len(c.shapes))
	for k := range c.shapes {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Shape returns the shape of kind k.
func (c *Canvas) Shape(k string) (Shape, bool) {
	s, ok := c.shapes[k]
	return s, ok
}

// ── HTTP ─────────────────────────────────────────────────────────────────────

type shapeView struct {
	Kind string  `json:"kind"`
	Area float64 `json:"area"`
}

// API serves the canvas under /shapes.
type API struct {
	Canvas *Canvas `inject:"canvas"`
}

func (a *API) Routes(r *web.Router) {
	r.Get("/shapes", a.index)
	r.Get("/shapes/{kind}", a.show)
}

func (a *API) index(w http.ResponseWriter, _ *http.Request) {
	out := make([]shapeView, 0)
	for _, k := range a.Canvas.Kinds() {
		s, _ := a.Canvas.Shape(k)
		out = append(out, shapeView{Kind: k, Area: s.Area()})
	}
	web.NewResponse(w).Success(out)
}

func (a *API) show(w http.ResponseWriter, r *http.Request) {
	s, ok := a.Canvas.Shape(web.Param(r, "kind"))
	if !ok {
		web.NewResponse(w).NotFound()
		return
	}
	web.NewResponse(w).Success(shapeView{Kind: s.Kind(), Area: s.Area()})
}

// ── Namespace ────────────────────────────────────────────────────────────────

// Namespace describes the shapes components.
func Namespace() *container.Namespace {
	return container.NewNamespace("shapes").
		Bindable(container.TypeOf[Shape](), container.TypeOf[web.Resource]()).
		Component(container.Descriptor{Type: container.TypeOf[*Circle](), Value: "circle", Singleton: true}).
		Component(container.Descriptor{Type: container.TypeOf[*Square](), Value: "square", Singleton: true}).
		Component(container.Descriptor{
			Name:       "triangle",
			Singleton:  true,
			Implements: []reflect.Type{container.TypeOf[Shape]()},
			Factory: func(r container.Resolver) (any, error) {
				sq, err := container.NeedNamed[Shape](r, "square")
				if err != nil {
					return nil, err
				}
				return &Triangle{Side: math.Sqrt(sq.Area())}, nil
			},
		}).
		Component(container.Descriptor{
			Type:       container.TypeOf[*Canvas](),
			Value:      "canvas",
			NamedOnly:  true,
			Singleton:  true,
			InitMethod: "Open",
			Setters: []container.Setter{{
				Method: "SetRefresh",
				Source: container.FromConfig,
				Key:    "shapes.canvas.refresh",
			}},
		}).
		Component(container.Descriptor{Type: container.TypeOf[*API](), Singleton: true})
}
