package web

import (
	"fmt"

	"github.com/km-arc/go-trooper/framework/container"
	"github.com/km-arc/go-trooper/framework/logger"
)

// Resource is a component that contributes HTTP routes. Bind it under the
// Resource capability (mark it Bindable in the namespace) and Mount picks it
// up from the container.
//
//	func (s *ShapeResource) Routes(r *web.Router) {
//	    r.Get("/shapes/{id}", s.show)
//	}
type Resource interface {
	Routes(r *Router)
}

// Mount registers the routes of every Resource bound in l, then of each
// extra resource after injecting it through l. It returns how many
// resources were mounted.
func Mount(r *Router, l container.Lookup, extra ...Resource) (int, error) {
	n := 0
	for _, res := range container.GetAll[Resource](l) {
		res.Routes(r)
		logger.Debug("mounted resource", "type", fmt.Sprintf("%T", res))
		n++
	}
	for _, res := range extra {
		if err := l.Inject(res); err != nil {
			return n, fmt.Errorf("web: injecting %T: %w", res, err)
		}
		res.Routes(r)
		logger.Debug("mounted resource", "type", fmt.Sprintf("%T", res), "external", true)
		n++
	}
	return n, nil
}
