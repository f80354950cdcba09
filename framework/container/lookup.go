package container

import (
	"reflect"

	"github.com/km-arc/go-trooper/framework/logger"
)

// lookupFacade is the Lookup handed to callers and ContextAware components.
type lookupFacade struct {
	o *orchestrator
}

var _ Lookup = (*lookupFacade)(nil)

func (l *lookupFacade) Instance(capability reflect.Type) any {
	return l.get(capability, "")
}

func (l *lookupFacade) Named(name string) any {
	return l.get(nil, name)
}

func (l *lookupFacade) NamedInstance(name string, capability reflect.Type) any {
	return l.get(capability, name)
}

func (l *lookupFacade) Instances(capability reflect.Type) []any {
	var out []any
	for _, b := range l.o.table.byCapability(capability) {
		v, err := l.o.newBuild().construct(b)
		if err != nil {
			logger.Warn("lookup failed", "trooper", l.o.trooper, "key", b.key.String(), "error", err)
			continue
		}
		out = append(out, v)
	}
	return out
}

func (l *lookupFacade) Inject(target any) error {
	return l.o.inject(target)
}

func (l *lookupFacade) get(capability reflect.Type, name string) any {
	v, err := l.o.newBuild().Resolve(capability, name)
	if err != nil {
		logger.Warn("lookup failed", "trooper", l.o.trooper,
			"key", Key{Capability: capability, Name: name}.String(), "error", err)
		return nil
	}
	return v
}
