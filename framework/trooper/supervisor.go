// Package trooper supervises a set of containers ("troopers") and
// lifecycle listeners. Start is fail-fast; Stop is best-effort and reports
// every failure in one LifecycleError.
package trooper

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/km-arc/go-trooper/framework/logger"
)

// Trooper is an independently managed container. *container.Container
// satisfies it.
type Trooper interface {
	Name() string
	Prepare() error
	Stop() error
}

// LifecycleListener hooks run before any trooper is prepared or stopped.
type LifecycleListener interface {
	PreStart() error
	PreStop() error
}

// State is the supervisor state.
type State int

const (
	Unstarted State = iota
	Started
	Stopped
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DefaultOrder is the order of troopers registered without one.
const DefaultOrder = math.MaxInt

type entry struct {
	trooper Trooper
	order   int
	seq     int
}

// Supervisor coordinates start and stop across troopers and listeners.
//
//	sup := trooper.New()
//	sup.RegisterListener(admin)
//	sup.RegisterOrdered(storage, 1)
//	sup.Register(api)
//	if err := sup.Start(); err != nil { ... }
//	defer sup.Stop()
type Supervisor struct {
	// mu guards registrations, life serializes Start and Stop.
	mu        sync.Mutex
	life      sync.Mutex
	troopers  []entry
	listeners []LifecycleListener
	seq       int

	state   atomic.Int32
	tainted bool
}

// New creates an unstarted supervisor.
func New() *Supervisor {
	return &Supervisor{}
}

// Register adds t with the default order. Registering t twice is ignored.
func (s *Supervisor) Register(t Trooper) *Supervisor {
	return s.RegisterOrdered(t, DefaultOrder)
}

// RegisterOrdered adds t; lower orders are prepared and stopped first.
// Equal orders keep registration order.
func (s *Supervisor) RegisterOrdered(t Trooper, order int) *Supervisor {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.troopers {
		if same(e.trooper, t) {
			logger.Debug("trooper already registered", "trooper", t.Name())
			return s
		}
	}
	s.troopers = append(s.troopers, entry{trooper: t, order: order, seq: s.seq})
	s.seq++
	sort.SliceStable(s.troopers, func(i, j int) bool {
		if s.troopers[i].order != s.troopers[j].order {
			return s.troopers[i].order < s.troopers[j].order
		}
		return s.troopers[i].seq < s.troopers[j].seq
	})
	logger.Debug("trooper registered", "trooper", t.Name(), "order", order)
	return s
}

// RegisterListener adds l. Registering l twice is ignored.
func (s *Supervisor) RegisterListener(l LifecycleListener) *Supervisor {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.listeners {
		if same(existing, l) {
			return s
		}
	}
	s.listeners = append(s.listeners, l)
	logger.Debug("listener registered", "listener", listenerName(l))
	return s
}

// Troopers returns the registered troopers in start order.
func (s *Supervisor) Troopers() []Trooper {
	_, troopers := s.snapshot()
	return troopers
}

// State returns the current state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(st State) { s.state.Store(int32(st)) }

// snapshot copies the registrations for one Start or Stop pass.
func (s *Supervisor) snapshot() ([]LifecycleListener, []Trooper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listeners := append([]LifecycleListener(nil), s.listeners...)
	troopers := make([]Trooper, 0, len(s.troopers))
	for _, e := range s.troopers {
		troopers = append(troopers, e.trooper)
	}
	return listeners, troopers
}

// Start runs every listener's PreStart, then prepares every trooper. The
// first failure is returned immediately and nothing after it runs. A
// second Start is a no-op.
func (s *Supervisor) Start() error {
	s.life.Lock()
	defer s.life.Unlock()

	if s.State() == Started {
		logger.Warn("supervisor already started")
		return nil
	}
	if s.tainted {
		return ErrRestartAfterFailedStop
	}

	listeners, troopers := s.snapshot()
	logger.Info("starting supervisor", "troopers", len(troopers), "listeners", len(listeners))
	for _, l := range listeners {
		if err := guard(l.PreStart); err != nil {
			logger.Error("listener failed to start", "listener", listenerName(l), "error", err)
			return fmt.Errorf("listener %s: pre-start: %w", listenerName(l), err)
		}
	}
	for _, t := range troopers {
		if err := guard(t.Prepare); err != nil {
			logger.Error("trooper failed to start", "trooper", t.Name(), "error", err)
			return fmt.Errorf("trooper %s: %w", t.Name(), err)
		}
	}
	s.setState(Started)
	logger.Info("supervisor started")
	return nil
}

// Stop runs every listener's PreStop, then stops every trooper, whatever
// fails along the way. The supervisor is no longer started afterwards even
// when something failed; all failures come back in one *LifecycleError.
// Stop is a no-op unless the supervisor is started.
func (s *Supervisor) Stop() error {
	s.life.Lock()
	defer s.life.Unlock()

	if s.State() != Started {
		logger.Debug("supervisor not started, nothing to stop", "state", s.State().String())
		return nil
	}

	logger.Info("stopping supervisor")
	listeners, troopers := s.snapshot()
	var listenerFailures, trooperFailures []Failure
	for _, l := range listeners {
		if err := guard(l.PreStop); err != nil {
			logger.Error("listener failed to stop", "listener", listenerName(l), "error", err)
			listenerFailures = append(listenerFailures, Failure{Kind: KindListener, Name: listenerName(l), Err: err})
		}
	}
	for _, t := range troopers {
		if err := guard(t.Stop); err != nil {
			logger.Error("trooper failed to stop", "trooper", t.Name(), "error", err)
			trooperFailures = append(trooperFailures, Failure{Kind: KindTrooper, Name: t.Name(), Err: err})
		}
	}

	s.setState(Stopped)
	if len(listenerFailures) == 0 && len(trooperFailures) == 0 {
		logger.Info("supervisor stopped")
		return nil
	}
	s.tainted = true
	return newLifecycleError(listenerFailures, trooperFailures)
}

func listenerName(l LifecycleListener) string {
	if n, ok := l.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", l)
}

// same compares registrations without panicking on uncomparable values.
func same(a, b any) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
