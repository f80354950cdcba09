package web

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-trooper/framework/container"
	"github.com/km-arc/go-trooper/framework/trooper"
)

// TrooperStatus is one entry of GET /status.
type TrooperStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// Status is the body of GET /status.
type Status struct {
	Supervisor string          `json:"supervisor"`
	Troopers   []TrooperStatus `json:"troopers"`
}

// Admin serves /healthz, /status and /metrics. It is a LifecycleListener:
// the server comes up before any trooper is prepared and goes down before
// any trooper is stopped.
type Admin struct {
	server  *Server
	router  *Router
	timeout time.Duration
}

var _ trooper.LifecycleListener = (*Admin)(nil)

// NewAdmin builds the admin endpoints for sup. A nil gatherer leaves
// /metrics out.
func NewAdmin(addr string, sup *trooper.Supervisor, gatherer prometheus.Gatherer, shutdownTimeout time.Duration) *Admin {
	r := NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		NewResponse(w).JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		st := status(sup)
		res := NewResponse(w)
		if sup.State() != trooper.Started {
			res.JSON(http.StatusServiceUnavailable, st)
			return
		}
		res.JSON(http.StatusOK, st)
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return &Admin{
		server:  NewServer("admin", addr, r),
		router:  r,
		timeout: shutdownTimeout,
	}
}

func (a *Admin) Name() string { return "admin" }

// Handler exposes the routes without a listener.
func (a *Admin) Handler() http.Handler { return a.router }

// Addr returns the bound address once started.
func (a *Admin) Addr() string { return a.server.Addr() }

func (a *Admin) PreStart() error { return a.server.Start() }

func (a *Admin) PreStop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	return a.server.Shutdown(ctx)
}

func status(sup *trooper.Supervisor) Status {
	st := Status{Supervisor: sup.State().String(), Troopers: []TrooperStatus{}}
	for _, t := range sup.Troopers() {
		ts := TrooperStatus{Name: t.Name(), State: "unknown"}
		if s, ok := t.(interface{ State() container.State }); ok {
			ts.State = s.State().String()
		}
		st.Troopers = append(st.Troopers, ts)
	}
	return st
}
