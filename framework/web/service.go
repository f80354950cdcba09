package web

import (
	"context"
	"fmt"
	"time"

	"github.com/km-arc/go-trooper/framework/container"
	"github.com/km-arc/go-trooper/framework/trooper"
)

// Service is a trooper that serves the Resources of a container. Prepare
// mounts them once the container is Ready and starts listening; register
// it after the container it reads from.
//
//	shapes := application.ContainerOrdered("shapes", 1, shapes.Namespace())
//	application.Supervisor.Register(web.NewService("api", ":8080", shapes, 5*time.Second))
type Service struct {
	name    string
	source  *container.Container
	router  *Router
	server  *Server
	timeout time.Duration
	mounted bool
}

var _ trooper.Trooper = (*Service)(nil)

// NewService creates a stopped service for source's resources.
func NewService(name, addr string, source *container.Container, shutdownTimeout time.Duration) *Service {
	r := NewRouter()
	return &Service{
		name:    name,
		source:  source,
		router:  r,
		server:  NewServer(name, addr, r),
		timeout: shutdownTimeout,
	}
}

func (s *Service) Name() string { return s.name }

// Router exposes the router for routes that do not come from a Resource.
func (s *Service) Router() *Router { return s.router }

// Addr returns the bound address once started.
func (s *Service) Addr() string { return s.server.Addr() }

// Prepare mounts the source's resources on first call, then starts the
// server. The source must already be Ready.
func (s *Service) Prepare() error {
	if !s.mounted {
		l, err := s.source.Lookup()
		if err != nil {
			return fmt.Errorf("web: %s: %w", s.name, err)
		}
		if _, err := Mount(s.router, l); err != nil {
			return fmt.Errorf("web: %s: %w", s.name, err)
		}
		s.mounted = true
	}
	return s.server.Start()
}

// Stop shuts the server down within the shutdown timeout.
func (s *Service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
