// Package server hosts an interactive tree in the browser.
//
// The server owns a [controller.Loop]: every HTTP request and websocket
// message becomes an event applied by the loop's single goroutine, and every
// frame the loop produces is pushed to all connected viewers. Viewers share
// one tree state.
//
// # Routes
//
//	GET  /                     embedded viewer page
//	GET  /healthz              liveness probe
//	GET  /ws                   websocket: frames out, interactions in
//	GET  /api/tree             current full-state frame
//	GET  /api/sessions         connected viewers
//	GET  /api/export/{format}  current state as svg, dot, graphviz-svg or json
//	POST /api/toggle/{id}      click a node
//	POST /api/resize           {"width": 960, "height": 600}
//	POST /api/zoom             {"factor": 1.2, "x": 480, "y": 300}
//	POST /api/pan              {"dx": 10, "dy": -20}
//	POST /api/recenter
//	POST /api/expand-all
//	POST /api/collapse-all
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/canopy/pkg/buildinfo"
	"github.com/matzehuels/canopy/pkg/cache"
	"github.com/matzehuels/canopy/pkg/controller"
	"github.com/matzehuels/canopy/pkg/pipeline"
)

// DefaultAddr is used when Options.Addr is empty.
const DefaultAddr = "127.0.0.1:8080"

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// Addr is the listen address for Run.
	Addr string

	// AllowedOrigins lists CORS origins. Empty allows localhost only.
	AllowedOrigins []string

	// Logger defaults to a logger that discards everything.
	Logger *log.Logger

	// Runner renders exports. Defaults to a runner with an in-memory cache.
	Runner *pipeline.Runner

	// Export holds the render settings for /api/export.
	Export pipeline.Options

	// OnListen is called with the bound address once the server accepts
	// connections.
	OnListen func(addr string)
}

// Server serves one controller to any number of browser viewers.
type Server struct {
	opts     Options
	logger   *log.Logger
	loop     *controller.Loop
	runner   *pipeline.Runner
	sessions *sessions
	upgrader websocket.Upgrader
	router   chi.Router
}

// New creates a server for c. The controller must not be used by anything
// else afterwards; the server's loop owns it.
func New(c *controller.Controller, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Runner == nil {
		opts.Runner = pipeline.NewRunner(cache.NewMemoryCache(64), nil, opts.Logger)
	}

	s := &Server{
		opts:     opts,
		logger:   opts.Logger,
		loop:     controller.NewLoop(c, 0),
		runner:   opts.Runner,
		sessions: newSessions(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", serveIndex)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": buildinfo.Version,
		})
	})
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/tree", s.handleTree)
		r.Get("/sessions", s.handleSessions)
		r.Get("/export/{format}", s.handleExport)
		r.Post("/toggle/{id}", s.handleToggle)
		r.Post("/resize", s.handleResize)
		r.Post("/zoom", s.handleZoom)
		r.Post("/pan", s.handlePan)
		r.Post("/recenter", s.handleSimple(controller.RecenterEvent{}))
		r.Post("/expand-all", s.handleSimple(controller.ExpandAllEvent{}))
		r.Post("/collapse-all", s.handleSimple(controller.CollapseAllEvent{}))
	})

	return r
}

func (s *Server) allowedOrigins() []string {
	if len(s.opts.AllowedOrigins) > 0 {
		return s.opts.AllowedOrigins
	}
	return []string{"http://localhost:*", "http://127.0.0.1:*"}
}

// checkOrigin accepts same-host upgrades and the configured CORS origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Handler returns the HTTP handler. Requests that need the tree wait for
// the loop started by Run or Serve.
func (s *Server) Handler() http.Handler { return s.router }

// Loop returns the event loop that owns the controller.
func (s *Server) Loop() *controller.Loop { return s.loop }

// Run listens on Options.Addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the controller loop and the HTTP server on ln until ctx is
// cancelled or either of them fails. Cancellation is a normal shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		return s.loop.Run(gctx)
	})
	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	addr := ln.Addr().String()
	s.logger.Info("serving", "addr", "http://"+addr)
	if s.opts.OnListen != nil {
		s.opts.OnListen(addr)
	}

	err := g.Wait()
	s.logger.Info("server stopped", "viewers", s.sessions.len())
	return err
}
