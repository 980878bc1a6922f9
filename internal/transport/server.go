// Package transport serves the MCP SSE transport: a long-lived event
// stream per client plus a message endpoint that feeds JSON-RPC requests
// to the MCP server in that client's session context.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/repobridge/internal/logging"
	"github.com/HendryAvila/repobridge/internal/session"
)

const (
	// DefaultHeartbeat is the interval between SSE keep-alive comments.
	DefaultHeartbeat = 30 * time.Second
	// DefaultIdleTimeout is how long a session may go without activity.
	DefaultIdleTimeout = 30 * time.Minute

	maxMessageBytes = 4 << 20
)

// ToolLister reports the names of the exposed tools.
type ToolLister interface {
	Names() []string
}

// Config holds transport configuration.
type Config struct {
	Addr        string
	SSEPath     string
	MessagePath string
	Heartbeat   time.Duration
	// IdleTimeout of zero disables the reaper.
	IdleTimeout time.Duration
	EnableCORS  bool

	Version   string
	Commit    string
	BuildTime string
}

// DefaultConfig returns default transport configuration.
func DefaultConfig() Config {
	return Config{
		Addr:        ":3000",
		SSEPath:     "/sse",
		MessagePath: "/message",
		Heartbeat:   DefaultHeartbeat,
		IdleTimeout: DefaultIdleTimeout,
		EnableCORS:  true,
		Version:     "dev",
	}
}

// Server is the HTTP transport.
type Server struct {
	config  Config
	mcp     *server.MCPServer
	tools   ToolLister
	table   *session.Table
	router  *chi.Mux
	httpSrv *http.Server
	started time.Time

	// baseCtx outlives individual requests so dispatches complete after
	// their session goes away; it is cancelled at the end of Shutdown.
	baseCtx    context.Context
	cancelBase context.CancelFunc
	inflight   sync.WaitGroup
	mu         sync.Mutex
	closed     bool

	shutdownOnce sync.Once
	stopping     chan struct{}
}

// New creates a transport serving mcpServer.
func New(cfg Config, mcpServer *server.MCPServer, tools ToolLister) *Server {
	def := DefaultConfig()
	if cfg.SSEPath == "" {
		cfg.SSEPath = def.SSEPath
	}
	if cfg.MessagePath == "" {
		cfg.MessagePath = def.MessagePath
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = def.Heartbeat
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:     cfg,
		mcp:        mcpServer,
		tools:      tools,
		router:     chi.NewRouter(),
		started:    time.Now(),
		baseCtx:    baseCtx,
		cancelBase: cancel,
		stopping:   make(chan struct{}),
	}
	s.table = session.NewTable(session.WithOnRemove(s.sessionRemoved))

	s.setupMiddleware()
	s.setupRoutes()

	// Built here so Shutdown never races Serve on the field; a Shutdown
	// that runs first makes the later Serve return at once.
	s.httpSrv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.baseCtx },
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get(s.config.SSEPath, s.handleSSE)
	s.router.Post(s.config.MessagePath, s.handleMessage)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/tools", s.handleTools)
}

// requestLogger logs one line per request. Streams log when they end.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logging.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Str("request_id", middleware.GetReqID(r.Context())).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the session table.
func (s *Server) Sessions() *session.Table {
	return s.table
}

// sessionRemoved runs once per session after it leaves the table.
func (s *Server) sessionRemoved(sess *session.Session) {
	s.mcp.UnregisterSession(s.baseCtx, sess.SessionID())
	logging.Info().
		Str("session", sess.SessionID()).
		Dur("lifetime", time.Since(sess.CreatedAt())).
		Msg("session closed")
}

// ListenAndServe listens on the configured address and serves until
// Shutdown.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(l)
}

// Serve accepts connections on l and runs the idle reaper. It returns nil
// once Shutdown has been called, including when Shutdown ran first.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		_ = l.Close()
		return nil
	}
	go s.reapLoop()

	logging.Info().Str("addr", l.Addr().String()).Msg("transport listening")
	err := s.httpSrv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// reapLoop removes idle sessions every IdleTimeout/4.
func (s *Server) reapLoop() {
	if s.config.IdleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(s.config.IdleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopping:
			return
		case now := <-ticker.C:
			s.reap(now)
		}
	}
}

func (s *Server) reap(now time.Time) []string {
	ids := s.table.Reap(s.config.IdleTimeout, now)
	if len(ids) > 0 {
		logging.Info().Strs("sessions", ids).Msg("reaped idle sessions")
	}
	return ids
}

// begin registers an in-flight dispatch unless the server is stopping.
func (s *Server) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.inflight.Add(1)
	return true
}

// Shutdown stops accepting work, closes every session and waits for
// in-flight dispatches, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.stopping)
		n := s.table.CloseAll()
		logging.Info().Int("sessions", n).Msg("transport shutting down")

		if serr := s.httpSrv.Shutdown(ctx); serr != nil {
			err = fmt.Errorf("http shutdown: %w", serr)
		}

		drained := make(chan struct{})
		go func() {
			s.inflight.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			if err == nil {
				err = fmt.Errorf("waiting for in-flight requests: %w", ctx.Err())
			}
		}
		s.cancelBase()
	})
	return err
}
