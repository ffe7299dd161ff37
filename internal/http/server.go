package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"walletlog/internal/api"
	"walletlog/internal/graphql"
	"walletlog/internal/log"
	"walletlog/internal/middleware/ratelimit"
	"walletlog/internal/middleware/security"
	"walletlog/internal/middleware/trace"
	"walletlog/internal/router"
	"walletlog/internal/session"
	appweb "walletlog/web"
)

// CacheStatser reports response cache statistics for /metrics.
type CacheStatser interface {
	Stats() graphql.CacheStats
}

// Deps are the collaborators a Server needs.
type Deps struct {
	API      api.API
	Sessions *session.Manager
	// Cache is optional; without it /metrics omits cache counters.
	Cache  CacheStatser
	Logger *log.Logger

	// Probes are readiness checks keyed by name, run by /readyz.
	Probes map[string]func(context.Context) error

	RateLimit      ratelimit.Config
	TrustedProxies []string

	// APITimeout bounds every API call made while serving a page.
	APITimeout time.Duration
	Now        func() time.Time
}

type Server struct {
	http.Server
	renderer *renderer
	api      api.API
	sessions *session.Manager
	cache    CacheStatser
	probes   map[string]func(context.Context) error
	router   *mux.Router

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	apiTimeout time.Duration
	now        func() time.Time

	mu           sync.Mutex
	onShutdown   []func()
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime    time.Time
	mutations atomic.Int64
	apiErrors atomic.Int64
}

// NewServer configures routes, templates and middleware, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.API == nil {
		return nil, errors.New("http: nil API")
	}
	if deps.Sessions == nil {
		return nil, errors.New("http: nil session manager")
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.APITimeout <= 0 {
		deps.APITimeout = 10 * time.Second
	}

	rnd, err := newRenderer(appweb.Templates())
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	detector := security.NewDetector()
	for _, cidr := range deps.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		renderer:         rnd,
		api:              deps.API,
		sessions:         deps.Sessions,
		cache:            deps.Cache,
		probes:           deps.Probes,
		rateLimiter:      ratelimit.NewLimiter(deps.RateLimit),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),
		appMetrics:       &appMetrics{uptime: deps.Now()},
		apiTimeout:       deps.APITimeout,
		now:              deps.Now,
	}

	r, err := router.New(router.Routes(), s.resolvePage, deps.Sessions.HasSession)
	if err != nil {
		s.rateLimiter.Stop()
		return nil, err
	}
	s.router = r

	r.Handle("/logout", http.HandlerFunc(s.handleLogout)).Methods(http.MethodPost)
	r.Handle("/expenses/{id}/delete",
		router.Guard(router.Meta{RequiresAuth: true}, deps.Sessions.HasSession, http.HandlerFunc(s.handleDeleteExpense))).
		Methods(http.MethodPost)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	// Static assets (served from embedded FS)
	static := http.StripPrefix("/static/", http.FileServer(http.FS(appweb.Static())))
	r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static))

	r.NotFoundHandler = security.NoStore(http.HandlerFunc(s.handleNotFound))
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	// Outermost first: logger, trace, headers, detection, session, POST limit.
	var h http.Handler = r
	h = s.rateLimiter.Middleware(detector.ExtractClientIP, []string{http.MethodPost}, nil)(h)
	h = deps.Sessions.Middleware(h)
	h = detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	h = log.Middleware(deps.Logger.WithComponent(log.ComponentHTTP))(h)
	s.Handler = h

	return s, nil
}

// resolvePage maps each route table page to its handler.
func (s *Server) resolvePage(p router.Page) http.Handler {
	var h http.HandlerFunc
	switch p {
	case router.PageLanding:
		h = s.handleLanding
	case router.PageRegister:
		h = s.handleRegister
	case router.PageLogin:
		h = s.handleLogin
	case router.PageDashboard:
		h = s.handleDashboard
	case router.PageHome:
		h = s.handleHome
	case router.PageAddExpense:
		h = s.handleAddExpense
	case router.PageEditExpense:
		h = s.handleEditExpense
	case router.PageSummary:
		h = s.handleSummary
	default:
		return nil
	}
	return security.NoStore(h)
}

// OnShutdown registers fn to run once when the server shuts down.
func (s *Server) OnShutdown(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onShutdown = append(s.onShutdown, fn)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)

		s.rateLimiter.Stop()

		s.mu.Lock()
		hooks := s.onShutdown
		s.mu.Unlock()
		for i := len(hooks) - 1; i >= 0; i-- {
			hooks[i]()
		}
	})

	return shutdownErr
}

// apiContext bounds an API call made on behalf of r.
func (s *Server) apiContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.apiTimeout)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.NewPage(r, tmplError, "Page not found").Status(http.StatusNotFound).Write(w, r)
}
