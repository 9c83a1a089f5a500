package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"caffeine/internal/auth"
	"caffeine/internal/dataaccess"
	applog "caffeine/internal/log"
	"caffeine/internal/middleware/ratelimit"
	"caffeine/internal/middleware/security"
	"caffeine/internal/middleware/trace"
	appweb "caffeine/web"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
)

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Addr               string
	Data               *dataaccess.Service
	Auth               *auth.Authenticator
	Logger             *applog.Logger
	DefaultLocation    *time.Location
	RateLimitPerMinute int
	// Pinger is checked by /readyz when set.
	Pinger Pinger
	// Templates and Static default to the embedded web assets.
	Templates fs.FS
	Static    fs.FS
}

type Server struct {
	http.Server
	templates  *template.Template
	data       *dataaccess.Service
	auth       *auth.Authenticator
	logger     *applog.Logger
	events     *applog.StructuredLogger
	defaultLoc *time.Location
	pinger     Pinger
	now        func() time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime         time.Time
	entriesCreated atomic.Int64
	entriesDeleted atomic.Int64
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:         opts.Addr,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
		data:             opts.Data,
		auth:             opts.Auth,
		logger:           logger,
		events:           applog.NewStructuredLogger(logger),
		defaultLoc:       opts.DefaultLocation,
		pinger:           opts.Pinger,
		now:              time.Now,
		rateLimiter:      ratelimit.NewLimiter(limitCfg),
		securityDetector: security.NewDetector(),
	}
	s.appMetrics.uptime = time.Now()
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)

	templatesFS := opts.Templates
	if templatesFS == nil {
		templatesFS = appweb.TemplatesFS
	}
	t, err := template.New("").Funcs(templateFuncs()).ParseFS(templatesFS, appweb.TemplatePattern)
	if err != nil {
		logger.Warn("Failed parsing templates", "error", err)
		t = nil
	}
	s.templates = t

	staticFS := opts.Static
	if staticFS == nil {
		staticFS = appweb.StaticFS
	}
	if sub, err := fs.Sub(staticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)

	// Pages and actions behind the login gate. Everything except the setup
	// flow and the JSON API also requires a stored profile.
	gated := func(h http.HandlerFunc) http.Handler {
		return security.NoStore(s.auth.Middleware(s.withProfile(h)))
	}
	authed := func(h http.HandlerFunc) http.Handler {
		return security.NoStore(s.auth.Middleware(h))
	}

	mux.Handle("/", gated(s.handleDashboard))
	mux.Handle("/log", gated(s.handleLog))
	mux.Handle("/insights", gated(s.handleInsights))
	mux.Handle("/settings", gated(s.handleSettings))
	mux.Handle("/entries", gated(s.handleCreateEntry))
	mux.Handle("/entries/delete", gated(s.handleDeleteEntry))
	mux.Handle("/presets", gated(s.handleCreatePreset))

	mux.Handle("/setup", authed(s.handleSetup))
	mux.Handle("/profile", authed(s.handleSaveProfile))

	mux.Handle("/api/me/role", authed(s.handleGetRole))
	mux.Handle("/api/roles", authed(s.handleAssignRole))
	mux.Handle("/api/userdata", authed(s.handleUserData))
	mux.Handle("/api/profile", authed(s.handleGetProfile))

	s.Handler = s.chain(mux)
	return s
}

// chain wraps the mux in the shared middleware stack, outermost first.
func (s *Server) chain(h http.Handler) http.Handler {
	h = s.limitMutations(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.securityDetector.Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	return applog.Middleware(s.logger)(h)
}

// limitMutations applies the rate limiter to state-changing requests only.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").Write(w)
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

// render executes a page template into a buffer so a template error never
// leaves a half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, status int, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			"error_type", applog.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
