package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"time"

	"predial/internal/dashboard"
	applog "predial/internal/log"
	"predial/internal/middleware/ratelimit"
	"predial/internal/middleware/security"
	"predial/internal/middleware/trace"
	"predial/internal/sheets"
	appweb "predial/web"
)

const defaultLoadTimeout = 7 * time.Second

// Branding holds the logo files resolved at startup. Empty paths mean
// logos are not rendered.
type Branding struct {
	Left  string
	Right string
}

// Enabled reports whether both logos are available.
func (b Branding) Enabled() bool { return b.Left != "" && b.Right != "" }

// ResolveBranding returns the logos to serve. Branding stays off when it
// is disabled or either file is missing.
func ResolveBranding(enabled bool, left, right string) Branding {
	if !enabled {
		return Branding{}
	}
	for _, p := range []string{left, right} {
		if info, err := os.Stat(p); err != nil || info.IsDir() {
			return Branding{}
		}
	}
	return Branding{Left: left, Right: right}
}

// Options configures a Server.
type Options struct {
	Addr        string
	Site        *dashboard.Site
	Source      sheets.Source
	LoadTimeout time.Duration
	Branding    Branding
	Logger      *applog.Logger
	// RateLimit bounds /api/ requests per client; zero values use the
	// limiter defaults.
	RateLimit ratelimit.Config
}

type Server struct {
	http.Server
	site        *dashboard.Site
	builder     *dashboard.Builder
	lister      sheets.SheetLister
	templates   *template.Template
	branding    Branding
	loadTimeout time.Duration
	logger      *applog.Logger
	detector    *security.Detector
	limiter     *ratelimit.Limiter
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	timeout := opts.LoadTimeout
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(dashboard.Funcs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		site:        opts.Site,
		builder:     dashboard.NewBuilder(opts.Source),
		lister:      opts.Source,
		templates:   t,
		branding:    opts.Branding,
		loadTimeout: timeout,
		logger:      logger,
		detector:    security.NewDetector(),
		started:     time.Now(),
	}
	s.limiter = ratelimit.NewLimiter(opts.RateLimit)
	limited := s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		JSONError(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})

	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		s.limiter.Stop()
		return nil, err
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/pages/{slug}", s.handlePage)
	mux.HandleFunc("/ui/pages/{slug}", s.handlePagePartial)
	mux.Handle("/api/pages", limited(http.HandlerFunc(s.handleAPIPages)))
	mux.Handle("/api/pages/{slug}", limited(http.HandlerFunc(s.handleAPIPage)))
	mux.HandleFunc("/branding/{side}", s.handleBranding)

	var handler http.Handler = mux
	handler = s.detector.Middleware(handler)
	handler = applog.ComponentMiddleware(applog.ComponentHTTP)(handler)
	handler = applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = applog.Middleware(logger)(handler)
	handler = trace.NewMiddleware(logger, s.detector.ClientIP).Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Shutting down HTTP server", applog.FieldOperation, applog.OpShutdown)
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
