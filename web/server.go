package web

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/pmsworks/pms"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/text/language"
)

// Server is the fiber app serving the board and the auth views.
type Server struct {
	app      *fiber.App
	srv      router.Server[*fiber.App]
	handlers *Handlers
}

type Option func(*Handlers)

// WithFlow enables interactive sign-in through flow.
func WithFlow(flow InteractiveFlow) Option {
	return func(h *Handlers) {
		h.flow = flow
	}
}

func WithLogger(l pms.Logger) Option {
	return func(h *Handlers) {
		if l != nil {
			h.logger = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(h *Handlers) {
		if m != nil {
			h.metrics = m
		}
	}
}

func WithRateLimiter(rl *RateLimiter) Option {
	return func(h *Handlers) {
		if rl != nil {
			h.limiter = rl
		}
	}
}

func WithBoard(b *pms.Board) Option {
	return func(h *Handlers) {
		if b != nil {
			h.board = b
		}
	}
}

func WithProviderTimeout(d time.Duration) Option {
	return func(h *Handlers) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func WithSecureCookies(secure bool) Option {
	return func(h *Handlers) {
		h.cookies = cookieJar{secure: secure}
	}
}

func WithDefaultLanguage(tag language.Tag) Option {
	return func(h *Handlers) {
		h.defaultLang = tag
	}
}

func WithDebug(debug bool) Option {
	return func(h *Handlers) {
		h.debug = debug
	}
}

// New wires the routes. Handlers are registered through the go-router
// fiber adapter; the fiber app underneath keeps the error handler and the
// endpoints that are plain fiber handlers.
func New(dir *pms.Directory, tokens pms.TokenService, opts ...Option) (*Server, error) {
	if dir == nil || tokens == nil {
		return nil, goerrors.New("web: directory and token service are required", goerrors.CategoryBadInput)
	}

	h := &Handlers{
		directory:   dir,
		tokens:      tokens,
		board:       pms.NewDemoBoard(),
		latches:     NewClientLatches(),
		limiter:     NewRateLimiter(DefaultRateLimiterConfig()),
		logger:      pms.DefaultLogger(),
		timeout:     pms.DefaultProviderTimeout,
		cookies:     cookieJar{secure: true},
		defaultLang: pms.Languages[0],
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = NewMetrics(prometheus.NewRegistry())
	}

	engine, err := NewViewEngine()
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		Views:                 engine,
		ViewsLayout:           viewLayout,
		ErrorHandler:          h.errorHandler,
		DisableStartupMessage: true,
	})

	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		app = router.DefaultFiberOptions(app)
		app.Use(recover.New())
		app.Use(stashAcceptLanguage)
		app.Get("/metrics", h.metrics.Handler())
		return app
	})

	r := srv.Router()

	r.Get("/healthz", h.Health)

	r.Get(pms.RouteHome, h.Home)
	r.Post(routeTasks, h.TaskCreate)
	r.Post(routeTasks+"/:status", h.TaskAdd)

	r.Get(pms.RouteLogin, h.LoginShow)
	r.Post(pms.RouteLogin, h.LoginPost)
	r.Get(pms.RouteSignup, h.SignupShow)
	r.Post(pms.RouteSignup, h.SignupPost)
	r.Post(routeLogout, h.Logout)

	r.Get(routeGoogle, h.InteractiveBegin)
	r.Get(routeGoogleCallback, h.InteractiveCallback)

	r.Get("/*", h.Fallback)
	r.Post("/*", h.Fallback)

	if h.debug {
		h.logger.Debug("routes registered", "routes", print.MaybePrettyJSON(app.GetRoutes(true)))
	}

	return &Server{app: app, srv: srv, handlers: h}, nil
}

const (
	routeTasks          = "/tasks"
	routeLogout         = "/logout"
	routeGoogle         = "/auth/google"
	routeGoogleCallback = "/auth/google/callback"
)

const localsAcceptLanguage = "pms.accept_language"

// stashAcceptLanguage makes the header readable through router.Context.
func stashAcceptLanguage(c *fiber.Ctx) error {
	c.Locals(localsAcceptLanguage, c.Get(fiber.HeaderAcceptLanguage))
	return c.Next()
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Router exposes the go-router server the routes are registered on.
func (s *Server) Router() router.Server[*fiber.App] {
	return s.srv
}

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
