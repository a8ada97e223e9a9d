package studio

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"time"

	"github.com/Rana718/Portal/internal/config"
	"github.com/Rana718/Portal/internal/logger"
	"github.com/fatih/color"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

type Server struct {
	app     *fiber.App
	service *Service
	store   *Store
	port    int
	log     zerolog.Logger
}

// New loads the definitions named in the config, opens and migrates the database and
// builds the server.
func New(ctx context.Context, cfg *config.Config, port int) (*Server, error) {
	cat, err := LoadDefinitions(cfg.Studio.Definitions)
	if err != nil {
		return nil, err
	}
	dbURL, err := cfg.GetDatabaseURL()
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(ctx, cfg.Studio.Provider, dbURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, cat); err != nil {
		store.Close()
		return nil, err
	}
	return NewServer(NewService(cat, store, logger.Component("studio")), port), nil
}

// NewServer builds the HTTP surface over an existing service.
func NewServer(service *Service, port int) *Server {
	app := fiber.New(fiber.Config{
		// Mutation routes only exist with a trailing slash.
		StrictRouting:         true,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	server := &Server{
		app:     app,
		service: service,
		store:   service.store,
		port:    port,
		log:     logger.Component("studio"),
	}

	server.setupRoutes()
	return server
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)

	get := func(path string, h fiber.Handler) {
		s.app.Get(path, h)
		s.app.Get(path+"/", h)
	}

	get("/", s.handleIndex)
	get("/forms/:id", s.handleGetForm)
	get("/widgets/:id", s.handleGetWidget)
	get("/widgets/:id/references", s.handleGetReferences)
	get("/tables/:id/queries", s.handleGetTableQueries)
	get("/display/:form/combobox/:wc/:tc", s.handleCombobox)

	s.app.Post("/display/:form/main", s.handleDisplayMain)
	s.app.Post("/display/:form/sub", s.handleDisplaySub)
	s.app.Post("/display/:form/tree", s.handleDisplayTree)

	s.app.Post("/data/:form/:widget/", s.handleInsert)
	s.app.Patch("/data/:form/:widget/", s.handleUpdate)
	s.app.Delete("/data/:form/:widget/", s.handleDelete)

	s.app.Post("/widgets/columns/:wc/references/:tc/", s.handleCreateReference)
	s.app.Patch("/widgets/columns/:wc/references/:tc/", s.handleUpdateReference)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	begin := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		status = statusOf(err)
	}
	ev := s.log.Debug()
	if status >= 500 {
		ev = s.log.Error().Err(err)
	}
	ev.Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status_code", status).
		Dur("elapsed", time.Since(begin)).
		Msg("request")
	return err
}

// Listen serves on an existing listener.
func (s *Server) Listen(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Start serves until the listener fails or ctx is cancelled. When the configured port
// is taken the next free one is used.
func (s *Server) Start(ctx context.Context, openBrowser bool) error {
	ln, port, err := listenFrom(s.port, portAttempts)
	if err != nil {
		return err
	}
	if port != s.port {
		color.Yellow("Port %d is in use, using port %d instead", s.port, port)
		s.port = port
	}

	url := fmt.Sprintf("http://localhost:%d", s.port)
	color.Green("🚀 Portal studio starting on %s", url)

	if openBrowser {
		go func() {
			if err := browse(url); err != nil {
				s.log.Warn().Err(err).Msg("could not open browser")
			}
		}()
	}

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down studio")
		s.app.Shutdown()
	}()

	return s.Listen(ln)
}

func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	if s.store != nil {
		if cerr := s.store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

const portAttempts = 100

// listenFrom binds the first free port in [start, start+attempts) and keeps the
// listener open so the port cannot be taken before the server uses it.
func listenFrom(start, attempts int) (net.Listener, int, error) {
	var lastErr error
	for port := start; port < start+attempts; port++ {
		ln, err := net.Listen("tcp4", fmt.Sprintf(":%d", port))
		if err == nil {
			return ln, port, nil
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("no free port in %d-%d: %w", start, start+attempts-1, lastErr)
}

var browserCommands = map[string][]string{
	"windows": {"cmd", "/c", "start"},
	"darwin":  {"open"},
}

func browse(url string) error {
	argv, ok := browserCommands[runtime.GOOS]
	if !ok {
		argv = []string{"xdg-open"}
	}
	return exec.Command(argv[0], append(argv[1:], url)...).Start()
}
