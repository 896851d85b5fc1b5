package web

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cupogo/andvari/utils/zlog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/liut/parley/htdocs"
	"github.com/liut/parley/pkg/models/aigc"
	"github.com/liut/parley/pkg/services/ingest"
	"github.com/liut/parley/pkg/services/stores"
)

type Service interface {
	Serve(ctx context.Context) error
	Stop(ctx context.Context) error
	Handler() http.Handler
}

// Config 服务依赖与选项
type Config struct {
	Addr  string
	Debug bool

	AI        stores.Generator
	Sessions  stores.SessionStore
	Extractor *ingest.Extractor
	Scratch   *ingest.Scratch
	Preset    *aigc.Preset

	MaxUploadBytes int64
	PredictRate    string             // like "30-M", empty for unlimited
	RedisClient    stores.RedisClient // limiter store, in memory if nil

	CookieName   string
	CookiePath   string
	CookieDomain string
	CookieMaxAge int
	CookieSecure bool
}

type server struct {
	Addr string
	cfg  Config

	ar *chi.Mux     // app router
	hs *http.Server // http server

	ai     stores.Generator
	sto    stores.SessionStore
	ext    *ingest.Extractor
	sc     *ingest.Scratch
	preset *aigc.Preset
	tpl    *template.Template
}

// New return new web server
func New(cfg Config) (Service, error) {
	if len(cfg.CookieName) == 0 {
		cfg.CookieName = "parley_sid"
	}
	if len(cfg.CookiePath) == 0 {
		cfg.CookiePath = "/"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 16 << 20
	}

	tpl, err := template.New("").Funcs(template.FuncMap{
		"safe": func(s string) template.HTML { return template.HTML(s) }, //nolint:gosec // sanitized by RenderMarkdown
		"when": formatTime,
	}).ParseFS(htdocs.FS(), "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	ar := chi.NewMux()
	if cfg.Debug {
		ar.Use(middleware.Logger)
	}
	ar.Use(middleware.Recoverer, middleware.RealIP)

	s := &server{
		Addr: cfg.Addr, ar: ar,
		cfg:    cfg,
		ai:     cfg.AI,
		sto:    cfg.Sessions,
		ext:    cfg.Extractor,
		sc:     cfg.Scratch,
		preset: cfg.Preset,
		tpl:    tpl,
	}
	if err = s.strapRouter(); err != nil {
		return nil, err
	}

	s.hs = &http.Server{
		Addr:              s.Addr,
		Handler:           s.ar,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Debug {
		logger().Infow("routes:")
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			route = strings.Replace(route, "/*/", "/", -1)
			fmt.Fprintf(os.Stderr, "DEBUG: %-6s %-24s --> %s (%d mw)\n", method, route, nameOfFunction(handler), len(middlewares))
			return nil
		}

		if err := chi.Walk(ar, walkFunc); err != nil {
			logger().Infow("router walk fail", "err", err)
		}
	}
	return s, nil
}

func (s *server) Handler() http.Handler {
	return s.ar
}

func (s *server) Serve(ctx context.Context) error {
	runErrChan := make(chan error, 1)
	go func() {
		runErrChan <- s.hs.ListenAndServe()
	}()
	logger().Infow("Listen on", "addr", s.hs.Addr)

	select {
	case runErr := <-runErrChan:
		if runErr != nil && runErr != http.ErrServerClosed {
			logger().Infow("run http server failed", "err", runErr)
			return runErr
		}
		return nil
	case <-ctx.Done():
		logger().Info("http server has been stopped")
		return ctx.Err()
	}
}

func (s *server) Stop(ctx context.Context) error {
	if err := s.hs.Shutdown(ctx); err != nil {
		logger().Warnw("Server Shutdown", "err", err)
		return err
	}
	return nil
}

func logger() zlog.Logger {
	return zlog.Get()
}
