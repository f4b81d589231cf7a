// Package viewer serves rendered reports over HTTP. Reports arrive as uploads,
// pasted JSON, gists, saved entries or over the live websocket channel.
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/lhviewer/constants"
	"github.com/ethpandaops/lhviewer/internal/gist"
	"github.com/ethpandaops/lhviewer/internal/report"
	"github.com/ethpandaops/lhviewer/internal/reports"
	"github.com/ethpandaops/lhviewer/internal/store"
)

// ErrInvalidGistURL is returned when a gist reference cannot be parsed.
var ErrInvalidGistURL = gist.ErrInvalidID

// PageRenderer turns a report into a complete page.
type PageRenderer interface {
	RenderPage(ctx context.Context, rep *report.Report) (*reports.Page, error)
}

// PageTemplates renders the viewer landing page.
type PageTemplates interface {
	RenderViewer(data interface{}) (string, error)
	Stylesheet() template.CSS
}

// GistClient loads and creates report gists.
type GistClient interface {
	GetGistFileContentAsJSON(ctx context.Context, id string) ([]byte, error)
	CreateGist(ctx context.Context, reportJSON []byte) (*gist.Gist, error)
}

// Options configures a Server.
type Options struct {
	ListenAddr      string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// Server is the viewer HTTP server.
type Server struct {
	echo      *echo.Echo
	renderer  PageRenderer
	templates PageTemplates
	gists     GistClient
	store     store.Store
	hub       *hub
	opts      Options
	logger    logrus.FieldLogger
}

// NewServer wires the viewer routes. gists and st may be nil, in which case the
// corresponding endpoints answer 503.
func NewServer(logger logrus.FieldLogger, renderer PageRenderer, templates PageTemplates, gists GistClient, st store.Store, opts Options) *Server {
	if opts.ListenAddr == "" {
		opts.ListenAddr = constants.DefaultListenAddr
	}

	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = constants.DefaultMaxUploadBytes
	}

	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = constants.DefaultShutdownTimeout
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dB", opts.MaxUploadBytes)))

	log := logger.WithField("component", "viewer")

	s := &Server{
		echo:      e,
		renderer:  renderer,
		templates: templates,
		gists:     gists,
		store:     st,
		hub:       newHub(log),
		opts:      opts,
		logger:    log,
	}

	s.setupRoutes()

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	s.echo.GET("/", s.index)
	s.echo.GET("/gist", s.gistRedirect)
	s.echo.GET("/gist/:id", s.viewGist)
	s.echo.GET("/reports/:id", s.viewStored)
	s.echo.GET("/ws", s.serveWS)

	api := s.echo.Group("/api")
	api.POST("/render", s.render)
	api.POST("/gist", s.createGist)
	api.GET("/reports", s.listStored)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.WithField("addr", s.opts.ListenAddr).Info("Viewer listening")

		if err := s.echo.Start(s.opts.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start viewer: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	return s.Shutdown()
}

// Shutdown stops the server and disconnects websocket viewers.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	s.hub.Close()

	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down viewer: %w", err)
	}

	s.logger.Info("Viewer stopped")

	return nil
}

type messageResponse struct {
	Message string `json:"message"`
}

type storedSummary struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}

type gistResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (s *Server) index(c echo.Context) error {
	ctx := c.Request().Context()

	var stored []storedSummary
	if s.store != nil {
		entries, err := s.store.List(ctx, 0)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to list saved reports")
		}

		stored = summarise(entries)
	}

	page, err := s.templates.RenderViewer(map[string]interface{}{
		"CSS":    s.templates.Stylesheet(),
		"Stored": stored,
	})
	if err != nil {
		return fmt.Errorf("failed to render viewer: %w", err)
	}

	return c.HTML(http.StatusOK, page)
}

// render accepts either a multipart upload in the "report" field or a raw JSON body.
func (s *Server) render(c echo.Context) error {
	data, err := readReportBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
	}

	rep, err := report.Parse(data)
	if err != nil {
		return validationError(c, err)
	}

	if s.store != nil {
		if _, err := s.store.Put(c.Request().Context(), store.Entry{
			URL:     rep.URL,
			Version: rep.LighthouseVersion,
			Body:    data,
		}); err != nil {
			s.logger.WithError(err).Warn("Failed to save report")
		}
	}

	return s.writePage(c, rep)
}

func (s *Server) gistRedirect(c echo.Context) error {
	id, err := gist.ParseID(c.QueryParam("url"))
	if err != nil {
		return validationError(c, ErrInvalidGistURL)
	}

	return c.Redirect(http.StatusSeeOther, "/gist/"+id)
}

func (s *Server) viewGist(c echo.Context) error {
	if s.gists == nil {
		return c.JSON(http.StatusServiceUnavailable, messageResponse{Message: "gist loading is disabled"})
	}

	id, err := gist.ParseID(c.Param("id"))
	if err != nil {
		return validationError(c, ErrInvalidGistURL)
	}

	ctx := c.Request().Context()

	data, err := s.gists.GetGistFileContentAsJSON(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("gist", id).Warn("Failed to load gist")

		return c.JSON(http.StatusBadGateway, messageResponse{Message: err.Error()})
	}

	rep, err := report.Parse(data)
	if err != nil {
		return validationError(c, err)
	}

	if s.store != nil {
		if _, err := s.store.Put(ctx, store.Entry{
			ID:      "gist:" + id,
			URL:     rep.URL,
			Version: rep.LighthouseVersion,
			Body:    data,
		}); err != nil {
			s.logger.WithError(err).Warn("Failed to save gist report")
		}
	}

	return s.writePage(c, rep)
}

func (s *Server) createGist(c echo.Context) error {
	if s.gists == nil {
		return c.JSON(http.StatusServiceUnavailable, messageResponse{Message: "gist saving is disabled"})
	}

	data, err := readReportBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
	}

	if _, err := report.Parse(data); err != nil {
		return validationError(c, err)
	}

	g, err := s.gists.CreateGist(c.Request().Context(), data)
	if errors.Is(err, gist.ErrTokenRequired) {
		return c.JSON(http.StatusUnauthorized, messageResponse{Message: err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusBadGateway, messageResponse{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, gistResponse{ID: g.ID, URL: g.HTMLURL})
}

func (s *Server) viewStored(c echo.Context) error {
	if s.store == nil {
		return c.JSON(http.StatusServiceUnavailable, messageResponse{Message: "report storage is disabled"})
	}

	entry, err := s.store.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, messageResponse{Message: err.Error()})
	}
	if err != nil {
		return err
	}

	rep, err := report.Parse(entry.Body)
	if err != nil {
		return validationError(c, err)
	}

	return s.writePage(c, rep)
}

func (s *Server) listStored(c echo.Context) error {
	if s.store == nil {
		return c.JSON(http.StatusOK, []storedSummary{})
	}

	entries, err := s.store.List(c.Request().Context(), 0)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, summarise(entries))
}

func (s *Server) writePage(c echo.Context, rep *report.Report) error {
	page, err := s.renderer.RenderPage(c.Request().Context(), rep)
	if err != nil {
		return err
	}

	if page.Warning != "" {
		c.Response().Header().Set("X-Lighthouse-Warning", sanitizeHeader(page.Warning))
	}

	return c.HTML(http.StatusOK, page.HTML)
}

func readReportBody(c echo.Context) ([]byte, error) {
	if fh, err := c.FormFile("report"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()

		return io.ReadAll(f)
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	return body, nil
}

// validationError answers user input errors with their message. Anything else
// is passed on to echo's error handler.
func validationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, report.ErrNotJSON):
		return c.JSON(http.StatusBadRequest, messageResponse{Message: report.ErrNotJSON.Error()})
	case errors.Is(err, report.ErrNotLighthouseReport):
		return c.JSON(http.StatusBadRequest, messageResponse{Message: report.ErrNotLighthouseReport.Error()})
	case errors.Is(err, ErrInvalidGistURL):
		return c.JSON(http.StatusBadRequest, messageResponse{Message: ErrInvalidGistURL.Error()})
	default:
		return err
	}
}

func summarise(entries []store.Entry) []storedSummary {
	out := make([]storedSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, storedSummary{ID: e.ID, URL: e.URL, Version: e.Version, CreatedAt: e.CreatedAt})
	}

	return out
}

func sanitizeHeader(v string) string {
	b, _ := json.Marshal(v)

	return string(b[1 : len(b)-1])
}
