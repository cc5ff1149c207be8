package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"marginalia/pkg/config"
	"marginalia/pkg/page"
	"marginalia/pkg/render"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

var errNotFound = errors.New("page not found")

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve <dir>",
		Short: "Serve placements and previews for the pages in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", args[0])
			}
			return c.listenAndServe(ctx, addr, c.newRouter(ctx, args[0]))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}

// listenAndServe runs the server until ctx ends.
func (c *CLI) listenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	logger := loggerFromContext(ctx)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	serveErr := make(chan error, 1)
	logger.Info("listening", "addr", addr)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

type pageServer struct {
	cli    *CLI
	dir    string
	logger *log.Logger
}

func (c *CLI) newRouter(ctx context.Context, dir string) http.Handler {
	s := &pageServer{cli: c, dir: dir, logger: loggerFromContext(ctx)}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "ok")
	})
	r.Route("/pages/{name}", func(r chi.Router) {
		r.Get("/", s.handleHTML)
		r.Get("/placements", s.handlePlacements)
		r.Get("/render.png", s.handleRender)
	})
	return r
}

func (s *pageServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "elapsed", time.Since(start))
	})
}

// locate maps a page name to a file in the served directory. The name may
// omit its .html or .md extension.
func (s *pageServer) locate(name string) (string, error) {
	name = filepath.Base(filepath.Clean("/" + name))
	for _, candidate := range []string{name, name + ".html", name + ".md"} {
		path := filepath.Join(s.dir, candidate)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errNotFound, name)
}

func (s *pageServer) viewport(r *http.Request) (viewport, error) {
	var v viewport
	for key, dst := range map[string]*float64{"width": &v.width, "height": &v.height} {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || n <= 0 || n > config.MaxViewport {
			return v, fmt.Errorf("invalid %s %q: want a number in (0, %d]", key, raw, config.MaxViewport)
		}
		*dst = n
	}
	return v, nil
}

func (s *pageServer) handlePlacements(w http.ResponseWriter, r *http.Request) {
	p, ok := s.preparePage(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(placementRecords(p.Placements())); err != nil {
		s.logger.Warn("write placements", "err", err)
	}
}

func (s *pageServer) handleRender(w http.ResponseWriter, r *http.Request) {
	p, ok := s.preparePage(w, r)
	if !ok {
		return
	}
	guides := r.URL.Query().Get("guides") != ""
	img := render.Page(r.Context(), p, render.Options{Guides: guides, Logger: s.logger})
	w.Header().Set("Content-Type", "image/png")
	if err := img.EncodePNG(w); err != nil {
		s.logger.Warn("write png", "err", err)
	}
}

func (s *pageServer) handleHTML(w http.ResponseWriter, r *http.Request) {
	p, ok := s.preparePage(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, p.HTML())
}

func (s *pageServer) preparePage(w http.ResponseWriter, r *http.Request) (*page.Page, bool) {
	path, err := s.locate(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	v, err := s.viewport(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	p, err := s.cli.prepare(withLogger(r.Context(), s.logger), path, v)
	if err != nil {
		s.logger.Warn("prepare page", "path", path, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return p, true
}
