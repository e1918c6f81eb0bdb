package api

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MaxConcurrent caps route computations in flight. Health and stats
	// are never queued behind a slow network fetch.
	MaxConcurrent int
	CORSOrigin    string
	// RequestTimeout bounds a whole route computation, fetch included.
	RequestTimeout time.Duration
}

// DefaultConfig returns the server defaults. The write timeout leaves room
// for slow Overpass mirrors and their retries.
func DefaultConfig(addr string) ServerConfig {
	return ServerConfig{
		Addr:           addr,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   4 * time.Minute,
		MaxConcurrent:  runtime.NumCPU() * 2,
		RequestTimeout: 3 * time.Minute,
	}
}

type middleware func(http.Handler) http.Handler

func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// NewServer creates an HTTP server with all routes and middleware.
func NewServer(cfg ServerConfig, handlers *Handlers, logger logrus.FieldLogger) *http.Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	log := logger.WithField("module", "http")

	common := []middleware{accessLog(log), apiHeaders(cfg.CORSOrigin), recoverPanics(log)}
	planning := slices.Concat(common, []middleware{admitRoutes(cfg.MaxConcurrent, log), routeDeadline(cfg.RequestTimeout)})

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/route", chain(http.HandlerFunc(handlers.HandleRoute), planning...))
	mux.Handle("GET /api/v1/health", chain(http.HandlerFunc(handlers.HandleHealth), common...))
	mux.Handle("GET /api/v1/stats", chain(http.HandlerFunc(handlers.HandleStats), common...))

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// Serve runs srv until ctx is done, then drains in-flight requests for up
// to ten seconds.
func Serve(ctx context.Context, srv *http.Server, logger logrus.FieldLogger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// statusWriter remembers the response code for the access log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func accessLog(log logrus.FieldLogger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(sw, r)
			if sw.status == 0 {
				sw.status = http.StatusOK
			}
			log.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
				"status": sw.status,
				"took":   time.Since(start).Round(time.Microsecond),
			}).Debug("request")
		})
	}
}

// apiHeaders marks every answer as uncacheable: routes depend on live
// Overpass data.
func apiHeaders(corsOrigin string) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Cache-Control", "no-store")
			if corsOrigin != "" {
				h.Set("Access-Control-Allow-Origin", corsOrigin)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func recoverPanics(log logrus.FieldLogger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithField("path", r.URL.Path).Errorf("panic: %v", rec)
					writeError(w, http.StatusInternalServerError, "internal_error", "",
						"Route calculation failed unexpectedly.")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// admitRoutes rejects a route request outright when limit computations are
// already running. A waiting client would only hold a connection while an
// Overpass fetch may take minutes.
func admitRoutes(limit int, log logrus.FieldLogger) middleware {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	slots := make(chan struct{}, limit)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case slots <- struct{}{}:
				defer func() { <-slots }()
				next.ServeHTTP(w, r)
			default:
				log.WithField("limit", limit).Warn("route request rejected, planner busy")
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusServiceUnavailable, "busy", "",
					"All route planners are busy. Try again shortly.")
			}
		})
	}
}

func routeDeadline(d time.Duration) middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
