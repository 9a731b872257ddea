package devstack

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"

	"github.com/scanpool/scanpool/common"
	"github.com/scanpool/scanpool/metrics"
	"github.com/scanpool/scanpool/workflow"
)

// DefaultLinkBase is the activation link prefix dropped into emulated
// activation emails. The default matches what the production workflow's link
// pattern expects, so a stock provisioner works against a stock devstack.
const DefaultLinkBase = "https://wpscan.com/confirm?token="

// DefaultPollBurst is how many message listings an address may issue before
// the per-address rate limit kicks in.
const DefaultPollBurst = 5

// Config holds the devstack server settings.
type Config struct {
	ListenAddr  string
	MetricsAddr string
	EnablePprof bool
	Log         *slog.Logger

	// Domains is the inbox domain pool the emulated provider advertises.
	Domains []string

	// Sender is the From address on emulated activation emails.
	Sender string

	// LinkBase is the activation link prefix; the token is appended.
	LinkBase string

	// SessionCookie, when set, must match the _hcp cookie on sign-up calls.
	SessionCookie string

	// DeliveryDelay postpones activation emails, mimicking provider latency.
	DeliveryDelay time.Duration

	// PollInterval is the minimum interval between message listings per
	// address. Zero disables throttling.
	PollInterval time.Duration
	PollBurst    int

	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}

// Server emulates the inbox provider and the account service on a single
// listener so provisioning can run end-to-end without the real endpoints.
type Server struct {
	cfg     *Config
	isReady atomic.Bool
	log     *slog.Logger

	state    *state
	limiters *limiterMap

	srv        *http.Server
	metricsSrv *metrics.MetricsServer
	requests   *metrics.RequestMetrics
}

// New creates a devstack server. Zero-value config fields fall back to
// production-compatible defaults.
func New(cfg *Config) (*Server, error) {
	if len(cfg.Domains) == 0 {
		cfg.Domains = []string{"devmail.test", "scanmail.test"}
	}
	if cfg.Sender == "" {
		cfg.Sender = workflow.DefaultSender
	}
	if cfg.LinkBase == "" {
		cfg.LinkBase = DefaultLinkBase
	}
	if cfg.PollBurst <= 0 {
		cfg.PollBurst = DefaultPollBurst
	}

	metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:        cfg,
		log:        cfg.Log,
		state:      newState(cfg.Domains),
		limiters:   newLimiterMap(cfg.PollInterval, cfg.PollBurst),
		metricsSrv: metricsSrv,
		requests:   metrics.NewRequestMetrics(common.PackageName, metricsSrv.Registry()),
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return srv, nil
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()
	mux.Use(srv.countRequests)

	// Inbox provider surface.
	mux.With(srv.httpLogger).Get("/domains", srv.handleDomains)
	mux.With(srv.httpLogger).Get("/messages", srv.handleMessages)
	mux.With(srv.httpLogger).Get("/message", srv.handleMessage)

	// Account service surface.
	mux.With(srv.httpLogger).Post("/wp-json/wpscan/v1/sign-up", srv.handleSignUp)
	mux.With(srv.httpLogger).Post("/wp-json/wpscan/v1/confirmation", srv.handleConfirmation)
	mux.With(srv.httpLogger).Post("/wp-json/wpscan/v1/sign-in", srv.handleSignIn)
	mux.With(srv.httpLogger).Get("/wp-json/wpscan/v1/users", srv.handleUsers)

	// Health and diagnostic endpoints.
	mux.With(srv.httpLogger).Get("/livez", srv.handleLivenessCheck)
	mux.With(srv.httpLogger).Get("/readyz", srv.handleReadinessCheck)
	mux.With(srv.httpLogger).Get("/drain", srv.handleDrain)
	mux.With(srv.httpLogger).Get("/undrain", srv.handleUndrain)

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

func (srv *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		srv.requests.ObserveRequest(r.Method, r.URL.Path, ww.Status())
	})
}

// Handler exposes the router so tests can serve the devstack via httptest.
func (srv *Server) Handler() http.Handler {
	return srv.srv.Handler
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"alive"}`))
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already draining"}`))
		return
	}

	srv.log.Info("Server marked as not ready")

	go func() {
		// Give load balancers the drain window before shutdown proceeds.
		time.Sleep(srv.cfg.DrainDuration)
		srv.log.Info("Drain period completed")
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"draining"}`))
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"already ready"}`))
		return
	}

	srv.log.Info("Server marked as ready")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (srv *Server) RunInBackground() {
	// metrics
	if srv.cfg.MetricsAddr != "" {
		go func() {
			srv.log.With("metricsAddress", srv.cfg.MetricsAddr).Info("Starting metrics server")
			err := srv.metricsSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				srv.log.Error("HTTP server failed", "err", err)
			}
		}()
	}

	// api
	go func() {
		srv.log.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr)
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTP server failed", "err", err)
		}
	}()
}

func (srv *Server) Shutdown() {
	srv.state.stopTimers()

	// api
	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTP server gracefully stopped")
	}

	// metrics
	if len(srv.cfg.MetricsAddr) != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
		defer cancel()

		if err := srv.metricsSrv.Shutdown(ctx); err != nil {
			srv.log.Error("Graceful metrics server shutdown failed", "err", err)
		} else {
			srv.log.Info("Metrics server gracefully stopped")
		}
	}
}
