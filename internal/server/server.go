package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/lvcsr-decode/internal/config"
	"github.com/example/lvcsr-decode/internal/observe"
	"github.com/example/lvcsr-decode/internal/recognizer"
)

// ParseLogLevel maps a config string to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// ProbeHTTP performs a one-shot GET against addr's /health endpoint,
// returning an error unless it answers 200 OK.
func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}

// Server wires the TCP module listener and the HTTP health/doctor/metrics
// mux into one lifecycle with graceful shutdown, mirroring the teacher's
// own Server type (net/http.Server plus context-driven shutdown) extended
// with a second listener for the module protocol.
type Server struct {
	cfg             config.ServerConfig
	log             *slog.Logger
	recorder        *observe.Recorder
	doctor          DoctorChecker
	shutdownTimeout time.Duration

	tcp        *tcpServer
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the slog.Logger used for server-lifecycle logging.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithRecorder wires an observability recorder; every decode run through
// RecognizeAndBroadcast reports its pass-1 frame progress to it.
func WithRecorder(r *observe.Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithDoctor wires the /doctor endpoint's preflight checker.
func WithDoctor(d DoctorChecker) Option {
	return func(s *Server) { s.doctor = d }
}

// New builds a Server from cfg. Call Start to run it.
func New(cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		cfg:             cfg,
		log:             slog.Default(),
		shutdownTimeout: time.Duration(cfg.ShutdownTimeout) * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 30 * time.Second
	}
	s.tcp = newTCPServer(s.log)

	return s
}

// Start runs the TCP module listener and the HTTP mux concurrently until
// ctx is cancelled, then drains both within the configured shutdown
// timeout. It returns the first listener error, if any, other than a
// clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.newHTTPHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("module server listening", slog.String("addr", s.cfg.ListenAddr))
		return s.tcp.listenAndServe(gctx, s.cfg.ListenAddr)
	})

	g.Go(func() error {
		s.log.Info("http server listening", slog.String("addr", s.cfg.HTTPAddr))
		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		s.tcp.close()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// RecognizeAndBroadcast runs one utterance through rec and broadcasts the
// result to every connected module client as XML. The utterance ID is
// generated by the caller (e.g. from audiorec's capture timestamp) so
// results can be correlated with the recorded WAV file.
func (s *Server) RecognizeAndBroadcast(ctx context.Context, rec *recognizer.Recognizer, uttID string, in recognizer.Input, cb recognizer.Callbacks) error {
	if s.recorder != nil {
		cb = mergeCallbacks(cb, observeCallbacks(ctx, s.recorder))
	}

	code, sentences, err := rec.Recognize(ctx, in, cb)
	if err != nil {
		return fmt.Errorf("server: recognize: %w", err)
	}

	return s.tcp.broadcast(uttID, code, sentences)
}
