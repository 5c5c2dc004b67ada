package preview

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/baaaaaaaka/caspar-console/internal/ids"
	clog "github.com/baaaaaaaka/caspar-console/internal/log"
	"github.com/baaaaaaaka/caspar-console/internal/metrics"
)

const DefaultPort = 9966

//go:embed assets/key-fill-identifier.html
var assets embed.FS

type Options struct {
	// TestDir is served instead of the embedded test pattern when set.
	TestDir    string
	InstanceID string
	Logger     zerolog.Logger
}

// Server serves the key/fill test pattern pages to the playout server's HTML
// producer. It binds loopback only.
type Server struct {
	instanceID string
	testDir    string
	log        zerolog.Logger
	health     HealthClient

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	port     int
	done     chan struct{}
}

func New(opts Options) *Server {
	id := opts.InstanceID
	if id == "" {
		if v, err := ids.New(); err == nil {
			id = v
		}
	}
	return &Server{
		instanceID: id,
		testDir:    opts.TestDir,
		log:        opts.Logger,
		health:     HealthClient{Timeout: time.Second},
	}
}

func (s *Server) InstanceID() string { return s.instanceID }

// Start binds 127.0.0.1:preferredPort, falling back to an ephemeral port when
// that is taken, and returns the bound port once the service answers its own
// health probe. Starting a running server returns its current port.
func (s *Server) Start(ctx context.Context, preferredPort int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.port, nil
	}

	handler, err := s.handler()
	if err != nil {
		return 0, err
	}

	ln, err := listen(preferredPort)
	if err != nil {
		return 0, err
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if preferredPort > 0 && port != preferredPort {
		s.log.Warn().Int(clog.FieldPort, preferredPort).Int("fallback_port", port).Msg("preferred preview port busy")
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("preview server stopped")
		}
	}()

	if err := s.health.Check(ctx, port, s.instanceID); err != nil {
		_ = srv.Close()
		<-done
		return 0, fmt.Errorf("preview health check: %w", err)
	}

	s.listener = ln
	s.server = srv
	s.port = port
	s.done = done
	metrics.SetPreviewRunning(true)
	s.log.Info().Int(clog.FieldPort, port).Str(clog.FieldPath, s.testDir).Msg("preview server started")
	return port, nil
}

func listen(preferredPort int) (net.Listener, error) {
	if preferredPort > 0 {
		ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(preferredPort)))
		if err == nil {
			return ln, nil
		}
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("bind preview server: %w", err)
	}
	return ln, nil
}

// Stop shuts the service down and waits for the serve loop to exit. Stopping
// a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	if err != nil {
		_ = s.server.Close()
	}
	<-s.done
	s.listener, s.server, s.port, s.done = nil, nil, 0, nil
	metrics.SetPreviewRunning(false)
	s.log.Info().Msg("preview server stopped")
	if err != nil {
		return fmt.Errorf("stop preview server: %w", err)
	}
	return nil
}

// URL is the base URL of the running service.
func (s *Server) URL() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return "", false
	}
	return fmt.Sprintf("http://127.0.0.1:%d", s.port), true
}

func (s *Server) handler() (http.Handler, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(countRequests)
	r.Use(cors)

	r.Get(HealthPath, s.serveHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/*", http.FileServer(files))
	return r, nil
}

func (s *Server) files() (http.FileSystem, error) {
	if s.testDir == "" {
		sub, err := fs.Sub(assets, "assets")
		if err != nil {
			return nil, err
		}
		return http.FS(sub), nil
	}
	info, err := os.Stat(s.testDir)
	if err != nil {
		return nil, fmt.Errorf("test directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("test directory %s is not a directory", s.testDir)
	}
	return http.Dir(s.testDir), nil
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":         true,
		"instanceId": s.instanceID,
	})
}

// cors lets the server's embedded browser load pages from any origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.IncPreviewRequest(status)
	})
}
