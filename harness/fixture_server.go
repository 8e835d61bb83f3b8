package harness

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pulpqe/pulp-contract-tests/framework"
)

const shutdownPollInterval = time.Second

// FixtureServer is an HTTP(S) server running on a background goroutine, used
// to simulate a content-origin server that the Pulp deployment fetches from.
// Each test owns the servers it starts; Stop (or the owning group's teardown)
// must run before the test scope exits so that no listener leaks across tests.
type FixtureServer struct {
	host      string
	port      int
	tlsConfig *tls.Config
	server    *http.Server
	shutdown  atomic.Bool
	done      chan struct{}
	logger    framework.Logger

	// Requests receives a record of every request the server handled, in
	// arrival order. The channel is buffered; records are dropped, not
	// blocked on, if a test never drains it.
	Requests <-chan RequestInfo
}

// RequestInfo is a record of one request received by a fixture server.
type RequestInfo struct {
	Method  string
	Path    string
	Headers http.Header
}

// UnusedPort reserves an ephemeral port on host by binding port 0, reading
// the assigned port back, and releasing the socket. Another process could
// grab the port between release and the caller's bind; that race existed in
// the environments this harness is modeled on and is accepted here too.
func UnusedPort(host string) (int, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if err := ln.Close(); err != nil {
		return 0, err
	}
	return port, nil
}

// StartFixtureServer binds a server for the handler on an ephemeral port on
// host. If tlsConfig is non-nil the server serves HTTPS with it. The server
// runs until Stop is called.
func StartFixtureServer(host string, handler http.Handler, tlsConfig *tls.Config, logger framework.Logger) (*FixtureServer, error) {
	if logger == nil {
		logger = framework.NullLogger()
	}
	port, err := UnusedPort(host)
	if err != nil {
		return nil, fmt.Errorf("reserving fixture server port: %w", err)
	}

	requests := make(chan RequestInfo, 100)
	recording := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := RequestInfo{Method: r.Method, Path: r.URL.Path, Headers: r.Header.Clone()}
		select { // non-blocking push
		case requests <- info:
		default:
			logger.Printf("request record channel full, dropping record for %s", r.URL.Path)
		}
		handler.ServeHTTP(w, r)
	})

	s := &FixtureServer{
		host:      host,
		port:      port,
		tlsConfig: tlsConfig,
		done:      make(chan struct{}),
		logger:    logger,
		Requests:  requests,
	}
	s.server = &http.Server{
		Addr:      net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		Handler:   recording,
		TLSConfig: tlsConfig,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return nil, fmt.Errorf("binding fixture server to %s: %w", s.server.Addr, err)
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Printf("fixture server at %s exited: %s", s.server.Addr, err)
		}
	}()
	go s.watchForShutdown()

	logger.Printf("fixture server listening at %s", s.server.Addr)
	return s, nil
}

// watchForShutdown is the server's worker loop: it polls the shutdown signal
// once per interval and closes the server when it is set. Worst-case shutdown
// latency is one poll interval.
func (s *FixtureServer) watchForShutdown() {
	ticker := time.NewTicker(shutdownPollInterval)
	defer ticker.Stop()
	for range ticker.C {
		if s.shutdown.Load() {
			_ = s.server.Close()
			close(s.done)
			return
		}
	}
}

// Host returns the hostname the server is bound to.
func (s *FixtureServer) Host() string { return s.host }

// Port returns the ephemeral port the server is bound to.
func (s *FixtureServer) Port() int { return s.port }

// MakeURL builds a URL for a path on this server. The path must start with
// "/"; the scheme follows whether the server was started with a TLS config.
func (s *FixtureServer) MakeURL(path string) (string, error) {
	if !strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("path %q must start with '/'", path)
	}
	scheme := "http"
	if s.tlsConfig != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, s.host, s.port, path), nil
}

// Signal sets the shutdown signal without waiting for the server to exit.
// Signaling more than once is harmless.
func (s *FixtureServer) Signal() {
	s.shutdown.Store(true)
}

// Join blocks until the server's worker has fully terminated.
func (s *FixtureServer) Join() {
	<-s.done
}

// Stop signals shutdown and waits for the worker to terminate.
func (s *FixtureServer) Stop() {
	s.Signal()
	s.Join()
}

// FixtureServerGroup tracks every fixture server started during one test so
// they can be torn down together: all servers are signaled in registration
// order, then joined in registration order.
type FixtureServerGroup struct {
	servers []*FixtureServer
}

func (g *FixtureServerGroup) Add(s *FixtureServer) {
	g.servers = append(g.servers, s)
}

func (g *FixtureServerGroup) StopAll() {
	for _, s := range g.servers {
		s.Signal()
	}
	for _, s := range g.servers {
		s.Join()
	}
	g.servers = nil
}

// FileHandler serves static fixture content from a local directory tree.
func FileHandler(root string) http.Handler {
	return http.FileServer(http.Dir(root))
}
