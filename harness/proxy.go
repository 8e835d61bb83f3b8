package harness

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"

	"github.com/elazarl/goproxy"
	"github.com/elazarl/goproxy/ext/auth"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/pulpqe/pulp-contract-tests/framework"
)

// proxyWorkerCount caps concurrent in-flight requests through a proxy
// fixture, mirroring the fixed worker pool of the proxy the harness replaces.
const proxyWorkerCount = 4

// ProxyConfig describes a running forward proxy's connection parameters.
type ProxyConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	TLS      bool
}

// URL returns the proxy URL a client should be configured with.
func (p ProxyConfig) URL() string {
	scheme := "http"
	if p.TLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, p.Host, p.Port)
}

// Proxy is a local forward proxy running on a background goroutine.
type Proxy struct {
	Config ProxyConfig
	server *http.Server
	done   chan struct{}
}

type proxyOptions struct {
	username  string
	password  string
	tlsConfig *tls.Config
}

// ProxyOption configures StartProxy.
type ProxyOption func(*proxyOptions)

// ProxyWithBasicAuth makes the proxy require the given credentials via
// Proxy-Authorization.
func ProxyWithBasicAuth(username, password string) ProxyOption {
	return func(o *proxyOptions) {
		o.username = username
		o.password = password
	}
}

// ProxyWithRandomAuth makes the proxy require freshly generated random
// credentials, which are reported in the returned ProxyConfig.
func ProxyWithRandomAuth() ProxyOption {
	return ProxyWithBasicAuth(uuid.NewString(), uuid.NewString())
}

// ProxyWithTLS terminates TLS at the proxy using the given server config.
func ProxyWithTLS(tlsConfig *tls.Config) ProxyOption {
	return func(o *proxyOptions) {
		o.tlsConfig = tlsConfig
	}
}

// StartProxy starts a forward proxy on an ephemeral port on host. Stop it
// with Stop; the caller's test scope must guarantee that on all exit paths.
func StartProxy(host string, logger framework.Logger, opts ...ProxyOption) (*Proxy, error) {
	if logger == nil {
		logger = framework.NullLogger()
	}
	var options proxyOptions
	for _, o := range opts {
		o(&options)
	}

	engine := goproxy.NewProxyHttpServer()
	if options.username != "" {
		expectedUser, expectedPassword := options.username, options.password
		auth.ProxyBasic(engine, "pulp-fixtures", func(user, passwd string) bool {
			return user == expectedUser && passwd == expectedPassword
		})
	}

	sem := semaphore.NewWeighted(proxyWorkerCount)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := sem.Acquire(r.Context(), 1); err != nil {
			return
		}
		defer sem.Release(1)
		engine.ServeHTTP(w, r)
	})

	port, err := UnusedPort(host)
	if err != nil {
		return nil, fmt.Errorf("reserving proxy port: %w", err)
	}
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding proxy to %s: %w", addr, err)
	}
	if options.tlsConfig != nil {
		ln = tls.NewListener(ln, options.tlsConfig)
	}

	p := &Proxy{
		Config: ProxyConfig{
			Host:     host,
			Port:     port,
			Username: options.username,
			Password: options.password,
			TLS:      options.tlsConfig != nil,
		},
		server: &http.Server{Addr: addr, Handler: handler},
		done:   make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		if err := p.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Printf("proxy at %s exited: %s", addr, err)
		}
	}()

	logger.Printf("forward proxy listening at %s (auth=%v tls=%v)",
		addr, options.username != "", options.tlsConfig != nil)
	return p, nil
}

// Stop shuts the proxy down and waits for its worker to terminate.
func (p *Proxy) Stop() {
	_ = p.server.Shutdown(context.Background())
	<-p.done
}
