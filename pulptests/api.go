package pulptests

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pulpqe/pulp-contract-tests/client"
	"github.com/pulpqe/pulp-contract-tests/config"
	"github.com/pulpqe/pulp-contract-tests/framework"
	"github.com/pulpqe/pulp-contract-tests/harness"
)

// environment holds the session-scoped pieces shared by every test: the API
// client, the configuration, one certificate authority per trust domain, and
// the per-run name tag used for leftover detection.
type environment struct {
	cfg            *config.Config
	pulp           *client.PulpClient
	svcMgr         *harness.ServiceManager
	serverCA       *harness.CertAuthority
	clientCA       *harness.CertAuthority
	proxyCA        *harness.CertAuthority
	runTag         string
	checkLeftovers bool
}

// T represents a test or subtest in the Pulp contract-test suite.
//
// It implements the same basic functionality as Go's testing.T, but in an
// environment that is outside of the Go test runner, with extra features such
// as per-test debug logging. Those features are provided by the lower-level
// framework package.
//
// Every T owns a fixture-server group and a cleanup tracker scoped to its
// test: fixture servers started through it are signaled and joined at the end
// of the test, and remote objects created through it are deleted in reverse
// creation order. To make assertions, use the assert and require packages,
// passing the *T as if it were a *testing.T.
type T struct {
	context *framework.Context
	env     *environment
	servers *harness.FixtureServerGroup
	cleanup *harness.CleanupTracker
}

func newTestScope(c *framework.Context, env *environment) *T {
	return &T{
		context: c,
		env:     env,
		servers: &harness.FixtureServerGroup{},
		cleanup: harness.NewCleanupTracker(env.pulp.MonitorTask, c.DebugLogger()),
	}
}

// close tears the test scope down: remote objects first (they may reference
// local fixture servers), then the local servers.
func (t *T) close() {
	t.cleanup.Run(context.Background())
	t.servers.StopAll()
}

// Errorf is called by assertions to log a test failure. It does not cause an
// immediate exit.
func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

// FailNow is called by assertions when a test should fail and immediately
// exit. The methods in the require package call FailNow.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs a subtest with its own fixture scope.
func (t *T) Run(name string, action func(*T)) {
	t.context.Run(name, func(c *framework.Context) {
		t1 := newTestScope(c, t.env)
		// Teardown must happen on every exit path, including FailNow panics.
		c.Defer(t1.runLeftoverCheck)
		c.Defer(t1.close)
		action(t1)
	})
}

// Skip stops the test and marks it as skipped.
func (t *T) Skip(reason string) {
	t.context.SkipWithReason(reason)
}

// RequireNightly skips the test unless the run was started with -nightly.
func (t *T) RequireNightly() {
	t.context.RequireNightly()
}

// Debug records debug output for this test.
func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

func (t *T) DebugLogger() framework.Logger {
	return t.context.DebugLogger()
}

// Defer schedules a cleanup for the end of this test scope.
func (t *T) Defer(cleanup func()) {
	t.context.Defer(cleanup)
}

// Pulp returns the API client.
func (t *T) Pulp() *client.PulpClient {
	return t.env.pulp
}

// GenName generates a unique object name carrying this run's tag, so that
// the leftover check can attribute surviving objects to the run.
func (t *T) GenName(kind string) string {
	return fmt.Sprintf("%s-%s-%s", t.env.runTag, kind, uuid.NewString()[:8])
}

// AwaitTask waits for the task referenced by a create/action response and
// fails the test if the task errors.
func (t *T) AwaitTask(obj *client.Object) *client.Task {
	require.NotEmpty(t, obj.Task, "response did not reference a task")
	task, err := t.env.pulp.MonitorTask(context.Background(), obj.Task)
	require.NoError(t, err)
	return task
}

// AwaitFailedTask waits for a task expected to fail, failing the test if the
// task completes successfully.
func (t *T) AwaitFailedTask(obj *client.Object) *client.Task {
	require.NotEmpty(t, obj.Task, "response did not reference a task")
	task, err := t.env.pulp.MonitorTask(context.Background(), obj.Task)
	require.Error(t, err, "task was expected to fail but completed")
	require.NotNil(t, task)
	return task
}

// CreateWithCleanup creates a remote object through the given collection API
// and registers it for reverse-order deletion at the end of the test.
func (t *T) CreateWithCleanup(api harness.ResourceAPI, body interface{}) *client.Object {
	obj, err := t.cleanup.CreateWithCleanup(context.Background(), api, body)
	require.NoError(t, err)
	return obj
}

// CreateRepository creates a repository with a generated name.
func (t *T) CreateRepository() *client.Object {
	return t.CreateWithCleanup(t.env.pulp.Repositories(), client.RepositoryParams{
		Name: t.GenName("repo"),
	})
}

// CreateRemote creates a remote with a generated name; the URL and any proxy
// or TLS fields come from params.
func (t *T) CreateRemote(params client.RemoteParams) *client.Object {
	if params.Name == "" {
		params.Name = t.GenName("remote")
	}
	if params.Policy == "" {
		params.Policy = "on_demand"
	}
	return t.CreateWithCleanup(t.env.pulp.Remotes(), params)
}

// PublishRepository creates a publication of the repository's latest version.
func (t *T) PublishRepository(repoHref string) *client.Object {
	return t.CreateWithCleanup(t.env.pulp.Publications(), client.PublicationParams{
		Repository: repoHref,
	})
}

// DistributePublication creates a distribution serving the publication and
// returns its typed form, including the content-app base URL.
func (t *T) DistributePublication(publicationHref string) *client.Distribution {
	name := t.GenName("dist")
	obj := t.CreateWithCleanup(t.env.pulp.Distributions(), client.DistributionParams{
		Name:        name,
		BasePath:    name,
		Publication: publicationHref,
	})
	var dist client.Distribution
	require.NoError(t, t.env.pulp.Get(context.Background(), obj.Href, &dist))
	require.NotEmpty(t, dist.BaseURL, "distribution has no base_url")
	return &dist
}

// UploadPackage uploads RPM content and registers the resulting unit for
// cleanup. Content creation is task-based; the unit href comes from the
// task's created resources.
func (t *T) UploadPackage(filename string, contents []byte) *client.Package {
	ctx := context.Background()
	obj, err := t.env.pulp.UploadPackage(ctx, filename, contents)
	require.NoError(t, err)
	task := t.AwaitTask(obj)

	packages := t.env.pulp.Objects(client.PackagesPath)
	for _, resource := range task.CreatedResources {
		created, err := packages.Read(ctx, resource)
		if err != nil {
			continue
		}
		// Content units often have no delete endpoint; the cleanup tracker
		// swallows that, same as any already-gone object.
		t.cleanup.Add(packages, created.Href)
		var pkg client.Package
		require.NoError(t, t.env.pulp.Get(ctx, created.Href, &pkg))
		return &pkg
	}
	require.Fail(t, "no package found in created resources", "task %s created %v", task.Href, task.CreatedResources)
	return nil
}

// AddPackageToRepository adds an existing content unit to a repository,
// producing a new repository version.
func (t *T) AddPackageToRepository(repoHref, packageHref string) {
	obj, err := t.env.pulp.ModifyRepository(context.Background(), repoHref, []string{packageHref}, nil)
	require.NoError(t, err)
	t.AwaitTask(obj)
}

// SyncRepository syncs a repository from a remote and waits for the task.
func (t *T) SyncRepository(repoHref, remoteHref string) {
	obj, err := t.env.pulp.SyncRepository(context.Background(), repoHref, client.SyncParams{Remote: remoteHref})
	require.NoError(t, err)
	t.AwaitTask(obj)
}

// RepositoryPackages lists the content of the repository's latest version.
func (t *T) RepositoryPackages(repoHref string) []client.Package {
	list, err := t.env.pulp.RepositoryPackages(context.Background(), repoHref)
	require.NoError(t, err)
	return list.Results
}

// FixtureServer starts a fixture server for the handler, registered for
// teardown with this test's server group.
func (t *T) FixtureServer(handler http.Handler, tlsConfig *tls.Config) *harness.FixtureServer {
	server, err := harness.StartFixtureServer(t.env.cfg.FixturesOrigin, handler, tlsConfig,
		framework.LoggerWithPrefix(t.DebugLogger(), "[fixture server] "))
	require.NoError(t, err)
	t.servers.Add(server)
	return server
}

// FileFixtureServer starts a fixture server for the configured fixtures
// directory, skipping the test when none is configured.
func (t *T) FileFixtureServer(tlsConfig *tls.Config) *harness.FixtureServer {
	if t.env.cfg.FixturesDir == "" {
		t.Skip("no fixtures directory configured (PULP_FIXTURES_DIR)")
	}
	return t.FixtureServer(harness.FileHandler(t.env.cfg.FixturesDir), tlsConfig)
}

// HTTPProxy starts a forward-proxy fixture, stopped at the end of the test
// on all exit paths.
func (t *T) HTTPProxy(opts ...harness.ProxyOption) *harness.Proxy {
	proxy, err := harness.StartProxy(t.env.cfg.FixturesOrigin,
		framework.LoggerWithPrefix(t.DebugLogger(), "[proxy] "), opts...)
	require.NoError(t, err)
	t.Defer(proxy.Stop)
	return proxy
}

// OriginServerCert issues a server certificate for the fixtures origin from
// the session's server CA.
func (t *T) OriginServerCert() *harness.LeafCert {
	cert, err := t.env.serverCA.IssueCert(t.env.cfg.FixturesOrigin)
	require.NoError(t, err)
	return cert
}

// ClientCert issues a client certificate for the fixtures origin from the
// session's client CA.
func (t *T) ClientCert() *harness.LeafCert {
	cert, err := t.env.clientCA.IssueCert(t.env.cfg.FixturesOrigin)
	require.NoError(t, err)
	return cert
}

// ProxyServerCert issues a TLS certificate for a proxy fixture from the
// session's proxy CA.
func (t *T) ProxyServerCert() *harness.LeafCert {
	cert, err := t.env.proxyCA.IssueCert(t.env.cfg.FixturesOrigin)
	require.NoError(t, err)
	return cert
}

// ServerCA returns the session's server-side certificate authority.
func (t *T) ServerCA() *harness.CertAuthority { return t.env.serverCA }

// ClientCA returns the session's client-side certificate authority.
func (t *T) ClientCA() *harness.CertAuthority { return t.env.clientCA }

// FetchURL downloads a URL directly (not through the Pulp API), verifying
// HTTPS servers against the given CA when one is supplied.
func (t *T) FetchURL(rawURL string, ca *harness.CertAuthority) []byte {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	if ca != nil {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: ca.Pool()},
		}
	}
	resp, err := httpClient.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "unexpected status fetching %s", rawURL)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return data
}

// runLeftoverCheck looks for remote objects that carry this run's name tag
// after teardown has finished. Enabled with -no-leftovers.
func (t *T) runLeftoverCheck() {
	if !t.env.checkLeftovers {
		return
	}
	ctx := context.Background()
	collections := map[string]*client.ObjectsAPI{
		"repository":   t.env.pulp.Repositories(),
		"remote":       t.env.pulp.Remotes(),
		"distribution": t.env.pulp.Distributions(),
	}
	params := url.Values{}
	params.Set("name__contains", t.env.runTag)
	for kind, api := range collections {
		list, err := api.List(ctx, params)
		if err != nil {
			t.Debug("leftover check: listing %ss failed: %s", kind, err)
			continue
		}
		for _, obj := range list.Results {
			t.Errorf("leftover %s after teardown: %s (%s)", kind, obj.Name, obj.Href)
		}
	}
}
