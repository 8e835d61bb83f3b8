package pulptests

import (
	"context"

	"github.com/stretchr/testify/require"

	"github.com/pulpqe/pulp-contract-tests/client"
	"github.com/pulpqe/pulp-contract-tests/harness"
)

// DoProxyTests covers syncing through a local forward proxy in its auth and
// TLS variants.
func DoProxyTests(t *T) {
	syncThroughProxy := func(t *T, proxy *harness.Proxy) {
		origin := t.FileFixtureServer(nil)
		feedURL, err := origin.MakeURL(rpmFixtureRepoDir)
		require.NoError(t, err)

		remote := t.CreateRemote(client.RemoteParams{
			URL:           feedURL,
			ProxyURL:      proxy.Config.URL(),
			ProxyUsername: proxy.Config.Username,
			ProxyPassword: proxy.Config.Password,
		})
		repo := t.CreateRepository()
		t.SyncRepository(repo.Href, remote.Href)
		require.NotEmpty(t, t.RepositoryPackages(repo.Href), "sync through proxy produced no content")
	}

	t.Run("sync through plain proxy", func(t *T) {
		syncThroughProxy(t, t.HTTPProxy())
	})

	t.Run("sync through authenticated proxy", func(t *T) {
		syncThroughProxy(t, t.HTTPProxy(harness.ProxyWithRandomAuth()))
	})

	t.Run("wrong proxy credentials fail the sync", func(t *T) {
		proxy := t.HTTPProxy(harness.ProxyWithRandomAuth())
		origin := t.FileFixtureServer(nil)
		feedURL, err := origin.MakeURL(rpmFixtureRepoDir)
		require.NoError(t, err)

		remote := t.CreateRemote(client.RemoteParams{
			URL:           feedURL,
			ProxyURL:      proxy.Config.URL(),
			ProxyUsername: proxy.Config.Username,
			ProxyPassword: "not-the-password",
		})
		repo := t.CreateRepository()
		obj, err := t.Pulp().SyncRepository(context.Background(), repo.Href, client.SyncParams{Remote: remote.Href})
		require.NoError(t, err)
		t.AwaitFailedTask(obj)
	})

	t.Run("sync through TLS proxy", func(t *T) {
		cert := t.ProxyServerCert()
		proxy := t.HTTPProxy(
			harness.ProxyWithRandomAuth(),
			harness.ProxyWithTLS(cert.ServerTLSConfig()),
		)
		origin := t.FileFixtureServer(nil)
		feedURL, err := origin.MakeURL(rpmFixtureRepoDir)
		require.NoError(t, err)

		// The remote talks TLS to the proxy itself; tls_validation covers
		// the origin, so the proxy's CA is not checked by the server and
		// validation stays on.
		remote := t.CreateRemote(client.RemoteParams{
			URL:           feedURL,
			ProxyURL:      proxy.Config.URL(),
			ProxyUsername: proxy.Config.Username,
			ProxyPassword: proxy.Config.Password,
		})
		repo := t.CreateRepository()
		t.SyncRepository(repo.Href, remote.Href)
		require.NotEmpty(t, t.RepositoryPackages(repo.Href))
	})
}
