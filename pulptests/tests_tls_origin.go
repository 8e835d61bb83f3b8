package pulptests

import (
	"context"

	"github.com/stretchr/testify/require"

	"github.com/pulpqe/pulp-contract-tests/client"
)

func boolPtr(b bool) *bool { return &b }

// DoTLSOriginTests covers syncing from HTTPS fixture origins, including one
// that requires client certificates.
func DoTLSOriginTests(t *T) {
	t.Run("sync from HTTPS origin", func(t *T) {
		cert := t.OriginServerCert()
		origin := t.FileFixtureServer(cert.ServerTLSConfig())
		feedURL, err := origin.MakeURL(rpmFixtureRepoDir)
		require.NoError(t, err)

		remote := t.CreateRemote(client.RemoteParams{
			URL:    feedURL,
			CACert: t.ServerCA().CertPEM(),
		})
		repo := t.CreateRepository()
		t.SyncRepository(repo.Href, remote.Href)
		require.NotEmpty(t, t.RepositoryPackages(repo.Href))
	})

	t.Run("origin requiring client certificates", func(t *T) {
		serverCert := t.OriginServerCert()
		clientCert := t.ClientCert()
		origin := t.FileFixtureServer(serverCert.ClientAuthTLSConfig(t.ClientCA()))
		feedURL, err := origin.MakeURL(rpmFixtureRepoDir)
		require.NoError(t, err)

		t.Run("sync succeeds with the client certificate", func(t *T) {
			remote := t.CreateRemote(client.RemoteParams{
				URL:        feedURL,
				CACert:     t.ServerCA().CertPEM(),
				ClientCert: clientCert.CertPEM,
				ClientKey:  clientCert.KeyPEM,
			})
			repo := t.CreateRepository()
			t.SyncRepository(repo.Href, remote.Href)
			require.NotEmpty(t, t.RepositoryPackages(repo.Href))
		})

		t.Run("sync fails without the client certificate", func(t *T) {
			remote := t.CreateRemote(client.RemoteParams{
				URL:    feedURL,
				CACert: t.ServerCA().CertPEM(),
			})
			repo := t.CreateRepository()
			obj, err := t.Pulp().SyncRepository(context.Background(), repo.Href, client.SyncParams{Remote: remote.Href})
			require.NoError(t, err)
			t.AwaitFailedTask(obj)
		})
	})

	t.Run("sync fails with an untrusted origin certificate", func(t *T) {
		cert := t.OriginServerCert()
		origin := t.FileFixtureServer(cert.ServerTLSConfig())
		feedURL, err := origin.MakeURL(rpmFixtureRepoDir)
		require.NoError(t, err)

		// No ca_cert and validation enabled: the self-signed chain must be
		// rejected.
		remote := t.CreateRemote(client.RemoteParams{
			URL:           feedURL,
			TLSValidation: boolPtr(true),
		})
		repo := t.CreateRepository()
		obj, err := t.Pulp().SyncRepository(context.Background(), repo.Href, client.SyncParams{Remote: remote.Href})
		require.NoError(t, err)
		t.AwaitFailedTask(obj)
	})
}
