package pulptests

import (
	"context"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/pulpqe/pulp-contract-tests/client"
)

// DoSyncTests covers syncing repositories from a local fixture origin.
func DoSyncTests(t *T) {
	t.Run("remote reuse across repositories", func(t *T) {
		origin := t.FileFixtureServer(nil)
		feedURL, err := origin.MakeURL(rpmFixtureRepoDir)
		require.NoError(t, err)

		// One remote feeds two repositories; removing the repository/remote
		// foreign key is part of the v3 API design, so this must work.
		remote := t.CreateRemote(client.RemoteParams{
			URL:                 feedURL,
			DownloadConcurrency: ldvalue.NewOptionalInt(2),
		})

		var remoteDetail client.Remote
		require.NoError(t, t.Pulp().Get(context.Background(), remote.Href, &remoteDetail))
		require.True(t, remoteDetail.DownloadConcurrency.IsDefined())
		assert.Equal(t, 2, remoteDetail.DownloadConcurrency.IntValue(),
			"the created remote should echo download_concurrency")

		var repos []*client.Object
		for i := 0; i < 2; i++ {
			repo := t.CreateRepository()
			t.SyncRepository(repo.Href, remote.Href)
			repos = append(repos, repo)
		}

		digests := make([]map[string]bool, 2)
		for i, repo := range repos {
			digests[i] = map[string]bool{}
			for _, pkg := range t.RepositoryPackages(repo.Href) {
				digests[i][pkg.Sha256] = true
			}
		}
		require.NotEmpty(t, digests[0], "sync produced no content units")
		assert.Equal(t, digests[0], digests[1], "the two repositories should hold the same content")

		// Publications of the two repositories reference distinct repository
		// versions.
		var versions []string
		for _, repo := range repos {
			obj := t.PublishRepository(repo.Href)
			var publication client.Publication
			require.NoError(t, t.Pulp().Get(context.Background(), obj.Href, &publication))
			versions = append(versions, publication.RepositoryVersion)
		}
		assert.NotEqual(t, versions[0], versions[1])
	})

	t.Run("sync fetches repository metadata from the origin", func(t *T) {
		origin := t.FileFixtureServer(nil)
		feedURL, err := origin.MakeURL(rpmFixtureRepoDir)
		require.NoError(t, err)

		remote := t.CreateRemote(client.RemoteParams{URL: feedURL})
		repo := t.CreateRepository()
		t.SyncRepository(repo.Href, remote.Href)

		sawRepomd := false
	Drain:
		for {
			select {
			case info := <-origin.Requests:
				t.Debug("origin request: %s %s", info.Method, info.Path)
				if strings.HasSuffix(info.Path, "/repodata/repomd.xml") {
					sawRepomd = true
				}
			default:
				break Drain
			}
		}
		assert.True(t, sawRepomd, "the origin never served repodata/repomd.xml")
	})
}
