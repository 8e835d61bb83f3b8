package pulptests

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DoUploadPublishTests covers the upload → publish → search → download
// workflow for a single RPM content unit.
func DoUploadPublishTests(t *T) {
	t.Run("single unit upload, publish, search, download", func(t *T) {
		origin := t.FileFixtureServer(nil)
		rpmURL, err := origin.MakeURL(rpmFixturePath)
		require.NoError(t, err)
		rpm := t.FetchURL(rpmURL, nil)

		repo := t.CreateRepository()
		pkg := t.UploadPackage(rpmFilename, rpm)
		t.AddPackageToRepository(repo.Href, pkg.Href)

		units := t.RepositoryPackages(repo.Href)
		require.Len(t, units, 1)
		unit := units[0]
		assert.Equal(t, rpmFilename, unit.LocationHref)
		assert.Equal(t, rpmName, unit.Name)
		assert.Equal(t, rpmEpoch, unit.Epoch)
		assert.Equal(t, rpmVersion, unit.Version)
		assert.Equal(t, rpmRelease, unit.Release)
		assert.Equal(t, rpmArch, unit.Arch)
		assert.Equal(t, rpmLicense, unit.License)

		publication := t.PublishRepository(repo.Href)
		dist := t.DistributePublication(publication.Href)

		downloaded := t.FetchURL(strings.TrimRight(dist.BaseURL, "/")+"/"+unit.LocationHref, nil)
		assert.Equal(t, rpm, downloaded, "downloaded unit differs from the uploaded bytes")
	})

	t.Run("uploaded unit checksum", func(t *T) {
		origin := t.FileFixtureServer(nil)
		rpmURL, err := origin.MakeURL(rpmFixturePath)
		require.NoError(t, err)
		rpm := t.FetchURL(rpmURL, nil)

		pkg := t.UploadPackage(rpmFilename, rpm)
		digest := sha256.Sum256(rpm)
		assert.Equal(t, "sha256", pkg.ChecksumType)
		assert.Equal(t, hex.EncodeToString(digest[:]), pkg.Sha256)
	})

	t.Run("copy unit to second repository", func(t *T) {
		origin := t.FileFixtureServer(nil)
		rpmURL, err := origin.MakeURL(rpmFixturePath)
		require.NoError(t, err)
		rpm := t.FetchURL(rpmURL, nil)

		first := t.CreateRepository()
		second := t.CreateRepository()
		pkg := t.UploadPackage(rpmFilename, rpm)
		t.AddPackageToRepository(first.Href, pkg.Href)
		t.AddPackageToRepository(second.Href, pkg.Href)

		firstUnits := t.RepositoryPackages(first.Href)
		secondUnits := t.RepositoryPackages(second.Href)
		require.Len(t, firstUnits, 1)
		require.Len(t, secondUnits, 1)
		assert.Equal(t, firstUnits[0].Sha256, secondUnits[0].Sha256,
			"the two repositories should contain the same content unit")

		// Both repositories publish and serve the unit independently.
		for _, repo := range []string{first.Href, second.Href} {
			publication := t.PublishRepository(repo)
			dist := t.DistributePublication(publication.Href)
			downloaded := t.FetchURL(strings.TrimRight(dist.BaseURL, "/")+"/"+rpmFilename, nil)
			assert.Equal(t, rpm, downloaded)
		}
	})
}
