package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", c.APIURL)
	assert.Equal(t, "admin", c.Username)
	assert.Equal(t, "password", c.Password)
	assert.Equal(t, "127.0.0.1", c.FixturesOrigin)
	assert.Equal(t, DefaultServices, c.Services)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PULP_API_URL", "https://pulp.example.com")
	t.Setenv("PULP_USERNAME", "tester")
	t.Setenv("PULP_FIXTURES_ORIGIN", "fixtures.local")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://pulp.example.com", c.APIURL)
	assert.Equal(t, "tester", c.Username)
	assert.Equal(t, "fixtures.local", c.FixturesOrigin)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	contents := []byte("api_url: http://pulp.local:24817\nfixtures_dir: /srv/fixtures\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pulp-contract-tests.yaml"), contents, 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://pulp.local:24817", c.APIURL)
	assert.Equal(t, "/srv/fixtures", c.FixturesDir)
	assert.Equal(t, "admin", c.Username, "unset keys keep their defaults")
}

func TestValidateRequiresAPIURL(t *testing.T) {
	c := Config{FixturesOrigin: "127.0.0.1"}
	assert.Error(t, c.Validate())

	c.APIURL = "http://pulp.local:24817"
	assert.NoError(t, c.Validate())
}

func TestValidateTrimsTrailingSlash(t *testing.T) {
	c := Config{APIURL: "http://pulp.local:24817/", FixturesOrigin: "127.0.0.1"}
	require.NoError(t, c.Validate())
	assert.Equal(t, "http://pulp.local:24817", c.APIURL)
}
