package pulptests

import (
	"github.com/google/uuid"

	"github.com/pulpqe/pulp-contract-tests/client"
	"github.com/pulpqe/pulp-contract-tests/config"
	"github.com/pulpqe/pulp-contract-tests/framework"
	"github.com/pulpqe/pulp-contract-tests/harness"
)

// SuiteOptions configures a test-suite run.
type SuiteOptions struct {
	Config         *config.Config
	Pulp           *client.PulpClient
	ServiceManager *harness.ServiceManager
	Filter         framework.Filter
	TestLogger     framework.TestLogger
	Nightly        bool
	CheckLeftovers bool
}

// RunTestSuite runs the whole suite and returns the results.
func RunTestSuite(opts SuiteOptions) (framework.Results, error) {
	serverCA, err := harness.NewCertAuthority("Pulp Fixture Server CA")
	if err != nil {
		return framework.Results{}, err
	}
	clientCA, err := harness.NewCertAuthority("Pulp Fixture Client CA")
	if err != nil {
		return framework.Results{}, err
	}
	proxyCA, err := harness.NewCertAuthority("Pulp Fixture Proxy CA")
	if err != nil {
		return framework.Results{}, err
	}

	env := &environment{
		cfg:            opts.Config,
		pulp:           opts.Pulp,
		svcMgr:         opts.ServiceManager,
		serverCA:       serverCA,
		clientCA:       clientCA,
		proxyCA:        proxyCA,
		runTag:         "pct-" + uuid.NewString()[:8],
		checkLeftovers: opts.CheckLeftovers,
	}

	results := framework.Run(framework.RunConfig{
		Filter:         opts.Filter,
		TestLogger:     opts.TestLogger,
		NightlyEnabled: opts.Nightly,
	}, func(c *framework.Context) {
		t := newTestScope(c, env)

		t.Run("upload and publish", DoUploadPublishTests)
		t.Run("sync", DoSyncTests)
		t.Run("proxy", DoProxyTests)
		t.Run("TLS origin", DoTLSOriginTests)
		t.Run("services", DoServiceTests)
	})
	return results, nil
}
